package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const datasetFile = "Electric_Vehicle_Population_Data.csv"

func newDownloadCmd(a *app) *cobra.Command {
	var (
		dir   string
		url   string
		force bool
	)
	c := &cobra.Command{
		Use:   "download",
		Short: "Fetch the EV population CSV to a local directory",
		Example: `  evpop download --dir data
  evpop download --url https://example.org/evs.csv --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = a.cfg.DataURL
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			dest := filepath.Join(dir, datasetFile)
			if _, err := os.Stat(dest); err == nil && !force {
				fmt.Fprintf(cmd.ErrOrStderr(), "skip %s (already exists, use --force to replace)\n", dest)
				return nil
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "downloading %s -> %s\n", url, dest)
			client := &http.Client{Timeout: a.cfg.HTTPTimeout()}
			n, err := downloadFile(cmd.Context(), client, url, dest)
			if err != nil {
				return fmt.Errorf("downloading %s: %w", url, err)
			}
			a.logger.Info("dataset downloaded", "url", url, "path", dest, "bytes", n)
			fmt.Fprintf(cmd.ErrOrStderr(), "Done: %d bytes written\n", n)
			return nil
		},
	}
	f := c.Flags()
	f.StringVar(&dir, "dir", "data", "output directory")
	f.StringVar(&url, "url", "", "dataset URL (default from config)")
	f.BoolVar(&force, "force", false, "replace an existing file")
	return c
}

// downloadFile writes url to dest through a temporary file so a failed
// transfer never leaves a truncated dataset behind.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), dest)
}
