package record

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrNoHeader is returned when the input has no header row.
	ErrNoHeader = errors.New("csv has no header row")
	// ErrMissingColumns is returned when the header lacks required columns.
	ErrMissingColumns = errors.New("csv is missing required columns")
)

// LoadError is the single human-readable failure of a dataset load. No
// partial dataset accompanies it.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("error loading CSV %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Read parses CSV text with a header row and sanitizes every data row.
// Blank lines are skipped. Short rows are padded with empty fields.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var records []Record
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		raw := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				raw[name] = row[i]
			} else {
				raw[name] = ""
			}
		}
		records = append(records, Sanitize(raw))
	}
	return records, nil
}

func missingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// Loader opens a dataset from a local path or an http(s) URL.
type Loader struct {
	Client *http.Client
	Logger *slog.Logger
}

// Load reads and sanitizes the whole dataset from src. It resolves with every
// row or fails with a *LoadError; there is no retry and no partial result.
func (l Loader) Load(ctx context.Context, src string) (*Dataset, error) {
	ctx, span := otel.Tracer("evpop/record").Start(ctx, "record.Load")
	defer span.End()
	span.SetAttributes(attribute.String("source", src))

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rc, err := l.open(ctx, src)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &LoadError{Source: src, Err: err}
	}
	defer rc.Close()

	records, err := Read(rc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &LoadError{Source: src, Err: err}
	}
	span.SetAttributes(attribute.Int("rows", len(records)))
	logger.InfoContext(ctx, "dataset loaded", slog.String("source", src), slog.Int("rows", len(records)))
	return NewDataset(records), nil
}

func (l Loader) open(ctx context.Context, src string) (io.ReadCloser, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.Open(src)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// LoadFile is a convenience for Loader{}.Load on a local path.
func LoadFile(path string) (*Dataset, error) {
	return Loader{}.Load(context.Background(), path)
}
