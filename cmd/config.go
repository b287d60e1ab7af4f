package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zalepa/evpop/config"
)

func newConfigCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration",
	}
	c.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := yaml.Marshal(a.cfg)
				if err != nil {
					return fmt.Errorf("marshal yaml: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			},
		},
		&cobra.Command{
			Use:         "init",
			Short:       "Write the effective configuration to the config file",
			Annotations: map[string]string{"config": "create"},
			Args:        cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.Save(a.cfg, a.cfgFile); err != nil {
					return err
				}
				dest := a.cfgFile
				if dest == "" {
					dest = "~/.evpop/config.yaml"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", dest)
				return nil
			},
		},
	)
	return c
}
