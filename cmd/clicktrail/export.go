package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clicktrail/internal/appconfig"
	"clicktrail/internal/database"
)

func newExportCmd() *cobra.Command {
	var cfgPath string
	var dbPath string
	var output string
	cmd := &cobra.Command{
		Use:   "export <session>",
		Short: "Export a session's events as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Server.DBPath = dbPath
			}

			db, err := database.NewDatabase(cfg.Server.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				out = file
			}
			if err := db.ExportCSV(out, args[0]); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
