package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"clicktrail/internal/appconfig"
	"clicktrail/internal/database"
	"clicktrail/internal/server"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var addr string
	var dbPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the collector service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath != "" {
				cfg.Server.DBPath = dbPath
			}

			if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o755); err != nil {
				return err
			}
			db, err := database.NewDatabase(cfg.Server.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			logger.Info("collector database", "path", cfg.Server.DBPath)
			srv := server.NewServer(db, cfg.Server.Addr, logger)
			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	return cmd
}
