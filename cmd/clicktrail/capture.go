package main

import (
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"clicktrail/internal/agent"
	"clicktrail/internal/appconfig"
)

func newCaptureCmd() *cobra.Command {
	var cfgPath string
	var startURL string
	var collectorURL string
	var headless bool
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Start the capture agent and open the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if startURL != "" {
				cfg.Capture.StartURL = startURL
			}
			if collectorURL != "" {
				cfg.Collector.BaseURL = collectorURL
			}
			if cmd.Flags().Changed("headless") {
				cfg.Capture.Headless = headless
			}

			a := agent.New(agentConfig(cfg), logger)
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&startURL, "url", "", "page to open (overrides config)")
	cmd.Flags().StringVar(&collectorURL, "collector", "", "collector base URL (overrides config)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser headless")
	return cmd
}

func agentConfig(cfg appconfig.Config) agent.Config {
	return agent.Config{
		BaseURL:        cfg.Collector.BaseURL,
		RequestTimeout: time.Duration(cfg.Collector.RequestTimeoutSeconds) * time.Second,

		StartURL:    cfg.Capture.StartURL,
		Headless:    cfg.Capture.Headless,
		ControlAddr: cfg.Capture.ControlAddr,
		Settle:      time.Duration(cfg.Capture.SettleMillis) * time.Millisecond,
		Throttle:    time.Duration(cfg.Capture.ThrottleMillis) * time.Millisecond,
		ExcerptCap:  cfg.Capture.ExcerptCap,
		Highlight:   cfg.Capture.Highlight,

		BatchLimit:    cfg.Batch.MaxEvents,
		FlushTimeout:  time.Duration(cfg.Batch.FlushTimeoutSeconds) * time.Second,
		SweepInterval: time.Duration(cfg.Batch.SweepIntervalSeconds) * time.Second,

		HeartbeatInterval: time.Duration(cfg.Session.HeartbeatIntervalSeconds) * time.Second,
	}
}
