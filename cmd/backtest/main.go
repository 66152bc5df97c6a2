// go-breakout/cmd/backtest/main.go
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"go-breakout/internal/cfg"
	"go-breakout/internal/logx"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "backtest",
		Short:         "Gap-filtered breakout backtester",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// console output on a terminal, JSON lines when piped
			w := cmd.ErrOrStderr()
			logx.SetupWriter(w, rf.logLevel, logx.IsTerminal(w))
		},
	}
	root.PersistentFlags().StringVar(&rf.configPath, "config", "", "config file (default ./config.yaml when present)")
	root.PersistentFlags().StringVar(&rf.logLevel, "log-level", "info", "debug | info | warn | error")

	root.AddCommand(newRunCmd(rf), newSampleCmd(), newValidateCmd(rf))
	return root
}

func (rf *rootFlags) load() (cfg.Config, error) {
	return cfg.Load(rf.configPath)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("backtest")
		os.Exit(1)
	}
}
