// go-breakout/cmd/backtest/validate.go
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"go-breakout/internal/rules"
)

func newValidateCmd(rf *rootFlags) *cobra.Command {
	var sf strategyFlags
	var scenarioPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a strategy config without running anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := rf.load()
			var cerr *rules.ConfigError
			switch {
			case errors.As(err, &cerr):
				return report(cmd, cerr.Problems)
			case err != nil:
				return err
			}
			base := conf.Strategy
			if scenarioPath != "" {
				sc, err := loadScenario(scenarioPath)
				if err != nil {
					return err
				}
				base = sc.overlay(base)
			}
			return report(cmd, rules.ValidateConfig(sf.apply(cmd, base)))
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "also apply this scenario's config")
	return cmd
}

func report(cmd *cobra.Command, problems []string) error {
	out := cmd.OutOrStdout()
	if len(problems) == 0 {
		fmt.Fprintln(out, "config ok")
		return nil
	}
	for _, p := range problems {
		fmt.Fprintln(out, "  -", p)
	}
	return &rules.ConfigError{Problems: problems}
}
