package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stepamak/pump-tracker/internal/health"
)

func init() {
	rootCmd.AddCommand(pingCmd)
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Probe the feed health endpoint once",
	Long: `Probe the health URL derived from the feed endpoint (ws becomes http,
wss becomes https, path /ping) and print the result.`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	p, err := health.NewPinger(cfg.Feed.Endpoint, cfg.Feed.APIKey, cfg.Health, health.WithLogger(log.Named("health")))
	if err != nil {
		return err
	}

	res := p.Probe(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", p.URL(), res)
	if res.Outcome != health.OutcomeOK {
		return fmt.Errorf("ping %s: %s", p.URL(), res.Outcome)
	}
	return nil
}
