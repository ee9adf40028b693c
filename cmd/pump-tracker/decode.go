package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepamak/pump-tracker/internal/decoder"
	"github.com/stepamak/pump-tracker/internal/devlist"
	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/filter"
	"github.com/stepamak/pump-tracker/internal/httpapi"
	"github.com/stepamak/pump-tracker/internal/logger"
	"github.com/stepamak/pump-tracker/internal/tracker"
)

var decodeStart string

func init() {
	decodeCmd.Flags().StringVar(&decodeStart, "start", "", "session start time (RFC 3339) for the history rule; empty skips it")
	rootCmd.AddCommand(decodeCmd)
}

var decodeCmd = &cobra.Command{
	Use:   "decode [file|-]",
	Short: "Decode a captured feed message and show filter decisions",
	Long: `Decode one raw feed message and print the canonical events together with
the filter decision for each, using the configured criteria and dev list files.

Examples:
  # Decode a saved message
  pump-tracker decode message.json

  # Decode from stdin with the history rule applied
  cat message.json | pump-tracker decode - --start 2024-05-01T10:00:00Z`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

// DecodeReport is the output of the decode command.
type DecodeReport struct {
	Batch    bool          `json:"batch"`
	Initial  bool          `json:"initial"`
	Elements int           `json:"elements"`
	Failed   int           `json:"failed"`
	Events   []DecodedItem `json:"events"`
}

// DecodedItem is one decoded event and its decision.
type DecodedItem struct {
	Token    httpapi.TokenView `json:"token"`
	Accepted bool              `json:"accepted"`
	Step     string            `json:"step,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read message: %w", err)
	}

	var startedAt time.Time
	if decodeStart != "" {
		startedAt, err = time.Parse(time.RFC3339, decodeStart)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
	}

	var sets *devlist.Sets
	if cfg.Filter.UseAllowList || cfg.Filter.UseDenyList {
		dirs := cfg.DevLists.Dirs
		if len(dirs) == 0 {
			dirs = devlist.DefaultDirs()
		}
		loader := devlist.NewLoader(devlist.NewFileStore(dirs), nil, log.Named("devlist"))
		sets, err = loader.Load(cmd.Context(), cfg.Filter.UseAllowList, cfg.Filter.UseDenyList)
		if err != nil {
			log.Warn("dev lists loaded with errors", logger.FieldErr(err))
		}
	}

	report, err := decodeMessage(string(raw), cfg.Filter, sets, startedAt, time.Now())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// decodeMessage runs text through the decoder and the filter. A zero
// startedAt skips the history rule.
func decodeMessage(text string, c domain.Criteria, sets filter.ReputationSets, startedAt, now time.Time) (*DecodeReport, error) {
	res, err := decoder.Decode(text)
	if err != nil {
		return nil, err
	}

	report := &DecodeReport{
		Batch:    res.Batch,
		Initial:  res.Initial,
		Elements: res.Elements,
		Failed:   res.Failed,
		Events:   make([]DecodedItem, 0, len(res.Events)),
	}
	for i := range res.Events {
		ev := &res.Events[i]
		item := DecodedItem{Token: httpapi.NewTokenView(tracker.Token{TokenEvent: *ev}, now)}

		if !startedAt.IsZero() && !filter.AdmitHistory(ev, c, startedAt) {
			item.Step = filter.StepHistory
			item.Reason = "created before session start"
		} else {
			d := filter.Evaluate(ev, c, sets, now)
			item.Accepted, item.Step, item.Reason = d.Accepted, d.Step, d.Reason
		}
		report.Events = append(report.Events, item)
	}
	return report, nil
}
