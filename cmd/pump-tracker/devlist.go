package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepamak/pump-tracker/internal/devlist"
	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/storage"
	pgstore "github.com/stepamak/pump-tracker/internal/storage/postgres"
)

var (
	devNote    string
	devToStore bool
)

func init() {
	devlistAddCmd.Flags().StringVar(&devNote, "note", "", "note kept with the database entry")
	devlistAddCmd.Flags().BoolVar(&devToStore, "store", false, "also write to the Postgres dev list store")
	devlistCmd.AddCommand(devlistAddCmd)
	devlistCmd.AddCommand(devlistShowCmd)
	rootCmd.AddCommand(devlistCmd)
}

var devlistCmd = &cobra.Command{
	Use:   "devlist",
	Short: "Manage developer allow and deny lists",
}

var devlistAddCmd = &cobra.Command{
	Use:   "add <allow|deny> <address>",
	Short: "Append a developer address to a list",
	Long: `Append a developer address to the allow or deny list file in the first
writable list directory. The running tracker picks it up on its next start.

Examples:
  pump-tracker devlist add deny 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU
  pump-tracker devlist add allow 7xKX... --store --note "known builder"`,
	Args: cobra.ExactArgs(2),
	RunE: runDevlistAdd,
}

var devlistShowCmd = &cobra.Command{
	Use:   "show <allow|deny>",
	Short: "Print the merged contents of a list",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevlistShow,
}

func parseKind(s string) (domain.ListKind, error) {
	kind, ok := domain.ParseListKind(strings.ToLower(s))
	if !ok {
		return "", fmt.Errorf("unknown list %q, want allow or deny", s)
	}
	return kind, nil
}

func listDirs(dirs []string) []string {
	if len(dirs) == 0 {
		return devlist.DefaultDirs()
	}
	return dirs
}

func runDevlistAdd(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	address := strings.TrimSpace(args[1])
	if address == "" {
		return fmt.Errorf("address is empty")
	}

	var store storage.DevListStore
	if devToStore {
		if cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("--store needs storage.postgres_dsn")
		}
		pool, err := pgstore.NewPool(cmd.Context(), cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewDevListStore(pool)
	}

	loader := devlist.NewLoader(devlist.NewFileStore(listDirs(cfg.DevLists.Dirs)), store, log.Named("devlist"))
	path, err := loader.Add(cmd.Context(), kind, address, devNote, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if !devlist.ValidAddress(address) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is not a valid address\n", address)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s list: %s -> %s\n", kind, address, path)
	return nil
}

func runDevlistShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}

	entries, err := devlist.NewFileStore(listDirs(cfg.DevLists.Dirs)).Read(kind)
	for _, e := range devlist.NewSets(entries, nil).Allow() {
		fmt.Fprintln(cmd.OutOrStdout(), e)
	}
	return err
}
