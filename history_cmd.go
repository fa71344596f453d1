package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"ble-finder.klederson.com/internal/bluetooth"
	"ble-finder.klederson.com/internal/config"
	"ble-finder.klederson.com/internal/history"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or edit the list of found devices",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show found devices, most recent first",
			Args:  cobra.NoArgs,
			RunE: withStore(func(ctx context.Context, store history.Store, args []string) error {
				entries, err := store.List(ctx)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Println("No devices in history.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "FOUND\tTYPE\tNAME\tHANDLE")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						e.FoundAt.Local().Format("2006-01-02 15:04"), e.Class, e.Name, e.Handle)
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "remove HANDLE",
			Short: "Remove one device from history",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(ctx context.Context, store history.Store, args []string) error {
				return store.Remove(ctx, bluetooth.Handle(args[0]))
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every device from history",
			Args:  cobra.NoArgs,
			RunE: withStore(func(ctx context.Context, store history.Store, args []string) error {
				return store.Clear(ctx)
			}),
		},
	)
	return cmd
}

// withStore opens the history database for a subcommand.
func withStore(fn func(ctx context.Context, store history.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("db") {
			cfg.History.DBPath = flagDB
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		store, err := history.OpenSQLite(ctx, cfg.History.DBPath, config.HistoryLimit, zerolog.Nop())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		return fn(ctx, store, args)
	}
}
