package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
	"github.com/spf13/cobra"
)

func newTablesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Manage persisted cost tables",
	}
	cmd.PersistentFlags().String("db", "", "SQLite file holding cost tables")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored tables",
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openStore(cmd, opts)
				if err != nil {
					return err
				}
				defer store.Close()

				infos, err := store.List()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "LENGTH\tBUDGET\tBYTES\tSAVED")
				for _, info := range infos {
					fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", info.Key.Length, info.Key.Budget, info.Size, info.Timestamp.Format(time.RFC3339))
				}
				return w.Flush()
			},
		},
		newTablesKeyCmd(opts, "warm", "Compute and store the table for --n and --k", func(cmd *cobra.Command, store *costmodel.SQLiteStore, key costmodel.TableKey) error {
			cache := costmodel.NewCache(costmodel.WithStore(store), costmodel.WithMaxCells(maxCells(cmd, opts)))
			t, err := cache.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d cells)\n", key, t.Cells())
			return nil
		}),
		newTablesKeyCmd(opts, "rm", "Delete the table for --n and --k", func(cmd *cobra.Command, store *costmodel.SQLiteStore, key costmodel.TableKey) error {
			if err := store.Delete(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
			return nil
		}),
	)
	return cmd
}

func newTablesKeyCmd(opts *options, use, short string, run func(*cobra.Command, *costmodel.SQLiteStore, costmodel.TableKey) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, _ := cmd.Flags().GetInt("n")
			k, _ := cmd.Flags().GetInt("k")
			if n < 1 || k < 0 {
				return errors.New("need --n >= 1 and --k >= 0")
			}
			store, err := openStore(cmd, opts)
			if err != nil {
				return err
			}
			defer store.Close()
			return run(cmd, store, costmodel.TableKey{Length: n, Budget: k})
		},
	}
	cmd.Flags().Int("n", 0, "table length")
	cmd.Flags().Int("k", 0, "table budget")
	return cmd
}

func openStore(cmd *cobra.Command, opts *options) (*costmodel.SQLiteStore, error) {
	s, err := opts.settings(cmd)
	if err != nil {
		return nil, err
	}
	if s.StorePath == "" {
		return nil, errors.New("tables needs --db or a store setting")
	}
	return costmodel.NewSQLiteStore(s.StorePath)
}

func maxCells(cmd *cobra.Command, opts *options) int64 {
	s, err := opts.settings(cmd)
	if err != nil {
		return costmodel.DefaultMaxCells
	}
	return s.MaxCells
}
