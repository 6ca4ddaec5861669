package main

import (
	"io"
	"log/slog"

	"github.com/randalmurphal/rewind/pkg/rewind/config"
	"github.com/spf13/cobra"
)

// options holds flags shared by every subcommand.
type options struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "rewind",
		Short:         "Walk forward-only sequences in both directions with bounded memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "settings file (.yaml, .yml or .json)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	cmd.AddCommand(
		newPlanCmd(opts),
		newWalkCmd(opts),
		newTablesCmd(opts),
	)
	return cmd
}

// settings loads the config file and environment, then applies the flags
// the user set explicitly.
func (o *options) settings(cmd *cobra.Command) (config.Settings, error) {
	s, err := config.Load(o.configPath)
	if err != nil {
		return config.Settings{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("n") {
		s.Length, _ = flags.GetInt("n")
	}
	if flags.Changed("k") {
		s.Budget, _ = flags.GetInt("k")
	}
	if flags.Changed("slack") {
		s.Slack, _ = flags.GetInt("slack")
	}
	if flags.Changed("walkers") {
		s.Walkers, _ = flags.GetInt("walkers")
	}
	if flags.Changed("deamortize") {
		s.Deamortize, _ = flags.GetBool("deamortize")
	}
	if flags.Changed("db") {
		s.StorePath, _ = flags.GetString("db")
	}
	return s, s.Validate()
}

func (o *options) logger(w io.Writer) *slog.Logger {
	if !o.verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
