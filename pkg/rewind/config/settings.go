package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/randalmurphal/rewind/pkg/rewind"
	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
)

// ErrInvalidSettings indicates a setting outside its allowed range.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings configure an engine run. Fields are filled from a file first,
// then from REWIND_* environment variables.
type Settings struct {
	// Length is the sequence length; 0 means unknown.
	Length int `env:"REWIND_LENGTH"`
	// Budget is the number of checkpoints k.
	Budget int `env:"REWIND_BUDGET"`
	// Growth is the initial working extent for unknown lengths.
	Growth int `env:"REWIND_GROWTH"`
	// Slack multiplies the per-step cost for the deamortizer budget.
	Slack int `env:"REWIND_SLACK"`
	// MaxCells bounds the cost-table cache.
	MaxCells int64 `env:"REWIND_MAX_CELLS"`
	// StorePath is a SQLite file for cost tables; empty keeps them in memory.
	StorePath string `env:"REWIND_STORE"`
	// Deamortize bounds the work of each move.
	Deamortize bool `env:"REWIND_DEAMORTIZE"`
	// Walkers is the number of independent cursors to run.
	Walkers int `env:"REWIND_WALKERS"`
}

// DefaultSettings returns the settings used when nothing overrides them.
func DefaultSettings() Settings {
	return Settings{
		Budget:   rewind.DefaultBudget,
		Growth:   costmodel.DefaultGrowth,
		Slack:    rewind.DefaultSlack,
		MaxCells: costmodel.DefaultMaxCells,
		Walkers:  1,
	}
}

// FromConfig reads settings from a document, keeping defaults for missing keys.
//
//	length: 10000
//	budget: 12
//	growth: 64
//	slack: 2
//	max_cells: 4194304
//	store: tables.db
//	deamortize: true
//	walkers: 4
func FromConfig(c Config) Settings {
	d := DefaultSettings()
	return Settings{
		Length:     c.Int("length", d.Length),
		Budget:     c.Int("budget", d.Budget),
		Growth:     c.Int("growth", d.Growth),
		Slack:      c.Int("slack", d.Slack),
		MaxCells:   c.Int64("max_cells", d.MaxCells),
		StorePath:  c.String("store", d.StorePath),
		Deamortize: c.Bool("deamortize", d.Deamortize),
		Walkers:    c.Int("walkers", d.Walkers),
	}
}

// Load reads settings from path (defaults when empty), applies environment
// overrides and validates the result.
func Load(path string) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		c, err := FromFile(path)
		if err != nil {
			return Settings{}, err
		}
		s = FromConfig(c)
	}
	if err := s.ApplyEnv(); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ApplyEnv overrides fields whose REWIND_* variable is set.
func (s *Settings) ApplyEnv() error {
	if err := env.Parse(s); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks every field's range.
func (s Settings) Validate() error {
	var errs []error
	if s.Length < 0 {
		errs = append(errs, fmt.Errorf("length %d must not be negative", s.Length))
	}
	if s.Budget < 0 {
		errs = append(errs, fmt.Errorf("budget %d must not be negative", s.Budget))
	}
	if s.Growth < 2 {
		errs = append(errs, fmt.Errorf("growth %d must be at least 2", s.Growth))
	}
	if s.Slack < 1 {
		errs = append(errs, fmt.Errorf("slack %d must be at least 1", s.Slack))
	}
	if s.MaxCells < 1 {
		errs = append(errs, fmt.Errorf("max_cells %d must be positive", s.MaxCells))
	}
	if s.Walkers < 1 {
		errs = append(errs, fmt.Errorf("walkers %d must be at least 1", s.Walkers))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// Model builds a cost model with a cache bounded by MaxCells, persisted to
// StorePath when set. The returned close function releases the store.
func (s Settings) Model() (*costmodel.Model, func() error, error) {
	opts := []costmodel.CacheOption{costmodel.WithMaxCells(s.MaxCells)}
	closeFn := func() error { return nil }
	if s.StorePath != "" {
		store, err := costmodel.NewSQLiteStore(s.StorePath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, costmodel.WithStore(store))
		closeFn = store.Close
	}
	cache := costmodel.NewCache(opts...)
	return costmodel.NewModel(costmodel.WithCache(cache)), closeFn, nil
}

// EngineOptions returns the engine options these settings imply.
func (s Settings) EngineOptions(model *costmodel.Model) []rewind.Option {
	opts := []rewind.Option{
		rewind.WithBudget(s.Budget),
		rewind.WithGrowth(s.Growth),
		rewind.WithModel(model),
	}
	if s.Length > 0 {
		opts = append(opts, rewind.WithLength(s.Length))
	}
	return opts
}

// DeamortizerOptions returns the deamortizer options these settings imply.
func (s Settings) DeamortizerOptions() []rewind.DeamortizerOption {
	return []rewind.DeamortizerOption{rewind.WithSlack(s.Slack)}
}
