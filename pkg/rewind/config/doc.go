/*
Package config loads rewind settings from YAML or JSON files and REWIND_*
environment variables.

# Documents

Config wraps a decoded document and returns typed values with defaults:

	cfg, err := config.FromFile("rewind.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	budget := cfg.Int("budget", 8)

YAML decodes integers as int and JSON as float64; Int and Int64 accept
both.

# Settings

Settings are the engine-level knobs. Load reads a file, applies
environment overrides and validates:

	s, err := config.Load("rewind.yaml")
	model, closeStore, err := s.Model()
	defer closeStore()
	e, err := rewind.New(ctx, step, seed, s.EngineOptions(model)...)

Environment variables: REWIND_LENGTH, REWIND_BUDGET, REWIND_GROWTH,
REWIND_SLACK, REWIND_MAX_CELLS, REWIND_STORE, REWIND_DEAMORTIZE and
REWIND_WALKERS.
*/
package config
