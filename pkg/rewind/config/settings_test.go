package config_test

import (
	"path/filepath"
	"testing"

	"github.com/randalmurphal/rewind/pkg/rewind"
	"github.com/randalmurphal/rewind/pkg/rewind/config"
	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := config.DefaultSettings()

	assert.Equal(t, 0, s.Length)
	assert.Equal(t, rewind.DefaultBudget, s.Budget)
	assert.Equal(t, costmodel.DefaultGrowth, s.Growth)
	assert.Equal(t, rewind.DefaultSlack, s.Slack)
	assert.Equal(t, costmodel.DefaultMaxCells, s.MaxCells)
	assert.Equal(t, 1, s.Walkers)
	assert.NoError(t, s.Validate())
}

func TestFromConfig(t *testing.T) {
	cfg := config.New(map[string]any{
		"length":     1000,
		"budget":     12,
		"slack":      3,
		"max_cells":  float64(1 << 20),
		"store":      "tables.db",
		"deamortize": true,
	})

	s := config.FromConfig(cfg)

	assert.Equal(t, 1000, s.Length)
	assert.Equal(t, 12, s.Budget)
	assert.Equal(t, costmodel.DefaultGrowth, s.Growth)
	assert.Equal(t, 3, s.Slack)
	assert.Equal(t, int64(1<<20), s.MaxCells)
	assert.Equal(t, "tables.db", s.StorePath)
	assert.True(t, s.Deamortize)
	assert.Equal(t, 1, s.Walkers)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("REWIND_BUDGET", "20")
	t.Setenv("REWIND_DEAMORTIZE", "true")

	s := config.DefaultSettings()
	s.Length = 500
	require.NoError(t, s.ApplyEnv())

	assert.Equal(t, 20, s.Budget)
	assert.True(t, s.Deamortize)
	assert.Equal(t, 500, s.Length, "unset variables keep the file value")
}

func TestApplyEnv_Error(t *testing.T) {
	t.Setenv("REWIND_BUDGET", "many")

	s := config.DefaultSettings()
	err := s.ApplyEnv()
	assert.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Settings)
		field  string
	}{
		{"negative length", func(s *config.Settings) { s.Length = -1 }, "length"},
		{"negative budget", func(s *config.Settings) { s.Budget = -1 }, "budget"},
		{"small growth", func(s *config.Settings) { s.Growth = 1 }, "growth"},
		{"zero slack", func(s *config.Settings) { s.Slack = 0 }, "slack"},
		{"zero cells", func(s *config.Settings) { s.MaxCells = 0 }, "max_cells"},
		{"zero walkers", func(s *config.Settings) { s.Walkers = 0 }, "walkers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			assert.ErrorIs(t, err, config.ErrInvalidSettings)
			assert.ErrorContains(t, err, tt.field)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		s, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, config.DefaultSettings(), s)
	})

	t.Run("file then env", func(t *testing.T) {
		path := writeFile(t, "rewind.yaml", "length: 100\nbudget: 4\nwalkers: 2\n")
		t.Setenv("REWIND_WALKERS", "3")

		s, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, 100, s.Length)
		assert.Equal(t, 4, s.Budget)
		assert.Equal(t, 3, s.Walkers)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeFile(t, "rewind.yaml", "budget: -2\n")
		_, err := config.Load(path)
		assert.ErrorIs(t, err, config.ErrInvalidSettings)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
		assert.Error(t, err)
	})
}

func TestSettings_ModelAndOptions(t *testing.T) {
	s := config.DefaultSettings()
	s.Length = 50
	s.Budget = 3
	s.StorePath = filepath.Join(t.TempDir(), "tables.db")

	model, closeStore, err := s.Model()
	require.NoError(t, err)
	defer func() { require.NoError(t, closeStore()) }()

	e, err := rewind.New(testContext(t), func(i int) (int, error) { return i + 1, nil }, 0, s.EngineOptions(model)...)
	require.NoError(t, err)
	assert.Equal(t, 3, e.Budget())
	length, known := e.Length()
	assert.True(t, known)
	assert.Equal(t, 50, length)

	infos, err := model.Cache().Store().List()
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	d := rewind.NewDeamortizer(e, s.DeamortizerOptions()...)
	assert.Equal(t, int64(s.Slack)*e.Plan().PerStep, d.Budget())
}

func TestSettings_ModelBadStore(t *testing.T) {
	s := config.DefaultSettings()
	s.StorePath = filepath.Join(t.TempDir(), "missing", "dir", "tables.db")

	_, _, err := s.Model()
	assert.Error(t, err)
}
