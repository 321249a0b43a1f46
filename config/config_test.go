package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/pebbles/game"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, uint32(15), cfg.Game.PebblesCount)
	assert.Equal(t, uint32(3), cfg.Game.MaxPebblesPerTurn)
	assert.Equal(t, game.Easy, cfg.Game.DifficultyLevel())
	assert.Equal(t, int64(0), cfg.Random.Seed)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.Monitor.Address)
	assert.Equal(t, "pebbles", cfg.Monitor.Namespace)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
game:
  pebbles_count: 21
  max_pebbles_per_turn: 4
  difficulty: hard
random:
  seed: 99
monitor:
  address: ":9100"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("PEBBLES_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, uint32(21), cfg.Game.PebblesCount)
	assert.Equal(t, uint32(4), cfg.Game.MaxPebblesPerTurn)
	assert.Equal(t, game.Hard, cfg.Game.DifficultyLevel())
	assert.Equal(t, int64(99), cfg.Random.Seed)
	assert.Equal(t, ":9100", cfg.Monitor.Address)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_InvalidGameDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("game:\n  pebbles_count: 3\n  max_pebbles_per_turn: 3\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	_, err := LoadConfig(dir)
	assert.ErrorIs(t, err, game.ErrInvalidParameters)
}

func TestValidate_UnknownDifficulty(t *testing.T) {
	cfg := &Config{Game: GameConfig{PebblesCount: 10, MaxPebblesPerTurn: 2, Difficulty: "nightmare"}}
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_Rules(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, game.ReferenceRules(), cfg.Game.Rules.GameRules())

	t.Setenv("PEBBLES_GAME_RULES_AWARD_PROGRAM_ON_RESTART", "false")
	t.Setenv("PEBBLES_GAME_RULES_VALIDATE_RESTART", "true")
	cfg, err = LoadConfig(t.TempDir())
	require.NoError(t, err)

	rules := cfg.Game.Rules.GameRules()
	assert.False(t, rules.AwardProgramOnRestart)
	assert.True(t, rules.EchoUserMove)
	assert.True(t, rules.ValidateRestart)
}
