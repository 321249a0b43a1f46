package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/wfunc/pebbles/game"
)

type Config struct {
	Game    GameConfig    `mapstructure:"game"`
	Random  RandomConfig  `mapstructure:"random"`
	Log     LogConfig     `mapstructure:"log"`
	Monitor MonitorConfig `mapstructure:"monitor"`
}

// GameConfig holds the parameters used when a client does not supply them.
type GameConfig struct {
	PebblesCount      uint32      `mapstructure:"pebbles_count"`
	MaxPebblesPerTurn uint32      `mapstructure:"max_pebbles_per_turn"`
	Difficulty        string      `mapstructure:"difficulty"`
	Rules             RulesConfig `mapstructure:"rules"`
}

// RulesConfig mirrors game.Rules. The defaults match game.ReferenceRules.
type RulesConfig struct {
	AwardProgramOnRestart bool `mapstructure:"award_program_on_restart"`
	EchoUserMove          bool `mapstructure:"echo_user_move"`
	ValidateRestart       bool `mapstructure:"validate_restart"`
}

type RandomConfig struct {
	Seed int64 `mapstructure:"seed"` // 0 selects crypto/rand
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MonitorConfig struct {
	Address   string `mapstructure:"address"` // empty disables the metrics endpoint
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("game.pebbles_count", 15)
	v.SetDefault("game.max_pebbles_per_turn", 3)
	v.SetDefault("game.difficulty", "easy")
	v.SetDefault("game.rules.award_program_on_restart", true)
	v.SetDefault("game.rules.echo_user_move", true)
	v.SetDefault("game.rules.validate_restart", false)
	v.SetDefault("random.seed", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("monitor.address", "")
	v.SetDefault("monitor.namespace", "pebbles")
}

// LoadConfig reads config.yaml from path, then PEBBLES_* environment
// variables (PEBBLES_GAME_DIFFICULTY, PEBBLES_LOG_LEVEL, ...). A missing file
// leaves the defaults in place.
func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("pebbles")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	config = &Config{}
	if err = v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return config, config.Validate()
}

// Validate checks the default game against the engine's initialize rule.
func (c *Config) Validate() error {
	if c.Game.PebblesCount <= c.Game.MaxPebblesPerTurn {
		return fmt.Errorf("game defaults: %w", game.ErrInvalidParameters)
	}
	if _, err := game.ParseDifficulty(c.Game.Difficulty); err != nil {
		return fmt.Errorf("game defaults: %w", err)
	}
	return nil
}

// DifficultyLevel returns the parsed default difficulty. Call after Validate.
func (c GameConfig) DifficultyLevel() game.DifficultyLevel {
	d, _ := game.ParseDifficulty(c.Difficulty)
	return d
}

func (r RulesConfig) GameRules() game.Rules {
	return game.Rules{
		AwardProgramOnRestart: r.AwardProgramOnRestart,
		EchoUserMove:          r.EchoUserMove,
		ValidateRestart:       r.ValidateRestart,
	}
}
