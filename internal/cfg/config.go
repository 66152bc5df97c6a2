// go-breakout/internal/cfg/config.go
package cfg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-breakout/internal/rules"
	"go-breakout/internal/sessions"
)

const EnvPrefix = "BREAKOUT"

type Config struct {
	Addr      string `mapstructure:"addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	// Location is an IANA zone name used to split candles into trading days.
	Location string `mapstructure:"location"`
	// MaxCandles caps one backtest request.
	MaxCandles int `mapstructure:"max_candles"`

	AsterBaseURL string `mapstructure:"aster_base_url"`

	Strategy rules.StrategyConfig `mapstructure:"strategy"`

	Loc *time.Location `mapstructure:"-"`
	// File is the config file actually read, empty when none was found.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	d := rules.DefaultConfig()
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("location", "UTC")
	v.SetDefault("max_candles", 200_000)
	v.SetDefault("aster_base_url", "https://fapi.asterdex.com/fapi/v1")
	v.SetDefault("strategy.gap_tolerance", d.GapTolerance)
	v.SetDefault("strategy.upper_multiplier", d.UpperMultiplier)
	v.SetDefault("strategy.lower_multiplier", d.LowerMultiplier)
	v.SetDefault("strategy.target_points", d.TargetPoints)
	v.SetDefault("strategy.first_candle_time", d.FirstCandleTime)
}

// Load reads path (any format viper understands) or, when path is empty, an
// optional config.yaml from . or ./config. BREAKOUT_* environment variables
// override both, e.g. BREAKOUT_STRATEGY_TARGET_POINTS=25.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if problems := rules.ValidateConfig(c.Strategy); len(problems) > 0 {
		return Config{}, &rules.ConfigError{Problems: problems}
	}
	loc, err := sessions.LoadLocation(c.Location)
	if err != nil {
		return Config{}, err
	}
	c.Loc = loc
	c.File = v.ConfigFileUsed()
	if c.MaxCandles <= 0 {
		c.MaxCandles = 200_000
	}
	return c, nil
}
