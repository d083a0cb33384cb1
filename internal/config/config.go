package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/wheelibin/striplight/internal/constants"
)

type LevelConfig struct {
	Min     uint8 `mapstructure:"min"`
	Max     uint8 `mapstructure:"max"`
	Default uint8 `mapstructure:"default"`
}

type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"clientId"`
	TopicPrefix    string        `mapstructure:"topicPrefix"`
	ReportInterval time.Duration `mapstructure:"reportInterval"`
}

type GPIOConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Chip           string `mapstructure:"chip"`
	Lines          []int  `mapstructure:"lines"`
	ActiveLow      []bool `mapstructure:"activeLow"`
	DetectChannels bool   `mapstructure:"detectChannels"`
}

type Config struct {
	Endpoints         int         `mapstructure:"endpoints"`
	DisabledEndpoints []int       `mapstructure:"disabledEndpoints"`
	Level             LevelConfig `mapstructure:"level"`
	Transition        struct {
		TicksPerSecond int `mapstructure:"ticksPerSecond"`
	} `mapstructure:"transition"`
	Effects struct {
		TicksPerSecond int `mapstructure:"ticksPerSecond"`
	} `mapstructure:"effects"`
	OnOff struct {
		CountdownInterval time.Duration `mapstructure:"countdownInterval"`
	} `mapstructure:"onOff"`
	Identify struct {
		DefaultTime time.Duration `mapstructure:"defaultTime"`
	} `mapstructure:"identify"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	GPIO GPIOConfig `mapstructure:"gpio"`
	Log  struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
	Monitor struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"monitor"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoints", constants.MaxEndpoints)
	v.SetDefault("disabledEndpoints", []int{})
	v.SetDefault("level.min", constants.MinLevel)
	v.SetDefault("level.max", constants.MaxLevel)
	v.SetDefault("level.default", constants.DefaultLevel)
	v.SetDefault("transition.ticksPerSecond", constants.TransitionTicksPerSecond)
	v.SetDefault("effects.ticksPerSecond", constants.EffectTicksPerSecond)
	v.SetDefault("onOff.countdownInterval", constants.CountdownInterval)
	v.SetDefault("identify.defaultTime", constants.PairingIdentifyTime)
	v.SetDefault("database.path", "striplight.db")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.clientId", "striplight-"+uuid.NewString()[:8])
	v.SetDefault("mqtt.topicPrefix", "striplight")
	v.SetDefault("mqtt.reportInterval", 250*time.Millisecond)
	v.SetDefault("http.addr", ":8089")
	v.SetDefault("gpio.enabled", false)
	v.SetDefault("gpio.chip", "gpiochip0")
	v.SetDefault("gpio.lines", []int{17, 27, 22, 23, 24})
	v.SetDefault("gpio.activeLow", []bool{false, false, false, false, true})
	v.SetDefault("gpio.detectChannels", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/striplight.log")
	v.SetDefault("monitor.url", "http://localhost:8089/events")
}

// Defaults returns the configuration used when no config file is present.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	cfg := Config{}
	_ = v.Unmarshal(&cfg)
	return cfg
}

// ReadConfig reads config.{json,yaml,...} from the standard search paths, applying
// STRIPLIGHT_* environment overrides. A missing file is not an error.
func ReadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")           // name of config file (without extension)
	v.AddConfigPath("/etc/striplight/") // path to look for the config file in
	v.AddConfigPath("$HOME/.config/striplight/")
	v.AddConfigPath(".")
	v.SetEnvPrefix("striplight")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Error reading config file: %w", err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("Error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	if c.Endpoints < 1 || c.Endpoints > constants.MaxEndpoints {
		return fmt.Errorf("Error in config: endpoints must be 1..%d, got %d", constants.MaxEndpoints, c.Endpoints)
	}
	if c.Level.Min < 1 || c.Level.Min > c.Level.Max || c.Level.Max > constants.MaxLevel {
		return fmt.Errorf("Error in config: invalid level bounds %d..%d", c.Level.Min, c.Level.Max)
	}
	if c.Level.Default < c.Level.Min || c.Level.Default > c.Level.Max {
		return fmt.Errorf("Error in config: default level %d outside %d..%d", c.Level.Default, c.Level.Min, c.Level.Max)
	}
	if c.Transition.TicksPerSecond < 1 || c.Effects.TicksPerSecond < 1 {
		return fmt.Errorf("Error in config: tick rates must be positive")
	}
	if c.OnOff.CountdownInterval <= 0 {
		return fmt.Errorf("Error in config: countdown interval must be positive")
	}
	if c.Identify.DefaultTime <= 0 {
		return fmt.Errorf("Error in config: identify time must be positive")
	}
	return nil
}
