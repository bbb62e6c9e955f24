// Package config is used to load the configuration file
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultDsymutil = "xcrun dsymutil"
	defaultAtos     = "xcrun atos"
	defaultTimeout  = 2 * time.Minute
	defaultSettle   = 500 * time.Millisecond
	defaultSeen     = 1024
)

type tools struct {
	Dsymutil string        `mapstructure:"dsymutil"`
	Atos     string        `mapstructure:"atos"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type symbolicate struct {
	Parallel  int  `mapstructure:"parallel"`
	KeepGoing bool `mapstructure:"keep-going"`
}

type watch struct {
	Settle    time.Duration `mapstructure:"settle"`
	CacheSize int           `mapstructure:"cache-size"`
	Cache     string        `mapstructure:"cache"`
	Exec      string        `mapstructure:"exec"`
}

// Config is the configuration struct
type Config struct {
	Tools       tools       `mapstructure:"tools"`
	Symbolicate symbolicate `mapstructure:"symbolicate"`
	Watch       watch       `mapstructure:"watch"`
}

func (c *Config) verify() error {
	if c.Tools.Dsymutil == "" {
		c.Tools.Dsymutil = defaultDsymutil
	}
	if c.Tools.Atos == "" {
		c.Tools.Atos = defaultAtos
	}
	if c.Tools.Timeout < 0 {
		return fmt.Errorf("config: tools.timeout cannot be negative")
	} else if c.Tools.Timeout == 0 {
		c.Tools.Timeout = defaultTimeout
	}
	if c.Symbolicate.Parallel < 0 {
		return fmt.Errorf("config: symbolicate.parallel cannot be negative")
	} else if c.Symbolicate.Parallel == 0 {
		c.Symbolicate.Parallel = 1
	}
	if c.Watch.Settle < 0 {
		return fmt.Errorf("config: watch.settle cannot be negative")
	} else if c.Watch.Settle == 0 {
		c.Watch.Settle = defaultSettle
	}
	if c.Watch.CacheSize < 0 {
		return fmt.Errorf("config: watch.cache-size cannot be negative")
	} else if c.Watch.CacheSize == 0 {
		c.Watch.CacheSize = defaultSeen
	}
	return nil
}

// Load unmarshals and verifies the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var c Config

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return &c, nil
}

// LoadConfig loads the configuration file
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}
