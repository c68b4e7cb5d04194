package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version string  `yaml:"version" json:"version"`
	Server  Server  `yaml:"server" json:"server"`
	Store   Store   `yaml:"store" json:"store"`
	Auth    Auth    `yaml:"auth" json:"auth"`
	Balance Balance `yaml:"balance" json:"balance"`
	Focus   Focus   `yaml:"focus" json:"focus"`
}

type Server struct {
	Addr string `yaml:"addr" json:"addr"`
}

type Store struct {
	// Backend: "memory" | "redis"
	Backend string `yaml:"backend" json:"backend"`
}

type Auth struct {
	SessionTTLHours int `yaml:"session_ttl_hours" json:"session_ttl_hours"`
}

// Balance holds the gamification rates. Every value has a documented
// default; a missing config file yields the stock rules.
type Balance struct {
	XPPerMinute        int `yaml:"xp_per_minute" json:"xp_per_minute"`
	BaseMaxXP          int `yaml:"base_max_xp" json:"base_max_xp"`
	SubjectBumpPercent int `yaml:"subject_bump_percent" json:"subject_bump_percent"`
}

type Focus struct {
	DefaultMinutes int `yaml:"default_minutes" json:"default_minutes"`
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8484"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Auth.SessionTTLHours <= 0 {
		c.Auth.SessionTTLHours = 7 * 24
	}
	if c.Balance.XPPerMinute <= 0 {
		c.Balance.XPPerMinute = 2
	}
	if c.Balance.BaseMaxXP <= 0 {
		c.Balance.BaseMaxXP = 500
	}
	if c.Balance.SubjectBumpPercent <= 0 {
		c.Balance.SubjectBumpPercent = 5
	}
	if c.Focus.DefaultMinutes <= 0 {
		c.Focus.DefaultMinutes = 25
	}
}

// Default returns the stock configuration without reading any file.
func Default() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	return &c, nil
}
