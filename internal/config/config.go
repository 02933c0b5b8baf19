package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the app configuration, loaded from a YAML file with flags and
// env vars layered on top by main.
type Config struct {
	Cluster struct {
		Server             string `yaml:"server"`
		Token              string `yaml:"token"`
		InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
		DefaultNamespace   string `yaml:"defaultNamespace"`
	} `yaml:"cluster"`

	Trace struct {
		MaxDepth int `yaml:"maxDepth"`
	} `yaml:"trace"`

	UI struct {
		SidebarWidth int `yaml:"sidebarWidth"`
	} `yaml:"ui"`

	LogLevel string `yaml:"logLevel"`
}

func Default() Config {
	var c Config
	c.Cluster.DefaultNamespace = "default"
	c.Trace.MaxDepth = 10
	c.UI.SidebarWidth = 32
	c.LogLevel = "info"
	return c
}

// Load reads configuration from the given path. An empty path returns the
// defaults; a missing or unparsable file is an error.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if c.Trace.MaxDepth <= 0 {
		c.Trace.MaxDepth = 10
	}
	if c.UI.SidebarWidth <= 0 {
		c.UI.SidebarWidth = 32
	}
	if c.Cluster.DefaultNamespace == "" {
		c.Cluster.DefaultNamespace = "default"
	}
	return c, nil
}
