package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/apimart/catalog"
	"github.com/hazyhaar/apimart/discover"
	"github.com/hazyhaar/apimart/extract"
	"github.com/hazyhaar/apimart/marketplace"
	"github.com/hazyhaar/apimart/webfetch"
	"github.com/hazyhaar/apimart/websearch"
)

// fileConfig is the optional YAML configuration. Credentials and addresses
// come from the environment; the file tunes engine behavior.
type fileConfig struct {
	Search    catalog.SearchConfig   `yaml:"search"`
	Discover  discover.Config        `yaml:"discover"`
	Extract   extract.Config         `yaml:"extract"`
	Webfetch  webfetch.Config        `yaml:"webfetch"`
	Websearch websearch.Config       `yaml:"websearch"`
	HTTP      marketplace.HTTPConfig `yaml:"http"`
}

func loadConfig(path string) (*fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
