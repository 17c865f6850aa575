package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional `.taut.yaml` loaded from the working directory:
// defaults a CLI flag can still override, never the other way around.
type fileConfig struct {
	Include      []string `yaml:"include"`
	ForceInclude []string `yaml:"force_include"`
	Exclude      []string `yaml:"exclude"`
	Generate     []string `yaml:"generate"`
	Color        *bool    `yaml:"color"`
	Unicode      *bool    `yaml:"unicode"`
	Progress     *bool    `yaml:"progress"`
	Break        *bool    `yaml:"break"`
	Catch        *bool    `yaml:"catch"`
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
