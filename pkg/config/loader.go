package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadNodeConfigFile parses a NodeConfig YAML fixture, for local
// development and tests; production documents arrive pre-parsed via
// PushNodeConfig from the control-plane channel.
func LoadNodeConfigFile(path string) (NodeConfig, error) {
	var cfg NodeConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadTableConfigListFile parses a TableConfigList YAML fixture.
func LoadTableConfigListFile(path string) (TableConfigList, error) {
	var list TableConfigList
	data, err := os.ReadFile(path)
	if err != nil {
		return list, err
	}
	if err := yaml.Unmarshal(data, &list); err != nil {
		return list, err
	}
	return list, nil
}

// LoadTrafficRestrictionFile parses a TrafficRestrictionDoc YAML fixture.
func LoadTrafficRestrictionFile(path string) (TrafficRestrictionDoc, error) {
	var doc TrafficRestrictionDoc
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, err
	}
	return doc, nil
}
