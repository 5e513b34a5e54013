// Package config loads the node's YAML configuration file, in the
// teacher's style of a single flat struct unmarshaled with
// gopkg.in/yaml.v2.
package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the node's startup configuration.
type Config struct {
	Addr           string   `yaml:"addr"`
	Bootstrap      []string `yaml:"bootstrap"`
	StoreNodeList  bool     `yaml:"store_node_list"`
	PingGateMs     int64    `yaml:"ping_interval_ms"`
	OfflineRecheck int64    `yaml:"offline_recheck_secs"`
	NodeListStale  int64    `yaml:"nodelist_resync_ms"`
	MetricsAddr    string   `yaml:"metrics_addr"`
}

// Default returns the configuration used when no config file is
// supplied: a loopback bind address, no bootstrap peers, and
// persistence disabled.
func Default() Config {
	return Config{
		Addr:           "127.0.0.1:7001",
		Bootstrap:      nil,
		StoreNodeList:  false,
		PingGateMs:     250,
		OfflineRecheck: 10,
		NodeListStale:  100,
	}
}

// Load reads and parses the YAML file at path. A missing path (empty
// string) returns Default() rather than an error, matching the
// embedded API's optional config_path.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
