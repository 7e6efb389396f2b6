package core

import "gopkg.in/yaml.v3"

// yamlUnmarshalConfig parses YAML config bytes into c. Kept in its own file
// since JSON is the canonical format for .engine/config.json and
// YAML support exists only for parity with the prompt template loader.
func yamlUnmarshalConfig(data []byte, c *Config) error {
	return yaml.Unmarshal(data, c)
}
