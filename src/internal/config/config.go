package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/pelletier/go-toml/v2"
)

// LoadConfig reads, parses and fills defaults of the configuration at configPath.
// It does not validate; call ValidateConfig for that.
func LoadConfig(configPath string) (*Config, error) {
	configFile := filepath.Clean(configPath)

	if !filepath.IsAbs(configFile) {
		if path, err := filepath.Abs(configFile); err != nil {
			return nil, errors.NewConfigError("failed to get absolute path", err)
		} else {
			configFile = path
		}
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Errorf("Configuration file not found: %s", configFile)
		return nil, errors.NewConfigError(fmt.Sprintf("configuration file not found: %s", configFile), err)
	}

	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, errors.NewConfigError("failed to read config file", err)
	}

	config, err := ParseConfig(content)
	if err != nil {
		return nil, err
	}
	config._absConfigFilePath = configFile

	log.Debugf("Configuration file path: %s", configFile)

	return config, nil
}

// ParseConfig parses TOML content and fills defaults.
func ParseConfig(content []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(content, &config); err != nil {
		var derr *toml.DecodeError
		if stderrors.As(err, &derr) {
			log.Errorf("%s", derr.String())
			row, col := derr.Position()
			log.Errorf("Error at line %d, column %d", row, col)
			return nil, errors.NewConfigError(fmt.Sprintf("failed to parse config file at line %d, column %d", row, col), err)
		}
		return nil, errors.NewConfigError("failed to parse config file", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// SerializeConfig encodes the effective configuration as TOML.
func (c *Config) SerializeConfig() (*bytes.Buffer, error) {
	buf := bytes.Buffer{}
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return &buf, nil
}
