// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"

	"github.com/arcex-labs/arcex/core/execution"
	"github.com/arcex-labs/arcex/logging"

	"github.com/BurntSushi/toml"
)

const configFileName = "config.toml"

// Config ties together the application configuration: the execution engine
// with all its nested domain engines, and logging.
type Config struct {
	Execution execution.Config `group:"Execution" namespace:"execution"`
	Logging   logging.Config   `group:"Logging"   namespace:"logging"`
}

// NewDefaultConfig returns the default configuration for every package.
func NewDefaultConfig() Config {
	return Config{
		Execution: execution.NewDefaultConfig(),
		Logging:   logging.NewDefaultConfig(),
	}
}

// Read loads the configuration file from the given root path, applying it on
// top of the defaults.
func Read(rootPath string) (*Config, error) {
	path := filepath.Join(rootPath, configFileName)
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewDefaultConfig()
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write serialises the configuration to the config file under rootPath.
func Write(rootPath string, cfg Config) error {
	path := filepath.Join(rootPath, configFileName)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
