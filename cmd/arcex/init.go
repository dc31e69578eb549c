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

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arcex-labs/arcex/config"
	"github.com/arcex-labs/arcex/logging"

	"github.com/jessevdk/go-flags"
)

type InitCmd struct {
	Home  string `short:"d" long:"home" description:"Directory for the configuration" default:"."`
	Force bool   `short:"f" long:"force" description:"Overwrite an existing configuration"`
}

var initCmd InitCmd

func (opts *InitCmd) Execute(_ []string) error {
	logger := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer logger.AtExit()

	path := filepath.Join(opts.Home, "config.toml")
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return fmt.Errorf("configuration already exists at `%s` please remove it first or re-run using -f", path)
	}

	if err := os.MkdirAll(opts.Home, 0o755); err != nil {
		return fmt.Errorf("couldn't create home directory: %w", err)
	}
	if err := config.Write(opts.Home, config.NewDefaultConfig()); err != nil {
		return fmt.Errorf("couldn't save configuration file: %w", err)
	}

	logger.Info("configuration generated successfully", logging.String("path", path))
	return nil
}

func Init(_ context.Context, parser *flags.Parser) error {
	initCmd = InitCmd{}

	short := "Initializes an arcex engine"
	long := "Generate the minimal configuration required for the engine to start"

	_, err := parser.AddCommand("init", short, long, &initCmd)
	return err
}
