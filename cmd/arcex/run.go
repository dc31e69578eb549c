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
	"os/signal"
	"syscall"
	"time"

	"github.com/arcex-labs/arcex/config"
	"github.com/arcex-labs/arcex/core/execution"
	"github.com/arcex-labs/arcex/logging"

	"github.com/jessevdk/go-flags"
)

type RunCmd struct {
	ctx context.Context

	Home         string `short:"d" long:"home" description:"Directory holding the configuration" default:"."`
	TickInterval string `long:"tick-interval" description:"Cadence of the internal time tick" default:"1s"`
}

var runCmd RunCmd

func (opts *RunCmd) Execute(_ []string) error {
	cfg, err := config.Read(opts.Home)
	if err != nil {
		return fmt.Errorf("couldn't read configuration: %w", err)
	}
	interval, err := time.ParseDuration(opts.TickInterval)
	if err != nil {
		return fmt.Errorf("invalid tick interval: %w", err)
	}

	logger := logging.NewLoggerFromConfig(cfg.Logging)
	defer logger.AtExit()

	ctx, cancel := context.WithCancel(opts.ctx)
	defer cancel()

	engine := execution.New(logger, cfg.Execution)

	watcher, err := config.NewFromFile(ctx, logger, opts.Home)
	if err != nil {
		return fmt.Errorf("couldn't start config watcher: %w", err)
	}

	// commands are serialized on this loop; config reloads join the same
	// queue instead of touching the engine from the watcher goroutine
	reload := make(chan config.Config, 1)
	watcher.OnConfigUpdate(func(c config.Config) {
		select {
		case reload <- c:
		default:
		}
	})

	logger.Info("engine started",
		logging.String("home", opts.Home),
		logging.String("tick-interval", interval.String()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			engine.OnTick(now.UnixMilli())
		case c := <-reload:
			engine.ReloadConf(c.Execution)
		case s := <-sig:
			logger.Info("shutting down", logging.String("signal", s.String()))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func Run(ctx context.Context, parser *flags.Parser) error {
	runCmd = RunCmd{ctx: ctx}

	short := "Runs the arcex engine"
	long := "Start the matching and risk engine with its config watcher"

	_, err := parser.AddCommand("run", short, long, &runCmd)
	return err
}
