/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/carverauto/zkconfig/pkg/config"
	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/coord/memory"
	"github.com/carverauto/zkconfig/pkg/coord/natskv"
	"github.com/carverauto/zkconfig/pkg/coord/zookeeper"
	"github.com/carverauto/zkconfig/pkg/lifecycle"
	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/models"
	"github.com/carverauto/zkconfig/pkg/natsutil"
	"github.com/carverauto/zkconfig/pkg/sequencer"
)

const envPrefix = "ZKCONFIG"

type storeOpener func(ctx context.Context, cfg *config.ClientConfig, log logger.Logger) (coord.Store, error)

// app carries what every subcommand needs to reach the store.
type app struct {
	v    *viper.Viper
	open storeOpener
}

func newApp() *app {
	return &app{
		v:    viper.New(),
		open: openStore,
	}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "zkconfig",
		Short:         "Manage service descriptions and instance registrations in a coordination store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaults := config.DefaultClientConfig()

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a JSON client configuration file")
	flags.String("backend", defaults.Backend, "store backend (zookeeper|nats|memory)")
	flags.StringSlice("servers", defaults.Servers, "ZooKeeper servers (host:port)")
	flags.Duration("session-timeout", time.Duration(defaults.SessionTimeout), "ZooKeeper session timeout")
	flags.String("nats-url", "", "NATS server URL for the nats backend")
	flags.String("bucket", defaults.Bucket, "JetStream key-value bucket for the nats backend")
	flags.Duration("operation-timeout", time.Duration(defaults.OperationTimeout), "timeout of a single store operation")
	flags.String("log-level", "", "log level (debug|info|warn|error)")

	a.bindFlags(flags)

	root.AddCommand(
		a.writeCommand(),
		a.readCommand(),
		a.listCommand(),
		a.deleteAllCommand(),
		a.registerCommand(),
		a.propertiesCommand(),
		a.instancesCommand(),
		versionCommand(),
	)

	return root
}

func (a *app) bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		if err := a.v.BindPFlag(flag.Name, flag); err != nil {
			panic(err)
		}
	})

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
}

// clientConfig builds the client configuration from the optional file, then applies flags
// and ZKCONFIG_* variables that were set explicitly.
func (a *app) clientConfig(ctx context.Context) (*config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()

	if path := strings.TrimSpace(a.v.GetString("config")); path != "" {
		if err := config.NewConfig(nil).LoadAndValidate(ctx, path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if a.v.IsSet("backend") {
		cfg.Backend = a.v.GetString("backend")
	}

	if a.v.IsSet("servers") {
		cfg.Servers = splitList(a.v.GetStringSlice("servers"))
	}

	if a.v.IsSet("session-timeout") {
		cfg.SessionTimeout = models.Duration(a.v.GetDuration("session-timeout"))
	}

	if a.v.IsSet("nats-url") {
		cfg.NATSURL = a.v.GetString("nats-url")
	}

	if a.v.IsSet("bucket") {
		cfg.Bucket = a.v.GetString("bucket")
	}

	if a.v.IsSet("operation-timeout") {
		cfg.OperationTimeout = models.Duration(a.v.GetDuration("operation-timeout"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if level := strings.TrimSpace(a.v.GetString("log-level")); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))

	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

// session is an open store with its sequencer.
type session struct {
	exec   *sequencer.Executor
	store  coord.Store
	logger logger.Logger
}

func (s *session) close() {
	if err := s.exec.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to stop operation executor")
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close store")
	}
}

func (a *app) connect(ctx context.Context) (*session, error) {
	cfg, err := a.clientConfig(ctx)
	if err != nil {
		return nil, err
	}

	log, err := lifecycle.CreateComponentLogger("zkconfig", cfg.Logging)
	if err != nil {
		return nil, err
	}

	store, err := a.open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("backend", cfg.Backend).
		Str("session", store.SessionID()).
		Msg("Connected to store")

	exec := sequencer.New(store,
		sequencer.WithTimeout(time.Duration(cfg.OperationTimeout)),
		sequencer.WithLogger(log))

	return &session{exec: exec, store: store, logger: log}, nil
}

func openStore(ctx context.Context, cfg *config.ClientConfig, log logger.Logger) (coord.Store, error) {
	switch cfg.Backend {
	case config.BackendZooKeeper:
		store, err := zookeeper.Connect(ctx, cfg.Servers, time.Duration(cfg.SessionTimeout), log)
		if err != nil {
			return nil, err
		}

		return store, nil
	case config.BackendNATS:
		opts, err := natsutil.ConnectOptions("zkconfig", cfg.NATSTLS, log)
		if err != nil {
			return nil, err
		}

		store, err := natskv.Connect(ctx, cfg.NATSURL, cfg.Bucket, log, opts...)
		if err != nil {
			return nil, err
		}

		return store, nil
	case config.BackendMemory:
		log.Warn().Msg("Using the in-memory store, nothing is persisted")

		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedBackend, cfg.Backend)
	}
}
