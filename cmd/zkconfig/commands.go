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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/carverauto/zkconfig/pkg/config"
	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/models"
	"github.com/carverauto/zkconfig/pkg/registry"
	"github.com/carverauto/zkconfig/pkg/sequencer"
	"github.com/carverauto/zkconfig/pkg/version"
)

var (
	errServiceNotFound    = errors.New("service description not found")
	errUnsupportedBackend = errors.New("unsupported backend")
)

type configurator = registry.Configurator[models.ServiceDescription, *models.ServiceDescription]

// withConfigurator connects, runs fn and releases the session.
func (a *app) withConfigurator(cmd *cobra.Command, fn func(ctx context.Context, s *session, c *configurator) error) error {
	ctx := cmd.Context()

	s, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	return fn(ctx, s, registry.NewConfigurator[models.ServiceDescription](s.exec, s.logger))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// parseDescriptions accepts a single description object or an array of them.
func parseDescriptions(data []byte) ([]*models.ServiceDescription, error) {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var descriptions []*models.ServiceDescription
		if err := json.Unmarshal(trimmed, &descriptions); err != nil {
			return nil, err
		}

		return descriptions, nil
	}

	var description models.ServiceDescription
	if err := json.Unmarshal(trimmed, &description); err != nil {
		return nil, err
	}

	return []*models.ServiceDescription{&description}, nil
}

func (a *app) writeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "write <file.json>",
		Short: "Write service descriptions from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			descriptions, err := parseDescriptions(data)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			return a.withConfigurator(cmd, func(ctx context.Context, _ *session, c *configurator) error {
				if err := c.WriteServiceDescriptions(ctx, descriptions...); err != nil {
					return err
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %d service descriptions\n", len(descriptions))

				return err
			})
		},
	}
}

func (a *app) readCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Print one service description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConfigurator(cmd, func(ctx context.Context, _ *session, c *configurator) error {
				description, found, err := c.ReadServiceDescription(ctx, args[0])
				if err != nil {
					return err
				}

				if !found {
					return fmt.Errorf("%w: %s", errServiceNotFound, args[0])
				}

				return printJSON(cmd.OutOrStdout(), description)
			})
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every service description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withConfigurator(cmd, func(ctx context.Context, _ *session, c *configurator) error {
				descriptions, err := c.ReadServiceDescriptions(ctx)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), descriptions)
			})
		},
	}
}

func (a *app) deleteAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every service description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withConfigurator(cmd, func(ctx context.Context, _ *session, c *configurator) error {
				return c.DeleteServiceDescriptions(ctx)
			})
		},
	}
}

func (a *app) registerCommand() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "register <service>...",
		Short: "Register this host as an instance of services and print their properties",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConfigurator(cmd, func(ctx context.Context, s *session, _ *configurator) error {
				sources, err := registry.RegisterServices(ctx, s.exec, s.logger, args...)
				if err != nil {
					return err
				}

				for _, source := range sources {
					if err := printProperties(cmd.OutOrStdout(), source); err != nil {
						return err
					}
				}

				if !wait {
					return nil
				}

				s.logger.Info().Str("session", s.store.SessionID()).Msg("Holding session until interrupted")
				<-ctx.Done()

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "keep the session, and with it the registration, open until interrupted")

	return cmd
}

func (a *app) propertiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "properties <base>",
		Short: "Print the resolved properties below a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConfigurator(cmd, func(ctx context.Context, s *session, _ *configurator) error {
				source, err := loadProperties(ctx, s, args[0])
				if err != nil {
					return err
				}

				return printProperties(cmd.OutOrStdout(), source)
			})
		},
	}
}

func (a *app) instancesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "instances <id>",
		Short: "Print the hosts registered for a service and their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConfigurator(cmd, func(ctx context.Context, _ *session, c *configurator) error {
				instances, err := c.Instances(ctx, args[0])
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), instances)
			})
		},
	}
}

func loadProperties(ctx context.Context, s *session, base string) (*config.PropertySource, error) {
	var source *config.PropertySource

	err := s.exec.Execute(ctx, sequencer.Func("load properties below "+base,
		func(ctx context.Context, store coord.Store) error {
			var err error

			source, err = config.LoadPropertySource(ctx, store, base, s.logger)

			return err
		}))
	if err != nil {
		return nil, err
	}

	return source, nil
}

func printProperties(w io.Writer, source *config.PropertySource) error {
	if _, err := fmt.Fprintf(w, "# %s\n", source.Name()); err != nil {
		return err
	}

	for _, key := range source.Keys() {
		value, _ := source.Get(key)

		if _, err := fmt.Fprintf(w, "%s=%s\n", key, value); err != nil {
			return err
		}
	}

	return nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the zkconfig version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "zkconfig %s\n", version.GetFullVersion())

			return err
		},
	}
}
