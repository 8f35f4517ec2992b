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

package registry

import (
	"context"
	"fmt"

	"github.com/carverauto/zkconfig/pkg/config"
	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/models"
	"github.com/carverauto/zkconfig/pkg/sequencer"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

// Configurator runs description and registration operations for descriptions of type T
// on a sequencer, one at a time.
type Configurator[T any, PT interface {
	*T
	Service
}] struct {
	exec         *sequencer.Executor
	descriptions *DescriptionStore[T, PT]
	logger       logger.Logger
}

// NewConfigurator returns a configurator that submits its operations to exec.
func NewConfigurator[T any, PT interface {
	*T
	Service
}](exec *sequencer.Executor, log logger.Logger) *Configurator[T, PT] {
	log = logger.OrNop(log)

	return &Configurator[T, PT]{
		exec:         exec,
		descriptions: NewDescriptionStore[T, PT](log),
		logger:       log,
	}
}

// WriteServiceDescriptions writes descriptions to /<id> each.
func (c *Configurator[T, PT]) WriteServiceDescriptions(ctx context.Context, descriptions ...*T) error {
	return c.exec.Execute(ctx, sequencer.Func("write service descriptions",
		func(ctx context.Context, store coord.Store) error {
			return c.descriptions.WriteAll(ctx, store, descriptions)
		}))
}

// ReadServiceDescriptions reads every stored description.
func (c *Configurator[T, PT]) ReadServiceDescriptions(ctx context.Context) ([]*T, error) {
	var descriptions []*T

	err := c.exec.Execute(ctx, sequencer.Func("read service descriptions",
		func(ctx context.Context, store coord.Store) error {
			var err error

			descriptions, err = c.descriptions.ReadAll(ctx, store)

			return err
		}))
	if err != nil {
		return nil, err
	}

	return descriptions, nil
}

// ReadServiceDescription reads the description stored under id.
func (c *Configurator[T, PT]) ReadServiceDescription(ctx context.Context, id string) (*T, bool, error) {
	var (
		description *T
		found       bool
	)

	err := c.exec.Execute(ctx, sequencer.Func("read service description "+id,
		func(ctx context.Context, store coord.Store) error {
			var err error

			description, found, err = c.descriptions.ReadOne(ctx, store, id)

			return err
		}))
	if err != nil {
		return nil, false, err
	}

	return description, found, nil
}

// DeleteServiceDescriptions deletes every stored description.
func (c *Configurator[T, PT]) DeleteServiceDescriptions(ctx context.Context) error {
	return c.exec.Execute(ctx, sequencer.Func("delete service descriptions", c.descriptions.DeleteAll))
}

// Instances returns the instances registered for id.
func (c *Configurator[T, PT]) Instances(ctx context.Context, id string) (map[string]*models.ServiceInstance, error) {
	var instances map[string]*models.ServiceInstance

	err := c.exec.Execute(ctx, sequencer.Func("read instances of "+id,
		func(ctx context.Context, store coord.Store) error {
			var err error

			instances, err = c.descriptions.Instances(ctx, store, id)

			return err
		}))
	if err != nil {
		return nil, err
	}

	return instances, nil
}

// Register registers the running process as an instance of id.
func (c *Configurator[T, PT]) Register(ctx context.Context, id string) (*Registration, error) {
	return Register(ctx, c.exec, id, WithRegistrarLogger(c.logger))
}

// Register runs a registrar for id on exec and waits for its result.
func Register(ctx context.Context, exec *sequencer.Executor, id string, opts ...RegistrarOption) (*Registration, error) {
	var reg *Registration

	registrar := NewRegistrar(id, opts...)

	err := exec.Execute(ctx, sequencer.Func(registrar.Name(),
		func(ctx context.Context, store coord.Store) error {
			var err error

			reg, err = registrar.Register(ctx, store)

			return err
		}))
	if err != nil {
		return nil, err
	}

	return reg, nil
}

// RegisterServices registers the running process as an instance of each named service and
// returns one property source per service, loaded from /<name>/properties.
func RegisterServices(
	ctx context.Context, exec *sequencer.Executor, log logger.Logger, names ...string) ([]*config.PropertySource, error) {
	if len(names) == 0 {
		return nil, ErrNoServiceNames
	}

	log = logger.OrNop(log)
	sources := make([]*config.PropertySource, 0, len(names))

	for _, name := range names {
		if _, err := Register(ctx, exec, name, WithRegistrarLogger(log)); err != nil {
			return nil, err
		}

		base := treepath.Combine(treepath.Root, name, models.FieldProperties)

		var source *config.PropertySource

		err := exec.Execute(ctx, sequencer.Func("load properties of "+name,
			func(ctx context.Context, store coord.Store) error {
				var err error

				source, err = config.LoadPropertySource(ctx, store, base, log)

				return err
			}))
		if err != nil {
			return nil, fmt.Errorf("failed to load properties of %s: %w", name, err)
		}

		sources = append(sources, source)
	}

	return sources, nil
}
