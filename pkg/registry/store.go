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

// Package registry persists service descriptions and registers running instances of them.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/zkconfig/pkg/codec"
	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/models"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

// ReservedNode is the top-level node the coordination service keeps for itself.
const ReservedNode = "zookeeper"

// DescriptionStore reads and writes descriptions of type T under the root of a store.
type DescriptionStore[T any, PT interface {
	*T
	Service
}] struct {
	conv   codec.Converter[*T]
	logger logger.Logger
}

// NewDescriptionStore returns a store for descriptions of type T.
func NewDescriptionStore[T any, PT interface {
	*T
	Service
}](log logger.Logger) *DescriptionStore[T, PT] {
	return &DescriptionStore[T, PT]{
		conv:   codec.ObjectOf[T, PT](),
		logger: logger.OrNop(log),
	}
}

func descriptionPath(id string) string {
	return treepath.Combine(treepath.Root, id)
}

// WriteAll writes every description to /<id>. Nil entries are skipped.
func (s *DescriptionStore[T, PT]) WriteAll(ctx context.Context, store coord.Store, descriptions []*T) error {
	if err := coord.EnsureNode(ctx, store, treepath.Root); err != nil {
		return err
	}

	written := 0

	for _, description := range descriptions {
		if description == nil {
			continue
		}

		id := PT(description).ServiceID()
		if id == "" {
			return ErrMissingServiceID
		}

		if err := treepath.ValidateSegment(id); err != nil {
			return fmt.Errorf("service id: %w", err)
		}

		if err := codec.Write(ctx, store, descriptionPath(id), description, s.conv); err != nil {
			return fmt.Errorf("failed to write service description %s: %w", id, err)
		}

		s.logger.Debug().Str("service_id", id).Msg("Wrote service description")

		written++
	}

	RecordDescriptions(ctx, "write", written)

	return nil
}

// ReadOne reads the description stored at /<id>. found is false if it does not exist.
func (s *DescriptionStore[T, PT]) ReadOne(ctx context.Context, store coord.Store, id string) (*T, bool, error) {
	if err := treepath.ValidateSegment(id); err != nil {
		return nil, false, fmt.Errorf("service id: %w", err)
	}

	description, found, err := codec.Read(ctx, store, descriptionPath(id), s.conv)
	if err != nil {
		return nil, found, fmt.Errorf("failed to read service description %s: %w", id, err)
	}

	if !found || description == nil {
		return nil, false, nil
	}

	RecordDescriptions(ctx, "read", 1)

	return description, true, nil
}

// ReadAll reads every description below the root in lexical id order. Nodes that vanish
// while reading are skipped.
func (s *DescriptionStore[T, PT]) ReadAll(ctx context.Context, store coord.Store) ([]*T, error) {
	ids, err := s.ids(ctx, store)
	if err != nil {
		return nil, err
	}

	descriptions := make([]*T, 0, len(ids))

	for _, id := range ids {
		description, found, err := s.ReadOne(ctx, store, id)
		if err != nil {
			return nil, err
		}

		if !found {
			continue
		}

		descriptions = append(descriptions, description)
	}

	return descriptions, nil
}

// DeleteAll removes every description below the root. The root itself is kept.
func (s *DescriptionStore[T, PT]) DeleteAll(ctx context.Context, store coord.Store) error {
	if err := coord.EnsureNode(ctx, store, treepath.Root); err != nil {
		return err
	}

	ids, err := s.ids(ctx, store)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := store.DeleteTree(ctx, descriptionPath(id)); err != nil {
			return fmt.Errorf("failed to delete service description %s: %w", id, err)
		}

		s.logger.Debug().Str("service_id", id).Msg("Deleted service description")
	}

	RecordDescriptions(ctx, "delete", len(ids))

	return nil
}

// Instances reads the instances registered for id, keyed by host name.
func (s *DescriptionStore[T, PT]) Instances(
	ctx context.Context, store coord.Store, id string) (map[string]*models.ServiceInstance, error) {
	if err := treepath.ValidateSegment(id); err != nil {
		return nil, fmt.Errorf("service id: %w", err)
	}

	path := treepath.Combine(descriptionPath(id), models.FieldInstances)

	instances, found, err := codec.Read(ctx, store, path, codec.MapOf(codec.ObjectOf[models.ServiceInstance]()))
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, id)
	}

	for name, instance := range instances {
		if instance == nil {
			instance = &models.ServiceInstance{}
			instances[name] = instance
		}

		instance.Name = name
	}

	return instances, nil
}

func (s *DescriptionStore[T, PT]) ids(ctx context.Context, store coord.Store) ([]string, error) {
	children, err := store.Children(ctx, treepath.Root)
	if errors.Is(err, coord.ErrNoNode) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list service descriptions: %w", err)
	}

	ids := make([]string, 0, len(children))

	for _, child := range children {
		if child == ReservedNode {
			continue
		}

		ids = append(ids, child)
	}

	return ids, nil
}
