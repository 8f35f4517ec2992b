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

// Package natskv implements coord.Store on a NATS JetStream key-value bucket. The tree is
// emulated with one key per node; ephemeral nodes belong to the Store that created them
// and are removed when it closes.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

type Store struct {
	nc        *nats.Conn
	kv        jetstream.KeyValue
	logger    logger.Logger
	sessionID string
	closed    atomic.Bool

	mu        sync.Mutex
	ephemeral map[string]struct{}
}

var _ coord.Store = (*Store)(nil)

// Connect dials natsURL and opens (creating if needed) the bucket holding the tree.
func Connect(ctx context.Context, natsURL, bucket string, log logger.Logger, opts ...nats.Option) (*Store, error) {
	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "zkconfig node tree",
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create KV bucket: %w", err)
	}

	s, err := New(ctx, kv, log)
	if err != nil {
		nc.Close()

		return nil, err
	}

	s.nc = nc

	return s, nil
}

// New wraps an open bucket. The root node is created if it is missing.
func New(ctx context.Context, kv jetstream.KeyValue, log logger.Logger) (*Store, error) {
	s := &Store{
		kv:        kv,
		logger:    logger.OrNop(log),
		sessionID: uuid.NewString(),
		ephemeral: map[string]struct{}{},
	}

	if _, err := kv.Create(ctx, rootKey, nil); err != nil && !errors.Is(err, jetstream.ErrKeyExists) {
		return nil, fmt.Errorf("failed to create root key: %w", err)
	}

	s.logger.Info().
		Str("bucket", kv.Bucket()).
		Str("session_id", s.sessionID).
		Msg("Opened NATS KV node tree")

	return s, nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.closed.Load() {
		return coord.ErrClosed
	}

	return nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return entry.Value(), true, nil
}

// childKeys lists the keys directly below key's node.
func (s *Store) childKeys(ctx context.Context, path string) ([]string, error) {
	watcher, err := s.kv.Watch(ctx, childFilter(path), jetstream.IgnoreDeletes(), jetstream.MetaOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", path, err)
	}

	defer func() {
		if err := watcher.Stop(); err != nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("Failed to stop key watcher")
		}
	}()

	var keys []string

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case entry, ok := <-watcher.Updates():
			// a nil entry marks the end of the initial values
			if !ok || entry == nil {
				return keys, nil
			}

			keys = append(keys, entry.Key())
		}
	}
}

// Exists implements coord.Store.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}

	_, found, err := s.get(ctx, keyFor(path))

	return found, err
}

// Get implements coord.Store.
func (s *Store) Get(ctx context.Context, path string) (coord.Node, bool, error) {
	if err := s.check(ctx); err != nil {
		return coord.Node{}, false, err
	}

	data, found, err := s.get(ctx, keyFor(path))
	if err != nil || !found {
		return coord.Node{}, false, err
	}

	keys, err := s.childKeys(ctx, path)
	if err != nil {
		return coord.Node{}, false, err
	}

	return coord.Node{Data: data, NumChildren: len(keys)}, true, nil
}

// Set implements coord.Store.
func (s *Store) Set(ctx context.Context, path string, data []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	key := keyFor(path)

	_, found, err := s.get(ctx, key)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%w: %s", coord.ErrNoNode, treepath.Clean(path))
	}

	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}

	return nil
}

// Create implements coord.Store.
func (s *Store) Create(ctx context.Context, path string, data []byte, mode coord.CreateMode) (coord.CreateResult, error) {
	if err := s.check(ctx); err != nil {
		return coord.Failed, err
	}

	path = treepath.Clean(path)
	if treepath.IsRoot(path) {
		return coord.AlreadyExists, nil
	}

	parentKey := keyFor(treepath.Parent(path))

	if s.isEphemeral(parentKey) {
		return coord.Failed, fmt.Errorf("%w: %s", coord.ErrNoChildrenForEphemerals, path)
	}

	_, found, err := s.get(ctx, parentKey)
	if err != nil {
		return coord.Failed, err
	}

	if !found {
		return coord.Failed, fmt.Errorf("%w: parent of %s", coord.ErrNoNode, path)
	}

	key := keyFor(path)

	if _, err := s.kv.Create(ctx, key, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return coord.AlreadyExists, nil
		}

		return coord.Failed, fmt.Errorf("failed to create key %s: %w", key, err)
	}

	if mode == coord.Ephemeral {
		s.mu.Lock()
		s.ephemeral[key] = struct{}{}
		s.mu.Unlock()
	}

	return coord.Created, nil
}

func (s *Store) isEphemeral(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.ephemeral[key]

	return ok
}

// Children implements coord.Store.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	_, found, err := s.get(ctx, keyFor(path))
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", coord.ErrNoNode, treepath.Clean(path))
	}

	keys, err := s.childKeys(ctx, path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))

	for _, key := range keys {
		name, err := lastSegment(key)
		if err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// DeleteTree implements coord.Store.
func (s *Store) DeleteTree(ctx context.Context, path string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	path = treepath.Clean(path)
	if treepath.IsRoot(path) {
		return fmt.Errorf("%w: cannot delete the root node", coord.ErrBadArguments)
	}

	return s.deleteTree(ctx, path)
}

func (s *Store) deleteTree(ctx context.Context, path string) error {
	keys, err := s.childKeys(ctx, path)
	if err != nil {
		return err
	}

	sort.Strings(keys)

	for _, key := range keys {
		name, err := lastSegment(key)
		if err != nil {
			return err
		}

		if err := s.deleteTree(ctx, treepath.Combine(path, name)); err != nil {
			return err
		}
	}

	return s.deleteKey(ctx, keyFor(path))
}

func (s *Store) deleteKey(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	s.mu.Lock()
	delete(s.ephemeral, key)
	s.mu.Unlock()

	return nil
}

// SessionID implements coord.Store.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Close removes the ephemeral keys created by this store and closes the connection when
// the store owns it.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	keys := make([]string, 0, len(s.ephemeral))

	for key := range s.ephemeral {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	ctx := context.Background()

	var errs []error

	for _, key := range keys {
		if err := s.deleteKey(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	if s.nc != nil {
		s.nc.Close()
	}

	return errors.Join(errs...)
}
