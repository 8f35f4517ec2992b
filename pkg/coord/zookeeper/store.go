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

// Package zookeeper implements coord.Store on an Apache ZooKeeper ensemble.
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samuel/go-zookeeper/zk"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

const defaultSessionTimeout = 5 * time.Second

// conn is the subset of *zk.Conn used by Store.
type conn interface {
	Exists(path string) (bool, *zk.Stat, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Children(path string) ([]string, *zk.Stat, error)
	Delete(path string, version int32) error
	SessionID() int64
	Close()
}

// Store is a coord.Store backed by one ZooKeeper session. The session and its
// ephemeral nodes live until Close is called or the ensemble expires the session.
type Store struct {
	conn   conn
	logger logger.Logger
	done   chan struct{}
}

var _ coord.Store = (*Store)(nil)

// zkLogger routes client library output into the structured logger.
type zkLogger struct {
	logger logger.Logger
}

func (l zkLogger) Printf(format string, args ...interface{}) {
	l.logger.Debug().Str("component", "zk-client").Msgf(format, args...)
}

// Connect dials servers and waits until a session is established or ctx is done.
func Connect(ctx context.Context, servers []string, sessionTimeout time.Duration, log logger.Logger) (*Store, error) {
	log = logger.OrNop(log)

	if sessionTimeout <= 0 {
		sessionTimeout = defaultSessionTimeout
	}

	c, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{logger: log}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	s := &Store{conn: c, logger: log, done: make(chan struct{})}

	if err := s.awaitSession(ctx, events); err != nil {
		c.Close()

		return nil, err
	}

	go s.watchSession(events)

	log.Info().
		Strs("servers", servers).
		Str("session_id", s.SessionID()).
		Msg("Connected to ZooKeeper")

	return s, nil
}

func (s *Store) awaitSession(ctx context.Context, events <-chan zk.Event) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for zookeeper session: %w", ctx.Err())
		case event, ok := <-events:
			if !ok {
				return coord.ErrClosed
			}

			if event.Type != zk.EventSession {
				continue
			}

			switch event.State {
			case zk.StateHasSession:
				return nil
			case zk.StateAuthFailed:
				return fmt.Errorf("zookeeper authentication failed: %w", event.Err)
			default:
				s.logger.Debug().Str("state", event.State.String()).Msg("Waiting for ZooKeeper session")
			}
		}
	}
}

func (s *Store) watchSession(events <-chan zk.Event) {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			if event.Type != zk.EventSession {
				continue
			}

			switch event.State {
			case zk.StateExpired:
				s.logger.Warn().Msg("ZooKeeper session expired, ephemeral nodes are gone")
			case zk.StateDisconnected:
				s.logger.Warn().Msg("Disconnected from ZooKeeper")
			case zk.StateHasSession:
				s.logger.Info().Str("session_id", s.SessionID()).Msg("ZooKeeper session established")
			default:
				s.logger.Debug().Str("state", event.State.String()).Msg("ZooKeeper session state changed")
			}
		}
	}
}

// translate maps client library errors onto the coord sentinels.
func translate(path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, zk.ErrNoNode):
		return fmt.Errorf("%w: %s", coord.ErrNoNode, path)
	case errors.Is(err, zk.ErrNotEmpty):
		return fmt.Errorf("%w: %s", coord.ErrNotEmpty, path)
	case errors.Is(err, zk.ErrNoChildrenForEphemerals):
		return fmt.Errorf("%w: %s", coord.ErrNoChildrenForEphemerals, path)
	case errors.Is(err, zk.ErrBadArguments):
		return fmt.Errorf("%w: %s", coord.ErrBadArguments, path)
	case errors.Is(err, zk.ErrClosing), errors.Is(err, zk.ErrConnectionClosed):
		return fmt.Errorf("%w: %s", coord.ErrClosed, path)
	default:
		return fmt.Errorf("zookeeper %s: %w", path, err)
	}
}

// Exists implements coord.Store.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path = treepath.Clean(path)

	exists, _, err := s.conn.Exists(path)

	return exists, translate(path, err)
}

// Get implements coord.Store.
func (s *Store) Get(ctx context.Context, path string) (coord.Node, bool, error) {
	if err := ctx.Err(); err != nil {
		return coord.Node{}, false, err
	}

	path = treepath.Clean(path)

	data, stat, err := s.conn.Get(path)
	if errors.Is(err, zk.ErrNoNode) {
		return coord.Node{}, false, nil
	}

	if err != nil {
		return coord.Node{}, false, translate(path, err)
	}

	node := coord.Node{Data: data}
	if stat != nil {
		node.NumChildren = int(stat.NumChildren)
	}

	return node, true, nil
}

// Set implements coord.Store.
func (s *Store) Set(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path = treepath.Clean(path)

	_, err := s.conn.Set(path, data, -1)

	return translate(path, err)
}

// Create implements coord.Store.
func (s *Store) Create(ctx context.Context, path string, data []byte, mode coord.CreateMode) (coord.CreateResult, error) {
	if err := ctx.Err(); err != nil {
		return coord.Failed, err
	}

	path = treepath.Clean(path)
	if treepath.IsRoot(path) {
		return coord.AlreadyExists, nil
	}

	var flags int32
	if mode == coord.Ephemeral {
		flags = zk.FlagEphemeral
	}

	_, err := s.conn.Create(path, data, flags, zk.WorldACL(zk.PermAll))

	switch {
	case err == nil:
		return coord.Created, nil
	case errors.Is(err, zk.ErrNodeExists):
		return coord.AlreadyExists, nil
	default:
		return coord.Failed, translate(path, err)
	}
}

// Children implements coord.Store.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path = treepath.Clean(path)

	children, _, err := s.conn.Children(path)
	if err != nil {
		return nil, translate(path, err)
	}

	sort.Strings(children)

	return children, nil
}

// DeleteTree implements coord.Store. Children are removed before their parent; a node
// that disappears concurrently is not an error.
func (s *Store) DeleteTree(ctx context.Context, path string) error {
	path = treepath.Clean(path)
	if treepath.IsRoot(path) {
		return fmt.Errorf("%w: cannot delete the root node", coord.ErrBadArguments)
	}

	return s.deleteTree(ctx, path)
}

func (s *Store) deleteTree(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	children, _, err := s.conn.Children(path)
	if errors.Is(err, zk.ErrNoNode) {
		return nil
	}

	if err != nil {
		return translate(path, err)
	}

	sort.Strings(children)

	for _, child := range children {
		if err := s.deleteTree(ctx, treepath.Combine(path, child)); err != nil {
			return err
		}
	}

	err = s.conn.Delete(path, -1)
	if errors.Is(err, zk.ErrNoNode) {
		return nil
	}

	return translate(path, err)
}

// SessionID returns the session id in the 0x<hex> form ZooKeeper logs use.
func (s *Store) SessionID() string {
	return fmt.Sprintf("0x%x", s.conn.SessionID())
}

// Close ends the session. The ensemble removes the session's ephemeral nodes.
func (s *Store) Close() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	s.conn.Close()

	return nil
}
