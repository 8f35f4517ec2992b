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
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/zkconfig/pkg/codec"
	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/models"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

const (
	outcomeCreated       = "created"
	outcomeAlreadyExists = "already_exists"
	outcomeFailed        = "failed"

	unknownHostPrefix = "UNKNOWN-"
)

type registrationState int

const (
	stateVerifyServiceExists registrationState = iota
	stateEnsureInstanceNode
	stateCreateSessionMarker
	stateDone
)

func (s registrationState) String() string {
	switch s {
	case stateVerifyServiceExists:
		return "verify_service_exists"
	case stateEnsureInstanceNode:
		return "ensure_instance_node"
	case stateCreateSessionMarker:
		return "create_session_marker"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Registration describes the session marker written for one running instance.
type Registration struct {
	ServiceID string
	Host      string
	Session   string
	Path      string
	// Created is false when the marker was already present for this session.
	Created bool
}

// Registrar announces the current process as a live instance of a service by creating an
// ephemeral session marker at /<service>/instances/<host>/sessions/<session>.
type Registrar struct {
	serviceID string
	hostname  func() (string, error)
	now       func() time.Time
	logger    logger.Logger
}

// RegistrarOption configures a Registrar.
type RegistrarOption func(*Registrar)

// WithHostname overrides how the host name is determined.
func WithHostname(hostname func() (string, error)) RegistrarOption {
	return func(r *Registrar) {
		r.hostname = hostname
	}
}

// WithClock overrides the registration timestamp source.
func WithClock(now func() time.Time) RegistrarOption {
	return func(r *Registrar) {
		r.now = now
	}
}

// WithRegistrarLogger sets the logger of the registrar.
func WithRegistrarLogger(log logger.Logger) RegistrarOption {
	return func(r *Registrar) {
		r.logger = log
	}
}

// NewRegistrar returns a registrar for serviceID.
func NewRegistrar(serviceID string, opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		serviceID: serviceID,
		hostname:  os.Hostname,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.logger = logger.OrNop(r.logger)

	return r
}

// Name implements sequencer.Operation.
func (r *Registrar) Name() string {
	return fmt.Sprintf("register instance of %s", r.serviceID)
}

// Run implements sequencer.Operation.
func (r *Registrar) Run(ctx context.Context, store coord.Store) error {
	_, err := r.Register(ctx, store)

	return err
}

// Register walks the registration states until the session marker exists.
func (r *Registrar) Register(ctx context.Context, store coord.Store) (*Registration, error) {
	if err := treepath.ValidateSegment(r.serviceID); err != nil {
		return nil, fmt.Errorf("service id: %w", err)
	}

	reg := &Registration{
		ServiceID: r.serviceID,
		Host:      r.host(),
		Session:   store.SessionID(),
	}

	var err error

	for state := stateVerifyServiceExists; state != stateDone; {
		r.logger.Debug().
			Str("service_id", r.serviceID).
			Str("state", state.String()).
			Msg("Registration step")

		state, err = r.step(ctx, store, state, reg)
		if err != nil {
			RecordRegistration(ctx, r.serviceID, outcomeFailed)

			return nil, err
		}
	}

	outcome := outcomeAlreadyExists
	if reg.Created {
		outcome = outcomeCreated
	}

	RecordRegistration(ctx, r.serviceID, outcome)

	r.logger.Info().
		Str("service_id", reg.ServiceID).
		Str("host", reg.Host).
		Str("session", reg.Session).
		Bool("created", reg.Created).
		Msg("Registered service instance")

	return reg, nil
}

func (r *Registrar) step(
	ctx context.Context, store coord.Store, state registrationState, reg *Registration) (registrationState, error) {
	instances := treepath.Combine(treepath.Root, r.serviceID, models.FieldInstances)

	switch state {
	case stateVerifyServiceExists:
		exists, err := store.Exists(ctx, instances)
		if err != nil {
			return state, fmt.Errorf("failed to check %s: %w", instances, err)
		}

		if !exists {
			return state, fmt.Errorf("%w: path %s does not exist, write the description of service %s first",
				ErrUnknownService, instances, r.serviceID)
		}

		return stateEnsureInstanceNode, nil

	case stateEnsureInstanceNode:
		sessions := treepath.Combine(instances, reg.Host, models.FieldSessions)
		if err := coord.EnsureNode(ctx, store, sessions); err != nil {
			return state, err
		}

		reg.Path = treepath.Combine(sessions, reg.Session)

		return stateCreateSessionMarker, nil

	case stateCreateSessionMarker:
		payload := []byte(r.now().UTC().Format(codec.TemporalLayout))

		result, err := store.Create(ctx, reg.Path, payload, coord.Ephemeral)
		if err != nil {
			return state, fmt.Errorf("failed to create session marker %s: %w", reg.Path, err)
		}

		switch result {
		case coord.Created:
			reg.Created = true
		case coord.AlreadyExists:
			reg.Created = false
		case coord.Failed:
			return state, fmt.Errorf("failed to create session marker %s: %w", reg.Path, errMarkerNotCreated)
		}

		return stateDone, nil

	case stateDone:
		return stateDone, nil
	}

	return state, fmt.Errorf("%w: %d", errUnknownState, state)
}

func (r *Registrar) host() string {
	name, err := r.hostname()
	if err != nil || treepath.ValidateSegment(name) != nil {
		fallback := unknownHostPrefix + uuid.NewString()

		r.logger.Warn().Err(err).Str("host", fallback).Msg("Could not determine host name")

		return fallback
	}

	return name
}
