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

// Package sequencer runs store operations one at a time, in submission order, on a
// single worker. Each operation gets its own timeout; failures are reported to the
// submitter and never retried.
package sequencer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// Operation is one logical unit of work against the store, such as writing every service
// description.
type Operation interface {
	Name() string
	Run(ctx context.Context, store coord.Store) error
}

type funcOperation struct {
	name string
	fn   func(ctx context.Context, store coord.Store) error
}

func (o funcOperation) Name() string { return o.name }

func (o funcOperation) Run(ctx context.Context, store coord.Store) error {
	return o.fn(ctx, store)
}

// Func adapts fn to an Operation.
func Func(name string, fn func(ctx context.Context, store coord.Store) error) Operation {
	return funcOperation{name: name, fn: fn}
}

// Execution tracks a submitted operation.
type Execution struct {
	name string
	done chan struct{}
	err  error
}

func newExecution(name string) *Execution {
	return &Execution{name: name, done: make(chan struct{})}
}

func (x *Execution) finish(err error) {
	x.err = err
	close(x.done)
}

// Name returns the operation name.
func (x *Execution) Name() string {
	return x.name
}

// Done is closed when the operation has finished.
func (x *Execution) Done() <-chan struct{} {
	return x.done
}

// Err returns the operation result. It is only meaningful after Done is closed.
func (x *Execution) Err() error {
	select {
	case <-x.done:
		return x.err
	default:
		return nil
	}
}

// Wait blocks until the operation finished or ctx is done. Giving up on the wait does
// not cancel the operation.
func (x *Execution) Wait(ctx context.Context) error {
	select {
	case <-x.done:
		return x.err
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w", x.name, ctx.Err())
	}
}

type queued struct {
	op        Operation
	execution *Execution
}

// Executor owns a single worker goroutine. It does not own the store.
type Executor struct {
	store   coord.Store
	timeout time.Duration
	logger  logger.Logger

	mu      sync.Mutex
	pending []queued
	closed  bool

	wake    chan struct{}
	stopped chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout bounds every operation. Zero or negative disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.timeout = timeout
	}
}

func WithLogger(log logger.Logger) Option {
	return func(e *Executor) {
		e.logger = logger.OrNop(log)
	}
}

// New starts an executor running operations against store.
func New(store coord.Store, opts ...Option) *Executor {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Executor{
		store:   store,
		timeout: defaultTimeout,
		logger:  logger.OrNop(nil),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, opt := range opts {
		opt(e)
	}

	go e.loop()

	return e
}

// Store returns the store operations run against.
func (e *Executor) Store() coord.Store {
	return e.store
}

// Submit queues op behind every operation submitted before it.
func (e *Executor) Submit(op Operation) (*Execution, error) {
	if op == nil {
		return nil, ErrNilOperation
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	execution := newExecution(op.Name())
	e.pending = append(e.pending, queued{op: op, execution: execution})

	select {
	case e.wake <- struct{}{}:
	default:
	}

	return execution, nil
}

// Execute submits op and waits for its result.
func (e *Executor) Execute(ctx context.Context, op Operation) error {
	execution, err := e.Submit(op)
	if err != nil {
		return err
	}

	return execution.Wait(ctx)
}

// Close stops the worker. The running operation is canceled and queued operations fail
// with ErrClosed.
func (e *Executor) Close() error {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		<-e.stopped

		return nil
	}

	e.closed = true
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, q := range pending {
		q.execution.finish(ErrClosed)
	}

	e.cancel()

	select {
	case e.wake <- struct{}{}:
	default:
	}

	<-e.stopped

	return nil
}

func (e *Executor) next() (queued, bool) {
	for {
		e.mu.Lock()

		if len(e.pending) > 0 {
			q := e.pending[0]
			e.pending = e.pending[1:]
			e.mu.Unlock()

			return q, true
		}

		closed := e.closed
		e.mu.Unlock()

		if closed {
			return queued{}, false
		}

		<-e.wake
	}
}

func (e *Executor) loop() {
	defer close(e.stopped)

	for {
		q, ok := e.next()
		if !ok {
			return
		}

		q.execution.finish(e.run(q.op))
	}
}

func (e *Executor) run(op Operation) (err error) {
	ctx := e.ctx

	if e.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", errOperationPanic, op.Name(), r)
		}

		outcome := "success"
		if err != nil {
			outcome = "failure"
		}

		recordOperation(context.Background(), op.Name(), outcome, time.Since(start))

		e.logger.Debug().
			Str("operation", op.Name()).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("Operation finished")
	}()

	e.logger.Debug().Str("operation", op.Name()).Msg("Running operation")

	if err := op.Run(ctx, e.store); err != nil {
		return fmt.Errorf("%s: %w", op.Name(), err)
	}

	return nil
}
