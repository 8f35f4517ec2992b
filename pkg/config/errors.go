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

package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvedPlaceholder is returned when a placeholder references a path that holds
	// no value.
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
	// ErrPlaceholderCycle is returned when placeholders reference each other in a loop.
	ErrPlaceholderCycle = errors.New("placeholder cycle")

	errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")
	errInvalidBackend      = errors.New("invalid backend")
	errMissingServers      = errors.New("at least one zookeeper server is required")
	errMissingNATSURL      = errors.New("nats_url is required for the nats backend")
	errMissingBucket       = errors.New("bucket is required for the nats backend")
)

// PlaceholderError reports a placeholder that could not be substituted. Chain lists the
// paths being resolved when the failure happened, outermost first.
type PlaceholderError struct {
	Reference string
	Chain     []string
	Err       error
}

func (e *PlaceholderError) Error() string {
	if errors.Is(e.Err, ErrPlaceholderCycle) {
		return fmt.Sprintf("%v: %s -> %s", e.Err, strings.Join(e.Chain, " -> "), e.Reference)
	}

	return fmt.Sprintf("%v %s%s%s in %s", e.Err, placeholderStart, e.Reference, placeholderEnd, strings.Join(e.Chain, " -> "))
}

func (e *PlaceholderError) Unwrap() error {
	return e.Err
}
