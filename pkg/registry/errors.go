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

import "errors"

var (
	// ErrUnknownService is returned when an instance is registered for a service whose
	// description has not been written.
	ErrUnknownService = errors.New("unknown service")
	// ErrNoServiceNames is returned when RegisterServices is called without names.
	ErrNoServiceNames = errors.New("no service name passed to register the application with")
	// ErrMissingServiceID is returned when a description without id is written.
	ErrMissingServiceID = errors.New("service description has no id")

	errMarkerNotCreated = errors.New("store reported failure")
	errUnknownState     = errors.New("unknown registration state")
)
