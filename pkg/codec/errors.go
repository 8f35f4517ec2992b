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

package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrStructuralMismatch is returned when the stored tree shape does not match the
	// shape expected by the target type.
	ErrStructuralMismatch = errors.New("structural mismatch")
	// ErrUnparsableValue is returned when leaf text cannot be converted to the target kind.
	ErrUnparsableValue = errors.New("unparsable value")
	// ErrIncompatibleType is returned when a type descriptor cannot be encoded or decoded.
	ErrIncompatibleType = errors.New("incompatible type")
	// ErrDuplicateField is returned when a composite schema declares a field name twice.
	ErrDuplicateField = errors.New("duplicate field name")
)

// PathError carries the offending path and, where relevant, the expected and observed
// shapes. It unwraps to one of the package sentinels.
type PathError struct {
	Path     string
	Expected string
	Observed string
	Err      error
}

func (e *PathError) Error() string {
	if e.Expected == "" && e.Observed == "" {
		return fmt.Sprintf("%v at %s", e.Err, e.Path)
	}

	return fmt.Sprintf("%v at %s: expected %s, observed %s", e.Err, e.Path, e.Expected, e.Observed)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func mismatch(path, expected, observed string) error {
	return &PathError{Path: path, Expected: expected, Observed: observed, Err: ErrStructuralMismatch}
}

func unparsable(path, expected, text string, cause error) error {
	return &PathError{
		Path:     path,
		Expected: expected,
		Observed: fmt.Sprintf("%q", text),
		Err:      fmt.Errorf("%w: %w", ErrUnparsableValue, cause),
	}
}
