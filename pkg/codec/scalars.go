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
	"strconv"
	"time"
)

// TemporalLayout is the text layout of temporal leaves.
const TemporalLayout = time.RFC3339Nano

// scalar describes how leaf text of one kind is checked.
type scalar struct {
	name  string
	parse func(text string) error
}

// scalars is built once and never modified.
//
//nolint:gochecknoglobals // read-only lookup table keyed by scalar kind
var scalars = map[ScalarKind]scalar{
	ScalarString: {
		name:  "string",
		parse: func(string) error { return nil },
	},
	ScalarInteger: {
		name: "integer",
		parse: func(text string) error {
			if _, err := strconv.ParseInt(text, 10, 64); err == nil {
				return nil
			}

			_, err := strconv.ParseUint(text, 10, 64)

			return err
		},
	},
	ScalarFloat: {
		name: "float",
		parse: func(text string) error {
			_, err := strconv.ParseFloat(text, 64)
			return err
		},
	},
	ScalarBoolean: {
		name: "boolean",
		parse: func(text string) error {
			_, err := strconv.ParseBool(text)
			return err
		},
	},
	ScalarTemporal: {
		name: "temporal",
		parse: func(text string) error {
			_, err := time.Parse(TemporalLayout, text)
			return err
		},
	},
}

// parseScalar checks text against kind. Empty text of a non-string kind is Null.
func parseScalar(path string, kind ScalarKind, text string) (Value, error) {
	if text == "" && kind != ScalarString {
		return Null{}, nil
	}

	s := scalars[kind]
	if err := s.parse(text); err != nil {
		return nil, unparsable(path, s.name, text, err)
	}

	return Simple{Scalar: kind, Raw: text}, nil
}
