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

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	config := &Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	}

	err := Init(config)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	if log.Logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v", log.Logger.GetLevel())
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestSetDebugChangesInstanceLevel(t *testing.T) {
	var buf bytes.Buffer

	l := NewWithWriter(&buf, zerolog.InfoLevel)
	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.SetDebug(true)
	l.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestComponentLoggerWritesComponentField(t *testing.T) {
	var buf bytes.Buffer

	log := NewWithWriter(&buf, zerolog.InfoLevel)
	component := Component(log.WithComponent("registry"))
	component.Info().Str("service_id", "svc1").Msg("registered")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "registry", entry["component"])
	assert.Equal(t, "svc1", entry["service_id"])
	assert.Equal(t, "registered", entry["message"])
}

func TestTestLoggerDiscards(t *testing.T) {
	log := OrNop(nil)
	log.Error().Msg("dropped")
	log.SetDebug(true)

	assert.NotNil(t, log.WithFields(map[string]interface{}{"k": "v"}))
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEBUG", "yes")

	config := DefaultConfig()
	assert.Equal(t, "warn", config.Level)
	assert.True(t, config.Debug)
	assert.Equal(t, "stderr", config.Output)
}
