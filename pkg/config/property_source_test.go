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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/zkconfig/pkg/coord/memory"
)

func TestPropertySourceGetters(t *testing.T) {
	source := NewPropertySource("/svc/properties/", map[string]string{
		"threads":  "8",
		"enabled":  "true",
		"interval": "1m30s",
		"broken":   "eight",
		"Name":     "Search",
	})

	assert.Equal(t, "ZooKeeper properties @ /svc/properties", source.Name())
	assert.Equal(t, "/svc/properties", source.Base())
	assert.Equal(t, []string{"Name", "broken", "enabled", "interval", "threads"}, source.Keys())

	value, ok := source.Get("Name")
	assert.True(t, ok)
	assert.Equal(t, "Search", value)

	_, ok = source.Get("name")
	assert.False(t, ok)

	assert.Equal(t, "fallback", source.GetString("missing", "fallback"))

	threads, err := source.GetInt("threads", 1)
	require.NoError(t, err)
	assert.Equal(t, 8, threads)

	_, err = source.GetInt("broken", 1)
	assert.Error(t, err)

	enabled, err := source.GetBool("enabled", false)
	require.NoError(t, err)
	assert.True(t, enabled)

	interval, err := source.GetDuration("interval", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, interval)

	def, err := source.GetDuration("missing", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, def)
}

func TestPropertySourceIsReadOnly(t *testing.T) {
	props := map[string]string{"a": "1"}
	source := NewPropertySource("/", props)

	props["a"] = "2"
	copied := source.Properties()
	copied["a"] = "3"

	value, _ := source.Get("a")
	assert.Equal(t, "1", value)
}

func TestPropertySourceUnmarshal(t *testing.T) {
	source := NewPropertySource("/svc/properties", map[string]string{
		"db/url":      "postgres://db",
		"db/pool/max": "10",
		"threads":     "4",
	})

	var cfg struct {
		Threads int `mapstructure:"threads"`
		DB      struct {
			URL  string `mapstructure:"url"`
			Pool struct {
				Max int `mapstructure:"max"`
			} `mapstructure:"pool"`
		} `mapstructure:"db"`
	}

	require.NoError(t, source.Unmarshal(&cfg))
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, "postgres://db", cfg.DB.URL)
	assert.Equal(t, 10, cfg.DB.Pool.Max)
	assert.Equal(t, "postgres://db", source.Viper().GetString("db/url"))
}

func TestPropertySourceViperSkipsCollidingKeys(t *testing.T) {
	source := NewPropertySource("/svc/properties", map[string]string{
		"db":      "primary",
		"db/url":  "postgres://db",
		"Mode":    "fast",
		"mode":    "slow",
		"threads": "4",
	})

	var cfg struct {
		Threads int    `mapstructure:"threads"`
		Mode    string `mapstructure:"mode"`
		DB      struct {
			URL string `mapstructure:"url"`
		} `mapstructure:"db"`
	}

	require.NoError(t, source.Unmarshal(&cfg))
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, "fast", cfg.Mode)
	assert.Equal(t, "postgres://db", cfg.DB.URL)

	assert.Equal(t, "postgres://db", source.Viper().GetString("db/url"))
	assert.Equal(t, "fast", source.Viper().GetString("mode"))

	value, ok := source.Get("db")
	assert.True(t, ok)
	assert.Equal(t, "primary", value)
	assert.Equal(t, "slow", source.GetString("mode", ""))
	assert.Len(t, source.Keys(), 5)
}

func TestLoadPropertySource(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store, map[string]string{
		"/svc/properties/host": "${zk:/shared/host}",
		"/shared/host":         "db.local",
	})

	source, err := LoadPropertySource(ctx, store, "/svc/properties", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"host": "db.local"}, source.Properties())
}
