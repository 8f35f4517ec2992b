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
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

// PropertySource is a named, read-only set of properties loaded from a subtree.
type PropertySource struct {
	name       string
	base       string
	properties map[string]string
	v          *viper.Viper
}

// SourceName returns the name of the property source for base.
func SourceName(base string) string {
	return "ZooKeeper properties @ " + treepath.Clean(base)
}

// LoadPropertySource loads the properties below base.
func LoadPropertySource(ctx context.Context, store coord.Store, base string, log logger.Logger) (*PropertySource, error) {
	properties, err := NewTreeLoader(store, log).Load(ctx, base)
	if err != nil {
		return nil, err
	}

	return NewPropertySource(base, properties), nil
}

// NewPropertySource wraps already loaded properties.
func NewPropertySource(base string, properties map[string]string) *PropertySource {
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	copied := make(map[string]string, len(properties))
	for key, value := range properties {
		copied[key] = value
	}

	return &PropertySource{
		name:       SourceName(base),
		base:       treepath.Clean(base),
		properties: copied,
		v:          newViper(keys, properties),
	}
}

// newViper builds the nested view used by Viper and Unmarshal. Viper keys are case
// insensitive and a key cannot hold both a value and children, so a key that differs
// from an earlier one only by case is left out, as is a key like "db" that also has
// children such as "db/url". Get and the typed getters still see every property.
func newViper(keys []string, properties map[string]string) *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter(treepath.Separator))

	containers := make(map[string]bool)

	for _, key := range keys {
		segments := strings.Split(strings.ToLower(key), treepath.Separator)
		for i := 1; i < len(segments); i++ {
			containers[strings.Join(segments[:i], treepath.Separator)] = true
		}
	}

	seen := make(map[string]bool, len(keys))

	for _, key := range keys {
		lowered := strings.ToLower(key)
		if containers[lowered] || seen[lowered] {
			continue
		}

		seen[lowered] = true
		v.Set(key, properties[key])
	}

	return v
}

func (p *PropertySource) Name() string {
	return p.name
}

func (p *PropertySource) Base() string {
	return p.base
}

// Keys returns the property keys in sorted order.
func (p *PropertySource) Keys() []string {
	keys := make([]string, 0, len(p.properties))
	for key := range p.properties {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Properties returns a copy of the loaded properties.
func (p *PropertySource) Properties() map[string]string {
	out := make(map[string]string, len(p.properties))
	for key, value := range p.properties {
		out[key] = value
	}

	return out
}

// Get returns the property stored under key. Keys are case sensitive.
func (p *PropertySource) Get(key string) (string, bool) {
	value, ok := p.properties[key]
	return value, ok
}

// GetString returns the property under key or def when it is missing.
func (p *PropertySource) GetString(key, def string) string {
	if value, ok := p.properties[key]; ok {
		return value
	}

	return def
}

func (p *PropertySource) GetInt(key string, def int) (int, error) {
	value, ok := p.properties[key]
	if !ok {
		return def, nil
	}

	n, err := cast.ToIntE(value)
	if err != nil {
		return def, fmt.Errorf("property %s: %w", key, err)
	}

	return n, nil
}

func (p *PropertySource) GetBool(key string, def bool) (bool, error) {
	value, ok := p.properties[key]
	if !ok {
		return def, nil
	}

	b, err := cast.ToBoolE(value)
	if err != nil {
		return def, fmt.Errorf("property %s: %w", key, err)
	}

	return b, nil
}

func (p *PropertySource) GetDuration(key string, def time.Duration) (time.Duration, error) {
	value, ok := p.properties[key]
	if !ok {
		return def, nil
	}

	d, err := cast.ToDurationE(value)
	if err != nil {
		return def, fmt.Errorf("property %s: %w", key, err)
	}

	return d, nil
}

// Unmarshal decodes the properties into dst using mapstructure tags. Nested keys such as
// "db/url" become nested structures. Keys are matched case insensitively.
func (p *PropertySource) Unmarshal(dst interface{}) error {
	if err := p.v.Unmarshal(dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", p.name, err)
	}

	return nil
}

// Viper exposes the properties as a viper instance keyed by "/" separated, lower cased
// paths. Keys that collide in that form are not present, see newViper.
func (p *PropertySource) Viper() *viper.Viper {
	return p.v
}
