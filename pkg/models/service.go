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

package models

import (
	"time"

	"github.com/carverauto/zkconfig/pkg/codec"
)

// Field names of a service description subtree.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldDescription = "description"
	FieldProperties  = "properties"
	FieldInstances   = "instances"
	FieldSessions    = "sessions"
)

// ServiceDescription is the persisted description of a service, stored under /<ID>.
// Types that carry more fields embed it and append their own bindings.
type ServiceDescription struct {
	ID          string                      `json:"id"`
	Name        string                      `json:"name"`
	Description string                      `json:"description"`
	Properties  map[string]string           `json:"properties"`
	Instances   map[string]*ServiceInstance `json:"instances,omitempty"`
}

// ServiceInstance is a host running a service. It is alive while at least one session
// marker exists beneath it.
type ServiceInstance struct {
	// Name is the host name. It is derived from the node name and never stored.
	Name string `json:"name"`
	// Sessions maps session ids to the time they registered.
	Sessions map[string]time.Time `json:"sessions"`
}

// NewServiceDescription returns a description with empty property and instance maps.
func NewServiceDescription(id, name string) *ServiceDescription {
	return &ServiceDescription{
		ID:         id,
		Name:       name,
		Properties: map[string]string{},
		Instances:  map[string]*ServiceInstance{},
	}
}

func (s *ServiceDescription) Bindings() []codec.Binding {
	return []codec.Binding{
		codec.Bind(FieldID, &s.ID, codec.String()),
		codec.Bind(FieldName, &s.Name, codec.String()),
		codec.Bind(FieldDescription, &s.Description, codec.String()),
		codec.Bind(FieldProperties, &s.Properties, codec.MapOf(codec.String())),
		codec.Bind(FieldInstances, &s.Instances, codec.MapOf(codec.ObjectOf[ServiceInstance]())),
	}
}

// OnDecode restores instance names from their map keys.
func (s *ServiceDescription) OnDecode() {
	for name, instance := range s.Instances {
		if instance == nil {
			instance = &ServiceInstance{}
			s.Instances[name] = instance
		}

		instance.Name = name
	}
}

// ServiceID returns the top-level path segment of the description.
func (s *ServiceDescription) ServiceID() string {
	return s.ID
}

// Property returns the named property.
func (s *ServiceDescription) Property(name string) (string, bool) {
	value, ok := s.Properties[name]
	return value, ok
}

func (s *ServiceDescription) SetProperty(name, value string) {
	if s.Properties == nil {
		s.Properties = map[string]string{}
	}

	s.Properties[name] = value
}

// AddInstance adds instance keyed by its name, replacing any instance of the same host.
func (s *ServiceDescription) AddInstance(instance *ServiceInstance) {
	if s.Instances == nil {
		s.Instances = map[string]*ServiceInstance{}
	}

	s.Instances[instance.Name] = instance
}

// LiveInstances returns the instances that currently hold a session.
func (s *ServiceDescription) LiveInstances() []*ServiceInstance {
	live := make([]*ServiceInstance, 0, len(s.Instances))

	for _, instance := range s.Instances {
		if instance.Alive() {
			live = append(live, instance)
		}
	}

	return live
}

// Bindings declares sessions read-only: markers are ephemeral nodes owned by the sessions
// that created them, so writing a description never recreates them.
func (i *ServiceInstance) Bindings() []codec.Binding {
	return []codec.Binding{
		codec.BindReadOnly(FieldSessions, &i.Sessions, codec.MapOf(codec.Time())),
	}
}

// Alive reports whether the instance holds at least one session.
func (i *ServiceInstance) Alive() bool {
	return i != nil && len(i.Sessions) > 0
}
