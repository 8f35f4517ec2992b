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
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/models"
	"github.com/carverauto/zkconfig/pkg/natsutil"
)

// Store backends.
const (
	BackendZooKeeper = "zookeeper"
	BackendNATS      = "nats"
	BackendMemory    = "memory"
)

const (
	defaultSessionTimeout   = 5 * time.Second
	defaultOperationTimeout = 30 * time.Second
	defaultBucket           = "zkconfig"
)

// ClientConfig selects and configures the coordination store.
type ClientConfig struct {
	Backend          string             `json:"backend"`
	Servers          []string           `json:"servers"`
	SessionTimeout   models.Duration    `json:"session_timeout"`
	NATSURL          string             `json:"nats_url"`
	NATSTLS          *natsutil.TLSFiles `json:"nats_tls,omitempty"`
	Bucket           string             `json:"bucket"`
	OperationTimeout models.Duration    `json:"operation_timeout"`
	Logging          *logger.Config     `json:"logging"`
}

// DefaultClientConfig returns a configuration for a local ZooKeeper.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Backend:          BackendZooKeeper,
		Servers:          []string{"127.0.0.1:2181"},
		SessionTimeout:   models.Duration(defaultSessionTimeout),
		OperationTimeout: models.Duration(defaultOperationTimeout),
		Bucket:           defaultBucket,
	}
}

// Validate fills defaults and checks that the selected backend is usable.
func (c *ClientConfig) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendZooKeeper
	}

	if c.SessionTimeout <= 0 {
		c.SessionTimeout = models.Duration(defaultSessionTimeout)
	}

	if c.OperationTimeout <= 0 {
		c.OperationTimeout = models.Duration(defaultOperationTimeout)
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	switch c.Backend {
	case BackendZooKeeper:
		if len(c.Servers) == 0 {
			return errMissingServers
		}
	case BackendNATS:
		if c.NATSURL == "" {
			return errMissingNATSURL
		}

		if c.Bucket == "" {
			return errMissingBucket
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: %q (expected %q, %q or %q)",
			errInvalidBackend, c.Backend, BackendZooKeeper, BackendNATS, BackendMemory)
	}

	return nil
}
