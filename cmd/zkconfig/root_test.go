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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/zkconfig/pkg/config"
	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/coord/memory"
	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/models"
	"github.com/carverauto/zkconfig/pkg/version"
)

const descriptionsJSON = `[
  {
    "id": "search",
    "name": "Search",
    "description": "full text search",
    "properties": {
      "host": "db.local",
      "url": "jdbc://${zk:host}:5432"
    }
  },
  {"id": "billing", "name": "Billing"}
]`

func run(t *testing.T, tree *memory.Tree, args ...string) (string, error) {
	t.Helper()

	a := newApp()
	a.open = func(context.Context, *config.ClientConfig, logger.Logger) (coord.Store, error) {
		return tree.Connect(), nil
	}

	var out bytes.Buffer

	cmd := a.command()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--backend=memory", "--log-level=error"}, args...))

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestCommands(t *testing.T) {
	tree := memory.NewTree()

	file := filepath.Join(t.TempDir(), "services.json")
	require.NoError(t, os.WriteFile(file, []byte(descriptionsJSON), 0o600))

	out, err := run(t, tree, "write", file)
	require.NoError(t, err)
	assert.Equal(t, "wrote 2 service descriptions\n", out)

	out, err = run(t, tree, "read", "search")
	require.NoError(t, err)

	var description models.ServiceDescription
	require.NoError(t, json.Unmarshal([]byte(out), &description))
	assert.Equal(t, "Search", description.Name)
	assert.Equal(t, "full text search", description.Description)

	out, err = run(t, tree, "list")
	require.NoError(t, err)

	var descriptions []models.ServiceDescription
	require.NoError(t, json.Unmarshal([]byte(out), &descriptions))
	require.Len(t, descriptions, 2)
	assert.Equal(t, "billing", descriptions[0].ID)
	assert.Equal(t, "search", descriptions[1].ID)

	out, err = run(t, tree, "properties", "/search/properties")
	require.NoError(t, err)
	assert.Equal(t, "# ZooKeeper properties @ /search/properties\nhost=db.local\nurl=jdbc://db.local:5432\n", out)

	out, err = run(t, tree, "register", "--wait=false", "search")
	require.NoError(t, err)
	assert.Contains(t, out, "url=jdbc://db.local:5432")

	out, err = run(t, tree, "instances", "search")
	require.NoError(t, err)

	var instances map[string]models.ServiceInstance
	require.NoError(t, json.Unmarshal([]byte(out), &instances))
	assert.Len(t, instances, 1)

	_, err = run(t, tree, "delete-all")
	require.NoError(t, err)

	out, err = run(t, tree, "list")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, memory.NewTree(), "version")
	require.NoError(t, err)
	assert.Equal(t, "zkconfig "+version.GetFullVersion()+"\n", out)
}

func TestReadMissingDescription(t *testing.T) {
	_, err := run(t, memory.NewTree(), "read", "missing")
	assert.ErrorIs(t, err, errServiceNotFound)
}

func TestParseSingleDescription(t *testing.T) {
	descriptions, err := parseDescriptions([]byte(` {"id": "search", "name": "Search"}`))
	require.NoError(t, err)
	require.Len(t, descriptions, 1)
	assert.Equal(t, "search", descriptions[0].ID)
}

func TestClientConfigPrecedence(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")
	t.Setenv("ZKCONFIG_OPERATION_TIMEOUT", "7s")

	file := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(file,
		[]byte(`{"backend": "nats", "nats_url": "nats://127.0.0.1:4222", "bucket": "from-file"}`), 0o600))

	a := newApp()
	cmd := a.command()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--config", file, "--bucket", "from-flag"}))

	cfg, err := a.clientConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, config.BackendNATS, cfg.Backend)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Equal(t, "from-flag", cfg.Bucket)
	assert.Equal(t, models.Duration(7*time.Second), cfg.OperationTimeout)
	assert.Equal(t, models.Duration(5*time.Second), cfg.SessionTimeout)
}

func TestClientConfigServersList(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	a := newApp()
	cmd := a.command()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--servers", "zk1:2181,zk2:2181"}))

	cfg, err := a.clientConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, cfg.Servers)
}
