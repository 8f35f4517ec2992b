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

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/zkconfig/pkg/codec"
	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/coord/memory"
	"github.com/carverauto/zkconfig/pkg/models"
	"github.com/carverauto/zkconfig/pkg/sequencer"
)

var registeredAt = time.Date(2024, 5, 17, 8, 30, 0, 0, time.UTC)

func fixedHost(name string) RegistrarOption {
	return WithHostname(func() (string, error) { return name, nil })
}

func fixedClock() RegistrarOption {
	return WithClock(func() time.Time { return registeredAt })
}

func writeDescriptions(t *testing.T, store coord.Store, descriptions ...*models.ServiceDescription) {
	t.Helper()

	err := NewDescriptionStore[models.ServiceDescription](nil).WriteAll(context.Background(), store, descriptions)
	require.NoError(t, err)
}

func TestWriteAndReadAll(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	search := models.NewServiceDescription("search", "Search")
	search.SetProperty("threads", "4")

	billing := models.NewServiceDescription("billing", "Billing")
	billing.Description = "invoices"

	writeDescriptions(t, store, search, nil, billing)

	// the coordination service keeps its own node at the root
	require.NoError(t, coord.EnsureNode(ctx, store, "/zookeeper/quota"))

	descriptions, err := NewDescriptionStore[models.ServiceDescription](nil).ReadAll(ctx, store)
	require.NoError(t, err)
	require.Len(t, descriptions, 2)

	assert.Equal(t, "billing", descriptions[0].ID)
	assert.Equal(t, "invoices", descriptions[0].Description)
	assert.Equal(t, "search", descriptions[1].ID)

	threads, ok := descriptions[1].Property("threads")
	assert.True(t, ok)
	assert.Equal(t, "4", threads)
}

func TestWriteAllRejectsMissingID(t *testing.T) {
	err := NewDescriptionStore[models.ServiceDescription](nil).WriteAll(
		context.Background(), memory.New(), []*models.ServiceDescription{{Name: "nameless"}})
	assert.ErrorIs(t, err, ErrMissingServiceID)
}

func TestReadOneMissing(t *testing.T) {
	description, found, err := NewDescriptionStore[models.ServiceDescription](nil).ReadOne(
		context.Background(), memory.New(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, description)
}

func TestDeleteAllKeepsRootAndReservedNode(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	writeDescriptions(t, store,
		models.NewServiceDescription("a", "A"),
		models.NewServiceDescription("b", "B"))
	require.NoError(t, coord.EnsureNode(ctx, store, "/zookeeper"))

	descriptions := NewDescriptionStore[models.ServiceDescription](nil)
	require.NoError(t, descriptions.DeleteAll(ctx, store))

	children, err := store.Children(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"zookeeper"}, children)

	all, err := descriptions.ReadAll(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRegisterCreatesEphemeralSessionMarker(t *testing.T) {
	ctx := context.Background()
	tree := memory.NewTree()
	admin := tree.Connect()
	app := tree.Connect()

	writeDescriptions(t, admin, models.NewServiceDescription("search", "Search"))

	reg, err := NewRegistrar("search", fixedHost("host-a"), fixedClock()).Register(ctx, app)
	require.NoError(t, err)
	assert.True(t, reg.Created)
	assert.Equal(t, "host-a", reg.Host)
	assert.Equal(t, app.SessionID(), reg.Session)
	assert.Equal(t, "/search/instances/host-a/sessions/"+app.SessionID(), reg.Path)

	node, found, err := admin.Get(ctx, reg.Path)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, registeredAt.Format(codec.TemporalLayout), string(node.Data))

	descriptions := NewDescriptionStore[models.ServiceDescription](nil)

	instances, err := descriptions.Instances(ctx, admin, "search")
	require.NoError(t, err)
	require.Contains(t, instances, "host-a")
	assert.Equal(t, "host-a", instances["host-a"].Name)
	assert.True(t, instances["host-a"].Alive())
	assert.True(t, registeredAt.Equal(instances["host-a"].Sessions[app.SessionID()]))

	description, found, err := descriptions.ReadOne(ctx, admin, "search")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, description.LiveInstances(), 1)

	require.NoError(t, app.Close())

	instances, err = descriptions.Instances(ctx, admin, "search")
	require.NoError(t, err)
	require.Contains(t, instances, "host-a")
	assert.False(t, instances["host-a"].Alive())
}

func TestWriteBackKeepsSessionsEphemeral(t *testing.T) {
	ctx := context.Background()
	tree := memory.NewTree()
	admin := tree.Connect()
	expired := tree.Connect()
	live := tree.Connect()

	writeDescriptions(t, admin, models.NewServiceDescription("search", "Search"))

	_, err := NewRegistrar("search", fixedHost("host-a"), fixedClock()).Register(ctx, expired)
	require.NoError(t, err)

	_, err = NewRegistrar("search", fixedHost("host-b"), fixedClock()).Register(ctx, live)
	require.NoError(t, err)

	descriptions := NewDescriptionStore[models.ServiceDescription](nil)

	description, found, err := descriptions.ReadOne(ctx, admin, "search")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, description.LiveInstances(), 2)

	require.NoError(t, expired.Close())

	description.SetProperty("threads", "8")
	require.NoError(t, descriptions.WriteAll(ctx, admin, []*models.ServiceDescription{description}))

	instances, err := descriptions.Instances(ctx, admin, "search")
	require.NoError(t, err)
	require.Contains(t, instances, "host-a")
	require.Contains(t, instances, "host-b")
	assert.False(t, instances["host-a"].Alive())
	assert.True(t, instances["host-b"].Alive())

	require.NoError(t, live.Close())

	instances, err = descriptions.Instances(ctx, admin, "search")
	require.NoError(t, err)
	assert.False(t, instances["host-b"].Alive())

	stored, _, err := descriptions.ReadOne(ctx, admin, "search")
	require.NoError(t, err)
	threads, _ := stored.Property("threads")
	assert.Equal(t, "8", threads)
	assert.Empty(t, stored.LiveInstances())
}

func TestRegisterTwiceInSameSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writeDescriptions(t, store, models.NewServiceDescription("search", "Search"))

	registrar := NewRegistrar("search", fixedHost("host-a"), fixedClock())

	first, err := registrar.Register(ctx, store)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := registrar.Register(ctx, store)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Path, second.Path)
}

func TestRegisterUnknownService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	_, err := NewRegistrar("ghost", fixedHost("host-a")).Register(ctx, store)
	require.ErrorIs(t, err, ErrUnknownService)

	exists, err := store.Exists(ctx, "/ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegisterHostFallback(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writeDescriptions(t, store, models.NewServiceDescription("search", "Search"))

	registrar := NewRegistrar("search", WithHostname(func() (string, error) {
		return "", errors.New("no hostname")
	}))

	reg, err := registrar.Register(ctx, store)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reg.Host, unknownHostPrefix))
}

func TestRegisterCreateFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := coord.NewMockStore(ctrl)
	boom := errors.New("connection loss")

	gomock.InOrder(
		store.EXPECT().SessionID().Return("0x1"),
		store.EXPECT().Exists(gomock.Any(), "/search/instances").Return(true, nil),
		store.EXPECT().Exists(gomock.Any(), "/search/instances/host-a/sessions").Return(true, nil),
		store.EXPECT().
			Create(gomock.Any(), "/search/instances/host-a/sessions/0x1", gomock.Any(), coord.Ephemeral).
			Return(coord.Failed, boom),
	)

	reg, err := NewRegistrar("search", fixedHost("host-a")).Register(context.Background(), store)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, reg)
}

func TestInstancesOfUnknownService(t *testing.T) {
	_, err := NewDescriptionStore[models.ServiceDescription](nil).Instances(
		context.Background(), memory.New(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestConfiguratorRoundTrip(t *testing.T) {
	ctx := context.Background()
	exec := sequencer.New(memory.New())
	defer func() { _ = exec.Close() }()

	c := NewConfigurator[models.ServiceDescription](exec, nil)

	require.NoError(t, c.WriteServiceDescriptions(ctx,
		models.NewServiceDescription("search", "Search"),
		models.NewServiceDescription("billing", "Billing")))

	description, found, err := c.ReadServiceDescription(ctx, "search")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Search", description.Name)

	reg, err := c.Register(ctx, "search")
	require.NoError(t, err)

	instances, err := c.Instances(ctx, "search")
	require.NoError(t, err)
	assert.Contains(t, instances, reg.Host)

	require.NoError(t, c.DeleteServiceDescriptions(ctx))

	all, err := c.ReadServiceDescriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRegisterServices(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	search := models.NewServiceDescription("search", "Search")
	search.SetProperty("host", "db.local")
	search.SetProperty("url", "jdbc://${zk:host}:5432")
	writeDescriptions(t, store, search)

	exec := sequencer.New(store)
	defer func() { _ = exec.Close() }()

	sources, err := RegisterServices(ctx, exec, nil, "search")
	require.NoError(t, err)
	require.Len(t, sources, 1)

	assert.Equal(t, "ZooKeeper properties @ /search/properties", sources[0].Name())

	url, ok := sources[0].Get("url")
	assert.True(t, ok)
	assert.Equal(t, "jdbc://db.local:5432", url)

	children, err := store.Children(ctx, "/search/instances")
	require.NoError(t, err)
	assert.Len(t, children, 1)
}

func TestRegisterServicesRequiresNames(t *testing.T) {
	exec := sequencer.New(memory.New())
	defer func() { _ = exec.Close() }()

	_, err := RegisterServices(context.Background(), exec, nil)
	assert.ErrorIs(t, err, ErrNoServiceNames)
}

func TestRegisterServicesUnknownService(t *testing.T) {
	exec := sequencer.New(memory.New())
	defer func() { _ = exec.Close() }()

	sources, err := RegisterServices(context.Background(), exec, nil, "ghost")
	require.ErrorIs(t, err, ErrUnknownService)
	assert.Nil(t, sources)
}
