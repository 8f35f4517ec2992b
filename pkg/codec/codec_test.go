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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/coord/memory"
)

type endpoint struct {
	Host string
	Port int
}

func (e *endpoint) Bindings() []Binding {
	return []Binding{
		Bind("host", &e.Host, String()),
		Bind("port", &e.Port, Integer[int]()),
	}
}

type sample struct {
	Name      string
	Count     int64
	Ratio     float64
	Enabled   bool
	Created   time.Time
	Labels    map[string]string
	Tags      map[string]struct{}
	Flags     []bool
	Endpoints []*endpoint
	Primary   *endpoint
	Steps     []uint8
}

func (s *sample) Bindings() []Binding {
	return []Binding{
		Bind("name", &s.Name, String()),
		Bind("count", &s.Count, Integer[int64]()),
		Bind("ratio", &s.Ratio, Float[float64]()),
		Bind("enabled", &s.Enabled, Bool()),
		Bind("created", &s.Created, Time()),
		Bind("labels", &s.Labels, MapOf(String())),
		Bind("tags", &s.Tags, SetOf(String())),
		Bind("flags", &s.Flags, ArrayOf(Bool())),
		Bind("endpoints", &s.Endpoints, ArrayOf(ObjectOf[endpoint]())),
		Bind("primary", &s.Primary, ObjectOf[endpoint]()),
		Bind("steps", &s.Steps, SliceOf(Integer[uint8]())),
	}
}

type duplicated struct {
	A string
	B string
}

func (d *duplicated) Bindings() []Binding {
	return []Binding{
		Bind("name", &d.A, String()),
		Bind("name", &d.B, String()),
	}
}

func newSample() *sample {
	return &sample{
		Name:    "svc1",
		Count:   -42,
		Ratio:   0.25,
		Enabled: true,
		Created: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Labels:  map[string]string{"region": "eu-west", "tier": "gold"},
		Tags:    map[string]struct{}{"alpha": {}, "beta": {}},
		Flags:   []bool{true, false, true},
		Endpoints: []*endpoint{
			{Host: "a.example.com", Port: 8080},
			{Host: "b.example.com", Port: 9090},
		},
		Primary: &endpoint{Host: "p.example.com", Port: 443},
		Steps:   []uint8{1, 2, 255},
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	conv := ObjectOf[sample]()

	want := newSample()
	require.NoError(t, Write(ctx, store, "/svc1", want, conv))

	got, found, err := Read(ctx, store, "/svc1", conv)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestLeafEncoding(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, Write(ctx, store, "/svc1", newSample(), ObjectOf[sample]()))

	leaves := map[string]string{
		"/svc1/name":             "svc1",
		"/svc1/count":            "-42",
		"/svc1/ratio":            "0.25",
		"/svc1/enabled":          "true",
		"/svc1/created":          "2024-01-01T00:00:00Z",
		"/svc1/labels/region":    "eu-west",
		"/svc1/flags/2":          "true",
		"/svc1/endpoints/1/port": "9090",
		"/svc1/primary/host":     "p.example.com",
		"/svc1/tags/0":           "alpha",
		"/svc1/tags/1":           "beta",
		"/svc1/steps/2":          "255",
		"/svc1/endpoints/0/host": "a.example.com",
		"/svc1/labels/tier":      "gold",
		"/svc1/endpoints/1/host": "b.example.com",
		"/svc1/endpoints/0/port": "8080",
		"/svc1/primary/port":     "443",
		"/svc1/flags/0":          "true",
		"/svc1/flags/1":          "false",
		"/svc1/steps/0":          "1",
	}

	for path, want := range leaves {
		node, found, err := store.Get(ctx, path)
		require.NoError(t, err, path)
		require.True(t, found, path)
		assert.Equal(t, want, string(node.Data), path)
	}
}

func TestNilFieldsEncodeAsEmptyLeaves(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, Write(ctx, store, "/svc", &sample{Name: "bare"}, ObjectOf[sample]()))

	node, found, err := store.Get(ctx, "/svc/primary")
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, node.Data)
	assert.Zero(t, node.NumChildren)

	got, found, err := Read(ctx, store, "/svc", ObjectOf[sample]())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bare", got.Name)
	assert.Nil(t, got.Primary)
	assert.True(t, got.Created.IsZero())
	assert.NotNil(t, got.Labels)
	assert.Empty(t, got.Labels)
}

func TestEmptyArrayDistinctFromAbsent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	conv := ArrayOf(Bool())

	require.NoError(t, Write(ctx, store, "/flags", []bool{}, conv))

	node, found, err := store.Get(ctx, "/flags")
	require.NoError(t, err)
	require.True(t, found)
	assert.Zero(t, node.NumChildren)

	got, found, err := Read(ctx, store, "/flags", conv)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, got)
	assert.Empty(t, got)

	v, err := Decode(ctx, store, "/absent", conv.Type)
	require.NoError(t, err)
	assert.True(t, IsNull(v))

	absent, found, err := Read(ctx, store, "/absent", conv)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, absent)
}

func TestClassifyRejectsNonStringKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	key := ScalarType(ScalarInteger)
	elem := StringType()
	mapping := Type{Category: CategoryMapping, Key: &key, Elem: &elem}

	_, err := Classify(mapping)
	require.ErrorIs(t, err, ErrIncompatibleType)

	// no store calls are expected
	store := coord.NewMockStore(ctrl)

	err = Encode(context.Background(), store, "/m", Mapping{Entries: map[string]Value{}}, mapping)
	require.ErrorIs(t, err, ErrIncompatibleType)

	_, err = Decode(context.Background(), store, "/m", mapping)
	require.ErrorIs(t, err, ErrIncompatibleType)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		want    Category
		wantErr bool
	}{
		{name: "string", typ: StringType(), want: CategorySimple},
		{name: "mapping", typ: MapOf(Integer[int]()).Type, want: CategoryMapping},
		{name: "set", typ: SetOf(String()).Type, want: CategorySet},
		{name: "array", typ: ArrayOf(Time()).Type, want: CategoryArray},
		{name: "sequence", typ: SliceOf(Float[float32]()).Type, want: CategorySequence},
		{name: "composite", typ: ObjectOf[sample]().Type, want: CategoryComposite},
		{name: "sequence without element", typ: Type{Category: CategorySequence}, wantErr: true},
		{name: "composite without schema", typ: Type{Category: CategoryComposite}, wantErr: true},
		{name: "duplicate field", typ: ObjectOf[duplicated]().Type, wantErr: true},
		{name: "unknown scalar", typ: ScalarType(ScalarKind(99)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.typ)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrIncompatibleType)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuplicateFieldRejectedOnWrite(t *testing.T) {
	err := Write(context.Background(), memory.New(), "/d", &duplicated{A: "a", B: "b"}, ObjectOf[duplicated]())
	require.ErrorIs(t, err, ErrIncompatibleType)
	require.ErrorIs(t, err, ErrDuplicateField)
}

func TestDecodeStructuralMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, Write(ctx, store, "/leaf", "text", String()))
	require.NoError(t, Write(ctx, store, "/map", map[string]string{"k": "v"}, MapOf(String())))
	require.NoError(t, Write(ctx, store, "/map/k/nested", "x", String()))

	_, _, err := Read(ctx, store, "/leaf", MapOf(String()))
	require.ErrorIs(t, err, ErrStructuralMismatch)

	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "/leaf", pathErr.Path)
	assert.Equal(t, "leaf", pathErr.Observed)

	_, _, err = Read(ctx, store, "/map", MapOf(String()))
	require.ErrorIs(t, err, ErrStructuralMismatch)
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "/map/k", pathErr.Path)

	_, _, err = Read(ctx, store, "/leaf", ObjectOf[endpoint]())
	require.ErrorIs(t, err, ErrStructuralMismatch)
}

func TestDecodeRequiresContiguousIndices(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, Write(ctx, store, "/list/0", "a", String()))
	require.NoError(t, Write(ctx, store, "/list/2", "c", String()))

	_, _, err := Read(ctx, store, "/list", SliceOf(String()))
	require.ErrorIs(t, err, ErrStructuralMismatch)

	require.NoError(t, Write(ctx, store, "/list/1", "b", String()))

	got, _, err := Read(ctx, store, "/list", SliceOf(String()))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	// sets accept any slot names
	require.NoError(t, Write(ctx, store, "/list/x", "a", String()))

	set, _, err := Read(ctx, store, "/list", SetOf(String()))
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, set)
}

func TestDecodeIndicesSortNumerically(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	items := make([]int, 12)
	for i := range items {
		items[i] = i * 10
	}

	require.NoError(t, Write(ctx, store, "/ints", items, SliceOf(Integer[int]())))

	got, _, err := Read(ctx, store, "/ints", SliceOf(Integer[int]()))
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestDecodeUnparsableValue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, Write(ctx, store, "/ep/host", "h", String()))
	require.NoError(t, Write(ctx, store, "/ep/port", "eighty", String()))

	_, _, err := Read(ctx, store, "/ep", ObjectOf[endpoint]())
	require.ErrorIs(t, err, ErrUnparsableValue)

	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "/ep/port", pathErr.Path)
}

func TestIntegerOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, Write(ctx, store, "/n", "300", String()))

	_, _, err := Read(ctx, store, "/n", Integer[uint8]())
	require.ErrorIs(t, err, ErrUnparsableValue)

	n, _, err := Read(ctx, store, "/n", Integer[int16]())
	require.NoError(t, err)
	assert.Equal(t, int16(300), n)
}

func TestMappingKeyMustBeSegment(t *testing.T) {
	err := Write(context.Background(), memory.New(), "/m", map[string]string{"a/b": "v"}, MapOf(String()))
	require.ErrorIs(t, err, ErrIncompatibleType)
}

func TestEncodeAbortsOnPrimitiveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	store := coord.NewMockStore(ctrl)
	boom := errors.New("connection loss")

	gomock.InOrder(
		store.EXPECT().Exists(ctx, "/ep").Return(true, nil),
		store.EXPECT().Exists(ctx, "/ep/host").Return(false, boom),
	)

	err := Write(ctx, store, "/ep", &endpoint{Host: "h", Port: 1}, ObjectOf[endpoint]())
	require.ErrorIs(t, err, boom)
}

func TestDecodeHook(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, Write(ctx, store, "/h", &hooked{Value: "v"}, ObjectOf[hooked]()))

	got, _, err := Read(ctx, store, "/h", ObjectOf[hooked]())
	require.NoError(t, err)
	assert.True(t, got.decoded)
}

type hooked struct {
	Value   string
	decoded bool
}

func (h *hooked) Bindings() []Binding {
	return []Binding{Bind("value", &h.Value, String())}
}

func (h *hooked) OnDecode() {
	h.decoded = true
}

type leased struct {
	Owner   string
	Holders map[string]string
}

func (l *leased) Bindings() []Binding {
	return []Binding{
		Bind("owner", &l.Owner, String()),
		BindReadOnly("holders", &l.Holders, MapOf(String())),
	}
}

func TestReadOnlyFieldIsDecodedButNotWritten(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	conv := ObjectOf[leased]()

	require.NoError(t, Write(ctx, store, "/lease", &leased{Owner: "a", Holders: map[string]string{"x": "1"}}, conv))

	children, err := store.Children(ctx, "/lease")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, children)

	require.NoError(t, coord.EnsureNode(ctx, store, "/lease/holders"))
	_, err = store.Create(ctx, "/lease/holders/y", []byte("2"), coord.Persistent)
	require.NoError(t, err)

	got, found, err := Read(ctx, store, "/lease", conv)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, &leased{Owner: "a", Holders: map[string]string{"y": "2"}}, got)

	got.Holders = map[string]string{}
	require.NoError(t, Write(ctx, store, "/lease", got, conv))

	node, found, err := store.Get(ctx, "/lease/holders/y")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2", string(node.Data))
}
