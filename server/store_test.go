package server

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osm-route-server/routing"
)

func TestGraphStoreCachesPerBox(t *testing.T) {
	source := &fakeSource{payload: blockPayload}
	store := NewGraphStore(source, 2, false, zerolog.Nop())
	ctx := context.Background()

	a := routing.BoundingBox{MinLat: 45.49, MinLon: -73.61, MaxLat: 45.51, MaxLon: -73.59}
	b := routing.BoundingBox{MinLat: 45.48, MinLon: -73.61, MaxLat: 45.51, MaxLon: -73.59}
	c := routing.BoundingBox{MinLat: 45.47, MinLon: -73.61, MaxLat: 45.51, MaxLon: -73.59}

	first, cached, err := store.Graph(ctx, a)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.False(t, first.Verified)
	assert.Equal(t, a.Key(), first.Key)

	again, cached, err := store.Graph(ctx, a)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Same(t, first, again)
	assert.Equal(t, 1, source.Calls())

	_, _, err = store.Graph(ctx, b)
	require.NoError(t, err)
	_, _, err = store.Graph(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 3, source.Calls())

	// a was least recently used and got evicted
	_, ok := store.Lookup(a.Key())
	assert.False(t, ok)
	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Less(t, entries[0].Key, entries[1].Key)
}

func TestGraphStoreVerifiesOnLoad(t *testing.T) {
	store := NewGraphStore(&fakeSource{payload: blockPayload}, 1, true, zerolog.Nop())
	entry, _, err := store.Graph(context.Background(), routing.BoundingBox{MaxLat: 1, MaxLon: 1})
	require.NoError(t, err)
	assert.True(t, entry.Verified)
	assert.Empty(t, entry.VerifyReason)
	assert.Equal(t, entry.Graph.Summary(), entry.Summary)
}

func TestGraphStoreLoadErrors(t *testing.T) {
	boom := errors.New("boom")
	store := NewGraphStore(&fakeSource{err: boom}, 1, true, zerolog.Nop())
	bbox := routing.BoundingBox{MaxLat: 1, MaxLon: 1}

	_, _, err := store.Graph(context.Background(), bbox)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, bbox, loadErr.Bounds)
	assert.Empty(t, store.Entries())

	store = NewGraphStore(&fakeSource{payload: `[{"type":"node","id":1,"lat":0,"lon":999}]`}, 1, true, zerolog.Nop())
	_, _, err = store.Graph(context.Background(), bbox)
	assert.ErrorIs(t, err, routing.ErrInvalidCoordinate)
}
