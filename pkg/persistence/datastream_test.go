package persistence_test

import (
	"testing"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHotelObserver struct {
	added       [][]hotel.Hotel
	updated     [][]hotel.Hotel
	removed     [][]int
	cleared     int
	initialized int
}

func (o *recordingHotelObserver) AddItems(items []hotel.Hotel)    { o.added = append(o.added, items) }
func (o *recordingHotelObserver) UpdateItems(items []hotel.Hotel) { o.updated = append(o.updated, items) }
func (o *recordingHotelObserver) RemoveItems(ids []int)           { o.removed = append(o.removed, ids) }
func (o *recordingHotelObserver) Clear()                          { o.cleared++ }
func (o *recordingHotelObserver) Initialized()                    { o.initialized++ }

func TestDataStreamIntegrateChangesPreservesOrder(t *testing.T) {
	obs := &recordingHotelObserver{}
	s := persistence.NewDataStream[hotel.Hotel](1, persistence.EntityHotel, "", nil, obs)

	h1 := hotel.Hotel{PersistentObject: hotel.PersistentObject{ID: 1}, Name: "A"}
	h2 := hotel.Hotel{PersistentObject: hotel.PersistentObject{ID: 2}, Name: "B"}
	s.AddItems([]hotel.Hotel{h1, h2})
	s.SetInitialized()

	require.False(t, s.IsInitialized())
	s.IntegrateChanges()

	require.Len(t, obs.added, 1)
	assert.Equal(t, []hotel.Hotel{h1, h2}, obs.added[0])
	assert.Equal(t, 1, obs.initialized)
	assert.True(t, s.IsInitialized())
}

func TestDataStreamDetachMakesInvalid(t *testing.T) {
	obs := &recordingHotelObserver{}
	s := persistence.NewDataStream[hotel.Hotel](1, persistence.EntityHotel, "", nil, obs)
	require.True(t, s.IsValid())
	s.Detach()
	assert.False(t, s.IsValid())
}

func TestSingleIdDataStreamFiltersAddAndUpdate(t *testing.T) {
	obs := &recordingHotelObserver{}
	s := persistence.NewSingleIdDataStream[hotel.Hotel](1, persistence.EntityHotel, nil, obs, 2)

	h1 := hotel.Hotel{PersistentObject: hotel.PersistentObject{ID: 1}, Name: "A"}
	h2 := hotel.Hotel{PersistentObject: hotel.PersistentObject{ID: 2}, Name: "B"}
	s.AddItems([]hotel.Hotel{h1, h2})
	s.IntegrateChanges()

	require.Len(t, obs.added, 1)
	assert.Equal(t, []hotel.Hotel{h2}, obs.added[0])
}

func TestSingleIdDataStreamFiltersRemove(t *testing.T) {
	obs := &recordingHotelObserver{}
	s := persistence.NewSingleIdDataStream[hotel.Hotel](1, persistence.EntityHotel, nil, obs, 2)

	s.RemoveItems([]int{1, 3})
	s.IntegrateChanges()
	assert.Empty(t, obs.removed)

	s.RemoveItems([]int{1, 2, 3})
	s.IntegrateChanges()
	require.Len(t, obs.removed, 1)
	assert.Equal(t, []int{2}, obs.removed[0])
}

func TestUniqueDataStreamHandleCloseDetaches(t *testing.T) {
	obs := &recordingHotelObserver{}
	s := persistence.NewDataStream[hotel.Hotel](1, persistence.EntityHotel, "", nil, obs)
	handle := persistence.NewUniqueDataStreamHandle(s)

	require.True(t, s.IsValid())
	require.NoError(t, handle.Close())
	assert.False(t, s.IsValid())
}
