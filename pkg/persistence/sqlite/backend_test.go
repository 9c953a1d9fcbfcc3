package sqlite_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/decden/hotelsync/pkg/persistence/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestBackend opens a fresh SQLite-backed backend and keeps its
// ChangeQueue pumped in the background for the duration of the test — every
// future returned by QueueOperations, and every stream observer callback,
// only fires once something drains the queue (§4.6), so tests that block on
// future.Get() or wait on an observer need a live Pump the same way a real
// caller's main loop would provide one.
func openTestBackend(t *testing.T) *sqlite.Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hotelsync.db")
	b, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go persistence.NewPump(b.ChangeQueue()).Run(ctx)

	return b
}

type recordingObserver[T hotel.Identifiable] struct {
	added       [][]T
	updated     [][]T
	removed     [][]int
	cleared     int
	initialized int
}

func (o *recordingObserver[T]) AddItems(items []T)    { o.added = append(o.added, items) }
func (o *recordingObserver[T]) UpdateItems(items []T) { o.updated = append(o.updated, items) }
func (o *recordingObserver[T]) RemoveItems(ids []int) { o.removed = append(o.removed, ids) }
func (o *recordingObserver[T]) Clear()                { o.cleared++ }
func (o *recordingObserver[T]) Initialized()          { o.initialized++ }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleHotel() *hotel.Hotel {
	return &hotel.Hotel{
		Name: "Grand Budapest",
		Categories: []hotel.RoomCategory{
			{ShortCode: "std", Name: "Standard"},
		},
		Rooms: []hotel.HotelRoom{
			{Name: "101", CategoryShortCode: "std"},
		},
	}
}

func TestStoreNewHotelAssignsIDsAndRevision(t *testing.T) {
	b := openTestBackend(t)

	h := sampleHotel()
	_, future := persistence.QueueOperation(b, persistence.NewStoreNewHotel(h), nil)
	results := future.Get()

	require.Len(t, results, 1)
	assert.Equal(t, persistence.Successful, results[0].Status)
	assert.NotZero(t, h.ID)
	assert.Equal(t, 1, h.Revision)
	assert.NotZero(t, h.Rooms[0].ID)
}

func TestVersionConflictRollsBackWholeBatch(t *testing.T) {
	b := openTestBackend(t)

	h := sampleHotel()
	_, future := persistence.QueueOperation(b, persistence.NewStoreNewHotel(h), nil)
	future.Get()

	originalName := h.Name
	updateA := *h
	updateA.Name = "A"
	updateB := *h
	updateB.Name = "B"

	_, future2 := b.QueueOperations(persistence.Operations{
		persistence.NewUpdateHotel(&updateA),
		persistence.NewUpdateHotel(&updateB),
	}, nil)
	results := future2.Get()

	require.Len(t, results, 2)
	assert.Equal(t, persistence.Successful, results[0].Status)
	assert.Equal(t, persistence.Error, results[1].Status)

	// The whole batch rolled back: the DB must be exactly as before,
	// including the first update's in-isolation-successful effect.
	obs := &recordingObserver[hotel.Hotel]{}
	_, err := b.CreateHotelStream(obs, "", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return obs.initialized > 0 }, time.Second, time.Millisecond)
	require.Len(t, obs.added, 1)
	require.Len(t, obs.added[0], 1)
	assert.Equal(t, originalName, obs.added[0][0].Name)
	assert.Equal(t, 1, obs.added[0][0].Revision)
}

func TestSingleIdHotelStreamSeesOnlyMatchingHotel(t *testing.T) {
	b := openTestBackend(t)

	h1 := sampleHotel()
	h1.Name = "Hotel One"
	_, f1 := persistence.QueueOperation(b, persistence.NewStoreNewHotel(h1), nil)
	f1.Get()

	h2 := sampleHotel()
	h2.Name = "Hotel Two"
	_, f2 := persistence.QueueOperation(b, persistence.NewStoreNewHotel(h2), nil)
	f2.Get()

	obs := &recordingObserver[hotel.Hotel]{}
	options, err := json.Marshal(map[string]int{"id": h2.ID})
	require.NoError(t, err)
	_, err = b.CreateHotelStream(obs, "hotel.by_id", options)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return obs.initialized > 0 }, time.Second, time.Millisecond)
	require.Len(t, obs.added, 1)
	require.Len(t, obs.added[0], 1)
	assert.Equal(t, h2.ID, obs.added[0][0].ID)

	h3 := sampleHotel()
	h3.Name = "Hotel Three"
	_, f3 := persistence.QueueOperation(b, persistence.NewStoreNewHotel(h3), nil)
	f3.Get()

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, obs.added, 1)
}

func TestEraseAllDataClearsAllStreams(t *testing.T) {
	b := openTestBackend(t)

	_, f := persistence.QueueOperation(b, persistence.NewStoreNewHotel(sampleHotel()), nil)
	f.Get()

	hotelObs := &recordingObserver[hotel.Hotel]{}
	_, err := b.CreateHotelStream(hotelObs, "", nil)
	require.NoError(t, err)
	reservationObs := &recordingObserver[hotel.Reservation]{}
	_, err = b.CreateReservationStream(reservationObs, "", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hotelObs.initialized > 0 && reservationObs.initialized > 0 }, time.Second, time.Millisecond)

	_, eraseFuture := persistence.QueueOperation(b, persistence.NewEraseAllDataOperation(), nil)
	eraseFuture.Get()

	require.Eventually(t, func() bool { return hotelObs.cleared > 0 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, hotelObs.cleared)
	assert.Equal(t, 1, reservationObs.cleared)
}

func TestPumpDrivesObserverCallbacks(t *testing.T) {
	b := openTestBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pump := persistence.NewPump(b.ChangeQueue())
	go pump.Run(ctx)

	obs := &recordingObserver[hotel.Hotel]{}
	_, err := b.CreateHotelStream(obs, "", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return obs.initialized > 0 }, time.Second, time.Millisecond)
}

func TestReservationDoubleBookingRejected(t *testing.T) {
	b := openTestBackend(t)

	h := sampleHotel()
	_, f := persistence.QueueOperation(b, persistence.NewStoreNewHotel(h), nil)
	f.Get()
	roomID := h.Rooms[0].ID

	r1 := &hotel.Reservation{
		Description: "First",
		Atoms: []hotel.ReservationAtom{
			{RoomID: roomID, Range: hotel.DateRange{From: date(2026, 8, 1), To: date(2026, 8, 5)}},
		},
	}
	_, f1 := persistence.QueueOperation(b, persistence.NewStoreNewReservation(r1), nil)
	results1 := f1.Get()
	require.Equal(t, persistence.Successful, results1[0].Status)

	r2 := &hotel.Reservation{
		Description: "Overlapping",
		Atoms: []hotel.ReservationAtom{
			{RoomID: roomID, Range: hotel.DateRange{From: date(2026, 8, 3), To: date(2026, 8, 6)}},
		},
	}
	_, f2 := persistence.QueueOperation(b, persistence.NewStoreNewReservation(r2), nil)
	results2 := f2.Get()
	require.Equal(t, persistence.Error, results2[0].Status)
}

func TestStoreNewReservationCoercesTemporaryToNew(t *testing.T) {
	b := openTestBackend(t)

	h := sampleHotel()
	_, f := persistence.QueueOperation(b, persistence.NewStoreNewHotel(h), nil)
	f.Get()

	r := &hotel.Reservation{
		Status: hotel.StatusTemporary,
		Atoms: []hotel.ReservationAtom{
			{RoomID: h.Rooms[0].ID, Range: hotel.DateRange{From: date(2026, 9, 1), To: date(2026, 9, 2)}},
		},
	}
	_, future := persistence.QueueOperation(b, persistence.NewStoreNewReservation(r), nil)
	future.Get()
	assert.Equal(t, hotel.StatusNew, r.Status)
}

func TestUpdateReservationCoercesTemporaryToNew(t *testing.T) {
	b := openTestBackend(t)

	h := sampleHotel()
	_, f := persistence.QueueOperation(b, persistence.NewStoreNewHotel(h), nil)
	f.Get()

	r := &hotel.Reservation{
		Atoms: []hotel.ReservationAtom{
			{RoomID: h.Rooms[0].ID, Range: hotel.DateRange{From: date(2026, 9, 1), To: date(2026, 9, 2)}},
		},
	}
	_, storeFuture := persistence.QueueOperation(b, persistence.NewStoreNewReservation(r), nil)
	storeFuture.Get()

	r.Status = hotel.StatusTemporary
	_, updateFuture := persistence.QueueOperation(b, persistence.NewUpdateReservation(r), nil)
	results := updateFuture.Get()
	require.Equal(t, persistence.Successful, results[0].Status)
	assert.Equal(t, hotel.StatusNew, r.Status)
}
