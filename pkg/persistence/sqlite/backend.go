// Package sqlite implements the local persistence backend (§4.7): one
// worker goroutine, one SQLite connection confined to it, transactional
// batch execution, and per-stream change fan-out through a
// persistence.ChangeQueue.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/decden/hotelsync/pkg/fas"
	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
)

// hotelStream is the subset of *persistence.DataStream[hotel.Hotel] (or its
// *persistence.SingleIdDataStream[hotel.Hotel] embedding) the backend needs
// to fan changes out and garbage-collect detached streams.
type hotelStream interface {
	persistence.StreamProducer[hotel.Hotel]
	ID() int
	IsValid() bool
}

type reservationStream interface {
	persistence.StreamProducer[hotel.Reservation]
	ID() int
	IsValid() bool
}

// Backend is the SQLite-backed implementation of persistence.Backend. The
// database handle is confined to a single ThreadedExecutor worker (§5):
// every transaction runs there, never on the caller's goroutine.
type Backend struct {
	db     *sql.DB
	worker fas.ThreadedExecutor
	queue  *persistence.ChangeQueue
	log    *slog.Logger

	mu                 sync.Mutex
	nextStreamID       int
	nextTaskID         int
	hotelStreams       []hotelStream
	reservationStreams []reservationStream
}

// Open opens (creating if absent) a SQLite database at path and starts the
// backend's worker goroutine. The schema is created on open if absent and
// never migrated (§1 non-goals).
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	// The backend worker is the only thing ever touching this connection;
	// one connection is the whole pool.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	worker := fas.NewThreadedExecutor()
	worker.Start()

	b := &Backend{
		db:     db,
		worker: worker,
		queue:  persistence.NewChangeQueue(),
		log:    slog.With("component", "sqlite-backend", "path", path),
	}
	b.log.Info("backend opened")
	return b, nil
}

// Close stops the worker and closes the database handle. Streams and tasks
// still registered are left to the caller to have already torn down.
func (b *Backend) Close() error {
	b.worker.Stop()
	return b.db.Close()
}

// ChangeQueue implements persistence.Backend.
func (b *Backend) ChangeQueue() *persistence.ChangeQueue { return b.queue }

type combinedTaskObserver struct {
	inner   persistence.TaskObserver
	promise fas.Promise[[]persistence.OperationResult]
}

func (o *combinedTaskObserver) Completed(results []persistence.OperationResult) {
	if o.inner != nil {
		o.inner.Completed(results)
	}
	o.promise.Resolve(results)
}

// QueueOperations implements persistence.Backend. The batch is picked up by
// the worker goroutine in arrival order (§4.7, §5 ordering guarantee 3).
func (b *Backend) QueueOperations(ops persistence.Operations, observer persistence.TaskObserver) (*persistence.UniqueTaskHandle, fas.Future[[]persistence.OperationResult]) {
	b.mu.Lock()
	b.nextTaskID++
	taskID := b.nextTaskID
	b.mu.Unlock()

	future, promise := fas.NewPromise[[]persistence.OperationResult]()
	task := persistence.NewTask(taskID, &combinedTaskObserver{inner: observer, promise: promise})
	b.queue.AddTask(task)

	b.worker.Spawn(func() { b.runBatch(taskID, ops) })

	return persistence.NewUniqueTaskHandle(task), future
}

func (b *Backend) runBatch(taskID int, ops persistence.Operations) {
	tx, err := b.db.Begin()
	if err != nil {
		b.log.Error("failed to begin transaction", "task_id", taskID, "error", err)
		b.queue.CompleteTask(taskID, []persistence.OperationResult{persistence.ErrorResult(err)})
		return
	}

	results, effects := executeBatch(tx, ops)
	if len(effects) > 0 {
		b.applyEffects(effects)
	}
	b.queue.CompleteTask(taskID, results)
}

func (b *Backend) applyEffects(effects []effect) {
	b.mu.Lock()
	hotelStreams := append([]hotelStream(nil), b.hotelStreams...)
	reservationStreams := append([]reservationStream(nil), b.reservationStreams...)
	b.mu.Unlock()

	dirtyHotel := map[int]struct{}{}
	dirtyReservation := map[int]struct{}{}

	for _, eff := range effects {
		switch {
		case eff.erased:
			for _, s := range hotelStreams {
				if s.IsValid() {
					s.Clear()
					dirtyHotel[s.ID()] = struct{}{}
				}
			}
			for _, s := range reservationStreams {
				if s.IsValid() {
					s.Clear()
					dirtyReservation[s.ID()] = struct{}{}
				}
			}
		case eff.hotelAdded != nil:
			for _, s := range hotelStreams {
				if s.IsValid() {
					s.AddItems([]hotel.Hotel{*eff.hotelAdded})
					dirtyHotel[s.ID()] = struct{}{}
				}
			}
		case eff.hotelUpdated != nil:
			for _, s := range hotelStreams {
				if s.IsValid() {
					s.UpdateItems([]hotel.Hotel{*eff.hotelUpdated})
					dirtyHotel[s.ID()] = struct{}{}
				}
			}
		case eff.hotelDeletedID != 0:
			for _, s := range hotelStreams {
				if s.IsValid() {
					s.RemoveItems([]int{eff.hotelDeletedID})
					dirtyHotel[s.ID()] = struct{}{}
				}
			}
		case eff.reservationAdded != nil:
			for _, s := range reservationStreams {
				if s.IsValid() {
					s.AddItems([]hotel.Reservation{*eff.reservationAdded})
					dirtyReservation[s.ID()] = struct{}{}
				}
			}
		case eff.reservationUpdated != nil:
			for _, s := range reservationStreams {
				if s.IsValid() {
					s.UpdateItems([]hotel.Reservation{*eff.reservationUpdated})
					dirtyReservation[s.ID()] = struct{}{}
				}
			}
		case eff.reservationDeletedID != 0:
			for _, s := range reservationStreams {
				if s.IsValid() {
					s.RemoveItems([]int{eff.reservationDeletedID})
					dirtyReservation[s.ID()] = struct{}{}
				}
			}
		}
	}

	for id := range dirtyHotel {
		b.queue.AddStreamChange(id)
	}
	for id := range dirtyReservation {
		b.queue.AddStreamChange(id)
	}

	b.gcStreams()
}

// gcStreams drops detached streams from the backend's own fan-out
// registry (§4.5: "the backend garbage-collects invalid streams on each
// fan-out tick"). ChangeQueue does the same for its own registry.
func (b *Backend) gcStreams() {
	b.mu.Lock()
	defer b.mu.Unlock()
	live := b.hotelStreams[:0]
	for _, s := range b.hotelStreams {
		if s.IsValid() {
			live = append(live, s)
		}
	}
	b.hotelStreams = live

	liveR := b.reservationStreams[:0]
	for _, s := range b.reservationStreams {
		if s.IsValid() {
			liveR = append(liveR, s)
		}
	}
	b.reservationStreams = liveR
}

type idFilterOptions struct {
	ID int `json:"id"`
}

func parseIDFilter(options json.RawMessage) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("sqlite: by_id service requires an id option")
	}
	var opts idFilterOptions
	if err := json.Unmarshal(options, &opts); err != nil {
		return 0, fmt.Errorf("sqlite: parsing id option: %w", err)
	}
	return opts.ID, nil
}

// CreateHotelStream implements persistence.Backend.
func (b *Backend) CreateHotelStream(observer persistence.DataStreamObserver[hotel.Hotel], service string, options json.RawMessage) (*persistence.UniqueDataStreamHandle[hotel.Hotel], error) {
	b.mu.Lock()
	b.nextStreamID++
	id := b.nextStreamID
	b.mu.Unlock()

	var stream *persistence.DataStream[hotel.Hotel]
	var producer hotelStream

	if service == persistence.EntityHotel.String()+".by_id" {
		idFilter, err := parseIDFilter(options)
		if err != nil {
			return nil, err
		}
		single := persistence.NewSingleIdDataStream[hotel.Hotel](id, persistence.EntityHotel, options, observer, idFilter)
		stream = single.DataStream
		producer = single
	} else {
		stream = persistence.NewDataStream[hotel.Hotel](id, persistence.EntityHotel, service, options, observer)
		producer = stream
	}

	b.mu.Lock()
	b.hotelStreams = append(b.hotelStreams, producer)
	b.mu.Unlock()
	b.queue.AddStream(stream)

	b.worker.Spawn(func() { b.initializeHotelStream(id, producer) })

	return persistence.NewUniqueDataStreamHandle(stream), nil
}

func (b *Backend) initializeHotelStream(streamID int, producer hotelStream) {
	tx, err := b.db.Begin()
	if err != nil {
		b.log.Error("failed to begin transaction for stream init", "stream_id", streamID, "error", err)
		return
	}
	hotels, err := loadAllHotels(tx)
	tx.Commit()
	if err != nil {
		b.log.Error("failed to load hotels for stream init", "stream_id", streamID, "error", err)
		return
	}
	producer.AddItems(hotels)
	producer.SetInitialized()
	b.queue.AddStreamChange(streamID)
}

// CreateReservationStream implements persistence.Backend.
func (b *Backend) CreateReservationStream(observer persistence.DataStreamObserver[hotel.Reservation], service string, options json.RawMessage) (*persistence.UniqueDataStreamHandle[hotel.Reservation], error) {
	b.mu.Lock()
	b.nextStreamID++
	id := b.nextStreamID
	b.mu.Unlock()

	var stream *persistence.DataStream[hotel.Reservation]
	var producer reservationStream

	if service == persistence.EntityReservation.String()+".by_id" {
		idFilter, err := parseIDFilter(options)
		if err != nil {
			return nil, err
		}
		single := persistence.NewSingleIdDataStream[hotel.Reservation](id, persistence.EntityReservation, options, observer, idFilter)
		stream = single.DataStream
		producer = single
	} else {
		stream = persistence.NewDataStream[hotel.Reservation](id, persistence.EntityReservation, service, options, observer)
		producer = stream
	}

	b.mu.Lock()
	b.reservationStreams = append(b.reservationStreams, producer)
	b.mu.Unlock()
	b.queue.AddStream(stream)

	b.worker.Spawn(func() { b.initializeReservationStream(id, producer) })

	return persistence.NewUniqueDataStreamHandle(stream), nil
}

func (b *Backend) initializeReservationStream(streamID int, producer reservationStream) {
	tx, err := b.db.Begin()
	if err != nil {
		b.log.Error("failed to begin transaction for stream init", "stream_id", streamID, "error", err)
		return
	}
	reservations, err := loadAllReservations(tx)
	tx.Commit()
	if err != nil {
		b.log.Error("failed to load reservations for stream init", "stream_id", streamID, "error", err)
		return
	}
	producer.AddItems(reservations)
	producer.SetInitialized()
	b.queue.AddStreamChange(streamID)
}

var _ persistence.Backend = (*Backend)(nil)
