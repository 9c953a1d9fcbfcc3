// Package netclient implements the Backend contract against a remote
// server over TCP (§4.8): one socket, one dedicated read goroutine, and a
// ThreadedExecutor worker that serializes writes. From an observer's point
// of view this backend is indistinguishable from the local SQLite one —
// both drive the same persistence.ChangeQueue/DataStream machinery.
package netclient

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/decden/hotelsync/pkg/fas"
	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/decden/hotelsync/pkg/wire"
)

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

// Backend is the network client implementation of persistence.Backend.
// Stream and task ids are assigned client-side, monotonically increasing;
// the server correlates its own internal bookkeeping by echoing them back
// on every reply.
type Backend struct {
	conn   net.Conn
	writer fas.ThreadedExecutor
	queue  *persistence.ChangeQueue
	log    *slog.Logger

	mu                 sync.Mutex
	nextStreamID       int
	nextTaskID         int
	hotelStreams       map[int]hotelStream
	reservationStreams map[int]reservationStream

	readDone chan struct{}
}

// Dial connects to addr and starts the backend's writer worker and read
// loop. There is no reconnect-on-drop logic (§1 non-goals): once the
// connection fails, pending futures and open streams stay unresolved.
func Dial(addr string) (*Backend, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netclient: dial %s: %w", addr, err)
	}

	writer := fas.NewThreadedExecutor()
	writer.Start()

	b := &Backend{
		conn:                conn,
		writer:              writer,
		queue:               persistence.NewChangeQueue(),
		log:                 slog.With("component", "netclient-backend", "addr", addr),
		hotelStreams:        map[int]hotelStream{},
		reservationStreams: map[int]reservationStream{},
		readDone:            make(chan struct{}),
	}
	go b.readLoop()
	b.log.Info("connected")
	return b, nil
}

// Close stops the writer worker and closes the socket, which in turn
// unblocks the read loop.
func (b *Backend) Close() error {
	b.writer.Stop()
	err := b.conn.Close()
	<-b.readDone
	return err
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

// QueueOperations implements persistence.Backend.
func (b *Backend) QueueOperations(ops persistence.Operations, observer persistence.TaskObserver) (*persistence.UniqueTaskHandle, fas.Future[[]persistence.OperationResult]) {
	b.sweepStreams()

	b.mu.Lock()
	b.nextTaskID++
	taskID := b.nextTaskID
	b.mu.Unlock()

	future, promise := fas.NewPromise[[]persistence.OperationResult]()
	task := persistence.NewTask(taskID, &combinedTaskObserver{inner: observer, promise: promise})
	b.queue.AddTask(task)

	b.writer.Spawn(func() {
		payload, err := wire.Encode(wire.OpScheduleOperations, wire.ScheduleOperations{ID: taskID, Operations: ops})
		if err != nil {
			b.queue.CompleteTask(taskID, []persistence.OperationResult{persistence.ErrorResult(err)})
			return
		}
		if err := wire.WriteFrame(b.conn, payload); err != nil {
			b.queue.CompleteTask(taskID, []persistence.OperationResult{persistence.ErrorResult(err)})
		}
	})

	return persistence.NewUniqueTaskHandle(task), future
}

// CreateHotelStream implements persistence.Backend.
func (b *Backend) CreateHotelStream(observer persistence.DataStreamObserver[hotel.Hotel], service string, options json.RawMessage) (*persistence.UniqueDataStreamHandle[hotel.Hotel], error) {
	b.sweepStreams()

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
	b.hotelStreams[id] = producer
	b.mu.Unlock()
	b.queue.AddStream(stream)

	b.sendCreateStream(id, persistence.EntityHotel, service, options)
	return persistence.NewUniqueDataStreamHandle(stream), nil
}

// CreateReservationStream implements persistence.Backend.
func (b *Backend) CreateReservationStream(observer persistence.DataStreamObserver[hotel.Reservation], service string, options json.RawMessage) (*persistence.UniqueDataStreamHandle[hotel.Reservation], error) {
	b.sweepStreams()

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
	b.reservationStreams[id] = producer
	b.mu.Unlock()
	b.queue.AddStream(stream)

	b.sendCreateStream(id, persistence.EntityReservation, service, options)
	return persistence.NewUniqueDataStreamHandle(stream), nil
}

func (b *Backend) sendCreateStream(id int, entity persistence.EntityKind, service string, options json.RawMessage) {
	b.writer.Spawn(func() {
		payload, err := wire.Encode(wire.OpCreateStream, wire.CreateStream{
			ID:      id,
			Type:    int(entity),
			Service: service,
			Options: options,
		})
		if err != nil {
			b.log.Error("failed to encode create_stream", "stream_id", id, "error", err)
			return
		}
		if err := wire.WriteFrame(b.conn, payload); err != nil {
			b.log.Error("failed to write create_stream", "stream_id", id, "error", err)
		}
	})
}

type idFilterOptions struct {
	ID int `json:"id"`
}

func parseIDFilter(options json.RawMessage) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("netclient: by_id service requires an id option")
	}
	var opts idFilterOptions
	if err := json.Unmarshal(options, &opts); err != nil {
		return 0, fmt.Errorf("netclient: parsing id option: %w", err)
	}
	return opts.ID, nil
}

// sweepStreams drops streams whose handle has been closed locally and
// tells the server to free them. Since there is no periodic tick, this
// runs lazily on the next CreateStream/QueueOperations call — a handle
// closed with no further traffic on the connection will have its
// remove_stream sent on the next unrelated call, not immediately.
func (b *Backend) sweepStreams() {
	b.mu.Lock()
	var stale []int
	for id, s := range b.hotelStreams {
		if !s.IsValid() {
			stale = append(stale, id)
			delete(b.hotelStreams, id)
		}
	}
	for id, s := range b.reservationStreams {
		if !s.IsValid() {
			stale = append(stale, id)
			delete(b.reservationStreams, id)
		}
	}
	b.mu.Unlock()

	for _, id := range stale {
		id := id
		b.writer.Spawn(func() {
			payload, err := wire.Encode(wire.OpRemoveStream, wire.RemoveStream{ID: id})
			if err != nil {
				return
			}
			_ = wire.WriteFrame(b.conn, payload)
		})
	}
}

var _ persistence.Backend = (*Backend)(nil)
