package persistence

import (
	"encoding/json"

	"github.com/decden/hotelsync/pkg/fas"
	"github.com/decden/hotelsync/pkg/hotel"
)

// Backend is the interface every storage implementation satisfies: local
// SQLite and the network client backend are interchangeable behind it
// (§4.7, §4.8). Go forbids generic methods, so the original's single
// template createStream<T> becomes one concrete method per streamable
// entity type — Hotel and Reservation are the only two StreamableType
// values the original defines.
type Backend interface {
	// ChangeQueue returns the queue all changes are pushed to.
	ChangeQueue() *ChangeQueue

	// QueueOperations queues a batch to execute as a single transaction.
	// The returned future resolves to one OperationResult per operation in
	// the batch (or fewer, ending in Error, if the batch aborted; §7).
	// observer may be nil.
	QueueOperations(ops Operations, observer TaskObserver) (*UniqueTaskHandle, fas.Future[[]OperationResult])

	// CreateHotelStream opens a stream of Hotel changes, optionally
	// filtered by service (e.g. "hotel.by_id" with options {"id": N}).
	CreateHotelStream(observer DataStreamObserver[hotel.Hotel], service string, options json.RawMessage) (*UniqueDataStreamHandle[hotel.Hotel], error)

	// CreateReservationStream opens a stream of Reservation changes.
	CreateReservationStream(observer DataStreamObserver[hotel.Reservation], service string, options json.RawMessage) (*UniqueDataStreamHandle[hotel.Reservation], error)
}

// QueueOperation queues a single operation as a one-element batch, mirroring
// the original's queueOperation/queueOperations split (persistence/backend.h).
func QueueOperation(b Backend, op Operation, observer TaskObserver) (*UniqueTaskHandle, fas.Future[[]OperationResult]) {
	return b.QueueOperations(Operations{op}, observer)
}
