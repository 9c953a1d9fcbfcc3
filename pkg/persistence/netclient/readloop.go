package netclient

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/wire"
)

// readLoop drains frames off the socket until it closes. Each stream_* or
// task_results message is translated into the same ChangeQueue/DataStream
// calls the SQLite backend's worker makes, so downstream code never knows
// which backend it is talking to.
func (b *Backend) readLoop() {
	defer close(b.readDone)
	for {
		payload, err := wire.ReadFrame(b.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				b.log.Warn("connection read failed", "error", err)
			}
			return
		}
		if err := b.dispatch(payload); err != nil {
			b.log.Error("failed to handle message", "error", err)
		}
	}
}

func (b *Backend) dispatch(payload []byte) error {
	op, err := wire.PeekOp(payload)
	if err != nil {
		return err
	}

	switch op {
	case wire.OpStreamInitialize:
		var msg wire.StreamInitialize
		if err := wire.Decode(payload, &msg); err != nil {
			return err
		}
		b.withProducer(msg.ID, func(p hotelStream) { p.SetInitialized() }, func(p reservationStream) { p.SetInitialized() })
		b.queue.AddStreamChange(msg.ID)

	case wire.OpStreamAdd:
		var msg wire.StreamAdd
		if err := wire.Decode(payload, &msg); err != nil {
			return err
		}
		if err := b.applyItems(msg.ID, msg.Type, msg.Items, itemsAdd); err != nil {
			return err
		}
		b.queue.AddStreamChange(msg.ID)

	case wire.OpStreamUpdate:
		var msg wire.StreamUpdate
		if err := wire.Decode(payload, &msg); err != nil {
			return err
		}
		if err := b.applyItems(msg.ID, msg.Type, msg.Items, itemsUpdate); err != nil {
			return err
		}
		b.queue.AddStreamChange(msg.ID)

	case wire.OpStreamRemove:
		var msg wire.StreamRemove
		if err := wire.Decode(payload, &msg); err != nil {
			return err
		}
		b.withProducer(msg.ID,
			func(p hotelStream) { p.RemoveItems(msg.Items) },
			func(p reservationStream) { p.RemoveItems(msg.Items) })
		b.queue.AddStreamChange(msg.ID)

	case wire.OpStreamClear:
		var msg wire.StreamClear
		if err := wire.Decode(payload, &msg); err != nil {
			return err
		}
		b.withProducer(msg.ID, func(p hotelStream) { p.Clear() }, func(p reservationStream) { p.Clear() })
		b.queue.AddStreamChange(msg.ID)

	case wire.OpTaskResults:
		var msg wire.TaskResults
		if err := wire.Decode(payload, &msg); err != nil {
			return err
		}
		b.queue.CompleteTask(msg.ID, msg.Results)

	default:
		return nil
	}
	return nil
}

type itemsKind int

const (
	itemsAdd itemsKind = iota
	itemsUpdate
)

func (b *Backend) applyItems(streamID int, entityType string, raw json.RawMessage, kind itemsKind) error {
	switch entityType {
	case "hotel":
		var items []hotel.Hotel
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		b.withProducer(streamID, func(p hotelStream) {
			if kind == itemsAdd {
				p.AddItems(items)
			} else {
				p.UpdateItems(items)
			}
		}, nil)
	case "reservation":
		var items []hotel.Reservation
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		b.withProducer(streamID, nil, func(p reservationStream) {
			if kind == itemsAdd {
				p.AddItems(items)
			} else {
				p.UpdateItems(items)
			}
		})
	}
	return nil
}

// withProducer looks up streamID in both registries and invokes whichever
// callback matches. At most one of onHotel/onReservation ever fires.
func (b *Backend) withProducer(streamID int, onHotel func(hotelStream), onReservation func(reservationStream)) {
	b.mu.Lock()
	h, hasHotel := b.hotelStreams[streamID]
	r, hasReservation := b.reservationStreams[streamID]
	b.mu.Unlock()

	if hasHotel && onHotel != nil {
		onHotel(h)
	}
	if hasReservation && onReservation != nil {
		onReservation(r)
	}
}
