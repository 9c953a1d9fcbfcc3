package netserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/decden/hotelsync/pkg/wire"
)

// connSender writes frames to a net.Conn, serialized by a mutex — the
// session's MessageSender.
type connSender struct {
	mu   sync.Mutex
	conn net.Conn
}

func (s *connSender) SendMessage(op string, msg any) error {
	payload, err := wire.Encode(op, msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return wire.WriteFrame(s.conn, payload)
}

// sessionStreamObserver forwards every callback from a real backend stream
// down the wire, tagged with the client-supplied stream id. entityType is
// "hotel" or "reservation", matching the CreateXStream the client asked
// for, and is sent as the type of every stream_add/stream_update message.
type sessionStreamObserver[T hotel.Identifiable] struct {
	sender     MessageSender
	clientID   int
	entityType string
}

func (o *sessionStreamObserver[T]) AddItems(items []T) {
	o.sendItems(wire.OpStreamAdd, items)
}

func (o *sessionStreamObserver[T]) UpdateItems(items []T) {
	o.sendItems(wire.OpStreamUpdate, items)
}

func (o *sessionStreamObserver[T]) sendItems(op string, items []T) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	_ = o.sender.SendMessage(op, wire.StreamAdd{ID: o.clientID, Type: o.entityType, Items: raw})
}

func (o *sessionStreamObserver[T]) RemoveItems(ids []int) {
	_ = o.sender.SendMessage(wire.OpStreamRemove, wire.StreamRemove{ID: o.clientID, Items: ids})
}

func (o *sessionStreamObserver[T]) Clear() {
	_ = o.sender.SendMessage(wire.OpStreamClear, wire.StreamClear{ID: o.clientID})
}

func (o *sessionStreamObserver[T]) Initialized() {
	_ = o.sender.SendMessage(wire.OpStreamInitialize, wire.StreamInitialize{ID: o.clientID})
}

// sessionTaskObserver forwards a resolved batch's results down the wire,
// tagged with the client-supplied task id.
type sessionTaskObserver struct {
	sender   MessageSender
	clientID int
}

func (o *sessionTaskObserver) Completed(results []persistence.OperationResult) {
	_ = o.sender.SendMessage(wire.OpTaskResults, wire.TaskResults{ID: o.clientID, Results: results})
}

type hotelStreamHandle struct {
	handle *persistence.UniqueDataStreamHandle[hotel.Hotel]
}

type reservationStreamHandle struct {
	handle *persistence.UniqueDataStreamHandle[hotel.Reservation]
}

// Session represents one connected client: its own backend-side stream and
// task subscriptions, keyed by the client-supplied ids carried on every
// wire message. Session lifetime is the socket lifetime (§4.9); on
// disconnect every stream and task it opened is torn down.
type Session struct {
	id      string
	backend persistence.Backend
	conn    net.Conn
	sender  *connSender
	log     *slog.Logger

	mu                 sync.Mutex
	hotelStreams       map[int]hotelStreamHandle
	reservationStreams map[int]reservationStreamHandle
	taskHandles        map[int]*persistence.UniqueTaskHandle
}

// NewSession wraps an accepted connection into a session against backend.
// The session gets a process-unique id (not a DB-assigned integer — there
// is no row behind it) used purely for log correlation across its
// lifetime.
func NewSession(conn net.Conn, backend persistence.Backend) *Session {
	id := uuid.NewString()
	return &Session{
		id:                 id,
		backend:            backend,
		conn:               conn,
		sender:             &connSender{conn: conn},
		log:                slog.With("component", "netserver-session", "session_id", id, "remote", conn.RemoteAddr()),
		hotelStreams:       map[int]hotelStreamHandle{},
		reservationStreams: map[int]reservationStreamHandle{},
		taskHandles:        map[int]*persistence.UniqueTaskHandle{},
	}
}

// ID returns the session's process-unique correlation id.
func (s *Session) ID() string { return s.id }

// Serve reads frames from the connection until it closes or Close is
// called, dispatching each to its command handler.
func (s *Session) Serve(conn net.Conn) {
	defer s.Close()
	for {
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			if err != io.EOF {
				s.log.Debug("session closed", "error", err)
			}
			return
		}
		if err := s.dispatch(payload); err != nil {
			s.log.Error("failed to handle command", "error", err)
		}
	}
}

func (s *Session) dispatch(payload []byte) error {
	op, err := wire.PeekOp(payload)
	if err != nil {
		return err
	}

	switch op {
	case wire.OpCreateStream:
		var msg wire.CreateStream
		if err := wire.Decode(payload, &msg); err != nil {
			return err
		}
		return s.runCreateStream(msg)

	case wire.OpRemoveStream:
		var msg wire.RemoveStream
		if err := wire.Decode(payload, &msg); err != nil {
			return err
		}
		s.runRemoveStream(msg)
		return nil

	case wire.OpScheduleOperations:
		var msg wire.ScheduleOperations
		if err := wire.Decode(payload, &msg); err != nil {
			return err
		}
		s.runScheduleOperations(msg)
		return nil

	default:
		return fmt.Errorf("netserver: unknown command %q", op)
	}
}

func (s *Session) runCreateStream(msg wire.CreateStream) error {
	entity := persistence.EntityKind(msg.Type)
	switch entity {
	case persistence.EntityHotel:
		observer := &sessionStreamObserver[hotel.Hotel]{sender: s.sender, clientID: msg.ID, entityType: "hotel"}
		handle, err := s.backend.CreateHotelStream(observer, msg.Service, msg.Options)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.hotelStreams[msg.ID] = hotelStreamHandle{handle: handle}
		s.mu.Unlock()
		return nil

	case persistence.EntityReservation:
		observer := &sessionStreamObserver[hotel.Reservation]{sender: s.sender, clientID: msg.ID, entityType: "reservation"}
		handle, err := s.backend.CreateReservationStream(observer, msg.Service, msg.Options)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.reservationStreams[msg.ID] = reservationStreamHandle{handle: handle}
		s.mu.Unlock()
		return nil

	default:
		return fmt.Errorf("netserver: create_stream with unknown entity type %d", msg.Type)
	}
}

func (s *Session) runRemoveStream(msg wire.RemoveStream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.hotelStreams[msg.ID]; ok {
		h.handle.Close()
		delete(s.hotelStreams, msg.ID)
	}
	if h, ok := s.reservationStreams[msg.ID]; ok {
		h.handle.Close()
		delete(s.reservationStreams, msg.ID)
	}
}

func (s *Session) runScheduleOperations(msg wire.ScheduleOperations) {
	observer := &sessionTaskObserver{sender: s.sender, clientID: msg.ID}
	handle, _ := s.backend.QueueOperations(msg.Operations, observer)

	s.mu.Lock()
	s.taskHandles[msg.ID] = handle
	s.mu.Unlock()
}

// Close tears down every stream and task this session opened and closes
// the underlying socket, which unblocks Serve's read loop.
func (s *Session) Close() {
	s.mu.Lock()
	for id, h := range s.hotelStreams {
		h.handle.Close()
		delete(s.hotelStreams, id)
	}
	for id, h := range s.reservationStreams {
		h.handle.Close()
		delete(s.reservationStreams, id)
	}
	s.taskHandles = map[int]*persistence.UniqueTaskHandle{}
	s.mu.Unlock()

	s.conn.Close()
}
