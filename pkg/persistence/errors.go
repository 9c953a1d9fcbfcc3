package persistence

import "errors"

// Sentinel errors surfaced by backends. None of these escape the Backend
// boundary as a panic or exception (§7): a backend turns every failure mode
// into an OperationResult{Error} for the offending operation, or a log
// line for transport-level failures that have no associated operation.
var (
	// ErrVersionConflict is returned when an Update names a revision that
	// no longer matches the stored entity.
	ErrVersionConflict = errors.New("version conflict")

	// ErrNotFound is returned when a Delete names an id that does not
	// exist, or when loading an entity by an id that has no row. An Update
	// of a missing id reports ErrVersionConflict instead.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidEntity marks a precondition violation found by the backend
	// at execution time (empty reservation, unknown category, unknown
	// room, ...). The backend's error wraps this sentinel and carries the
	// hotel.ValidationError's text; the ValidationError itself is not
	// wrapped, so errors.As does not find it.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrRoomDoubleBooked is returned when a reservation atom would
	// overlap an existing atom on the same room.
	ErrRoomDoubleBooked = errors.New("room is already booked for that range")

	// ErrStreamDetached names the failure of an operation against a stream
	// whose observer has already detached. No backend in this module
	// returns it: deltas pushed to a detached stream are dropped silently.
	ErrStreamDetached = errors.New("stream detached")

	// ErrConnectionClosed names a closed or failed network connection; per
	// spec §1 non-goals there is no reconnect/resume. The network client
	// backend does not return it: a failed write completes the task with
	// the write error itself.
	ErrConnectionClosed = errors.New("connection closed")
)
