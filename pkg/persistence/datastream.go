package persistence

import (
	"encoding/json"
	"sync"

	"github.com/decden/hotelsync/pkg/hotel"
)

// deltaKind tags one pending change buffered on a DataStream (§3's
// "ItemsAdded, ItemsUpdated, ItemsRemoved, Cleared, Initialized").
type deltaKind int

const (
	deltaAdded deltaKind = iota
	deltaUpdated
	deltaRemoved
	deltaCleared
	deltaInitialized
)

type delta[T hotel.Identifiable] struct {
	kind       deltaKind
	items      []T
	removedIDs []int
}

// DataStreamObserver receives the callbacks a DataStream drains on the main
// thread. The backend itself never calls these directly (§5); only
// DataStream.IntegrateChanges does, and only the goroutine that calls
// ChangeQueue.ApplyStreamChanges is allowed to do that.
type DataStreamObserver[T hotel.Identifiable] interface {
	AddItems(items []T)
	UpdateItems(items []T)
	RemoveItems(ids []int)
	Clear()
	Initialized()
}

// StreamProducer is the backend-facing write side of a stream: buffering
// deltas is safe from any worker goroutine. *DataStream[T] and
// *SingleIdDataStream[T] both implement it.
type StreamProducer[T hotel.Identifiable] interface {
	AddItems(items []T)
	UpdateItems(items []T)
	RemoveItems(ids []int)
	Clear()
	SetInitialized()
}

// DataStream is one observer's typed, optionally-filtered subscription to a
// feed of entity-change events (§4.5). Items pushed by a backend worker are
// buffered under a mutex; IntegrateChanges drains that buffer on the
// thread allowed to call observer callbacks, in the exact order they were
// pushed.
type DataStream[T hotel.Identifiable] struct {
	id      int
	entity  EntityKind
	service string
	options json.RawMessage

	mu          sync.Mutex
	pending     []delta[T]
	observer    DataStreamObserver[T]
	initialized bool
}

// NewDataStream constructs a stream for the given entity kind and optional
// service filter (e.g. "hotel.by_id" with options {"id": N}). The stream is
// inert until registered with a ChangeQueue via ChangeQueue.AddStream.
func NewDataStream[T hotel.Identifiable](id int, entity EntityKind, service string, options json.RawMessage, observer DataStreamObserver[T]) *DataStream[T] {
	return &DataStream[T]{id: id, entity: entity, service: service, options: options, observer: observer}
}

// ID returns the stream's id, unique within its owning backend.
func (s *DataStream[T]) ID() int { return s.id }

// EntityKind returns the entity type this stream observes.
func (s *DataStream[T]) EntityKind() EntityKind { return s.entity }

// Service returns the service filter this stream was opened with, if any.
func (s *DataStream[T]) Service() string { return s.service }

// Options returns the raw service options this stream was opened with.
func (s *DataStream[T]) Options() json.RawMessage { return s.options }

// IsValid reports whether the stream still has an attached observer.
func (s *DataStream[T]) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observer != nil
}

// IsInitialized reports whether the first Initialized delta has drained.
func (s *DataStream[T]) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Detach dissociates the stream from its observer. Called by
// UniqueDataStreamHandle.Close; after this the stream is invalid and will
// be garbage-collected by the backend on its next fan-out tick.
func (s *DataStream[T]) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = nil
}

// AddItems buffers an ItemsAdded delta. Safe to call from any goroutine.
func (s *DataStream[T]) AddItems(items []T) {
	s.push(delta[T]{kind: deltaAdded, items: items})
}

// UpdateItems buffers an ItemsUpdated delta.
func (s *DataStream[T]) UpdateItems(items []T) {
	s.push(delta[T]{kind: deltaUpdated, items: items})
}

// RemoveItems buffers an ItemsRemoved delta.
func (s *DataStream[T]) RemoveItems(ids []int) {
	s.push(delta[T]{kind: deltaRemoved, removedIDs: ids})
}

// Clear buffers a Cleared delta.
func (s *DataStream[T]) Clear() {
	s.push(delta[T]{kind: deltaCleared})
}

// SetInitialized buffers an Initialized delta.
func (s *DataStream[T]) SetInitialized() {
	s.push(delta[T]{kind: deltaInitialized})
}

func (s *DataStream[T]) push(d delta[T]) {
	s.mu.Lock()
	s.pending = append(s.pending, d)
	s.mu.Unlock()
}

// IntegrateChanges drains all outstanding deltas and invokes the observer's
// matching callbacks in enqueue order. Must only be called from the thread
// allowed to invoke observer callbacks (§5). After the first Initialized
// delta drains, IsInitialized becomes true.
func (s *DataStream[T]) IntegrateChanges() {
	s.mu.Lock()
	observer := s.observer
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if observer == nil {
		return
	}

	for _, d := range pending {
		switch d.kind {
		case deltaAdded:
			observer.AddItems(d.items)
		case deltaUpdated:
			observer.UpdateItems(d.items)
		case deltaRemoved:
			observer.RemoveItems(d.removedIDs)
		case deltaCleared:
			observer.Clear()
		case deltaInitialized:
			s.mu.Lock()
			s.initialized = true
			s.mu.Unlock()
			observer.Initialized()
		}
	}
}

// SingleIdDataStream filters a DataStream down to at most one element: the
// entity whose id equals idFilter (§4.5, service "<entity>.by_id"). It
// composes with DataStream rather than subclassing it, since Go has no
// inheritance; ID, IsValid, Detach and IntegrateChanges are promoted
// unchanged from the embedded DataStream.
type SingleIdDataStream[T hotel.Identifiable] struct {
	*DataStream[T]
	idFilter int
}

// NewSingleIdDataStream constructs a stream filtered to a single entity id.
func NewSingleIdDataStream[T hotel.Identifiable](id int, entity EntityKind, options json.RawMessage, observer DataStreamObserver[T], idFilter int) *SingleIdDataStream[T] {
	service := entity.String() + ".by_id"
	return &SingleIdDataStream[T]{
		DataStream: NewDataStream[T](id, entity, service, options, observer),
		idFilter:   idFilter,
	}
}

// AddItems filters items down to the one matching idFilter, if any. No
// delta is buffered when nothing matches.
func (s *SingleIdDataStream[T]) AddItems(items []T) {
	if filtered := filterByID(items, s.idFilter); len(filtered) > 0 {
		s.DataStream.AddItems(filtered)
	}
}

// UpdateItems filters items down to the one matching idFilter, if any. No
// delta is buffered when nothing matches.
func (s *SingleIdDataStream[T]) UpdateItems(items []T) {
	if filtered := filterByID(items, s.idFilter); len(filtered) > 0 {
		s.DataStream.UpdateItems(filtered)
	}
}

// RemoveItems passes the removal through only if idFilter is among the
// removed ids.
func (s *SingleIdDataStream[T]) RemoveItems(ids []int) {
	for _, id := range ids {
		if id == s.idFilter {
			s.DataStream.RemoveItems([]int{s.idFilter})
			return
		}
	}
}

func filterByID[T hotel.Identifiable](items []T, id int) []T {
	var result []T
	for _, item := range items {
		if item.GetID() == id {
			result = append(result, item)
		}
	}
	return result
}

// UniqueDataStreamHandle owns a stream's lifetime. The stream stays open
// until the handle is closed; closing it detaches the observer and lets
// the backend reclaim the stream on its next fan-out tick.
type UniqueDataStreamHandle[T hotel.Identifiable] struct {
	stream *DataStream[T]
}

// NewUniqueDataStreamHandle wraps a stream (or its SingleIdDataStream
// embedding) in an owning handle.
func NewUniqueDataStreamHandle[T hotel.Identifiable](stream *DataStream[T]) *UniqueDataStreamHandle[T] {
	return &UniqueDataStreamHandle[T]{stream: stream}
}

// Close detaches the stream from its observer. Idempotent.
func (h *UniqueDataStreamHandle[T]) Close() error {
	if h.stream != nil {
		h.stream.Detach()
		h.stream = nil
	}
	return nil
}
