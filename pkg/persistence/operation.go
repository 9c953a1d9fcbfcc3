// Package persistence defines the storage-agnostic contract shared by the
// local SQLite backend and the network client backend: operations that
// mutate the store, the results they produce, data streams that observe
// entity changes, and the change queue that ferries those changes from
// worker threads to the thread allowed to call observer callbacks.
package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/decden/hotelsync/pkg/hotel"
)

// EntityKind identifies which domain entity an Operation or a stream
// carries. The wire encoding (§6.2) spells these out as lowercase strings.
type EntityKind int

const (
	EntityUnknown EntityKind = iota
	EntityHotel
	EntityReservation
	EntityPerson
)

var entityKindNames = [...]string{
	EntityUnknown:     "",
	EntityHotel:       "hotel",
	EntityReservation: "reservation",
	EntityPerson:      "person",
}

func (k EntityKind) String() string {
	if int(k) < 0 || int(k) >= len(entityKindNames) {
		return ""
	}
	return entityKindNames[k]
}

// ParseEntityKind parses the wire representation of an EntityKind.
func ParseEntityKind(s string) EntityKind {
	for kind, name := range entityKindNames {
		if name == s && kind != int(EntityUnknown) {
			return EntityKind(kind)
		}
	}
	return EntityUnknown
}

// OperationKind tags which variant an Operation carries.
type OperationKind int

const (
	OpEraseAllData OperationKind = iota
	OpStoreNew
	OpUpdate
	OpDelete
)

var operationKindNames = [...]string{
	OpEraseAllData: "erase_all_data",
	OpStoreNew:     "store",
	OpUpdate:       "update",
	OpDelete:       "delete",
}

func (k OperationKind) String() string {
	if int(k) < 0 || int(k) >= len(operationKindNames) {
		return "unknown"
	}
	return operationKindNames[k]
}

// Operation is a single mutation request. It is a tagged variant over
// EraseAllData | StoreNew(entity) | Update(entity) | Delete(type, id) — see
// spec §4.4. Only the fields relevant to Kind are populated; callers build
// an Operation through the New* constructors below rather than populating
// the struct directly, so the invariant "exactly one entity payload set"
// always holds.
type Operation struct {
	Kind   OperationKind
	Entity EntityKind

	Hotel       *hotel.Hotel
	Reservation *hotel.Reservation
	Person      *hotel.Person

	// DeleteID is populated only for OpDelete.
	DeleteID int
}

// Operations is an ordered batch intended to execute as a single
// transaction: either all operations apply and all resulting deltas
// publish, or none do.
type Operations []Operation

// NewEraseAllDataOperation drops and recreates the whole store.
func NewEraseAllDataOperation() Operation {
	return Operation{Kind: OpEraseAllData}
}

// NewStoreNewHotel stores a new hotel; id and revision are assigned by the
// backend and any values already set on h are ignored.
func NewStoreNewHotel(h *hotel.Hotel) Operation {
	return Operation{Kind: OpStoreNew, Entity: EntityHotel, Hotel: h}
}

// NewStoreNewReservation stores a new reservation. A Temporary status is
// coerced to New by the backend, never persisted as-is (§3).
func NewStoreNewReservation(r *hotel.Reservation) Operation {
	return Operation{Kind: OpStoreNew, Entity: EntityReservation, Reservation: r}
}

// NewStoreNewPerson builds a StoreNew operation for a person. The SQLite
// backend does not store persons: it answers this operation with an
// ErrInvalidEntity result.
func NewStoreNewPerson(p *hotel.Person) Operation {
	return Operation{Kind: OpStoreNew, Entity: EntityPerson, Person: p}
}

// NewUpdateHotel replaces the whole hotel identified by h.ID, provided
// h.Revision matches the stored revision (§7: otherwise a version conflict).
func NewUpdateHotel(h *hotel.Hotel) Operation {
	return Operation{Kind: OpUpdate, Entity: EntityHotel, Hotel: h}
}

// NewUpdateReservation replaces the whole reservation identified by
// r.ID, provided r.Revision matches the stored revision.
func NewUpdateReservation(r *hotel.Reservation) Operation {
	return Operation{Kind: OpUpdate, Entity: EntityReservation, Reservation: r}
}

// NewDeleteOperation removes the entity of the given kind and id.
func NewDeleteOperation(entity EntityKind, id int) Operation {
	return Operation{Kind: OpDelete, Entity: entity, DeleteID: id}
}

// ResultStatus is the outcome of a single operation within a batch.
type ResultStatus int

const (
	Successful ResultStatus = iota
	Error
)

func (s ResultStatus) String() string {
	if s == Successful {
		return "successful"
	}
	return "error"
}

// OperationResult is the per-operation outcome of a batch (spec calls this
// TaskResult). Payload carries the stored entity on success or a
// human-readable message on failure; both travel as raw JSON so the wire
// codec (§6.3 task_results.data) never needs to know its shape.
type OperationResult struct {
	Status  ResultStatus
	Payload json.RawMessage
}

// ErrorResult builds a Payload from an error's message.
func ErrorResult(err error) OperationResult {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return OperationResult{Status: Error, Payload: payload}
}

// SuccessResult builds a Payload by marshaling v (typically the stored
// entity, carrying its assigned id/revision).
func SuccessResult(v any) (OperationResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return OperationResult{}, fmt.Errorf("operation result: %w", err)
	}
	return OperationResult{Status: Successful, Payload: payload}, nil
}

// resultWire is the §6.3 task_results.results[] element shape:
// {status:<0|1>, data:<json>}.
type resultWire struct {
	Status  ResultStatus    `json:"status"`
	Payload json.RawMessage `json:"data"`
}

// MarshalJSON implements the §6.3 task result wire shape.
func (r OperationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultWire{Status: r.Status, Payload: r.Payload})
}

// UnmarshalJSON parses the §6.3 task result wire shape.
func (r *OperationResult) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("operation result: %w", err)
	}
	r.Status = w.Status
	r.Payload = w.Payload
	return nil
}

// --- JSON encoding (§6.2) ---

type operationWire struct {
	Op     string          `json:"op"`
	Type   string          `json:"t,omitempty"`
	Entity json.RawMessage `json:"o,omitempty"`
}

// MarshalJSON implements the §6.2 operation wire shape.
func (o Operation) MarshalJSON() ([]byte, error) {
	w := operationWire{Op: o.Kind.String()}
	switch o.Kind {
	case OpEraseAllData:
		// no fields beyond op
	case OpStoreNew, OpUpdate:
		w.Type = o.Entity.String()
		var payload any
		switch o.Entity {
		case EntityHotel:
			payload = o.Hotel
		case EntityReservation:
			payload = o.Reservation
		case EntityPerson:
			payload = o.Person
		default:
			return nil, fmt.Errorf("operation: unknown entity kind %d", o.Entity)
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("operation: %w", err)
		}
		w.Entity = data
	case OpDelete:
		w.Type = o.Entity.String()
		data, err := json.Marshal(o.DeleteID)
		if err != nil {
			return nil, fmt.Errorf("operation: %w", err)
		}
		w.Entity = data
	default:
		return nil, fmt.Errorf("operation: unknown op kind %d", o.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the §6.2 operation wire shape.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var w operationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("operation: %w", err)
	}

	switch w.Op {
	case "erase_all_data":
		*o = Operation{Kind: OpEraseAllData}
		return nil
	case "store", "update":
		kind := OpStoreNew
		if w.Op == "update" {
			kind = OpUpdate
		}
		entity := ParseEntityKind(w.Type)
		op := Operation{Kind: kind, Entity: entity}
		switch entity {
		case EntityHotel:
			var h hotel.Hotel
			if err := json.Unmarshal(w.Entity, &h); err != nil {
				return fmt.Errorf("operation: hotel payload: %w", err)
			}
			op.Hotel = &h
		case EntityReservation:
			var r hotel.Reservation
			if err := json.Unmarshal(w.Entity, &r); err != nil {
				return fmt.Errorf("operation: reservation payload: %w", err)
			}
			op.Reservation = &r
		case EntityPerson:
			var p hotel.Person
			if err := json.Unmarshal(w.Entity, &p); err != nil {
				return fmt.Errorf("operation: person payload: %w", err)
			}
			op.Person = &p
		default:
			return fmt.Errorf("operation: unknown entity type %q", w.Type)
		}
		*o = op
		return nil
	case "delete":
		var id int
		if err := json.Unmarshal(w.Entity, &id); err != nil {
			return fmt.Errorf("operation: delete id: %w", err)
		}
		*o = Operation{Kind: OpDelete, Entity: ParseEntityKind(w.Type), DeleteID: id}
		return nil
	default:
		return fmt.Errorf("operation: unknown op %q", w.Op)
	}
}
