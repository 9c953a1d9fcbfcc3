package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
)

// effect describes the entities one executed operation changed, so the
// backend can fan those changes out to open streams once the whole batch
// has committed. Exactly one field beyond erased is ever set.
type effect struct {
	erased bool

	hotelAdded     *hotel.Hotel
	hotelUpdated   *hotel.Hotel
	hotelDeletedID int

	reservationAdded     *hotel.Reservation
	reservationUpdated   *hotel.Reservation
	reservationDeletedID int
}

var errPersonNotPersisted = fmt.Errorf("%w: person storage is not implemented", persistence.ErrInvalidEntity)

// executeOne evaluates a single operation within tx and reports what
// changed. It never returns a (result, effect) pair with a non-nil error —
// callers branch on err alone, per §4.7's batch-abort-on-first-error policy.
func executeOne(tx *sql.Tx, op persistence.Operation) (persistence.OperationResult, effect, error) {
	switch op.Kind {
	case persistence.OpEraseAllData:
		if err := eraseAllData(tx); err != nil {
			return persistence.OperationResult{}, effect{}, err
		}
		res, err := persistence.SuccessResult(struct{}{})
		return res, effect{erased: true}, err

	case persistence.OpStoreNew:
		return executeStoreNew(tx, op)

	case persistence.OpUpdate:
		return executeUpdate(tx, op)

	case persistence.OpDelete:
		return executeDelete(tx, op)

	default:
		return persistence.OperationResult{}, effect{}, fmt.Errorf("sqlite: unknown operation kind %d", op.Kind)
	}
}

func executeStoreNew(tx *sql.Tx, op persistence.Operation) (persistence.OperationResult, effect, error) {
	switch op.Entity {
	case persistence.EntityHotel:
		if err := op.Hotel.Validate(); err != nil {
			return persistence.OperationResult{}, effect{}, fmt.Errorf("%w: %s", persistence.ErrInvalidEntity, err)
		}
		if err := insertHotel(tx, op.Hotel); err != nil {
			return persistence.OperationResult{}, effect{}, err
		}
		res, err := persistence.SuccessResult(op.Hotel)
		return res, effect{hotelAdded: op.Hotel}, err

	case persistence.EntityReservation:
		if err := op.Reservation.Validate(); err != nil {
			return persistence.OperationResult{}, effect{}, fmt.Errorf("%w: %s", persistence.ErrInvalidEntity, err)
		}
		if err := insertReservation(tx, op.Reservation); err != nil {
			return persistence.OperationResult{}, effect{}, err
		}
		res, err := persistence.SuccessResult(op.Reservation)
		return res, effect{reservationAdded: op.Reservation}, err

	case persistence.EntityPerson:
		return persistence.OperationResult{}, effect{}, errPersonNotPersisted

	default:
		return persistence.OperationResult{}, effect{}, fmt.Errorf("sqlite: unknown entity kind %d", op.Entity)
	}
}

func executeUpdate(tx *sql.Tx, op persistence.Operation) (persistence.OperationResult, effect, error) {
	switch op.Entity {
	case persistence.EntityHotel:
		if err := op.Hotel.Validate(); err != nil {
			return persistence.OperationResult{}, effect{}, fmt.Errorf("%w: %s", persistence.ErrInvalidEntity, err)
		}
		if err := updateHotel(tx, op.Hotel); err != nil {
			return persistence.OperationResult{}, effect{}, err
		}
		res, err := persistence.SuccessResult(op.Hotel)
		return res, effect{hotelUpdated: op.Hotel}, err

	case persistence.EntityReservation:
		if err := op.Reservation.Validate(); err != nil {
			return persistence.OperationResult{}, effect{}, fmt.Errorf("%w: %s", persistence.ErrInvalidEntity, err)
		}
		if err := updateReservation(tx, op.Reservation); err != nil {
			return persistence.OperationResult{}, effect{}, err
		}
		res, err := persistence.SuccessResult(op.Reservation)
		return res, effect{reservationUpdated: op.Reservation}, err

	case persistence.EntityPerson:
		return persistence.OperationResult{}, effect{}, errPersonNotPersisted

	default:
		return persistence.OperationResult{}, effect{}, fmt.Errorf("sqlite: unknown entity kind %d", op.Entity)
	}
}

func executeDelete(tx *sql.Tx, op persistence.Operation) (persistence.OperationResult, effect, error) {
	switch op.Entity {
	case persistence.EntityHotel:
		if err := deleteHotel(tx, op.DeleteID); err != nil {
			return persistence.OperationResult{}, effect{}, err
		}
		res, err := persistence.SuccessResult(op.DeleteID)
		return res, effect{hotelDeletedID: op.DeleteID}, err

	case persistence.EntityReservation:
		if err := deleteReservation(tx, op.DeleteID); err != nil {
			return persistence.OperationResult{}, effect{}, err
		}
		res, err := persistence.SuccessResult(op.DeleteID)
		return res, effect{reservationDeletedID: op.DeleteID}, err

	case persistence.EntityPerson:
		return persistence.OperationResult{}, effect{}, errPersonNotPersisted

	default:
		return persistence.OperationResult{}, effect{}, fmt.Errorf("sqlite: unknown entity kind %d", op.Entity)
	}
}

// executeBatch runs ops as a single transaction (§4.7, §8): either every
// operation applies and commits, or the first failing operation aborts the
// whole batch and every row reverts. On abort, results is truncated to
// length k+1 with Successful for 0..k-1 and Error at k, and effects is nil
// (no stream delta is ever published for a rolled-back batch).
func executeBatch(tx *sql.Tx, ops persistence.Operations) ([]persistence.OperationResult, []effect) {
	results := make([]persistence.OperationResult, 0, len(ops))
	effects := make([]effect, 0, len(ops))

	for _, op := range ops {
		res, eff, err := executeOne(tx, op)
		if err != nil {
			results = append(results, persistence.ErrorResult(err))
			_ = tx.Rollback()
			return results, nil
		}
		results = append(results, res)
		effects = append(effects, eff)
	}

	if err := tx.Commit(); err != nil {
		return []persistence.OperationResult{persistence.ErrorResult(err)}, nil
	}
	return results, effects
}
