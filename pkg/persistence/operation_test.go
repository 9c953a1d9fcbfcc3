package persistence_test

import (
	"encoding/json"
	"testing"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationJSONRoundTrip(t *testing.T) {
	cases := []persistence.Operation{
		persistence.NewEraseAllDataOperation(),
		persistence.NewStoreNewHotel(&hotel.Hotel{Name: "Inn"}),
		persistence.NewUpdateReservation(&hotel.Reservation{
			PersistentObject: hotel.PersistentObject{ID: 1, Revision: 2},
			Description:      "Smiths",
		}),
		persistence.NewDeleteOperation(persistence.EntityHotel, 7),
	}

	for _, op := range cases {
		data, err := json.Marshal(op)
		require.NoError(t, err)

		var decoded persistence.Operation
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, op.Kind, decoded.Kind)
		assert.Equal(t, op.Entity, decoded.Entity)
		assert.Equal(t, op.DeleteID, decoded.DeleteID)
	}
}

func TestOperationWireShape(t *testing.T) {
	op := persistence.NewDeleteOperation(persistence.EntityReservation, 42)
	data, err := json.Marshal(op)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "delete", raw["op"])
	assert.Equal(t, "reservation", raw["t"])
	assert.Equal(t, float64(42), raw["o"])
}

func TestEntityKindParseUnknown(t *testing.T) {
	assert.Equal(t, persistence.EntityUnknown, persistence.ParseEntityKind("not-a-type"))
}

func TestErrorResultCarriesMessage(t *testing.T) {
	result := persistence.ErrorResult(persistence.ErrVersionConflict)
	assert.Equal(t, persistence.Error, result.Status)
	assert.Contains(t, string(result.Payload), "version conflict")
}

func TestSuccessResultMarshalsValue(t *testing.T) {
	h := &hotel.Hotel{PersistentObject: hotel.PersistentObject{ID: 1, Revision: 1}, Name: "Inn"}
	result, err := persistence.SuccessResult(h)
	require.NoError(t, err)
	assert.Equal(t, persistence.Successful, result.Status)
	assert.Contains(t, string(result.Payload), "Inn")
}
