package hotel_test

import (
	"testing"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationValidateRejectsNegativeAdults(t *testing.T) {
	r := hotel.Reservation{
		NumberOfAdults: -1,
		Atoms: []hotel.ReservationAtom{
			{RoomID: 1, Range: hotel.DateRange{From: date(2026, 1, 1), To: date(2026, 1, 2)}},
		},
	}
	err := r.Validate()
	require.Error(t, err)
	var verr *hotel.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "adults", verr.Field)
}

func TestReservationValidateRejectsNegativeChildren(t *testing.T) {
	r := hotel.Reservation{
		NumberOfChildren: -1,
		Atoms: []hotel.ReservationAtom{
			{RoomID: 1, Range: hotel.DateRange{From: date(2026, 1, 1), To: date(2026, 1, 2)}},
		},
	}
	err := r.Validate()
	require.Error(t, err)
	var verr *hotel.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "children", verr.Field)
}

func TestReservationValidateAcceptsZeroCounts(t *testing.T) {
	r := hotel.Reservation{
		NumberOfAdults:   0,
		NumberOfChildren: 0,
		Atoms: []hotel.ReservationAtom{
			{RoomID: 1, Range: hotel.DateRange{From: date(2026, 1, 1), To: date(2026, 1, 2)}},
		},
	}
	assert.NoError(t, r.Validate())
}
