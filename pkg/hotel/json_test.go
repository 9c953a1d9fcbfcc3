package hotel_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHotelJSONRoundTrip(t *testing.T) {
	h := hotel.Hotel{
		PersistentObject: hotel.PersistentObject{ID: 1, Revision: 3},
		Name:             "Grand Budapest",
		Categories: []hotel.RoomCategory{
			{PersistentObject: hotel.PersistentObject{ID: 10, Revision: 1}, ShortCode: "std", Name: "Standard"},
		},
		Rooms: []hotel.HotelRoom{
			{PersistentObject: hotel.PersistentObject{ID: 100, Revision: 1}, Name: "101", CategoryShortCode: "std"},
		},
	}

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var decoded hotel.Hotel
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h, decoded)
}

func TestHotelJSONWireShape(t *testing.T) {
	h := hotel.Hotel{
		PersistentObject: hotel.PersistentObject{ID: 1, Revision: 1},
		Name:             "Inn",
		Categories: []hotel.RoomCategory{
			{PersistentObject: hotel.PersistentObject{ID: 1, Revision: 1}, ShortCode: "dbl", Name: "Double"},
		},
		Rooms: []hotel.HotelRoom{
			{PersistentObject: hotel.PersistentObject{ID: 1, Revision: 1}, Name: "1", CategoryShortCode: "dbl"},
		},
	}

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Inn", raw["name"])

	rooms := raw["rooms"].([]any)
	room := rooms[0].(map[string]any)
	assert.Equal(t, "dbl", room["category_id"])
}

func TestReservationJSONRoundTrip(t *testing.T) {
	r := hotel.Reservation{
		PersistentObject: hotel.PersistentObject{ID: 5, Revision: 2},
		Description:      "Smith family",
		Status:            hotel.StatusConfirmed,
		NumberOfAdults:     2,
		NumberOfChildren:   1,
		Atoms: []hotel.ReservationAtom{
			{
				PersistentObject: hotel.PersistentObject{ID: 50, Revision: 1},
				RoomID:           100,
				Range:            hotel.DateRange{From: date(2026, 8, 1), To: date(2026, 8, 5)},
			},
		},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "confirmed", raw["status"])
	atoms := raw["atoms"].([]any)
	atom := atoms[0].(map[string]any)
	assert.Equal(t, "2026-08-01", atom["from"])
	assert.Equal(t, "2026-08-05", atom["to"])

	var decoded hotel.Reservation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r, decoded)
}

func TestReservationStatusUnknownRoundTrip(t *testing.T) {
	assert.Equal(t, hotel.StatusUnknown, hotel.ParseReservationStatus("not-a-real-status"))
	assert.Equal(t, "unknown", hotel.StatusUnknown.String())
}

func TestPersonJSONRoundTrip(t *testing.T) {
	p := hotel.Person{
		PersistentObject: hotel.PersistentObject{ID: 1, Revision: 1},
		FirstName:        "Ada",
		LastName:          "Lovelace",
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded hotel.Person
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, p, decoded)
}
