package hotel

import (
	"fmt"
	"math/rand"
	"time"
)

// SeedHotels returns a handful of randomly generated hotels, each with one
// to three room categories and three to ten rooms, every room assigned a
// random category of its hotel — enough to
// exercise stream fan-out and reservation booking without a real data set.
// Grounded on the original's cli::createTestHotels (cli/testdata.h), which
// served the same purpose for its own CLI test-data generator.
func SeedHotels(rng *rand.Rand) []Hotel {
	names := []string{"Grand Budapest", "Hotel California", "Overlook Hotel", "Bates Motel", "Plaza Hotel"}
	categoryNames := []string{"Standard", "Deluxe", "Suite"}

	hotels := make([]Hotel, 0, len(names))
	for _, name := range names {
		h := Hotel{Name: name}
		numCategories := 1 + rng.Intn(len(categoryNames))
		for i := 0; i < numCategories; i++ {
			shortCode := fmt.Sprintf("cat%d", i+1)
			h.Categories = append(h.Categories, RoomCategory{ShortCode: shortCode, Name: categoryNames[i]})
		}
		numRooms := 3 + rng.Intn(8)
		for i := 0; i < numRooms; i++ {
			category := h.Categories[rng.Intn(len(h.Categories))]
			h.Rooms = append(h.Rooms, HotelRoom{
				Name:              fmt.Sprintf("%d", 100+i),
				CategoryShortCode: category.ShortCode,
			})
		}
		hotels = append(hotels, h)
	}
	return hotels
}

// SeedReservations returns a handful of non-overlapping reservations
// spread across the given hotels' rooms, starting from today.
func SeedReservations(rng *rand.Rand, hotels []Hotel) []Reservation {
	var reservations []Reservation
	today := time.Now().Truncate(24 * time.Hour)

	for _, h := range hotels {
		if len(h.Rooms) == 0 {
			continue
		}
		numReservations := 1 + rng.Intn(3)
		for i := 0; i < numReservations; i++ {
			room := h.Rooms[rng.Intn(len(h.Rooms))]
			start := today.AddDate(0, 0, i*5)
			nights := 1 + rng.Intn(5)
			reservations = append(reservations, Reservation{
				Description:    fmt.Sprintf("%s booking", h.Name),
				NumberOfAdults: 1 + rng.Intn(3),
				Atoms: []ReservationAtom{
					{
						RoomID: room.ID,
						Range:  DateRange{From: start, To: start.AddDate(0, 0, nights)},
					},
				},
			})
		}
	}
	return reservations
}
