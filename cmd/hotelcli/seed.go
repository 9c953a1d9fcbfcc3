package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/decden/hotelsync/pkg/persistence/sqlite"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace the database's contents with randomly generated test data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return exitErr(cmd, err)
			}
			if err := runSeed(cfg.SQLitePath); err != nil {
				return exitErr(cmd, err)
			}
			return nil
		},
	}
}

// runSeed mirrors the original's createTestDatabase (cli/cli.cpp): wipe the
// store, insert a handful of hotels, then a handful of reservations built
// against the room ids the backend just assigned.
func runSeed(dbPath string) error {
	backend, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go persistence.NewPump(backend.ChangeQueue()).Run(ctx)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	_, erase := persistence.QueueOperation(backend, persistence.NewEraseAllDataOperation(), nil)
	eraseResults := erase.Get()
	for _, r := range eraseResults {
		if r.Status != persistence.Successful {
			return fmt.Errorf("erase existing data: %s", r.Payload)
		}
	}

	seedHotels := hotel.SeedHotels(rng)
	hotelOps := make(persistence.Operations, 0, len(seedHotels))
	for i := range seedHotels {
		hotelOps = append(hotelOps, persistence.NewStoreNewHotel(&seedHotels[i]))
	}
	return seedHotelsAndReservations(backend, rng, hotelOps)
}

func seedHotelsAndReservations(backend *sqlite.Backend, rng *rand.Rand, hotelOps persistence.Operations) error {
	_, future := backend.QueueOperations(hotelOps, nil)
	results := future.Get()

	stored := make([]hotel.Hotel, 0, len(results))
	for _, r := range results {
		if r.Status != persistence.Successful {
			return fmt.Errorf("store hotel: %s", r.Payload)
		}
		var h hotel.Hotel
		if err := json.Unmarshal(r.Payload, &h); err != nil {
			return fmt.Errorf("decode stored hotel: %w", err)
		}
		stored = append(stored, h)
	}

	reservations := hotel.SeedReservations(rng, stored)
	reservationOps := make(persistence.Operations, 0, len(reservations))
	for i := range reservations {
		reservationOps = append(reservationOps, persistence.NewStoreNewReservation(&reservations[i]))
	}

	_, resFuture := backend.QueueOperations(reservationOps, nil)
	resResults := resFuture.Get()
	for _, r := range resResults {
		if r.Status != persistence.Successful {
			return fmt.Errorf("store reservation: %s", r.Payload)
		}
	}

	fmt.Printf("seeded %d hotels and %d reservations\n", len(stored), len(resResults))
	return nil
}
