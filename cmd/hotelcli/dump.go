package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/decden/hotelsync/pkg/persistence/netclient"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Connect to a running server and print its current hotels and reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return exitErr(cmd, err)
			}
			if err := runDump(cfg.ServerAddr, cfg.RequestTimeout); err != nil {
				return exitErr(cmd, err)
			}
			return nil
		},
	}
}

// snapshotObserver collects every item a stream reports before its first
// Initialized and signals done once that fires — a one-shot drain, since
// dump has no GUI event loop of its own to keep a stream open against.
type snapshotObserver[T hotel.Identifiable] struct {
	mu    sync.Mutex
	items map[int]T
	done  chan struct{}
}

func newSnapshotObserver[T hotel.Identifiable]() *snapshotObserver[T] {
	return &snapshotObserver[T]{items: map[int]T{}, done: make(chan struct{})}
}

func (o *snapshotObserver[T]) AddItems(items []T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, item := range items {
		o.items[item.GetID()] = item
	}
}

func (o *snapshotObserver[T]) UpdateItems(items []T) { o.AddItems(items) }

func (o *snapshotObserver[T]) RemoveItems(ids []int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		delete(o.items, id)
	}
}

func (o *snapshotObserver[T]) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = map[int]T{}
}

func (o *snapshotObserver[T]) Initialized() { close(o.done) }

func runDump(serverAddr string, timeout time.Duration) error {
	client, err := netclient.Dial(serverAddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverAddr, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	go persistence.NewPump(client.ChangeQueue()).Run(ctx)

	hotels := newSnapshotObserver[hotel.Hotel]()
	hotelHandle, err := client.CreateHotelStream(hotels, "", nil)
	if err != nil {
		return fmt.Errorf("create hotel stream: %w", err)
	}
	defer hotelHandle.Close()

	reservations := newSnapshotObserver[hotel.Reservation]()
	reservationHandle, err := client.CreateReservationStream(reservations, "", nil)
	if err != nil {
		return fmt.Errorf("create reservation stream: %w", err)
	}
	defer reservationHandle.Close()

	select {
	case <-hotels.done:
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for hotel stream: %w", ctx.Err())
	}
	select {
	case <-reservations.done:
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for reservation stream: %w", ctx.Err())
	}

	hotels.mu.Lock()
	for _, h := range hotels.items {
		fmt.Printf("hotel %d: %s (%d categories, %d rooms)\n", h.ID, h.Name, len(h.Categories), len(h.Rooms))
	}
	hotels.mu.Unlock()

	reservations.mu.Lock()
	for _, r := range reservations.items {
		fmt.Printf("reservation %d: %s (%d atoms)\n", r.ID, r.Description, len(r.Atoms))
	}
	reservations.mu.Unlock()

	return nil
}
