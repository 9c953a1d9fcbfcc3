package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/decden/hotelsync/pkg/hotel"
	"github.com/decden/hotelsync/pkg/persistence"
)

// loadHotel loads one hotel with its categories and rooms, translating
// room_category's integer row id back to the wire-facing short code.
func loadHotel(tx *sql.Tx, id int) (*hotel.Hotel, error) {
	h := &hotel.Hotel{}
	row := tx.QueryRow(`SELECT id, revision, name FROM h_hotel WHERE id = ?`, id)
	if err := row.Scan(&h.ID, &h.Revision, &h.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}

	categoryNameByID := map[int64]string{}

	catRows, err := tx.Query(`SELECT id, short_code, name FROM h_room_category WHERE hotel_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer catRows.Close()
	for catRows.Next() {
		var rowID int64
		var c hotel.RoomCategory
		if err := catRows.Scan(&rowID, &c.ShortCode, &c.Name); err != nil {
			return nil, err
		}
		c.ID = int(rowID)
		categoryNameByID[rowID] = c.ShortCode
		h.Categories = append(h.Categories, c)
	}
	if err := catRows.Err(); err != nil {
		return nil, err
	}

	roomRows, err := tx.Query(`SELECT id, category_id, name FROM h_room WHERE hotel_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer roomRows.Close()
	for roomRows.Next() {
		var r hotel.HotelRoom
		var categoryRowID int64
		if err := roomRows.Scan(&r.ID, &categoryRowID, &r.Name); err != nil {
			return nil, err
		}
		r.CategoryShortCode = categoryNameByID[categoryRowID]
		h.Rooms = append(h.Rooms, r)
	}
	if err := roomRows.Err(); err != nil {
		return nil, err
	}

	return h, nil
}

// loadAllHotels loads every hotel in the store.
func loadAllHotels(tx *sql.Tx) ([]hotel.Hotel, error) {
	rows, err := tx.Query(`SELECT id FROM h_hotel ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	result := make([]hotel.Hotel, 0, len(ids))
	for _, id := range ids {
		h, err := loadHotel(tx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	return result, nil
}

// insertHotel stores a brand new hotel, assigning id, revision=1, and
// category/room row ids. Categories are looked up by short code to wire
// rooms to their category row; h.Validate must have already been called.
func insertHotel(tx *sql.Tx, h *hotel.Hotel) error {
	res, err := tx.Exec(`INSERT INTO h_hotel (revision, name) VALUES (1, ?)`, h.Name)
	if err != nil {
		return err
	}
	hotelID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = int(hotelID)
	h.Revision = 1

	categoryRowID := make(map[string]int64, len(h.Categories))
	for i, c := range h.Categories {
		cres, err := tx.Exec(`INSERT INTO h_room_category (hotel_id, short_code, name) VALUES (?, ?, ?)`,
			hotelID, c.ShortCode, c.Name)
		if err != nil {
			return err
		}
		rowID, err := cres.LastInsertId()
		if err != nil {
			return err
		}
		h.Categories[i].ID = int(rowID)
		categoryRowID[c.ShortCode] = rowID
	}

	for i, r := range h.Rooms {
		catRowID, ok := categoryRowID[r.CategoryShortCode]
		if !ok {
			return fmt.Errorf("%w: room %q references unknown category %q", persistence.ErrInvalidEntity, r.Name, r.CategoryShortCode)
		}
		rres, err := tx.Exec(`INSERT INTO h_room (hotel_id, category_id, name) VALUES (?, ?, ?)`,
			hotelID, catRowID, r.Name)
		if err != nil {
			return err
		}
		rowID, err := rres.LastInsertId()
		if err != nil {
			return err
		}
		h.Rooms[i].ID = int(rowID)
	}

	return nil
}

// updateHotel replaces the whole hotel (the Open Question in spec §9 is
// resolved in favor of whole-object replacement): categories and rooms are
// deleted and reinserted, and the revision is bumped only if a row with
// the given id and revision existed.
func updateHotel(tx *sql.Tx, h *hotel.Hotel) error {
	res, err := tx.Exec(`UPDATE h_hotel SET revision = revision + 1, name = ? WHERE id = ? AND revision = ?`,
		h.Name, h.ID, h.Revision)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrVersionConflict
	}

	if _, err := tx.Exec(`DELETE FROM h_room WHERE hotel_id = ?`, h.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM h_room_category WHERE hotel_id = ?`, h.ID); err != nil {
		return err
	}

	categoryRowID := make(map[string]int64, len(h.Categories))
	for i, c := range h.Categories {
		cres, err := tx.Exec(`INSERT INTO h_room_category (hotel_id, short_code, name) VALUES (?, ?, ?)`,
			h.ID, c.ShortCode, c.Name)
		if err != nil {
			return err
		}
		rowID, err := cres.LastInsertId()
		if err != nil {
			return err
		}
		h.Categories[i].ID = int(rowID)
		categoryRowID[c.ShortCode] = rowID
	}
	for i, r := range h.Rooms {
		catRowID, ok := categoryRowID[r.CategoryShortCode]
		if !ok {
			return fmt.Errorf("%w: room %q references unknown category %q", persistence.ErrInvalidEntity, r.Name, r.CategoryShortCode)
		}
		rres, err := tx.Exec(`INSERT INTO h_room (hotel_id, category_id, name) VALUES (?, ?, ?)`,
			h.ID, catRowID, r.Name)
		if err != nil {
			return err
		}
		rowID, err := rres.LastInsertId()
		if err != nil {
			return err
		}
		h.Rooms[i].ID = int(rowID)
	}

	h.Revision++
	return nil
}

// deleteHotel removes a hotel and its owned rows.
func deleteHotel(tx *sql.Tx, id int) error {
	if _, err := tx.Exec(`DELETE FROM h_room WHERE hotel_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM h_room_category WHERE hotel_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM h_hotel WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// roomExists reports whether roomID names a room in any stored hotel.
func roomExists(tx *sql.Tx, roomID int) (bool, error) {
	var count int
	err := tx.QueryRow(`SELECT COUNT(1) FROM h_room WHERE id = ?`, roomID).Scan(&count)
	return count > 0, err
}

// roomOverlapExists reports whether any existing atom on roomID overlaps
// rng, excluding atoms belonging to excludeReservationID (used when
// updating a reservation against its own prior atoms).
func roomOverlapExists(tx *sql.Tx, roomID int, rng hotel.DateRange, excludeReservationID int) (bool, error) {
	rows, err := tx.Query(
		`SELECT date_from, date_to FROM h_reservation_atom WHERE room_id = ? AND reservation_id != ?`,
		roomID, excludeReservationID)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var fromStr, toStr string
		if err := rows.Scan(&fromStr, &toStr); err != nil {
			return false, err
		}
		from, err := unmarshalDate(fromStr)
		if err != nil {
			return false, err
		}
		to, err := unmarshalDate(toStr)
		if err != nil {
			return false, err
		}
		if rng.Overlaps(hotel.DateRange{From: from, To: to}) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// loadReservation loads one reservation with its atoms.
func loadReservation(tx *sql.Tx, id int) (*hotel.Reservation, error) {
	r := &hotel.Reservation{}
	var status string
	row := tx.QueryRow(`SELECT id, revision, description, status, adults, children FROM h_reservation WHERE id = ?`, id)
	if err := row.Scan(&r.ID, &r.Revision, &r.Description, &status, &r.NumberOfAdults, &r.NumberOfChildren); err != nil {
		if err == sql.ErrNoRows {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}
	r.Status = hotel.ParseReservationStatus(status)

	rows, err := tx.Query(
		`SELECT id, room_id, date_from, date_to FROM h_reservation_atom WHERE reservation_id = ? ORDER BY date_from`,
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a hotel.ReservationAtom
		var fromStr, toStr string
		if err := rows.Scan(&a.ID, &a.RoomID, &fromStr, &toStr); err != nil {
			return nil, err
		}
		from, err := unmarshalDate(fromStr)
		if err != nil {
			return nil, err
		}
		to, err := unmarshalDate(toStr)
		if err != nil {
			return nil, err
		}
		a.Range = hotel.DateRange{From: from, To: to}
		r.Atoms = append(r.Atoms, a)
	}
	return r, rows.Err()
}

// loadAllReservations loads every reservation in the store.
func loadAllReservations(tx *sql.Tx) ([]hotel.Reservation, error) {
	rows, err := tx.Query(`SELECT id FROM h_reservation ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	result := make([]hotel.Reservation, 0, len(ids))
	for _, id := range ids {
		r, err := loadReservation(tx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, nil
}

// checkReservationPreconditions validates room existence and the
// no-overlap invariant (§3) against the current DB state, given atoms that
// will be inserted for a reservation whose pre-existing row id is
// excludeReservationID (0 for a brand new reservation, which matches no
// row).
func checkReservationPreconditions(tx *sql.Tx, r *hotel.Reservation, excludeReservationID int) error {
	for _, a := range r.Atoms {
		exists, err := roomExists(tx, a.RoomID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: atom references unknown room %d", persistence.ErrInvalidEntity, a.RoomID)
		}
		overlap, err := roomOverlapExists(tx, a.RoomID, a.Range, excludeReservationID)
		if err != nil {
			return err
		}
		if overlap {
			return persistence.ErrRoomDoubleBooked
		}
	}
	return nil
}

// insertReservation stores a brand new reservation. Temporary is coerced
// to New (§3); validation is the caller's responsibility (r.Validate) plus
// checkReservationPreconditions for cross-entity invariants.
func insertReservation(tx *sql.Tx, r *hotel.Reservation) error {
	if r.Status == hotel.StatusTemporary || r.Status == hotel.StatusUnknown {
		r.Status = hotel.StatusNew
	}

	if err := checkReservationPreconditions(tx, r, 0); err != nil {
		return err
	}

	res, err := tx.Exec(
		`INSERT INTO h_reservation (revision, description, status, adults, children) VALUES (1, ?, ?, ?, ?)`,
		r.Description, r.Status.String(), r.NumberOfAdults, r.NumberOfChildren)
	if err != nil {
		return err
	}
	resID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = int(resID)
	r.Revision = 1

	for i, a := range r.Atoms {
		ares, err := tx.Exec(
			`INSERT INTO h_reservation_atom (reservation_id, room_id, date_from, date_to) VALUES (?, ?, ?, ?)`,
			resID, a.RoomID, marshalDate(a.Range.From), marshalDate(a.Range.To))
		if err != nil {
			return err
		}
		atomID, err := ares.LastInsertId()
		if err != nil {
			return err
		}
		r.Atoms[i].ID = int(atomID)
	}

	return nil
}

// updateReservation replaces the whole reservation, per the same
// whole-object-replacement policy as updateHotel. Temporary is coerced to
// New (§3), same as insertReservation.
func updateReservation(tx *sql.Tx, r *hotel.Reservation) error {
	if r.Status == hotel.StatusTemporary || r.Status == hotel.StatusUnknown {
		r.Status = hotel.StatusNew
	}

	if err := checkReservationPreconditions(tx, r, r.ID); err != nil {
		return err
	}

	res, err := tx.Exec(
		`UPDATE h_reservation SET revision = revision + 1, description = ?, status = ?, adults = ?, children = ? WHERE id = ? AND revision = ?`,
		r.Description, r.Status.String(), r.NumberOfAdults, r.NumberOfChildren, r.ID, r.Revision)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrVersionConflict
	}

	if _, err := tx.Exec(`DELETE FROM h_reservation_atom WHERE reservation_id = ?`, r.ID); err != nil {
		return err
	}
	for i, a := range r.Atoms {
		ares, err := tx.Exec(
			`INSERT INTO h_reservation_atom (reservation_id, room_id, date_from, date_to) VALUES (?, ?, ?, ?)`,
			r.ID, a.RoomID, marshalDate(a.Range.From), marshalDate(a.Range.To))
		if err != nil {
			return err
		}
		atomID, err := ares.LastInsertId()
		if err != nil {
			return err
		}
		r.Atoms[i].ID = int(atomID)
	}

	r.Revision++
	return nil
}

// deleteReservation removes a reservation and its atoms.
func deleteReservation(tx *sql.Tx, id int) error {
	if _, err := tx.Exec(`DELETE FROM h_reservation_atom WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM h_reservation WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
