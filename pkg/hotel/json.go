package hotel

import (
	"encoding/json"
	"fmt"
	"time"
)

// dateLayout is the ISO-extended YYYY-MM-DD form §6.1 mandates for atom
// date ranges.
const dateLayout = "2006-01-02"

func marshalDate(t time.Time) string { return t.Format(dateLayout) }

func unmarshalDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// categoryWire is the §6.1 wire shape for RoomCategory.
type categoryWire struct {
	ID        int    `json:"id"`
	Revision  int    `json:"rev"`
	ShortCode string `json:"short_code"`
	Name      string `json:"name"`
}

func (c RoomCategory) toWire() categoryWire {
	return categoryWire{ID: c.ID, Revision: c.Revision, ShortCode: c.ShortCode, Name: c.Name}
}

func (w categoryWire) toDomain() RoomCategory {
	return RoomCategory{
		PersistentObject: PersistentObject{ID: w.ID, Revision: w.Revision},
		ShortCode:        w.ShortCode,
		Name:             w.Name,
	}
}

// roomWire is the §6.1 wire shape for HotelRoom; category_id is the
// category's short code, not a numeric id.
type roomWire struct {
	ID         int    `json:"id"`
	Revision   int    `json:"rev"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

func (r HotelRoom) toWire() roomWire {
	return roomWire{ID: r.ID, Revision: r.Revision, CategoryID: r.CategoryShortCode, Name: r.Name}
}

func (w roomWire) toDomain() HotelRoom {
	return HotelRoom{
		PersistentObject:  PersistentObject{ID: w.ID, Revision: w.Revision},
		Name:              w.Name,
		CategoryShortCode: w.CategoryID,
	}
}

// hotelWire is the §6.1 wire shape for Hotel.
type hotelWire struct {
	ID         int            `json:"id"`
	Revision   int            `json:"rev"`
	Name       string         `json:"name"`
	Categories []categoryWire `json:"categories"`
	Rooms      []roomWire     `json:"rooms"`
}

// MarshalJSON implements the stable §6.1 wire encoding.
func (h Hotel) MarshalJSON() ([]byte, error) {
	w := hotelWire{ID: h.ID, Revision: h.Revision, Name: h.Name}
	w.Categories = make([]categoryWire, len(h.Categories))
	for i, c := range h.Categories {
		w.Categories[i] = c.toWire()
	}
	w.Rooms = make([]roomWire, len(h.Rooms))
	for i, r := range h.Rooms {
		w.Rooms[i] = r.toWire()
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the §6.1 wire encoding.
func (h *Hotel) UnmarshalJSON(data []byte) error {
	var w hotelWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("hotel: %w", err)
	}
	h.ID = w.ID
	h.Revision = w.Revision
	h.Name = w.Name
	h.Categories = make([]RoomCategory, len(w.Categories))
	for i, c := range w.Categories {
		h.Categories[i] = c.toDomain()
	}
	h.Rooms = make([]HotelRoom, len(w.Rooms))
	for i, r := range w.Rooms {
		h.Rooms[i] = r.toDomain()
	}
	return nil
}

// atomWire is the §6.1 wire shape for ReservationAtom.
type atomWire struct {
	ID       int    `json:"id"`
	Revision int    `json:"rev"`
	RoomID   int    `json:"room_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

func (a ReservationAtom) toWire() (atomWire, error) {
	return atomWire{
		ID:       a.ID,
		Revision: a.Revision,
		RoomID:   a.RoomID,
		From:     marshalDate(a.Range.From),
		To:       marshalDate(a.Range.To),
	}, nil
}

func (w atomWire) toDomain() (ReservationAtom, error) {
	from, err := unmarshalDate(w.From)
	if err != nil {
		return ReservationAtom{}, fmt.Errorf("atom.from: %w", err)
	}
	to, err := unmarshalDate(w.To)
	if err != nil {
		return ReservationAtom{}, fmt.Errorf("atom.to: %w", err)
	}
	return ReservationAtom{
		PersistentObject: PersistentObject{ID: w.ID, Revision: w.Revision},
		RoomID:           w.RoomID,
		Range:            DateRange{From: from, To: to},
	}, nil
}

// MarshalJSON implements atomWire's own JSON shape directly, since
// ReservationAtom isn't marshaled as a top-level entity on the wire but
// only needs to round-trip correctly.
func (a ReservationAtom) MarshalJSON() ([]byte, error) {
	w, err := a.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (a *ReservationAtom) UnmarshalJSON(data []byte) error {
	var w atomWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("atom: %w", err)
	}
	atom, err := w.toDomain()
	if err != nil {
		return err
	}
	*a = atom
	return nil
}

// reservationWire is the §6.1 wire shape for Reservation.
type reservationWire struct {
	ID          int        `json:"id"`
	Revision    int        `json:"rev"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Adults      int        `json:"adults"`
	Children    int        `json:"children"`
	Atoms       []atomWire `json:"atoms"`
}

// MarshalJSON implements the stable §6.1 wire encoding.
func (r Reservation) MarshalJSON() ([]byte, error) {
	w := reservationWire{
		ID:          r.ID,
		Revision:    r.Revision,
		Description: r.Description,
		Status:      r.Status.String(),
		Adults:      r.NumberOfAdults,
		Children:    r.NumberOfChildren,
	}
	w.Atoms = make([]atomWire, len(r.Atoms))
	for i, a := range r.Atoms {
		aw, err := a.toWire()
		if err != nil {
			return nil, err
		}
		w.Atoms[i] = aw
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the §6.1 wire encoding.
func (r *Reservation) UnmarshalJSON(data []byte) error {
	var w reservationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("reservation: %w", err)
	}
	r.ID = w.ID
	r.Revision = w.Revision
	r.Description = w.Description
	r.Status = ParseReservationStatus(w.Status)
	r.NumberOfAdults = w.Adults
	r.NumberOfChildren = w.Children
	r.Atoms = make([]ReservationAtom, len(w.Atoms))
	for i, aw := range w.Atoms {
		a, err := aw.toDomain()
		if err != nil {
			return err
		}
		r.Atoms[i] = a
	}
	return nil
}

// personWire is the wire shape for Person.
type personWire struct {
	ID        int    `json:"id"`
	Revision  int    `json:"rev"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (p Person) MarshalJSON() ([]byte, error) {
	return json.Marshal(personWire{ID: p.ID, Revision: p.Revision, FirstName: p.FirstName, LastName: p.LastName})
}

func (p *Person) UnmarshalJSON(data []byte) error {
	var w personWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("person: %w", err)
	}
	p.ID = w.ID
	p.Revision = w.Revision
	p.FirstName = w.FirstName
	p.LastName = w.LastName
	return nil
}
