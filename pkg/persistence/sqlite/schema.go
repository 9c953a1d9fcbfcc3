package sqlite

import "database/sql"

// Schema tables per §6.4. status and dates are stored as text using the
// same encodings as the JSON wire format (§6.1), so a dump of the raw
// tables and a dump of the API agree byte-for-byte on those fields.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS h_hotel (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	revision INTEGER NOT NULL,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS h_room_category (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hotel_id INTEGER NOT NULL REFERENCES h_hotel(id),
	short_code TEXT NOT NULL,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS h_room (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hotel_id INTEGER NOT NULL REFERENCES h_hotel(id),
	category_id INTEGER NOT NULL REFERENCES h_room_category(id),
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS h_reservation (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	revision INTEGER NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL,
	adults INTEGER NOT NULL,
	children INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS h_reservation_atom (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reservation_id INTEGER NOT NULL REFERENCES h_reservation(id),
	room_id INTEGER NOT NULL,
	date_from TEXT NOT NULL,
	date_to TEXT NOT NULL
);
`

const dropDDL = `
DROP TABLE IF EXISTS h_reservation_atom;
DROP TABLE IF EXISTS h_reservation;
DROP TABLE IF EXISTS h_room;
DROP TABLE IF EXISTS h_room_category;
DROP TABLE IF EXISTS h_hotel;
`

// createSchema creates the tables if they are absent. Never migrated (§1
// non-goals): a schema change to an existing file is out of scope.
func createSchema(db *sql.DB) error {
	_, err := db.Exec(schemaDDL)
	return err
}

// eraseAllData drops and recreates every table, per §4.7's EraseAllData
// semantics.
func eraseAllData(tx *sql.Tx) error {
	if _, err := tx.Exec(dropDDL); err != nil {
		return err
	}
	_, err := tx.Exec(schemaDDL)
	return err
}
