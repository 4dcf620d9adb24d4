package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/baenzigerbear/f1-race-replay/internal/replay"
)

// SessionMeta describes one recorded race session.
type SessionMeta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Circuit     string    `json:"circuit"`
	TotalLaps   int       `json:"total_laps"`
	StartOffset float64   `json:"start_offset"`
	RaceStart   float64   `json:"race_start"`
	CreatedAt   time.Time `json:"created_at"`
}

// Result is one final-classification row as persisted.
type Result struct {
	Position int    `json:"position"`
	EntityID int    `json:"entity_id"`
	Status   string `json:"status"`
	Laps     int    `json:"laps"`
}

// CreateSession inserts a new session and returns its generated id.
func (db *DB) CreateSession(name, circuit string, totalLaps int, startOffset, raceStart float64) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, name, circuit, total_laps, start_offset, race_start)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, circuit, totalLaps, startOffset, raceStart,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// Sessions lists all recorded sessions, newest first.
func (db *DB) Sessions() ([]SessionMeta, error) {
	rows, err := db.Query(
		`SELECT session_id, name, circuit, total_laps, start_offset, race_start, created_at
		 FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionMeta
	for rows.Next() {
		var m SessionMeta
		if err := rows.Scan(&m.ID, &m.Name, &m.Circuit, &m.TotalLaps, &m.StartOffset, &m.RaceStart, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Session returns the metadata of one session.
func (db *DB) Session(sessionID string) (SessionMeta, error) {
	var m SessionMeta
	err := db.QueryRow(
		`SELECT session_id, name, circuit, total_laps, start_offset, race_start, created_at
		 FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&m.ID, &m.Name, &m.Circuit, &m.TotalLaps, &m.StartOffset, &m.RaceStart, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return SessionMeta{}, fmt.Errorf("session %s not found", sessionID)
	}
	return m, err
}

// AddEntity registers a competitor in a session.
func (db *DB) AddEntity(sessionID string, e replay.Entity, startedInPit bool) error {
	inPit := 0
	if startedInPit {
		inPit = 1
	}
	_, err := db.Exec(
		`INSERT INTO entities (session_id, entity_id, label, team, colour, started_in_pit)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, e.ID, e.Label, e.Team, e.Colour, inPit,
	)
	return err
}

// AddSamples bulk-inserts an entity's telemetry inside one transaction.
func (db *DB) AddSamples(sessionID string, entityID int, samples []replay.Sample) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO samples (session_id, entity_id, t, x, y) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, s := range samples {
		if _, err := stmt.Exec(sessionID, entityID, s.T, s.X, s.Y); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	stmt.Close()
	return tx.Commit()
}

// AddStint records a tyre stint.
func (db *DB) AddStint(sessionID string, st replay.Stint) error {
	_, err := db.Exec(
		`INSERT INTO stints (session_id, entity_id, lap_start, lap_end, compound, starting_age)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, st.EntityID, st.LapStart, st.LapEnd, st.Compound, st.StartingAge,
	)
	return err
}

// AddRetirement records a retirement timestamp.
func (db *DB) AddRetirement(sessionID string, r replay.Retirement) error {
	_, err := db.Exec(
		`INSERT INTO retirements (session_id, entity_id, at_time) VALUES (?, ?, ?)`,
		sessionID, r.EntityID, r.AtTime,
	)
	return err
}

// SetGateReference stores the gate derivation inputs for a session,
// replacing any previous reference.
func (db *DB) SetGateReference(sessionID string, ref replay.GateReference) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO gate_reference (session_id, entity_id, start_finish_time, pit_entry_time)
		 VALUES (?, ?, ?, ?)`,
		sessionID, ref.EntityID, ref.StartFinishTime, ref.PitEntryTime,
	); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM minisector_times WHERE session_id = ?`, sessionID); err != nil {
		tx.Rollback()
		return err
	}
	for i, t := range ref.MiniSectorTimes {
		if _, err := tx.Exec(
			`INSERT INTO minisector_times (session_id, ordinal, t) VALUES (?, ?, ?)`,
			sessionID, i, t,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadSession reads a complete session back into replay form: the
// telemetry store populated with entities, samples, stints and
// retirements, plus the gate reference for derivation.
func (db *DB) LoadSession(sessionID string) (*replay.TelemetryStore, replay.GateReference, error) {
	store := replay.NewTelemetryStore()
	var ref replay.GateReference

	rows, err := db.Query(
		`SELECT entity_id, label, team, colour, started_in_pit
		 FROM entities WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, ref, err
	}
	type entityRow struct {
		e     replay.Entity
		inPit bool
	}
	var entities []entityRow
	for rows.Next() {
		var er entityRow
		var inPit int
		if err := rows.Scan(&er.e.ID, &er.e.Label, &er.e.Team, &er.e.Colour, &inPit); err != nil {
			rows.Close()
			return nil, ref, err
		}
		er.inPit = inPit != 0
		entities = append(entities, er)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, ref, err
	}

	for _, er := range entities {
		samples, err := db.entitySamples(sessionID, er.e.ID)
		if err != nil {
			return nil, ref, err
		}
		if err := store.AddEntity(er.e, samples); err != nil {
			return nil, ref, err
		}
		store.SetStartedInPit(er.e.ID, er.inPit)
	}

	if err := db.loadStints(sessionID, store); err != nil {
		return nil, ref, err
	}
	if err := db.loadRetirements(sessionID, store); err != nil {
		return nil, ref, err
	}

	err = db.QueryRow(
		`SELECT entity_id, start_finish_time, pit_entry_time
		 FROM gate_reference WHERE session_id = ?`, sessionID).
		Scan(&ref.EntityID, &ref.StartFinishTime, &ref.PitEntryTime)
	if err == sql.ErrNoRows {
		return nil, ref, fmt.Errorf("session %s has no gate reference", sessionID)
	}
	if err != nil {
		return nil, ref, err
	}

	msRows, err := db.Query(
		`SELECT t FROM minisector_times WHERE session_id = ? ORDER BY ordinal`, sessionID)
	if err != nil {
		return nil, ref, err
	}
	defer msRows.Close()
	for msRows.Next() {
		var t float64
		if err := msRows.Scan(&t); err != nil {
			return nil, ref, err
		}
		ref.MiniSectorTimes = append(ref.MiniSectorTimes, t)
	}

	return store, ref, msRows.Err()
}

func (db *DB) entitySamples(sessionID string, entityID int) ([]replay.Sample, error) {
	rows, err := db.Query(
		`SELECT t, x, y FROM samples WHERE session_id = ? AND entity_id = ? ORDER BY t`,
		sessionID, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []replay.Sample
	for rows.Next() {
		var s replay.Sample
		if err := rows.Scan(&s.T, &s.X, &s.Y); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) loadStints(sessionID string, store *replay.TelemetryStore) error {
	rows, err := db.Query(
		`SELECT entity_id, lap_start, lap_end, compound, starting_age
		 FROM stints WHERE session_id = ? ORDER BY entity_id, lap_start`, sessionID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st replay.Stint
		if err := rows.Scan(&st.EntityID, &st.LapStart, &st.LapEnd, &st.Compound, &st.StartingAge); err != nil {
			return err
		}
		store.AddStint(st)
	}
	return rows.Err()
}

func (db *DB) loadRetirements(sessionID string, store *replay.TelemetryStore) error {
	rows, err := db.Query(
		`SELECT entity_id, at_time FROM retirements WHERE session_id = ?`, sessionID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r replay.Retirement
		if err := rows.Scan(&r.EntityID, &r.AtTime); err != nil {
			return err
		}
		store.AddRetirement(r)
	}
	return rows.Err()
}

// SaveResults replaces the stored final classification of a session.
func (db *DB) SaveResults(sessionID string, rows []replay.StandingRow) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM results WHERE session_id = ?`, sessionID); err != nil {
		tx.Rollback()
		return err
	}
	for _, r := range rows {
		if _, err := tx.Exec(
			`INSERT INTO results (session_id, position, entity_id, status, laps) VALUES (?, ?, ?, ?, ?)`,
			sessionID, r.FinalPosition, r.EntityID, r.Status.String(), r.Lap,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Results returns the stored final classification ordered by position.
func (db *DB) Results(sessionID string) ([]Result, error) {
	rows, err := db.Query(
		`SELECT position, entity_id, status, laps FROM results
		 WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Position, &r.EntityID, &r.Status, &r.Laps); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
