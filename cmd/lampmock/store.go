package main

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite database holding the mock deployment.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the sqlite database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS researchers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS studies (
			id TEXT PRIMARY KEY,
			researcher_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			id TEXT PRIMARY KEY,
			study_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sensor_events (
			participant TEXT NOT NULL,
			origin TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			data TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_events
			ON sensor_events (participant, origin, timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			study_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			spec TEXT NOT NULL DEFAULT '',
			settings TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS activity_events (
			participant TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			duration INTEGER NOT NULL DEFAULT 0,
			activity TEXT NOT NULL,
			static_data TEXT NOT NULL DEFAULT '{}',
			temporal_slices TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_events
			ON activity_events (participant, timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			target TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (target, key)
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// SensorEvents lists events descending by timestamp within [from, to].
func (s *Store) SensorEvents(participant, origin string, from, to int64, limit int) ([]map[string]interface{}, error) {
	query := `SELECT origin, timestamp, data FROM sensor_events
		WHERE participant = ? AND timestamp >= ? AND timestamp <= ?`
	args := []interface{}{participant, from, to}
	if origin != "" {
		query += " AND origin = ?"
		args = append(args, origin)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor events: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var (
			rowOrigin string
			ts        int64
			data      string
		)
		if err := rows.Scan(&rowOrigin, &ts, &data); err != nil {
			return nil, fmt.Errorf("failed to scan sensor event: %w", err)
		}
		payload := map[string]interface{}{}
		_ = json.Unmarshal([]byte(data), &payload)
		out = append(out, map[string]interface{}{
			"timestamp": ts,
			"sensor":    rowOrigin,
			"data":      payload,
		})
	}
	return out, rows.Err()
}

// InsertSensorEvent stores one event.
func (s *Store) InsertSensorEvent(participant, origin string, timestamp int64, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sensor_events (participant, origin, timestamp, data) VALUES (?, ?, ?, ?)`,
		participant, origin, timestamp, string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert sensor event: %w", err)
	}
	return nil
}

// ActivityEvents lists completed activity events descending by timestamp.
func (s *Store) ActivityEvents(participant string, from, to int64, limit int) ([]map[string]interface{}, error) {
	rows, err := s.db.Query(
		`SELECT timestamp, duration, activity, static_data, temporal_slices
		   FROM activity_events
		  WHERE participant = ? AND timestamp >= ? AND timestamp <= ?
		  ORDER BY timestamp DESC LIMIT ?`,
		participant, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity events: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var (
			ts, duration int64
			activity     string
			static       string
			slices       string
		)
		if err := rows.Scan(&ts, &duration, &activity, &static, &slices); err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		staticData := map[string]interface{}{}
		_ = json.Unmarshal([]byte(static), &staticData)
		var temporal []interface{}
		_ = json.Unmarshal([]byte(slices), &temporal)
		out = append(out, map[string]interface{}{
			"timestamp":       ts,
			"duration":        duration,
			"activity":        activity,
			"static_data":     staticData,
			"temporal_slices": temporal,
		})
	}
	return out, rows.Err()
}

// InsertActivityEvent stores one completed activity event.
func (s *Store) InsertActivityEvent(participant string, timestamp, duration int64, activity string, staticData map[string]interface{}, slices []interface{}) error {
	static, err := json.Marshal(staticData)
	if err != nil {
		return fmt.Errorf("failed to marshal static data: %w", err)
	}
	temporal, err := json.Marshal(slices)
	if err != nil {
		return fmt.Errorf("failed to marshal temporal slices: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO activity_events (participant, timestamp, duration, activity, static_data, temporal_slices)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		participant, timestamp, duration, activity, string(static), string(temporal))
	if err != nil {
		return fmt.Errorf("failed to insert activity event: %w", err)
	}
	return nil
}

// Activities lists the activity definitions visible to a participant through
// its study.
func (s *Store) Activities(participant string) ([]map[string]interface{}, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.name, a.spec, a.settings
		   FROM activities a
		   JOIN participants p ON p.study_id = a.study_id
		  WHERE p.id = ?`, participant)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var id, name, spec, settings string
		if err := rows.Scan(&id, &name, &spec, &settings); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		var decoded interface{}
		_ = json.Unmarshal([]byte(settings), &decoded)
		out = append(out, map[string]interface{}{
			"id":       id,
			"name":     name,
			"spec":     spec,
			"settings": decoded,
		})
	}
	return out, rows.Err()
}

// InsertActivity stores one activity definition on a study.
func (s *Store) InsertActivity(id, studyID, name, spec string, settings interface{}) error {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO activities (id, study_id, name, spec, settings) VALUES (?, ?, ?, ?, ?)`,
		id, studyID, name, spec, string(encoded))
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// AttachmentGet reads one attachment value as raw JSON.
func (s *Store) AttachmentGet(target, key string) (json.RawMessage, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM attachments WHERE target = ? AND key = ?`,
		target, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query attachment: %w", err)
	}
	return json.RawMessage(value), true, nil
}

// AttachmentSet writes one attachment value, replacing any previous one.
func (s *Store) AttachmentSet(target, key string, value json.RawMessage) error {
	_, err := s.db.Exec(
		`INSERT INTO attachments (target, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (target, key) DO UPDATE SET value = excluded.value`,
		target, key, string(value))
	if err != nil {
		return fmt.Errorf("failed to upsert attachment: %w", err)
	}
	return nil
}

// AttachmentKeys lists the attachment keys stored on a target.
func (s *Store) AttachmentKeys(target string) ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM attachments WHERE target = ? ORDER BY key`, target)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachment keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan attachment key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Parent resolves the parent map of an id, and whether the id exists.
func (s *Store) Parent(id string) (map[string]string, bool, error) {
	var researcher string
	err := s.db.QueryRow(`SELECT researcher_id FROM studies WHERE id = ?`, id).Scan(&researcher)
	if err == nil {
		return map[string]string{"Researcher": researcher}, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("failed to query study parent: %w", err)
	}

	var study string
	err = s.db.QueryRow(`SELECT study_id FROM participants WHERE id = ?`, id).Scan(&study)
	if err == nil {
		var parentResearcher string
		if err := s.db.QueryRow(`SELECT researcher_id FROM studies WHERE id = ?`, study).Scan(&parentResearcher); err != nil && err != sql.ErrNoRows {
			return nil, false, fmt.Errorf("failed to query study of participant: %w", err)
		}
		return map[string]string{"Study": study, "Researcher": parentResearcher}, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("failed to query participant parent: %w", err)
	}

	var exists int
	err = s.db.QueryRow(`SELECT 1 FROM researchers WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query researcher: %w", err)
	}
	return map[string]string{}, true, nil
}

// Studies lists the studies of a researcher.
func (s *Store) Studies(researcher string) ([]map[string]interface{}, error) {
	rows, err := s.db.Query(`SELECT id, name FROM studies WHERE researcher_id = ?`, researcher)
	if err != nil {
		return nil, fmt.Errorf("failed to query studies: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}
		out = append(out, map[string]interface{}{"id": id, "name": name})
	}
	return out, rows.Err()
}

// Participants lists the participants of a study.
func (s *Store) Participants(study string) ([]map[string]interface{}, error) {
	rows, err := s.db.Query(`SELECT id FROM participants WHERE study_id = ?`, study)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, map[string]interface{}{"id": id})
	}
	return out, rows.Err()
}

// InsertHierarchy stores one researcher → study → participants chain.
func (s *Store) InsertHierarchy(researcher, study, studyName string, participants []string) error {
	if _, err := s.db.Exec(`INSERT INTO researchers (id) VALUES (?)`, researcher); err != nil {
		return fmt.Errorf("failed to insert researcher: %w", err)
	}
	if _, err := s.db.Exec(`INSERT INTO studies (id, researcher_id, name) VALUES (?, ?, ?)`,
		study, researcher, studyName); err != nil {
		return fmt.Errorf("failed to insert study: %w", err)
	}
	for _, p := range participants {
		if _, err := s.db.Exec(`INSERT INTO participants (id, study_id) VALUES (?, ?)`, p, study); err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}
