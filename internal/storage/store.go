// Package storage persists simulation runs on disk. Each run gets its own
// directory with a metadata.json and a series.csv, and a SQLite index keeps
// listing and lookup fast without scanning every directory.
package storage

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/sim"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	dt         REAL NOT NULL,
	horizon    REAL NOT NULL,
	integrator TEXT NOT NULL,
	loader     TEXT NOT NULL,
	event      TEXT NOT NULL,
	end_time   REAL NOT NULL,
	points     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
`

// RunMetadata describes one stored run.
type RunMetadata struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Timestamp  time.Time `json:"timestamp"`
	Dt         float64   `json:"dt"`
	Horizon    float64   `json:"horizon"`
	Integrator string    `json:"integrator"`
	Loader     string    `json:"loader"`
	Event      string    `json:"event"`
	EndTime    float64   `json:"end_time"`
	Points     int       `json:"points"`
}

// Store writes runs under baseDir and indexes them in baseDir/index.db.
type Store struct {
	baseDir string
	db      *sql.DB
}

// Open creates baseDir if needed and opens the run index.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("storage: create base dir: %w", err)
	}

	dbPath := filepath.Join(baseDir, "index.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("storage: open index: %w", err)
	}
	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}

	return &Store{baseDir: baseDir, db: db}, nil
}

// Close releases the index database.
func (s *Store) Close() error { return s.db.Close() }

// RunInfo carries the caller-supplied description of a run being saved.
type RunInfo struct {
	Model      string
	Dt         float64
	Horizon    float64
	Integrator string
	Loader     string
}

// Save writes one run to disk and indexes it. It returns the generated run ID.
func (s *Store) Save(info RunInfo, res *sim.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Model:      info.Model,
		Timestamp:  time.Now().UTC(),
		Dt:         info.Dt,
		Horizon:    info.Horizon,
		Integrator: info.Integrator,
		Loader:     info.Loader,
		Event:      res.Event,
		EndTime:    res.EndTime,
		Points:     res.Len(),
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, "series.csv"), res); err != nil {
		return "", err
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, model, created_at, dt, horizon, integrator, loader, event, end_time, points)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Model, meta.Timestamp.Format(time.RFC3339Nano),
		meta.Dt, meta.Horizon, meta.Integrator, meta.Loader,
		meta.Event, meta.EndTime, meta.Points,
	)
	if err != nil {
		return "", fmt.Errorf("storage: index run: %w", err)
	}
	return runID, nil
}

// List returns all indexed runs, newest first. An optional model name
// restricts the listing.
func (s *Store) List(model string) ([]RunMetadata, error) {
	query := `SELECT id, model, created_at, dt, horizon, integrator, loader, event, end_time, points
	          FROM runs`
	args := []any{}
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var m RunMetadata
		var ts string
		if err := rows.Scan(&m.ID, &m.Model, &ts, &m.Dt, &m.Horizon,
			&m.Integrator, &m.Loader, &m.Event, &m.EndTime, &m.Points); err != nil {
			return nil, err
		}
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		runs = append(runs, m)
	}
	return runs, rows.Err()
}

// Load reads one run's metadata from its directory.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads a run's recorded time series back into a Result. The
// terminating event and end time are restored from the metadata.
func (s *Store) LoadSeries(runID string) (*sim.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, "series.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("storage: run %s has an empty series", runID)
	}

	header := records[0]
	res := &sim.Result{Event: meta.Event, EndTime: meta.EndTime}
	for _, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("storage: run %s has a ragged series row", runID)
		}
		u := prog.Input{}
		x := prog.State{}
		z := prog.Output{}
		es := map[string]float64{}
		var t float64
		for j, col := range header {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("storage: run %s column %s: %w", runID, col, err)
			}
			switch {
			case col == "time":
				t = v
			case strings.HasPrefix(col, "u."):
				u[col[2:]] = v
			case strings.HasPrefix(col, "x."):
				x[col[2:]] = v
			case strings.HasPrefix(col, "z."):
				z[col[2:]] = v
			case strings.HasPrefix(col, "es."):
				es[col[3:]] = v
			}
		}
		res.Times = append(res.Times, t)
		res.Inputs = append(res.Inputs, u)
		res.States = append(res.States, x)
		res.Outputs = append(res.Outputs, z)
		res.EventStates = append(res.EventStates, es)
	}
	return res, nil
}

// Delete removes a run's directory and its index entry.
func (s *Store) Delete(runID string) error {
	if _, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSeries(path string, res *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if res.Len() == 0 {
		return w.Write([]string{"time"})
	}

	uKeys := sortedKeys(res.Inputs[0])
	xKeys := sortedKeys(res.States[0])
	zKeys := sortedKeys(res.Outputs[0])
	esKeys := sortedKeys(res.EventStates[0])

	header := []string{"time"}
	for _, k := range uKeys {
		header = append(header, "u."+k)
	}
	for _, k := range xKeys {
		header = append(header, "x."+k)
	}
	for _, k := range zKeys {
		header = append(header, "z."+k)
	}
	for _, k := range esKeys {
		header = append(header, "es."+k)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for i := range res.Times {
		row = row[:0]
		row = append(row, formatFloat(res.Times[i]))
		for _, k := range uKeys {
			row = append(row, formatFloat(res.Inputs[i][k]))
		}
		for _, k := range xKeys {
			row = append(row, formatFloat(res.States[i][k]))
		}
		for _, k := range zKeys {
			row = append(row, formatFloat(res.Outputs[i][k]))
		}
		for _, k := range esKeys {
			row = append(row, formatFloat(res.EventStates[i][k]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys[M ~map[string]float64](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
