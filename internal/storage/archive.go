package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/san-kum/popsynth/internal/astro"
)

// ErrRunNotFound indicates an archive lookup for an unknown run.
var ErrRunNotFound = errors.New("storage: run not found")

var archiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		metadata BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stars (
		run_id TEXT NOT NULL REFERENCES runs(id),
		idx INTEGER NOT NULL,
		` + strings.Join(starColumnDefs(), ",\n\t\t") + `,
		type TEXT NOT NULL,
		PRIMARY KEY (run_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS binaries (
		run_id TEXT NOT NULL REFERENCES runs(id),
		idx INTEGER NOT NULL,
		eccentricity REAL,
		semi_major_axis_rsun REAL,
		child1 INTEGER,
		child2 INTEGER,
		PRIMARY KEY (run_id, idx)
	)`,
}

func starColumnDefs() []string {
	defs := make([]string, len(starColumns))
	for i, c := range starColumns {
		defs[i] = c.name + " REAL"
	}
	return defs
}

// Archive collects saved runs in a single SQLite database.
type Archive struct {
	db   *sql.DB
	path string
}

func OpenArchive(path string) (*Archive, error) {
	if path == "" {
		path = "popsynth.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range archiveSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Archive{db: db, path: path}, nil
}

func (a *Archive) Close() error { return a.db.Close() }
func (a *Archive) Path() string { return a.path }

// Put stores a run and its population in one transaction.
func (a *Archive) Put(ctx context.Context, meta RunMetadata, binaries *astro.Binaries, stars *astro.Stars) (retErr error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(id, created_at, metadata) VALUES(?,?,?)`,
		meta.ID, meta.Timestamp.Format("2006-01-02T15:04:05.000000000Z07:00"), payload); err != nil {
		return fmt.Errorf("insert run %s: %w", meta.ID, err)
	}

	names := make([]string, len(starColumns))
	for i, c := range starColumns {
		names[i] = c.name
	}
	starStmt, err := tx.PrepareContext(ctx, `INSERT INTO stars(run_id, idx, `+strings.Join(names, ", ")+
		`, type) VALUES(?, ?, `+strings.Repeat("?, ", len(starColumns))+`?)`)
	if err != nil {
		return err
	}
	defer starStmt.Close()

	i := 0
	for ref, star := range stars.All() {
		row, err := encodeStar(star)
		if err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		args := []any{meta.ID, i}
		for _, v := range row.values {
			args = append(args, v)
		}
		if _, err := starStmt.ExecContext(ctx, append(args, row.typ)...); err != nil {
			return fmt.Errorf("insert %s: %w", ref, err)
		}
		i++
	}

	binStmt, err := tx.PrepareContext(ctx, `INSERT INTO binaries(run_id, idx, eccentricity, semi_major_axis_rsun, child1, child2) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer binStmt.Close()

	i = 0
	for ref, b := range binaries.All() {
		row, err := encodeBinary(b, stars)
		if err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		if _, err := binStmt.ExecContext(ctx, meta.ID, i, row.eccentricity, row.semiMajorAxis, row.child1, row.child2); err != nil {
			return fmt.Errorf("insert %s: %w", ref, err)
		}
		i++
	}

	return tx.Commit()
}

// List returns the metadata of every archived run, oldest first.
func (a *Archive) List(ctx context.Context) ([]RunMetadata, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT metadata FROM runs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var meta RunMetadata
		if err := json.Unmarshal(payload, &meta); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (a *Archive) Load(ctx context.Context, runID string) (*RunMetadata, error) {
	var payload []byte
	err := a.db.QueryRowContext(ctx, `SELECT metadata FROM runs WHERE id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &meta, nil
}

// LoadPopulation reads an archived population back into fresh stores.
func (a *Archive) LoadPopulation(ctx context.Context, runID string) (*astro.Binaries, *astro.Stars, error) {
	if _, err := a.Load(ctx, runID); err != nil {
		return nil, nil, err
	}

	names := make([]string, len(starColumns))
	for i, c := range starColumns {
		names[i] = c.name
	}
	rows, err := a.db.QueryContext(ctx, `SELECT `+strings.Join(names, ", ")+`, type FROM stars WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("select stars: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stars := astro.NewStars()
	for rows.Next() {
		row := starRow{values: make([]sql.NullFloat64, len(starColumns))}
		dest := make([]any, 0, len(starColumns)+1)
		for i := range row.values {
			dest = append(dest, &row.values[i])
		}
		if err := rows.Scan(append(dest, &row.typ)...); err != nil {
			return nil, nil, fmt.Errorf("scan star: %w", err)
		}
		star, err := row.decode()
		if err != nil {
			return nil, nil, err
		}
		stars.Add(star)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	brows, err := a.db.QueryContext(ctx, `SELECT eccentricity, semi_major_axis_rsun, child1, child2 FROM binaries WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("select binaries: %w", err)
	}
	defer func() { _ = brows.Close() }()

	binaries := astro.NewBinaries()
	for brows.Next() {
		var row binaryRow
		if err := brows.Scan(&row.eccentricity, &row.semiMajorAxis, &row.child1, &row.child2); err != nil {
			return nil, nil, fmt.Errorf("scan binary: %w", err)
		}
		b, err := row.decode(stars)
		if err != nil {
			return nil, nil, err
		}
		binaries.Add(b)
	}
	return binaries, stars, brows.Err()
}
