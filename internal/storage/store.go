// Package storage persists evolved populations, either as run directories
// holding JSON metadata and CSV tables or in a SQLite archive.
package storage

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/xid"

	"github.com/san-kum/popsynth/internal/astro"
)

const (
	metadataFile = "metadata.json"
	starsFile    = "stars.csv"
	binariesFile = "binaries.csv"
)

var binaryHeader = []string{"eccentricity", "semi_major_axis_rsun", "child1", "child2"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string         `json:"id"`
	Engine    string         `json:"engine"`
	Preset    string         `json:"preset,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Binaries  int            `json:"binaries"`
	Stars     int            `json:"stars"`
	Steps     int            `json:"steps"`
	EndTime   string         `json:"end_time,omitempty"`
	TimeStep  string         `json:"time_step,omitempty"`
	ModelTime string         `json:"model_time,omitempty"`
	Wall      time.Duration  `json:"wall_ns"`
	Types     map[string]int `json:"types"`
}

// NewRunMetadata fills the identity, timestamp and population counts. The
// caller adds what it knows about the run.
func NewRunMetadata(engine string, binaries *astro.Binaries, stars *astro.Stars) RunMetadata {
	types := make(map[string]int)
	for t, n := range astro.CountByType(stars) {
		types[t.String()] = n
	}
	return RunMetadata{
		ID:        xid.New().String(),
		Engine:    engine,
		Timestamp: time.Now().UTC(),
		Binaries:  binaries.Len(),
		Stars:     stars.Len(),
		Types:     types,
	}
}

// Save writes the population under a new run directory and returns its ID.
func (s *Store) Save(meta RunMetadata, binaries *astro.Binaries, stars *astro.Stars) (string, error) {
	if meta.ID == "" {
		meta.ID = xid.New().String()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, starsFile), func(w *csv.Writer) error {
		return writeStars(w, stars)
	}); err != nil {
		return "", fmt.Errorf("storage: write stars: %w", err)
	}
	if err := writeCSV(filepath.Join(runDir, binariesFile), func(w *csv.Writer) error {
		return writeBinaries(w, binaries, stars)
	}); err != nil {
		return "", fmt.Errorf("storage: write binaries: %w", err)
	}
	return meta.ID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadPopulation reads a saved population back into fresh stores. Binary
// components refer to the returned stars.
func (s *Store) LoadPopulation(runID string) (*astro.Binaries, *astro.Stars, error) {
	runDir := filepath.Join(s.baseDir, runID)

	stars := astro.NewStars()
	if err := readCSV(filepath.Join(runDir, starsFile), len(starColumns)+1, func(rec []string) error {
		star, err := parseStar(rec)
		if err != nil {
			return err
		}
		stars.Add(star)
		return nil
	}); err != nil {
		return nil, nil, fmt.Errorf("storage: read stars: %w", err)
	}

	binaries := astro.NewBinaries()
	if err := readCSV(filepath.Join(runDir, binariesFile), len(binaryHeader), func(rec []string) error {
		b, err := parseBinary(rec, stars)
		if err != nil {
			return err
		}
		binaries.Add(b)
		return nil
	}); err != nil {
		return nil, nil, fmt.Errorf("storage: read binaries: %w", err)
	}
	return binaries, stars, nil
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

func writeCSV(path string, fill func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeStars(w *csv.Writer, stars *astro.Stars) error {
	header := make([]string, 0, len(starColumns)+1)
	for _, c := range starColumns {
		header = append(header, c.name)
	}
	if err := w.Write(append(header, "type")); err != nil {
		return err
	}
	for ref, star := range stars.All() {
		row, err := encodeStar(star)
		if err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		rec := make([]string, 0, len(header)+1)
		for _, v := range row.values {
			rec = append(rec, formatFloat(v))
		}
		if err := w.Write(append(rec, row.typ)); err != nil {
			return err
		}
	}
	return nil
}

func writeBinaries(w *csv.Writer, binaries *astro.Binaries, stars *astro.Stars) error {
	if err := w.Write(binaryHeader); err != nil {
		return err
	}
	for ref, b := range binaries.All() {
		row, err := encodeBinary(b, stars)
		if err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}
		rec := []string{
			formatFloat(row.eccentricity),
			formatFloat(row.semiMajorAxis),
			formatInt(row.child1),
			formatInt(row.child2),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// readCSV calls each for every record after the header.
func readCSV(path string, fields int, each func([]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fields
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: missing header", ErrBadRecord)
		}
		return err
	}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := each(rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func parseStar(rec []string) (astro.Star, error) {
	row := starRow{values: make([]sql.NullFloat64, len(starColumns)), typ: rec[len(starColumns)]}
	for i := range starColumns {
		v, err := parseFloat(rec[i])
		if err != nil {
			return astro.Star{}, err
		}
		row.values[i] = v
	}
	return row.decode()
}

func parseBinary(rec []string, stars *astro.Stars) (astro.Binary, error) {
	var (
		row binaryRow
		err error
	)
	if row.eccentricity, err = parseFloat(rec[0]); err != nil {
		return astro.Binary{}, err
	}
	if row.semiMajorAxis, err = parseFloat(rec[1]); err != nil {
		return astro.Binary{}, err
	}
	if row.child1, err = parseInt(rec[2]); err != nil {
		return astro.Binary{}, err
	}
	if row.child2, err = parseInt(rec[3]); err != nil {
		return astro.Binary{}, err
	}
	return row.decode(stars)
}
