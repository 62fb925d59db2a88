package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/qtkern/internal/config"
	"github.com/san-kum/qtkern/internal/diag"
	"github.com/san-kum/qtkern/internal/sweep"
)

const (
	metadataFile = "metadata.json"
	settingsFile = "settings.yaml"
	pointsFile   = "points.csv"
)

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
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Timestamp time.Time     `json:"timestamp"`
	KernType  string        `json:"kerntype"`
	SolMethod string        `json:"solmethod"`
	Points    int           `json:"points"`
	Succeeded int           `json:"succeeded"`
	Diag      diag.Snapshot `json:"diagnostics"`
}

// Save writes a sweep under a new run directory and returns its ID.
func (s *Store) Save(name string, settings *config.Settings, results []sweep.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Timestamp: now,
		KernType:  string(settings.KernType),
		SolMethod: string(settings.SolMethod.Resolve(settings.Symq)),
		Points:    len(results),
		Succeeded: sweep.Succeeded(results),
		Diag:      mergeDiag(results),
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := config.Save(filepath.Join(runDir, settingsFile), settings); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, pointsFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	dim := 0
	for _, r := range results {
		if len(r.Phi0) > dim {
			dim = len(r.Phi0)
		}
	}

	header := []string{"value", "success", "residual", "observable"}
	for i := 0; i < dim; i++ {
		header = append(header, fmt.Sprintf("phi%d", i))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, r := range results {
		row := []string{
			strconv.FormatFloat(r.Value, 'g', -1, 64),
			strconv.FormatBool(r.Success),
			strconv.FormatFloat(r.Residual, 'g', -1, 64),
			strconv.FormatFloat(r.Observable, 'g', -1, 64),
		}
		for i := 0; i < dim; i++ {
			if i < len(r.Phi0) {
				row = append(row, strconv.FormatFloat(r.Phi0[i], 'g', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

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

func (s *Store) LoadSettings(runID string) (*config.Settings, error) {
	return config.Load(filepath.Join(s.baseDir, runID, settingsFile))
}

// LoadPoints reads back the per-point results of a run. Diagnostic
// snapshots are not stored per point and come back empty.
func (s *Store) LoadPoints(runID string) ([]sweep.Result, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, pointsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []sweep.Result{}, nil
	}

	results := make([]sweep.Result, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 4 {
			continue
		}

		var res sweep.Result
		if res.Value, err = strconv.ParseFloat(record[0], 64); err != nil {
			continue
		}
		res.Success, _ = strconv.ParseBool(record[1])
		res.Residual, _ = strconv.ParseFloat(record[2], 64)
		res.Observable, _ = strconv.ParseFloat(record[3], 64)

		for _, field := range record[4:] {
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			res.Phi0 = append(res.Phi0, v)
		}
		results = append(results, res)
	}

	return results, nil
}

// mergeDiag folds the per-point snapshots into the flags that were set
// anywhere in the sweep.
func mergeDiag(results []sweep.Result) diag.Snapshot {
	var out diag.Snapshot
	for _, r := range results {
		out.SuppressErr = out.SuppressErr || r.Diag.SuppressErr
		if len(r.Diag.SuppressWrn) > len(out.SuppressWrn) {
			grown := make([]bool, len(r.Diag.SuppressWrn))
			copy(grown, out.SuppressWrn)
			out.SuppressWrn = grown
		}
		for i, w := range r.Diag.SuppressWrn {
			out.SuppressWrn[i] = out.SuppressWrn[i] || w
		}
	}
	return out
}
