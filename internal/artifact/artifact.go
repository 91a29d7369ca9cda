// Package artifact persists learned persona instructions and validation
// reports as JSON files.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	// FileName is the artifact file written into the output directory.
	FileName = "persona_gepa_artifact.json"
	// ReportFileName is the validation report written next to the artifact.
	ReportFileName = "validation_report.json"
)

// Artifact is the persisted result of an optimization run.
type Artifact struct {
	Instructions string         `json:"instructions"`
	Metadata     map[string]any `json:"metadata"`
	SavedAt      string         `json:"saved_at"`
}

// Save writes instructions and metadata to path as indented JSON, creating
// parent directories. Nil metadata is stored as an empty object.
func Save(path, instructions string, metadata map[string]any) (string, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	a := Artifact{
		Instructions: instructions,
		Metadata:     metadata,
		SavedAt:      time.Now().UTC().Format(time.RFC3339Nano),
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	if err := writeJSON(path, a); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// Load reads an artifact written by Save.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return &a, nil
}

// WriteReport writes report to dir/validation_report.json and returns the path.
func WriteReport(dir string, report any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, ReportFileName)
	if err := writeJSON(path, report); err != nil {
		return "", fmt.Errorf("failed to write validation report: %w", err)
	}
	return path, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Entry describes one artifact found by List.
type Entry struct {
	RunID            string         `json:"run_id,omitempty"`
	Path             string         `json:"path"`
	SavedAt          string         `json:"saved_at"`
	Metadata         map[string]any `json:"metadata"`
	ValidationReport map[string]any `json:"validation_report,omitempty"`
}

// List returns the artifacts stored directly in outputDir and in its
// immediate run subdirectories, newest first. A missing directory yields no
// entries. Unreadable artifacts are skipped.
func List(outputDir string) ([]Entry, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var out []Entry
	if e, ok := readEntry(outputDir, ""); ok {
		out = append(out, e)
	}
	for _, d := range entries {
		if !d.IsDir() {
			continue
		}
		if e, ok := readEntry(filepath.Join(outputDir, d.Name()), d.Name()); ok {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return savedTime(out[i]).After(savedTime(out[j]))
	})
	return out, nil
}

// savedTime parses SavedAt. RFC3339Nano drops trailing zeros, so the strings
// do not sort in time order. Unparseable values sort last.
func savedTime(e Entry) time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.SavedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func readEntry(dir, runID string) (Entry, bool) {
	path := filepath.Join(dir, FileName)
	a, err := Load(path)
	if err != nil {
		return Entry{}, false
	}

	e := Entry{
		RunID:    runID,
		Path:     path,
		SavedAt:  a.SavedAt,
		Metadata: a.Metadata,
	}
	if data, err := os.ReadFile(filepath.Join(dir, ReportFileName)); err == nil {
		var report map[string]any
		if json.Unmarshal(data, &report) == nil {
			e.ValidationReport = report
		}
	}
	return e, true
}
