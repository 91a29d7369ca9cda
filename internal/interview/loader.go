package interview

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoaderFunc reads interviews from a file.
type LoaderFunc func(path string) ([]Interview, error)

// Loader names accepted by GetLoader.
const (
	LoaderAuto  = "auto"
	LoaderJSON  = "json"
	LoaderJSONL = "jsonl"
	LoaderYAML  = "yaml"
)

var loaders = map[string]LoaderFunc{
	LoaderAuto:  Load,
	LoaderJSON:  LoadJSON,
	LoaderJSONL: LoadJSONL,
	LoaderYAML:  LoadYAML,
}

// UnsupportedLoaderError is returned when a loader name is not registered.
type UnsupportedLoaderError struct {
	Name string
}

func (e *UnsupportedLoaderError) Error() string {
	return fmt.Sprintf("unsupported loader %q (supported: %s)", e.Name, strings.Join(LoaderNames(), ", "))
}

// LoaderNames returns the registered loader names in sorted order.
func LoaderNames() []string {
	names := make([]string, 0, len(loaders))
	for name := range loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetLoader returns the loader registered under name. An empty name selects
// detection by file extension.
func GetLoader(name string) (LoaderFunc, error) {
	if name == "" {
		name = LoaderAuto
	}
	l, ok := loaders[strings.ToLower(name)]
	if !ok {
		return nil, &UnsupportedLoaderError{Name: name}
	}
	return l, nil
}

// Load reads interviews, choosing the format from the file extension:
// .jsonl is one interview per line, .yaml/.yml is YAML, anything else JSON.
func Load(path string) ([]Interview, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return LoadJSONL(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadJSON(path)
	}
}

// LoadJSON reads a JSON document holding one interview, a list of interviews
// or a wrapper mapping.
func LoadJSON(path string) ([]Interview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interviews: %w", err)
	}

	doc, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return normalizeDocument(doc, path, path+" interview")
}

// LoadYAML reads a YAML document with the same shapes accepted by LoadJSON.
func LoadYAML(path string) ([]Interview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interviews: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return normalizeDocument(doc, path, path+" interview")
}

// LoadJSONL reads one interview per non-blank line. A line may be a list of
// turns or a mapping with an "interview" key.
func LoadJSONL(path string) ([]Interview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interviews: %w", err)
	}
	defer f.Close()

	return readJSONL(f, path)
}

func readJSONL(r io.Reader, path string) ([]Interview, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var interviews []Interview
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		entry, err := decodeJSON(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s:%d: %w", path, lineNum, err)
		}
		if m, ok := asMap(entry); ok && hasKey(m, "interview") {
			entry = m["interview"]
		}
		if _, ok := entry.([]any); !ok {
			return nil, &ValidationError{Message: fmt.Sprintf("%s:%d must be a list of interview turns.", path, lineNum)}
		}

		iv, err := normalizeInterview(entry, fmt.Sprintf("%s line %d", path, lineNum))
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, iv)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return interviews, nil
}

// decodeJSON keeps numbers in their literal form so numeric answers are not
// reformatted when stringified.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return doc, nil
}
