package mcp

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/giantswarm/persona-gepa/internal/artifact"
)

func resolveRunPath(outputDir, runID string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("run_id is required")
	}
	if strings.Contains(runID, string(filepath.Separator)) || strings.Contains(runID, "/") {
		return "", fmt.Errorf("path separators are not allowed")
	}
	if runID == "." || runID == ".." {
		return "", fmt.Errorf("path traversal is not allowed")
	}
	return resolvePathWithinBase(outputDir, runID, "output directory")
}

// resolveArtifactPath returns the artifact file of a run.
func resolveArtifactPath(outputDir, runID string) (string, error) {
	runPath, err := resolveRunPath(outputDir, runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(runPath, artifact.FileName), nil
}

// resolveDataPath resolves an interview file name relative to the data
// directory.
func resolveDataPath(dataDir, name, param string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%s is required", param)
	}
	return resolvePathWithinBase(dataDir, name, "data directory")
}

func resolvePathWithinBase(baseDir, pathValue, baseName string) (string, error) {
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	target := pathValue
	if !filepath.IsAbs(target) {
		target = filepath.Join(baseAbs, target)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path must be within %s", baseName)
	}
	return targetAbs, nil
}
