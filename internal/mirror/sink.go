package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Sink maps input files to their mirrored location under the output root
type Sink struct {
	InputRoot  string
	OutputRoot string

	dirs singleflight.Group
}

// NewSink creates a sink for the given roots
func NewSink(inputRoot, outputRoot string) *Sink {
	return &Sink{
		InputRoot:  filepath.Clean(inputRoot),
		OutputRoot: filepath.Clean(outputRoot),
	}
}

// Target returns the output path for input, preserving its path relative to the input root
func (s *Sink) Target(input string) (string, error) {
	rel, err := filepath.Rel(s.InputRoot, input)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", input, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not inside input root %s", input, s.InputRoot)
	}
	return filepath.Join(s.OutputRoot, rel), nil
}

// EnsureParent creates the parent directory of target.
// Concurrent calls for the same directory share a single MkdirAll.
func (s *Sink) EnsureParent(target string) error {
	dir := filepath.Dir(target)

	_, err, _ := s.dirs.Do(dir, func() (interface{}, error) {
		return nil, os.MkdirAll(dir, 0o755)
	})
	if err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return nil
}
