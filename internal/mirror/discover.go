// Package mirror implements the file-level collaborators of a run: finding
// input files, deriving their mirrored output paths, and transforming them line
// by line.
package mirror

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aryankumar/linemill/internal/util"
)

// DefaultExtension is the file extension selected when none is configured
const DefaultExtension = ".txt"

// Matcher reports whether a walked entry is an input file
type Matcher func(path string, d fs.DirEntry) bool

// ExtensionMatcher matches regular files whose name ends with ext, ignoring case.
// Symbolic links are followed when deciding whether an entry is a regular file.
func ExtensionMatcher(ext string) Matcher {
	if ext == "" {
		ext = DefaultExtension
	}
	suffix := strings.ToLower(ext)

	return func(path string, d fs.DirEntry) bool {
		if !strings.HasSuffix(strings.ToLower(d.Name()), suffix) {
			return false
		}
		if d.Type().IsRegular() {
			return true
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return false
		}
		info, err := os.Stat(path)
		return err == nil && info.Mode().IsRegular()
	}
}

// Discover walks root and returns the matching files in lexical order.
// Any walk error aborts discovery and is wrapped with util.ErrDiscovery.
func Discover(ctx context.Context, root string, match Matcher) ([]string, error) {
	if match == nil {
		match = ExtensionMatcher(DefaultExtension)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if match(path, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", util.ErrDiscovery, root, err)
	}

	return files, nil
}
