// Package scanner collects short excerpts of well-known project files.
package scanner

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/oar-cd/skiff/domain"
)

// MaxExcerptLines caps how much of each recognized file is captured
const MaxExcerptLines = 50

// RecognizedFiles are the file names whose contents describe how a project runs
var RecognizedFiles = []string{"requirements.txt", "package.json", "app.py", "main.py"}

// DefaultSkipDirs hold version control metadata, vendored dependencies and virtual
// environments, whose recognized files belong to other projects
var DefaultSkipDirs = []string{".git", "node_modules", "__pycache__", ".venv", "venv"}

// Scanner collects recognized files below a project root
type Scanner struct {
	// SkipDirs are directory names never descended into; empty visits every directory
	SkipDirs []string
}

// New returns a Scanner skipping the named directories
func New(skipDirs []string) *Scanner {
	return &Scanner{SkipDirs: skipDirs}
}

// Scan walks root with DefaultSkipDirs
func Scan(root string) (domain.ContextBundle, error) {
	return New(DefaultSkipDirs).Scan(root)
}

// Scan walks root recursively and returns an excerpt of every recognized file, in walk
// order. Files that cannot be read are logged and skipped. An empty bundle is not an error.
func (s *Scanner) Scan(root string) (domain.ContextBundle, error) {
	var bundle domain.ContextBundle

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("Skipping unreadable path",
				"layer", "scanner",
				"operation", "scan",
				"path", path,
				"error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && slices.Contains(s.SkipDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !slices.Contains(RecognizedFiles, d.Name()) {
			return nil
		}

		excerpt, lines, readErr := readExcerpt(path, MaxExcerptLines)
		if readErr != nil {
			slog.Warn("Skipping unreadable project file",
				"layer", "scanner",
				"operation", "scan",
				"path", path,
				"error", readErr)
			return nil
		}

		bundle.Entries = append(bundle.Entries, domain.ContextEntry{
			Path:     path,
			Filename: d.Name(),
			Excerpt:  excerpt,
			Lines:    lines,
		})
		return nil
	})
	if err != nil {
		return domain.ContextBundle{}, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	slog.Debug("Project context scanned",
		"layer", "scanner",
		"operation", "scan",
		"root", root,
		"files", bundle.Filenames())

	return bundle, nil
}

// readExcerpt returns up to maxLines lines of the file, line terminators included.
// Bytes that are not valid UTF-8 are decoded as ISO-8859-1.
func readExcerpt(path string, maxLines int) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var buf bytes.Buffer
	reader := bufio.NewReader(f)
	lines := 0
	for lines < maxLines {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			buf.Write(line)
			lines++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", 0, err
		}
	}

	raw := buf.Bytes()
	if utf8.Valid(raw) {
		return string(raw), lines, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return string(decoded), lines, nil
}
