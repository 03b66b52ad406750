package domain

import (
	"fmt"
	"strings"
)

// ContextEntry is a bounded excerpt of one recognized project file
type ContextEntry struct {
	Path     string // absolute path of the source file
	Filename string
	Excerpt  string
	Lines    int
}

// ContextBundle is the ordered set of excerpts collected by a scan.
// It is built once per run and not modified afterwards.
type ContextBundle struct {
	Entries []ContextEntry
}

func (b ContextBundle) IsEmpty() bool {
	return len(b.Entries) == 0
}

// Filenames returns the file names in scan order
func (b ContextBundle) Filenames() []string {
	names := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		names[i] = e.Filename
	}
	return names
}

// Render concatenates the excerpts, each labelled with its file name
func (b ContextBundle) Render() string {
	var sb strings.Builder
	for _, e := range b.Entries {
		fmt.Fprintf(&sb, "\n--- FILE: %s ---\n%s\n", e.Filename, e.Excerpt)
	}
	return sb.String()
}
