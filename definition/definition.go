// Package definition asks the generation service for a container build definition
// and writes it into the project directory.
package definition

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/oar-cd/skiff/domain"
	"github.com/oar-cd/skiff/llm"
)

//go:embed prompt.tmpl
var promptSource string

var promptTemplate = template.Must(template.New("prompt").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(promptSource))

// nativePackages need a compiler toolchain in slim images
var nativePackages = []string{"numpy", "pandas", "scipy", "psycopg2", "lxml"}

type promptData struct {
	Context        string
	NativePackages []string
	Port           int
	Entrypoint     string
}

// BuildPrompt fills the instruction template with the rendered context bundle
func BuildPrompt(bundle domain.ContextBundle) (string, error) {
	rendered := bundle.Render()

	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, promptData{
		Context:        strings.TrimSpace(rendered),
		NativePackages: detectNativePackages(rendered),
		Port:           domain.InternalPort,
		Entrypoint:     domain.EntrypointFile,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

func detectNativePackages(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, pkg := range nativePackages {
		if strings.Contains(lower, pkg) {
			found = append(found, pkg)
		}
	}
	return found
}

// fenceLine matches a markdown code fence line, optionally tagged with a language
var fenceLine = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_+-]*[ \t]*$\n?")

// StripFences removes code fence markers, trims surrounding whitespace and ends the text with a newline
func StripFences(text string) string {
	text = fenceLine.ReplaceAllString(text, "")
	// Inline fences the line pattern cannot see
	text = strings.ReplaceAll(text, "```dockerfile", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return text + "\n"
}

// Writer produces build definitions through a Generator
type Writer struct {
	generator llm.Generator
}

func NewWriter(generator llm.Generator) *Writer {
	return &Writer{generator: generator}
}

// Write generates the build definition for the project in dir and writes it to
// <dir>/Dockerfile. The generator is called exactly once. On generator failure
// nothing is written. The output is not validated.
func (w *Writer) Write(ctx context.Context, dir string, bundle domain.ContextBundle) (string, error) {
	prompt, err := BuildPrompt(bundle)
	if err != nil {
		return "", err
	}

	slog.Debug("Requesting build definition",
		"layer", "definition",
		"operation", "write",
		"dir", dir,
		"files", bundle.Filenames())

	raw, err := w.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationService, err)
	}

	content := StripFences(raw)
	if content == "" {
		slog.Warn("Generation service returned an empty build definition",
			"layer", "definition",
			"operation", "write",
			"dir", dir)
	}

	path := filepath.Join(dir, domain.BuildDefinitionFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write build definition %s: %w", path, err)
	}

	slog.Info("Build definition written",
		"layer", "definition",
		"operation", "write",
		"path", path)

	return path, nil
}
