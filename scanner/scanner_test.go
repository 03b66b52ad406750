package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func numberedLines(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	return sb.String()
}

func TestScan_RecognizedFilesOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "requirements.txt"), []byte("flask\nrequests\n"))
	writeFile(t, filepath.Join(root, "app.py"), []byte("from flask import Flask\napp = Flask(__name__)\n"))
	writeFile(t, filepath.Join(root, "README.md"), []byte("# readme\n"))
	writeFile(t, filepath.Join(root, "src", "main.py"), []byte("print('hi')\n"))

	bundle, err := Scan(root)
	require.NoError(t, err)

	// WalkDir visits entries in lexical order
	assert.Equal(t, []string{"app.py", "requirements.txt", "main.py"}, bundle.Filenames())
	assert.Equal(t, "flask\nrequests\n", bundle.Entries[1].Excerpt)
	assert.Equal(t, 2, bundle.Entries[1].Lines)
	assert.Equal(t, filepath.Join(root, "src", "main.py"), bundle.Entries[2].Path)
}

func TestScan_TruncatesToFiftyLines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.py"), []byte(numberedLines(120)))

	bundle, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, bundle.Entries, 1)

	entry := bundle.Entries[0]
	assert.Equal(t, MaxExcerptLines, entry.Lines)
	assert.Equal(t, numberedLines(MaxExcerptLines), entry.Excerpt)
	assert.NotContains(t, entry.Excerpt, "line 51")
}

func TestScan_ShortFileKeptWhole(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), []byte("{\n  \"name\": \"demo\"\n}"))

	bundle, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, bundle.Entries, 1)
	assert.Equal(t, 3, bundle.Entries[0].Lines)
	assert.Equal(t, "{\n  \"name\": \"demo\"\n}", bundle.Entries[0].Excerpt)
}

func TestScan_Latin1Fallback(t *testing.T) {
	root := t.TempDir()
	// "café" in ISO-8859-1
	writeFile(t, filepath.Join(root, "app.py"), []byte{'#', ' ', 'c', 'a', 'f', 0xe9, '\n'})

	bundle, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, bundle.Entries, 1)
	assert.Equal(t, "# café\n", bundle.Entries[0].Excerpt)
}

func TestScan_SkipsVendoredDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules", "left-pad", "package.json"), []byte("{}\n"))
	writeFile(t, filepath.Join(root, ".venv", "lib", "app.py"), []byte("x = 1\n"))
	writeFile(t, filepath.Join(root, "package.json"), []byte("{}\n"))

	bundle, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, bundle.Entries, 1)
	assert.Equal(t, filepath.Join(root, "package.json"), bundle.Entries[0].Path)
}

func TestScanner_EmptySkipDirsVisitsEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules", "left-pad", "package.json"), []byte("{}\n"))
	writeFile(t, filepath.Join(root, ".venv", "lib", "app.py"), []byte("x = 1\n"))
	writeFile(t, filepath.Join(root, "package.json"), []byte("{}\n"))

	bundle, err := New(nil).Scan(root)
	require.NoError(t, err)

	var paths []string
	for _, entry := range bundle.Entries {
		paths = append(paths, entry.Path)
	}
	assert.Equal(t, []string{
		filepath.Join(root, ".venv", "lib", "app.py"),
		filepath.Join(root, "node_modules", "left-pad", "package.json"),
		filepath.Join(root, "package.json"),
	}, paths)
}

func TestScanner_CustomSkipDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "examples", "main.py"), []byte("print(1)\n"))
	writeFile(t, filepath.Join(root, "node_modules", "left-pad", "package.json"), []byte("{}\n"))

	bundle, err := New([]string{"examples"}).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"package.json"}, bundle.Filenames())
}

func TestScan_UnreadableFileSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "requirements.txt"), []byte("flask\n"))
	// A dangling link fails to open regardless of the caller's privileges
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.py"), filepath.Join(root, "app.py")))

	bundle, err := Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"requirements.txt"}, bundle.Filenames())
}

func TestScan_NoRecognizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), []byte("<html></html>\n"))

	bundle, err := Scan(root)
	require.NoError(t, err)
	assert.True(t, bundle.IsEmpty())
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
