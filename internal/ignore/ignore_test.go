package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestFilterCombinesVCSAndProjectPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "node_modules/\n*.log\n")
	writeFile(t, filepath.Join(root, ".gopherctlignore"), "dist/\n!dist/keep.txt\n")

	writeFile(t, filepath.Join(root, "node_modules", "x.js"), "x")
	writeFile(t, filepath.Join(root, "app.log"), "x")
	writeFile(t, filepath.Join(root, "dist", "bundle.js"), "x")
	writeFile(t, filepath.Join(root, "dist", "keep.txt"), "x")
	writeFile(t, filepath.Join(root, "main.go"), "x")

	f, err := NewFilter(root, filepath.Join(root, ".gitignore"), filepath.Join(root, ".gopherctlignore"))
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "node_modules", "x.js"), true},
		{filepath.Join(root, "app.log"), true},
		{filepath.Join(root, "dist", "bundle.js"), true},
		{filepath.Join(root, "dist", "keep.txt"), false},
		{filepath.Join(root, "main.go"), false},
	}

	for _, c := range cases {
		if got := f.IsIgnored(c.path); got != c.want {
			t.Errorf("IsIgnored(%s) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestFilterAlwaysIgnoresGitDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main")

	f, err := NewFilter(root, "", "")
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	if !f.IsIgnored(filepath.Join(root, ".git", "HEAD")) {
		t.Errorf("expected .git contents to be ignored")
	}
}

func TestFilterMissingFilesAreNotErrors(t *testing.T) {
	root := t.TempDir()
	if _, err := NewFilter(root, filepath.Join(root, ".gitignore"), filepath.Join(root, ".gopherctlignore")); err != nil {
		t.Fatalf("NewFilter with missing ignore files: %v", err)
	}
}
