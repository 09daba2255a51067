package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandAttachments(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pkg")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.go", "package a")
	write("b.txt", "notes")
	write(filepath.Join("pkg", "c.go"), "package c")

	out, err := expandAttachments([]string{filepath.Join(dir, "**", "*.go")})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("matches = %d: %+v", len(out), out)
	}
	names := map[string]bool{}
	for _, a := range out {
		names[a.Name] = true
		if a.Kind != "file" || a.Size == 0 || !filepath.IsAbs(a.FilePath) {
			t.Fatalf("attachment = %+v", a)
		}
	}
	if !names["a.go"] || !names["c.go"] {
		t.Fatalf("names = %v", names)
	}
}

func TestExpandAttachments_NoMatch(t *testing.T) {
	dir := t.TempDir()
	if _, err := expandAttachments([]string{filepath.Join(dir, "*.zig")}); err == nil {
		t.Fatal("empty match should be an error, not a silent no-op")
	}
}

func TestExpandAttachments_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "f.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := expandAttachments([]string{filepath.Join(dir, "*")})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Name != "f.md" {
		t.Fatalf("out = %+v", out)
	}
}
