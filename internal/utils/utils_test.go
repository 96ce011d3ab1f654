package utils

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatTimeDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + time.Second, "2h 0m 1s"},
	}
	for _, tt := range tests {
		if got := FormatTimeDuration(tt.in); got != tt.want {
			t.Errorf("FormatTimeDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"a longer line", 8, "a lon..."},
		{"héllo wörld", 6, "hél..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestWriteFileNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "main.py")

	want := []string{name, filepath.Join(dir, "main (1).py"), filepath.Join(dir, "main (2).py")}
	for i, w := range want {
		got, err := WriteFile(name, []byte{byte('a' + i)})
		if err != nil {
			t.Fatal(err)
		}
		if got != w {
			t.Errorf("write %d went to %q, want %q", i, got, w)
		}
	}

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a" {
		t.Errorf("original replaced: %q", data)
	}
}

func TestWriteArchive(t *testing.T) {
	target := filepath.Join(t.TempDir(), "session.zip")
	entries := []ArchiveEntry{
		{Name: "document.txt", Data: []byte("print(1)")},
		{Name: "chat.txt", Data: []byte("bob: hi\n")},
	}

	path, err := WriteArchive(target, entries)
	if err != nil {
		t.Fatal(err)
	}
	if path != target {
		t.Errorf("path = %q", path)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if len(r.File) != len(entries) {
		t.Fatalf("got %d files", len(r.File))
	}
	for i, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if f.Name != entries[i].Name || string(data) != string(entries[i].Data) {
			t.Errorf("file %d = %s %q", i, f.Name, data)
		}
	}
}
