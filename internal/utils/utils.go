// Package utils holds small formatting and file helpers shared by the CLI.
package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"
)

// FormatSize formats bytes to human readable string
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatTimeDuration formats a duration as "1h 2m 3s", dropping leading
// zero units.
func FormatTimeDuration(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// TruncateString shortens s to at most maxLen runes, marking the cut with
// an ellipsis.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// UniqueFilename returns filename, or the first of "name (1).ext",
// "name (2).ext", ... that does not exist yet.
func UniqueFilename(filename string) (string, error) {
	free := func(name string) (bool, error) {
		_, err := os.Stat(name)
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}

	ok, err := free(filename)
	if err != nil || ok {
		return filename, err
	}

	ext := filepath.Ext(filename)
	base := filename[:len(filename)-len(ext)]
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, counter, ext)
		ok, err := free(candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
}

// WriteFile writes data to a fresh file next to name without replacing
// anything, and returns the path used.
func WriteFile(name string, data []byte) (string, error) {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	path, err := UniqueFilename(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
