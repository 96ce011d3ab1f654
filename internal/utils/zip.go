package utils

import (
	"archive/zip"
	"os"
	"time"
)

// ArchiveEntry is one file in an archive.
type ArchiveEntry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// WriteArchive zips entries into a fresh file next to target and returns
// the path used. Existing files are never replaced.
func WriteArchive(target string, entries []ArchiveEntry) (path string, err error) {
	path, err = UniqueFilename(target)
	if err != nil {
		return "", err
	}

	zipFile, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := zipFile.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	archive := zip.NewWriter(zipFile)
	for _, e := range entries {
		header := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: e.Modified,
		}
		w, err := archive.CreateHeader(header)
		if err != nil {
			return "", err
		}
		if _, err := w.Write(e.Data); err != nil {
			return "", err
		}
	}
	if err := archive.Close(); err != nil {
		return "", err
	}
	return path, nil
}
