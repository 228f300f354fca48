package archive

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"ds-job-scraper/internal/models"
)

// Load reads the archive at path. A missing file is an empty archive.
func Load(path string) ([]models.JobRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("ℹ️ No archive at %s yet, starting empty", path)
			return nil, nil
		}
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	records, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode archive %s: %w", path, err)
	}
	return records, nil
}

// Exists reports whether an archive file is present at path
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Save replaces the archive at path atomically: the CSV is written to a temp
// file in the same directory, synced, then renamed over the old one.
func Save(path string, records []models.JobRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := Encode(tmp, records); err != nil {
		return fmt.Errorf("write temp archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp archive: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod temp archive: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace archive: %w", err)
	}
	committed = true

	log.Printf("💾 Saved %d records to %s", len(records), path)
	return nil
}

// Bytes renders records as archive CSV, for uploads
func Bytes(records []models.JobRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
