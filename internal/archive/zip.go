// Package archive packages pipeline artifacts into zip files and unpacks
// them again. Entries are stored flattened (no directory components), the
// layout consumer genotyping services ship.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Create writes a zip at zipPath containing the given files, each stored
// under its base name. A partial archive is removed on failure.
func Create(zipPath string, files ...string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addFile(zw, file); err != nil {
			zw.Close()
			out.Close()
			os.Remove(zipPath)
			return err
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(zipPath)
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(zipPath)
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	return nil
}

// Extract unpacks every entry of zipPath into destDir, flattening any
// directory components in entry names.
func Extract(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(entry, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destDir string) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	defer rc.Close()

	dest := filepath.Join(destDir, filepath.Base(entry.Name))
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return out.Close()
}
