package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Partial-download artifacts the discovery scan must skip
var skippedExtensions = []string{".part", ".ytdl", ".temp"}

// newestByExtension returns the most recently modified file in dir with the
// given extension (without dot). Used only when the worker's own output path
// could not be parsed from its text stream.
func newestByExtension(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	want := "." + strings.ToLower(strings.TrimPrefix(ext, "."))
	var newest string
	var newestMod int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if skipFile(name) {
			continue
		}
		if strings.ToLower(filepath.Ext(name)) != want {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = filepath.Join(dir, name)
			newestMod = mod
		}
	}

	if newest == "" {
		return "", fmt.Errorf("no %s file found in %s", want, dir)
	}
	return newest, nil
}

func skipFile(name string) bool {
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
