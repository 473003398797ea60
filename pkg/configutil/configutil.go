package configutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Layers returns the files that make up the config at path, from lowest to
// highest priority. "config.json5" is layered as "config.json5" and then
// "config.local.json5".
func Layers(path string) []string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return []string{path, stem + ".local" + ext}
}

// decodeLayer reports false when the file does not exist or is empty.
func decodeLayer[T any](path string) (T, bool, error) {
	var out T
	contents, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || len(contents) == 0 {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return out, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, true, nil
}

// ReadConfig decodes every layer of path that exists and merges them, later
// layers overriding the non-zero fields of earlier ones. os.ErrNotExist is
// returned when no layer exists.
func ReadConfig[T any](path string) (T, error) {
	var out T
	found := 0
	for _, layer := range Layers(path) {
		value, ok, err := decodeLayer[T](layer)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if found > 0 {
			slog.Info("merging config override", "file", layer)
		}
		err = mergo.Merge(&out, value, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", layer, err)
		}
		found++
	}
	if found == 0 {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Find walks up from the working directory and returns the first path
// called name that has at least one layer on disk.
func Find(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		for _, layer := range Layers(candidate) {
			if _, err := os.Stat(layer); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// ReadRecursively reads the config found by Find.
func ReadRecursively[T any](name string) (T, error) {
	path, err := Find(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return ReadConfig[T](path)
}
