package coverage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Load reads a matrix saved by Save. A missing file is an empty matrix.
func Load(path string) (Matrix, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Matrix{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read matrix: %w", err)
	}
	var m Matrix
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode matrix %s: %w", path, err)
	}
	if m == nil {
		m = Matrix{}
	}
	return m, nil
}

// Save replaces the file at path atomically.
func Save(path string, m Matrix) error {
	if m == nil {
		m = Matrix{}
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create matrix dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".matrix-*.json")
	if err != nil {
		return fmt.Errorf("create temp matrix: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write matrix: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close matrix: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace matrix: %w", err)
	}
	return nil
}
