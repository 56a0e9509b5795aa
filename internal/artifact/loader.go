package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

type Loader interface {
	Load(ctx context.Context, location string) (*Run, error)
}

// DirLoader reads a run from a directory on disk. It keeps no state between
// calls.
type DirLoader struct{}

func NewDirLoader() *DirLoader { return &DirLoader{} }

func (DirLoader) Load(ctx context.Context, location string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := ReadDocuments(location)
	if err != nil {
		return nil, err
	}
	return DecodeRun(location, docs)
}

// ReadDocuments reads the raw files of the run directory at dir. Optional
// files that do not exist are left nil; presence rules are enforced by
// DecodeRun.
func ReadDocuments(dir string) (Documents, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Documents{}, missing(dir, ".", err)
	}
	if !info.IsDir() {
		return Documents{}, missing(dir, ".", fmt.Errorf("%s is not a directory", dir))
	}

	var docs Documents
	targets := []struct {
		name string
		dst  *[]byte
	}{
		{ResultsFile, &docs.Results},
		{TraceFile, &docs.Trace},
		{MetaFile, &docs.Meta},
		{ConfigFile, &docs.Config},
		{ManifestFile, &docs.Manifest},
	}
	for _, t := range targets {
		b, err := readFile(filepath.Join(dir, t.name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Documents{}, missing(dir, t.name, err)
		}
		*t.dst = b
	}
	return docs, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}
