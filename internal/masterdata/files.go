package masterdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSource reads reference data from `<dir>/master_data/*.json`.
// It is the terminal fallback when no Postgres source is configured.
type FileSource struct {
	dir string
}

func NewFileSource(metadataPath string) *FileSource {
	return &FileSource{dir: filepath.Join(metadataPath, "master_data")}
}

func (s *FileSource) Name() string {
	return "files"
}

var kindFiles = map[Kind]struct {
	file string
	key  string
}{
	KindItem:        {file: "items.json", key: "items"},
	KindWarehouse:   {file: "warehouses.json", key: "warehouses"},
	KindWorkstation: {file: "workstations.json", key: "workstations"},
}

func (s *FileSource) Load(_ context.Context) (map[Kind][]Entry, error) {
	result := make(map[Kind][]Entry, len(Kinds))

	for _, kind := range Kinds {
		spec := kindFiles[kind]
		path := filepath.Join(s.dir, spec.file)

		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var file map[string][]Entry
		if err := json.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		result[kind] = file[spec.key]
	}

	return result, nil
}
