package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileSource reads the catalog from local metadata files. It sits last
// in every source chain: the bundled files are the floor the service can
// always fall back to when remote stores are unreachable.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Name() string {
	return "files"
}

type conceptsFile struct {
	Concepts []Concept `json:"concepts"`
}

type intentsFile struct {
	Intents []Intent `json:"intents"`
}

type bindingsFile struct {
	Bindings []Binding `json:"bindings"`
}

type tablesFile struct {
	Tables []TableSchema `yaml:"tables"`
}

func (s *FileSource) Concepts(_ context.Context, _ string) ([]Concept, error) {
	var file conceptsFile
	if err := s.readJSON("concepts.json", &file); err != nil {
		return nil, err
	}
	return file.Concepts, nil
}

func (s *FileSource) Intents(_ context.Context, _ string) ([]Intent, error) {
	var file intentsFile
	if err := s.readJSON("intents.json", &file); err != nil {
		return nil, err
	}
	return file.Intents, nil
}

func (s *FileSource) Bindings(_ context.Context, _ string) ([]Binding, error) {
	var file bindingsFile
	if err := s.readJSON("bindings.json", &file); err != nil {
		return nil, err
	}
	return file.Bindings, nil
}

func (s *FileSource) Tables(_ context.Context) ([]TableSchema, error) {
	path := filepath.Join(s.dir, "table_schema.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file tablesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Tables, nil
}

// readJSON decodes one metadata file. A missing file means the section
// is simply absent locally, not an error; malformed content is an error.
func (s *FileSource) readJSON(name string, out any) error {
	path := filepath.Join(s.dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
