package catalog

import (
	"fmt"
	"sort"
	"strings"

	"dataagentjp.io/querycore/internal/domain"
)

// Store is an immutable snapshot of the loaded catalog. Readers hold a
// *Store obtained from a Holder and never see partial updates.
type Store struct {
	concepts map[string]Concept
	intents  map[string]Intent
	bindings map[BindingKey]Binding
	tables   map[string]TableSchema

	conceptList []Concept
	intentList  []Intent
	bindingList []Binding
	tableList   []TableSchema
}

// Counts summarizes a store for health reporting.
type Counts struct {
	Concepts int `json:"concepts"`
	Intents  int `json:"intents"`
	Bindings int `json:"bindings"`
	Tables   int `json:"tables"`
}

// NewStore builds an immutable snapshot. Inputs must already be
// normalized; duplicate concept, intent or binding keys are load errors.
func NewStore(concepts []Concept, intents []Intent, bindings []Binding, tables []TableSchema) (*Store, error) {
	s := &Store{
		concepts: make(map[string]Concept, len(concepts)),
		intents:  make(map[string]Intent, len(intents)),
		bindings: make(map[BindingKey]Binding, len(bindings)),
		tables:   make(map[string]TableSchema, len(tables)),
	}

	for _, c := range concepts {
		if _, exists := s.concepts[c.Name]; exists {
			return nil, fmt.Errorf("duplicate concept %q", c.Name)
		}
		s.concepts[c.Name] = c
	}

	for _, i := range intents {
		if _, exists := s.intents[i.Name]; exists {
			return nil, fmt.Errorf("duplicate intent %q", i.Name)
		}
		s.intents[i.Name] = i
	}

	for _, b := range bindings {
		key := BindingKey{Concept: b.Concept, Dialect: b.Dialect}
		if _, exists := s.bindings[key]; exists {
			return nil, fmt.Errorf("duplicate binding for concept %q dialect %s", b.Concept, b.Dialect)
		}
		s.bindings[key] = b
	}

	for _, t := range tables {
		s.tables[t.Name] = t
	}

	s.conceptList = make([]Concept, 0, len(s.concepts))
	for _, c := range s.concepts {
		s.conceptList = append(s.conceptList, c)
	}
	sort.Slice(s.conceptList, func(i, j int) bool { return s.conceptList[i].Name < s.conceptList[j].Name })

	s.intentList = make([]Intent, 0, len(s.intents))
	for _, i := range s.intents {
		s.intentList = append(s.intentList, i)
	}
	sort.Slice(s.intentList, func(i, j int) bool { return s.intentList[i].Name < s.intentList[j].Name })

	s.bindingList = make([]Binding, 0, len(s.bindings))
	for _, b := range s.bindings {
		s.bindingList = append(s.bindingList, b)
	}
	sort.Slice(s.bindingList, func(i, j int) bool {
		if s.bindingList[i].Concept != s.bindingList[j].Concept {
			return s.bindingList[i].Concept < s.bindingList[j].Concept
		}
		return s.bindingList[i].Dialect < s.bindingList[j].Dialect
	})

	s.tableList = make([]TableSchema, 0, len(s.tables))
	for _, t := range s.tables {
		s.tableList = append(s.tableList, t)
	}
	sort.Slice(s.tableList, func(i, j int) bool { return s.tableList[i].Name < s.tableList[j].Name })

	return s, nil
}

func (s *Store) Concept(name string) (Concept, bool) {
	c, ok := s.concepts[name]
	return c, ok
}

func (s *Store) Intent(name string) (Intent, bool) {
	i, ok := s.intents[name]
	return i, ok
}

func (s *Store) Binding(concept string, dialect domain.Dialect) (Binding, bool) {
	b, ok := s.bindings[BindingKey{Concept: concept, Dialect: dialect}]
	return b, ok
}

func (s *Store) Table(name string) (TableSchema, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Concepts returns all concepts sorted by name.
func (s *Store) Concepts() []Concept {
	return s.conceptList
}

// Intents returns all intents sorted by name. Prompt construction
// depends on this order being stable across calls.
func (s *Store) Intents() []Intent {
	return s.intentList
}

// Bindings returns all bindings sorted by concept then dialect.
func (s *Store) Bindings() []Binding {
	return s.bindingList
}

// Tables returns all table schemas sorted by name.
func (s *Store) Tables() []TableSchema {
	return s.tableList
}

func (s *Store) Counts() Counts {
	return Counts{
		Concepts: len(s.concepts),
		Intents:  len(s.intents),
		Bindings: len(s.bindings),
		Tables:   len(s.tables),
	}
}

// CrossCheck verifies that every concept referenced by any intent has a
// binding for the active dialect. A store that fails this check would
// produce BINDER_ERROR on every query touching the gap, so loading
// refuses it up front. The error names every unbound concept.
func (s *Store) CrossCheck(dialect domain.Dialect) error {
	missing := make(map[string]struct{})
	for _, intent := range s.intentList {
		for _, name := range intent.ReferencedConcepts() {
			if _, ok := s.bindings[BindingKey{Concept: name, Dialect: dialect}]; !ok {
				missing[name] = struct{}{}
			}
		}
	}

	if len(missing) == 0 {
		return nil
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)

	return fmt.Errorf("concepts referenced by intents have no %s binding: %s",
		dialect, strings.Join(names, ", "))
}
