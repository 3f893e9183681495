// Package masterdata holds the reference entities (items, warehouses,
// workstations) used to validate user-supplied codes before any SQL is
// built. Lookups and suggestions are strictly in-memory; the
// pre-validator must never wait on a network round-trip.
package masterdata

import (
	"sort"
	"strings"
)

// Kind names one reference entity set.
type Kind string

const (
	KindItem        Kind = "item"
	KindWarehouse   Kind = "warehouse"
	KindWorkstation Kind = "workstation"
)

// Kinds lists every reference set in load order.
var Kinds = []Kind{KindItem, KindWarehouse, KindWorkstation}

// Entry is one reference record. Only Code participates in validation;
// Name is carried for operator tooling.
type Entry struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// Store is an immutable snapshot of the loaded reference data.
type Store struct {
	byCode  map[Kind]map[string]struct{}
	ordered map[Kind][]Entry
}

// NewStore builds a snapshot. Entries are deduplicated by code and kept
// sorted so suggestion order is stable across loads.
func NewStore(data map[Kind][]Entry) *Store {
	s := &Store{
		byCode:  make(map[Kind]map[string]struct{}, len(Kinds)),
		ordered: make(map[Kind][]Entry, len(Kinds)),
	}

	for _, kind := range Kinds {
		codes := make(map[string]struct{}, len(data[kind]))
		entries := make([]Entry, 0, len(data[kind]))
		for _, entry := range data[kind] {
			if entry.Code == "" {
				continue
			}
			if _, exists := codes[entry.Code]; exists {
				continue
			}
			codes[entry.Code] = struct{}{}
			entries = append(entries, entry)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })
		s.byCode[kind] = codes
		s.ordered[kind] = entries
	}

	return s
}

// Exists reports whether a code is present in the reference set. An
// empty set cannot validate anything, so it accepts every code rather
// than reject all queries when reference data is unavailable.
func (s *Store) Exists(kind Kind, code string) bool {
	set := s.byCode[kind]
	if len(set) == 0 {
		return true
	}
	_, ok := set[code]
	return ok
}

// Validatable reports whether the kind has reference data loaded.
func (s *Store) Validatable(kind Kind) bool {
	return len(s.byCode[kind]) > 0
}

// Suggest returns up to limit codes that fuzzily match the input: the
// lowercase candidate contains the lowercase input or vice versa.
// Results follow the store's sorted order.
func (s *Store) Suggest(kind Kind, input string, limit int) []string {
	if limit <= 0 || input == "" {
		return nil
	}

	needle := strings.ToLower(input)
	var matches []string
	for _, entry := range s.ordered[kind] {
		candidate := strings.ToLower(entry.Code)
		if !strings.Contains(candidate, needle) && !strings.Contains(needle, candidate) {
			continue
		}
		matches = append(matches, entry.Code)
		if len(matches) == limit {
			break
		}
	}
	return matches
}

// Entries returns the sorted records for one kind.
func (s *Store) Entries(kind Kind) []Entry {
	return s.ordered[kind]
}

// Counts summarizes the snapshot for health reporting.
type Counts struct {
	Items        int `json:"items"`
	Warehouses   int `json:"warehouses"`
	Workstations int `json:"workstations"`
}

func (s *Store) Counts() Counts {
	return Counts{
		Items:        len(s.ordered[KindItem]),
		Warehouses:   len(s.ordered[KindWarehouse]),
		Workstations: len(s.ordered[KindWorkstation]),
	}
}
