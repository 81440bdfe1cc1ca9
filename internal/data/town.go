package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Town is a named settlement. Depots and house rent are scoped per town.
type Town struct {
	ID     uint32   `yaml:"id"`
	Name   string   `yaml:"name"`
	Temple Position `yaml:"temple"`
}

// TownTable provides lookup of towns by id.
type TownTable struct {
	towns map[uint32]*Town
}

// NewTownTable builds a table from already-constructed towns.
func NewTownTable(towns ...*Town) *TownTable {
	t := &TownTable{towns: make(map[uint32]*Town, len(towns))}
	for _, tw := range towns {
		t.towns[tw.ID] = tw
	}
	return t
}

// LoadTownTable loads towns.yaml.
func LoadTownTable(path string) (*TownTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read town list: %w", err)
	}
	var entries []Town
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse town list: %w", err)
	}
	t := &TownTable{towns: make(map[uint32]*Town, len(entries))}
	for i := range entries {
		e := &entries[i]
		t.towns[e.ID] = e
	}
	return t, nil
}

// Get returns the town with the given id, or nil.
func (t *TownTable) Get(id uint32) *Town {
	return t.towns[id]
}

// Each calls fn for every town in id order.
func (t *TownTable) Each(fn func(*Town)) {
	ids := make([]uint32, 0, len(t.towns))
	for id := range t.towns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(t.towns[id])
	}
}

// Count returns the number of towns loaded.
func (t *TownTable) Count() int {
	return len(t.towns)
}
