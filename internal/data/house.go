package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HouseEntry is one record of houses.yaml. Attributes left out of the file
// stay nil so the house keeps whatever it already has.
type HouseEntry struct {
	HouseID *uint32 `yaml:"house_id"`
	Name    *string `yaml:"name"`
	EntryX  *uint16 `yaml:"entry_x"`
	EntryY  *uint16 `yaml:"entry_y"`
	EntryZ  *uint8  `yaml:"entry_z"`
	Rent    *uint32 `yaml:"rent"`
	TownID  *uint32 `yaml:"town_id"`
}

// LoadHouseConfig loads the house attribute overlay. A record without a
// house id is an error; everything else is optional.
func LoadHouseConfig(path string) ([]HouseEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read house config: %w", err)
	}
	var entries []HouseEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse house config: %w", err)
	}
	for i := range entries {
		if entries[i].HouseID == nil {
			return nil, fmt.Errorf("house config entry %d: missing house_id", i)
		}
	}
	return entries, nil
}

// HouseDoorSpawn places one door item belonging to a house.
type HouseDoorSpawn struct {
	DoorID uint8    `yaml:"door_id"`
	ItemID uint16   `yaml:"item_id"`
	Pos    Position `yaml:"pos"`
}

// HouseMapEntry lists the tiles and doors making up one house on the map.
type HouseMapEntry struct {
	HouseID uint32           `yaml:"house_id"`
	Tiles   []Position       `yaml:"tiles"`
	Doors   []HouseDoorSpawn `yaml:"doors"`
}

// LoadHouseMap loads house_map.yaml.
func LoadHouseMap(path string) ([]HouseMapEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read house map: %w", err)
	}
	var entries []HouseMapEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse house map: %w", err)
	}
	for i := range entries {
		if entries[i].HouseID == 0 {
			return nil, fmt.Errorf("house map entry %d: missing house_id", i)
		}
	}
	return entries, nil
}
