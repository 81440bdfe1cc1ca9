package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// maxAreaTiles bounds one area so a typo in a corner cannot allocate
// millions of tiles.
const maxAreaTiles = 1 << 20

// MapArea is a rectangular block of walkable ground, inclusive on both
// corners, on one or more floors.
type MapArea struct {
	Name           string   `yaml:"name"`
	From           Position `yaml:"from"`
	To             Position `yaml:"to"`
	ProtectionZone bool     `yaml:"protection_zone"`
	NoLogout       bool     `yaml:"no_logout"`
}

// Contains reports whether p lies inside the area.
func (a MapArea) Contains(p Position) bool {
	return p.X >= a.From.X && p.X <= a.To.X &&
		p.Y >= a.From.Y && p.Y <= a.To.Y &&
		p.Z >= a.From.Z && p.Z <= a.To.Z
}

// Size returns the number of tiles in the area.
func (a MapArea) Size() int {
	return (int(a.To.X) - int(a.From.X) + 1) *
		(int(a.To.Y) - int(a.From.Y) + 1) *
		(int(a.To.Z) - int(a.From.Z) + 1)
}

// Each calls fn for every position in the area, floor by floor.
func (a MapArea) Each(fn func(Position)) {
	for z := int(a.From.Z); z <= int(a.To.Z); z++ {
		for y := int(a.From.Y); y <= int(a.To.Y); y++ {
			for x := int(a.From.X); x <= int(a.To.X); x++ {
				fn(Position{X: uint16(x), Y: uint16(y), Z: uint8(z)})
			}
		}
	}
}

type mapFile struct {
	Areas []MapArea `yaml:"areas"`
}

// LoadMapAreas loads map.yaml. Corners must be ordered and z at most 15.
func LoadMapAreas(path string) ([]MapArea, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	var f mapFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	for i, a := range f.Areas {
		if a.From.X > a.To.X || a.From.Y > a.To.Y || a.From.Z > a.To.Z {
			return nil, fmt.Errorf("map area %d (%s): corners out of order", i, a.Name)
		}
		if a.To.Z > 15 {
			return nil, fmt.Errorf("map area %d (%s): floor %d out of range", i, a.Name, a.To.Z)
		}
		if a.Size() > maxAreaTiles {
			return nil, fmt.Errorf("map area %d (%s): %d tiles exceeds %d", i, a.Name, a.Size(), maxAreaTiles)
		}
	}
	return f.Areas, nil
}
