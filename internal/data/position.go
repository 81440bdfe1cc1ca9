package data

import "fmt"

// Position is a map coordinate. Z is the floor; 7 is ground level.
type Position struct {
	X uint16 `yaml:"x"`
	Y uint16 `yaml:"y"`
	Z uint8  `yaml:"z"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// IsZero reports whether p is the unset position.
func (p Position) IsZero() bool {
	return p == Position{}
}
