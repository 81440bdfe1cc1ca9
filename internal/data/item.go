package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SlotPosition is a bitmask of inventory slots an item may be equipped in.
type SlotPosition uint16

const (
	SlotHead SlotPosition = 1 << iota
	SlotNecklace
	SlotBackpack
	SlotArmor
	SlotRight
	SlotLeft
	SlotLegs
	SlotFeet
	SlotRing
	SlotAmmo
	SlotTwoHand
)

// defaultSlots matches an item with no slot declared: it can be held in
// either hand or the ammo slot.
const defaultSlots = SlotRight | SlotLeft | SlotAmmo

var slotMap = map[string]SlotPosition{
	"head":       SlotHead,
	"necklace":   SlotNecklace,
	"backpack":   SlotBackpack,
	"body":       SlotArmor,
	"armor":      SlotArmor,
	"legs":       SlotLegs,
	"feet":       SlotFeet,
	"ring":       SlotRing,
	"ammo":       SlotAmmo,
	"hand":       SlotRight | SlotLeft,
	"two-handed": SlotTwoHand | SlotRight | SlotLeft,
}

// SlotToMask converts a YAML slot name to the slot bitmask.
func SlotToMask(s string) SlotPosition {
	if v, ok := slotMap[s]; ok {
		return v
	}
	return defaultSlots
}

// WeaponType classifies weapons for combat formulas.
type WeaponType uint8

const (
	WeaponNone WeaponType = iota
	WeaponSword
	WeaponClub
	WeaponAxe
	WeaponDistance
	WeaponMagic
	WeaponAmmunition
	WeaponShield
)

var weaponTypeMap = map[string]WeaponType{
	"sword":    WeaponSword,
	"club":     WeaponClub,
	"axe":      WeaponAxe,
	"distance": WeaponDistance,
	"wand":     WeaponMagic,
	"rod":      WeaponMagic,
	"ammo":     WeaponAmmunition,
	"shield":   WeaponShield,
}

// ItemType holds the static attributes shared by every instance of an item id.
// Read-only after load.
type ItemType struct {
	ID       uint16
	ClientID uint16 // sprite id sent to the client
	Name     string
	Weight   uint32 // hundredths of an ounce

	Stackable      bool
	FluidContainer bool
	Splash         bool
	Container      bool
	Capacity       uint8 // slots when Container

	Slots      SlotPosition
	WeaponType WeaponType
	Attack     int
	Defense    int
	Armor      int

	DecayTo   uint16
	DecayTime uint32 // seconds
	CanDecay  bool

	Door        bool
	TransformTo uint16 // open/closed counterpart for doors
}

// HasSubType reports whether the item's count byte is sent on the wire.
func (t *ItemType) HasSubType() bool {
	return t.Stackable || t.FluidContainer || t.Splash
}

// ItemTable holds all item types indexed by server id.
type ItemTable struct {
	items map[uint16]*ItemType
}

// NewItemTable builds a table from already-constructed types. Used by tests
// and tools that do not read YAML.
func NewItemTable(types ...*ItemType) *ItemTable {
	t := &ItemTable{items: make(map[uint16]*ItemType, len(types))}
	for _, it := range types {
		t.items[it.ID] = it
	}
	return t
}

// Get returns an item type by id, or nil if not found.
func (t *ItemTable) Get(id uint16) *ItemType {
	return t.items[id]
}

// Count returns total loaded item types.
func (t *ItemTable) Count() int {
	return len(t.items)
}

type itemEntry struct {
	ID          uint16  `yaml:"id"`
	ClientID    uint16  `yaml:"client_id"`
	Name        string  `yaml:"name"`
	Weight      uint32  `yaml:"weight"`
	Stackable   bool    `yaml:"stackable"`
	Fluid       bool    `yaml:"fluid"`
	Splash      bool    `yaml:"splash"`
	Container   bool    `yaml:"container"`
	Capacity    *uint8  `yaml:"capacity"`
	Slot        string  `yaml:"slot"`
	WeaponType  string  `yaml:"weapon_type"`
	Attack      int     `yaml:"attack"`
	Defense     int     `yaml:"defense"`
	Armor       int     `yaml:"armor"`
	DecayTo     uint16  `yaml:"decay_to"`
	DecayTime   *uint32 `yaml:"decay_time"`
	NoDecay     bool    `yaml:"no_decay"`
	Door        bool    `yaml:"door"`
	TransformTo uint16  `yaml:"transform_to"`
}

type itemListFile struct {
	Items []itemEntry `yaml:"items"`
}

// LoadItemTable loads items.yaml.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item list: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse item list: %w", err)
	}
	t := &ItemTable{items: make(map[uint16]*ItemType, len(f.Items))}
	for i := range f.Items {
		e := &f.Items[i]
		if e.ID == 0 {
			return nil, fmt.Errorf("item list entry %d: missing id", i)
		}
		if _, dup := t.items[e.ID]; dup {
			return nil, fmt.Errorf("item list: duplicate id %d", e.ID)
		}
		t.items[e.ID] = e.toItemType()
	}
	return t, nil
}

func (e *itemEntry) toItemType() *ItemType {
	it := &ItemType{
		ID:             e.ID,
		ClientID:       e.ClientID,
		Name:           e.Name,
		Weight:         e.Weight,
		Stackable:      e.Stackable,
		FluidContainer: e.Fluid,
		Splash:         e.Splash,
		Container:      e.Container,
		Capacity:       8,
		Slots:          SlotToMask(e.Slot),
		WeaponType:     weaponTypeMap[e.WeaponType],
		Attack:         e.Attack,
		Defense:        e.Defense,
		Armor:          e.Armor,
		DecayTo:        e.DecayTo,
		DecayTime:      60,
		CanDecay:       !e.NoDecay,
		Door:           e.Door,
		TransformTo:    e.TransformTo,
	}
	if it.ClientID == 0 {
		it.ClientID = e.ID
	}
	if e.Capacity != nil {
		it.Capacity = *e.Capacity
	}
	if e.DecayTime != nil {
		it.DecayTime = *e.DecayTime
	}
	return it
}
