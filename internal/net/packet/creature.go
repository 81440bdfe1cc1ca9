package packet

// Creature descriptor markers.
const (
	CreatureUnknown uint16 = 0x61
	CreatureKnown   uint16 = 0x62
)

// Outfit is a creature's look. A zero LookType means the creature looks
// like the item LookTypeEx.
type Outfit struct {
	LookType   uint16
	LookTypeEx uint16
	Head       uint8
	Body       uint8
	Legs       uint8
	Feet       uint8
}

// CreatureInfo is everything a creature descriptor carries.
type CreatureInfo struct {
	ID         uint32
	Name       string
	Health     uint8 // percent
	Direction  uint8
	Outfit     Outfit
	LightLevel uint8
	LightColor uint8
	Speed      uint16
	Skull      uint8
	Shield     uint8
}

// AddCreature writes a creature descriptor. A creature the client already
// knows is sent by id only; otherwise the client is told which cached id to
// drop (0 for none) and receives the name.
func (m *NetworkMessage) AddCreature(c CreatureInfo, known bool, remove uint32) {
	m.atomic(func() {
		if known {
			m.AddU16(CreatureKnown)
			m.AddU32(c.ID)
		} else {
			m.AddU16(CreatureUnknown)
			m.AddU32(remove)
			m.AddU32(c.ID)
			m.AddString(c.Name)
		}
		m.AddByte(c.Health)
		m.AddByte(c.Direction)
		m.addOutfit(c.Outfit)
		m.AddByte(c.LightLevel)
		m.AddByte(c.LightColor)
		m.AddU16(c.Speed)
		m.AddByte(c.Skull)
		m.AddByte(c.Shield)
	})
}

func (m *NetworkMessage) addOutfit(o Outfit) {
	m.AddU16(o.LookType)
	if o.LookType != 0 {
		m.AddByte(o.Head)
		m.AddByte(o.Body)
		m.AddByte(o.Legs)
		m.AddByte(o.Feet)
	} else {
		m.AddU16(o.LookTypeEx)
	}
}
