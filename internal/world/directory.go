package world

import "strings"

// Directory resolves player and guild names to persisted ids. It is filled
// from the database at boot and kept current as characters log in.
// Lookups are case-insensitive.
type Directory struct {
	guidByName  map[string]uint32
	nameByGUID  map[uint32]string
	guildByName map[string]uint32
}

func NewDirectory() *Directory {
	return &Directory{
		guidByName:  make(map[string]uint32),
		nameByGUID:  make(map[uint32]string),
		guildByName: make(map[string]uint32),
	}
}

// AddPlayer records a character. Re-adding a guid replaces its old name.
func (d *Directory) AddPlayer(guid uint32, name string) {
	if old, ok := d.nameByGUID[guid]; ok {
		delete(d.guidByName, strings.ToLower(old))
	}
	d.nameByGUID[guid] = name
	d.guidByName[strings.ToLower(name)] = guid
}

func (d *Directory) AddGuild(id uint32, name string) {
	d.guildByName[strings.ToLower(name)] = id
}

func (d *Directory) GUIDByName(name string) (uint32, bool) {
	id, ok := d.guidByName[strings.ToLower(name)]
	return id, ok
}

// NameByGUID returns the name with its stored capitalisation.
func (d *Directory) NameByGUID(guid uint32) (string, bool) {
	n, ok := d.nameByGUID[guid]
	return n, ok
}

func (d *Directory) GuildIDByName(name string) (uint32, bool) {
	id, ok := d.guildByName[strings.ToLower(name)]
	return id, ok
}

func (d *Directory) PlayerCount() int { return len(d.nameByGUID) }
