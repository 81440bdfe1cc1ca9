package world

// MaxKnownCreatures is how many creature descriptors a client caches.
const MaxKnownCreatures = 150

// KnownCreatures mirrors the client's creature cache so the server knows
// when a full descriptor must be sent and which entry the client drops.
type KnownCreatures struct {
	ids []uint32
}

func NewKnownCreatures() *KnownCreatures {
	return &KnownCreatures{ids: make([]uint32, 0, MaxKnownCreatures)}
}

// Check marks id as known. known reports whether the client already had it.
// When the cache overflows, evict is the id the client must forget: the
// oldest entry not currently visible, or the oldest entry if all are.
func (k *KnownCreatures) Check(id uint32, visible func(uint32) bool) (known bool, evict uint32) {
	for _, v := range k.ids {
		if v == id {
			return true, 0
		}
	}
	k.ids = append(k.ids, id)
	if len(k.ids) <= MaxKnownCreatures {
		return false, 0
	}
	drop := 0
	for i, v := range k.ids[:len(k.ids)-1] {
		if visible == nil || !visible(v) {
			drop = i
			break
		}
	}
	evict = k.ids[drop]
	k.ids = append(k.ids[:drop], k.ids[drop+1:]...)
	return false, evict
}

// Forget removes id, e.g. when the creature is destroyed.
func (k *KnownCreatures) Forget(id uint32) {
	for i, v := range k.ids {
		if v == id {
			k.ids = append(k.ids[:i], k.ids[i+1:]...)
			return
		}
	}
}

func (k *KnownCreatures) Len() int { return len(k.ids) }
