// Package gametypes holds the data model shared by the map simulation,
// room multiplexing, and session layers: objects, monsters, drops,
// reactors, and the character projection carried by a session.
package gametypes

// OID is a per-map object identifier. The high 16 bits are always 0xFFFF;
// the low 16 bits are a recyclable slot index (spec.md §3, §4.1).
type OID uint32

// OIDTagMask marks the high half of every live OID.
const OIDTagMask = 0xFFFF0000

// NoOID is the explicit "absent" sentinel, replacing the source's
// (uint32_t)-1 convention (spec.md §9 "Signed-int sentinels for OIDs").
const NoOID OID = 0

// Slot returns the low 16 bits of the oid, i.e. its table slot.
func (o OID) Slot() uint16 { return uint16(o) }

// MakeOID tags a bare 16-bit slot as a live map object id.
func MakeOID(slot uint16) OID { return OID(slot) | OIDTagMask }

// ObjectTag discriminates what an ObjectTable slot currently holds.
type ObjectTag int

const (
	TagNone ObjectTag = iota
	TagDeleted
	TagMonster
	TagNpc
	TagReactor
	TagDrop
	TagDropping
	TagBoss
)

// Object is the tagged record stored in a Map's ObjectTable (spec.md §3).
// Index and Index2 are back-references into the owning arena (e.g. a
// monster slot index, or a drop batch + position within it) resolved by
// the caller according to Tag.
type Object struct {
	OID    OID
	Tag    ObjectTag
	Index  int
	Index2 int
}

// Live reports whether the slot currently holds a real object.
func (o Object) Live() bool {
	return o.Tag != TagNone && o.Tag != TagDeleted
}
