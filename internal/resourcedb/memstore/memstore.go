// Package memstore is an in-memory resourcedb.Store loaded from a YAML
// fixture tree, standing in for the real resource database (spec.md
// §1). It exists only so the map simulation is testable end-to-end;
// production deployments load from the real `wz/` fixture tree and
// perfect-hash lookups described in spec.md §6, which are out of core's
// scope entirely.
package memstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/justapithecus/channeld/internal/foothold"
	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/resourcedb"
)

// fixture is the on-disk YAML shape. Field names match the static data
// it carries one-to-one so test fixtures stay readable.
type fixture struct {
	Monsters []monsterFixture `yaml:"monsters"`
	NPCs     []resourcedb.NPCTemplate `yaml:"npcs"`
	Reactors []reactorFixture `yaml:"reactors"`
	Equips   []resourcedb.EquipTemplate `yaml:"equips"`
	Quests   []resourcedb.QuestTemplate `yaml:"quests"`
	Skills   []resourcedb.SkillTemplate `yaml:"skills"`
	Maps     []mapFixture     `yaml:"maps"`
}

type monsterFixture struct {
	ID        int32                        `yaml:"id"`
	MaxHP     int64                        `yaml:"max_hp"`
	DropTable []gametypes.DropTableEntry   `yaml:"drop_table"`
}

type reactorFixture struct {
	ID        int32  `yaml:"id"`
	Action    string `yaml:"action"`
	KeepAlive bool   `yaml:"keep_alive"`
	States    []struct {
		Events []struct {
			Next int `yaml:"next"`
		} `yaml:"events"`
	} `yaml:"states"`
}

type mapFixture struct {
	ID       int32             `yaml:"id"`
	Spawners []gametypes.Spawner `yaml:"spawners"`
	Footholds []struct {
		ID int32   `yaml:"id"`
		X1 float64 `yaml:"x1"`
		Y1 float64 `yaml:"y1"`
		X2 float64 `yaml:"x2"`
		Y2 float64 `yaml:"y2"`
	} `yaml:"footholds"`
	HasBoss      bool   `yaml:"has_boss"`
	BossID       int32  `yaml:"boss_id"`
	BossX        int16  `yaml:"boss_x"`
	BossY        int16  `yaml:"boss_y"`
	BossFH       int16  `yaml:"boss_fh"`
	ForcedReturn int32  `yaml:"forced_return"`
	NearestTown  int32  `yaml:"nearest_town"`
	Portals      []resourcedb.Portal `yaml:"portals"`
}

// Store is an in-memory, read-only resourcedb.Store.
type Store struct {
	monsters map[int32]resourcedb.MonsterTemplate
	npcs     map[int32]resourcedb.NPCTemplate
	reactors map[int32]gametypes.ReactorTemplate
	equips   map[int32]resourcedb.EquipTemplate
	quests   map[int32]resourcedb.QuestTemplate
	skills   map[int32]resourcedb.SkillTemplate
	maps     map[int32]resourcedb.MapStatic
}

// Load reads a YAML fixture file and builds a Store. Unknown keys are
// rejected to catch fixture typos early (mirrors the teacher's config
// loader strictness).
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resourcedb: read fixture %q: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses fixture YAML from memory (used by tests and by Load).
func LoadBytes(data []byte) (*Store, error) {
	var fx fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("resourcedb: invalid fixture YAML: %w", err)
	}

	s := &Store{
		monsters: make(map[int32]resourcedb.MonsterTemplate, len(fx.Monsters)),
		npcs:     make(map[int32]resourcedb.NPCTemplate, len(fx.NPCs)),
		reactors: make(map[int32]gametypes.ReactorTemplate, len(fx.Reactors)),
		equips:   make(map[int32]resourcedb.EquipTemplate, len(fx.Equips)),
		quests:   make(map[int32]resourcedb.QuestTemplate, len(fx.Quests)),
		skills:   make(map[int32]resourcedb.SkillTemplate, len(fx.Skills)),
		maps:     make(map[int32]resourcedb.MapStatic, len(fx.Maps)),
	}

	for _, m := range fx.Monsters {
		s.monsters[m.ID] = resourcedb.MonsterTemplate{ID: m.ID, MaxHP: m.MaxHP, DropTable: m.DropTable}
	}
	for _, n := range fx.NPCs {
		s.npcs[n.ID] = n
	}
	for _, r := range fx.Reactors {
		states := make([]gametypes.ReactorState, len(r.States))
		for i, st := range r.States {
			events := make([]gametypes.ReactorEvent, len(st.Events))
			for j, e := range st.Events {
				events[j] = gametypes.ReactorEvent{Type: gametypes.ReactorEventHit, Next: e.Next}
			}
			states[i] = gametypes.ReactorState{Events: events}
		}
		s.reactors[r.ID] = gametypes.ReactorTemplate{ID: r.ID, States: states, Action: r.Action, KeepAlive: r.KeepAlive}
	}
	for _, e := range fx.Equips {
		s.equips[e.ItemID] = e
	}
	for _, q := range fx.Quests {
		s.quests[q.ID] = q
	}
	for _, sk := range fx.Skills {
		s.skills[sk.ID] = sk
	}
	for _, m := range fx.Maps {
		fhs := make([]foothold.Foothold, len(m.Footholds))
		for i, f := range m.Footholds {
			fhs[i] = foothold.NewFoothold(f.ID, f.X1, f.Y1, f.X2, f.Y2)
		}
		s.maps[m.ID] = resourcedb.MapStatic{
			ID:           m.ID,
			Spawners:     m.Spawners,
			Footholds:    foothold.NewTree(fhs),
			HasBoss:      m.HasBoss,
			BossID:       m.BossID,
			BossX:        m.BossX,
			BossY:        m.BossY,
			BossFH:       m.BossFH,
			ForcedReturn: m.ForcedReturn,
			NearestTown:  m.NearestTown,
			Portals:      m.Portals,
		}
	}

	return s, nil
}

func (s *Store) LookupMonster(id int32) (resourcedb.MonsterTemplate, bool) {
	v, ok := s.monsters[id]
	return v, ok
}

func (s *Store) LookupNPC(id int32) (resourcedb.NPCTemplate, bool) {
	v, ok := s.npcs[id]
	return v, ok
}

func (s *Store) LookupReactor(id int32) (gametypes.ReactorTemplate, bool) {
	v, ok := s.reactors[id]
	return v, ok
}

func (s *Store) LookupEquipTemplate(itemID int32) (resourcedb.EquipTemplate, bool) {
	v, ok := s.equips[itemID]
	return v, ok
}

func (s *Store) LookupQuest(id int32) (resourcedb.QuestTemplate, bool) {
	v, ok := s.quests[id]
	return v, ok
}

func (s *Store) LookupMap(id int32) (resourcedb.MapStatic, bool) {
	v, ok := s.maps[id]
	return v, ok
}

func (s *Store) LookupSkill(id int32) (resourcedb.SkillTemplate, bool) {
	v, ok := s.skills[id]
	return v, ok
}

var _ resourcedb.Store = (*Store)(nil)
