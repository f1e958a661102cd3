package session

import (
	"testing"

	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/resourcedb"
)

func TestAssignStatSpendsAPOnValidFlag(t *testing.T) {
	u, conn := newTestUser(newFakeStore(), &fakeEngine{})
	u.AP = 3
	u.Str = 4

	if err := u.AssignStat(StatSTR); err != nil {
		t.Fatalf("AssignStat: %v", err)
	}
	if u.Str != 5 || u.AP != 2 {
		t.Errorf("Str=%d AP=%d, want Str=5 AP=2", u.Str, u.AP)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("expected 1 sent event, got %d", len(conn.sent))
	}
}

func TestAssignStatRejectsWhenNoAP(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	u.AP = 0

	if err := u.AssignStat(StatDEX); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
}

func TestAssignStatRejectsUnknownFlag(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	u.AP = 5

	if err := u.AssignStat(StatFlag(99)); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
	if u.AP != 5 {
		t.Errorf("AP = %d, want unchanged 5 on rejected flag", u.AP)
	}
}

func TestAssignSPRaisesSkillLevel(t *testing.T) {
	store := newFakeStore()
	store.skills[100] = resourcedb.SkillTemplate{
		ID:     100,
		Levels: []resourcedb.SkillLevel{{}, {HPCon: 1}, {HPCon: 2}},
	}
	u, conn := newTestUser(store, &fakeEngine{})
	u.SP = 2

	if err := u.AssignSP(100); err != nil {
		t.Fatalf("AssignSP: %v", err)
	}
	entry := u.Skills[100]
	if entry == nil || entry.Level != 1 {
		t.Fatalf("Skills[100] = %+v, want Level 1", entry)
	}
	if u.SP != 1 {
		t.Errorf("SP = %d, want 1", u.SP)
	}
	if len(conn.sent) != 2 {
		t.Fatalf("expected StatChange+UpdateSkill sent, got %d events", len(conn.sent))
	}
}

func TestAssignSPRejectsWhenNoSP(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	u.SP = 0

	if err := u.AssignSP(100); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
}

func TestAssignSPRejectsUnknownSkill(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	u.SP = 1

	if err := u.AssignSP(999); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
}

func TestAssignSPRejectsAtMaxLevel(t *testing.T) {
	store := newFakeStore()
	store.skills[100] = resourcedb.SkillTemplate{ID: 100, Levels: []resourcedb.SkillLevel{{}, {}}}
	u, _ := newTestUser(store, &fakeEngine{})
	u.SP = 1
	u.Skills[100] = &gametypes.SkillEntry{ID: 100, Level: 1}

	if err := u.AssignSP(100); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan at max level", err)
	}
}

func TestGainExpWithoutLevelUp(t *testing.T) {
	u, conn := newTestUser(newFakeStore(), &fakeEngine{})
	u.Level = 1
	u.Exp = 0

	leveled := u.GainExp(10, false)
	if leveled {
		t.Error("expected no level-up from a small exp gain")
	}
	if u.Exp != 10 {
		t.Errorf("Exp = %d, want 10", u.Exp)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("expected only GainExp sent, got %d events", len(conn.sent))
	}
}

func TestGainExpCrossesMultipleLevels(t *testing.T) {
	u, conn := newTestUser(newFakeStore(), &fakeEngine{})
	u.Level = 1
	u.Exp = 0
	u.MaxHP, u.MaxMP = 100, 50

	need := resourcedb.ExpForLevel(1) + resourcedb.ExpForLevel(2) + 1
	leveled := u.GainExp(need, false)

	if !leveled {
		t.Fatal("expected a level-up")
	}
	if u.Level != 3 {
		t.Errorf("Level = %d, want 3", u.Level)
	}
	if u.HP != u.MaxHP || u.MP != u.MaxMP {
		t.Errorf("HP/MP not refilled to max after level-up")
	}

	var levelUps int
	for _, e := range conn.sent {
		if _, ok := e.(LevelUp); ok {
			levelUps++
		}
	}
	if levelUps != 2 {
		t.Errorf("LevelUp events = %d, want 2 (one per level crossed)", levelUps)
	}
}
