package session

import (
	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/resourcedb"
)

// StatFlag names one of the four assignable ability points (spec.md
// §4.5 "assign_stat(flag)").
type StatFlag int

const (
	StatSTR StatFlag = iota
	StatDEX
	StatINT
	StatLUK
)

// AssignStat spends one ability point on flag (spec.md §4.5
// "assign_stat(flag) — permitted only when ap > 0; modify
// corresponding stat and commit. Fails with ShutdownBan on illegal
// flag"). A conforming client only ever sends this when it believes
// ap > 0, so an ap == 0 request is itself ban-worthy, same as an
// unrecognized flag.
func (u *User) AssignStat(flag StatFlag) error {
	if u.AP <= 0 {
		return ErrShutdownBan
	}
	switch flag {
	case StatSTR:
		u.Str++
	case StatDEX:
		u.Dex++
	case StatINT:
		u.Int++
	case StatLUK:
		u.Luk++
	default:
		return ErrShutdownBan
	}
	u.AP--
	u.conn.Send(StatChange{Str: u.Str, Dex: u.Dex, Int: u.Int, Luk: u.Luk, AP: u.AP, SP: u.SP})
	return nil
}

// AssignSP spends one skill point raising skillID by one level
// (spec.md §4.5 "assign_sp(id) — validate prerequisites via
// client.assign_sp, broadcast stat-change SP and UpdateSkill"). The
// skill tree's own prerequisite graph (job requirements, previous
// skill's minimum level) is resource-database data this port does not
// model; the check here is the portable subset spec.md names directly:
// sp available, and the skill has an unspent level left to learn.
func (u *User) AssignSP(skillID int32) error {
	if u.SP <= 0 {
		return ErrShutdownBan
	}
	tmpl, ok := u.store.LookupSkill(skillID)
	if !ok {
		return ErrShutdownBan
	}
	entry := u.Skills[skillID]
	if entry == nil {
		entry = &gametypes.SkillEntry{ID: skillID}
		u.Skills[skillID] = entry
	}
	if int(entry.Level)+1 >= len(tmpl.Levels) {
		return ErrShutdownBan
	}
	entry.Level++
	u.SP--

	u.conn.Send(StatChange{Str: u.Str, Dex: u.Dex, Int: u.Int, Luk: u.Luk, AP: u.AP, SP: u.SP})
	u.conn.Send(UpdateSkill{SkillID: skillID, Level: entry.Level})
	return nil
}

// GainExp credits exp and rolls any level-ups it triggers, committing
// the resulting stat changes and sending one LevelUp per level crossed
// (spec.md §4.5 "gain_exp(exp, reward, &mut leveled) — send exp-gain
// (in chat vs normal), leverage character's exp table to compute
// level-ups, emit multiple intermediate level-change packets so the
// client plays the effect per level, commit stats").
func (u *User) GainExp(exp int64, inChat bool) (leveled bool) {
	u.Exp += exp
	u.conn.Send(GainExp{Amount: exp, InChat: inChat})

	for u.Exp >= resourcedb.ExpForLevel(u.Level) {
		u.Exp -= resourcedb.ExpForLevel(u.Level)
		u.Level++
		leveled = true
		u.applyLevelUpStats()

		if u.Room != nil && u.Member != nil {
			u.Room.LevelUp(LevelUp{PlayerID: u.Member.PlayerID, Level: u.Level})
		} else {
			u.conn.Send(LevelUp{Level: u.Level})
		}
	}
	if leveled {
		u.conn.Send(StatChange{Str: u.Str, Dex: u.Dex, Int: u.Int, Luk: u.Luk, AP: u.AP, SP: u.SP})
	}
	return leveled
}

// applyLevelUpStats grants the fixed per-level ability/skill point
// allowance and HP/MP growth. The real game's growth is job- and
// HP/MP-stat dependent; this port uses a fixed allowance, a
// simplification the same way resourcedb.ExpForLevel stands in for the
// real level curve.
func (u *User) applyLevelUpStats() {
	const apPerLevel = 5
	const spPerLevel = 3
	const hpGrowth = 50
	const mpGrowth = 30

	u.AP += apPerLevel
	u.SP += spPerLevel
	u.MaxHP += hpGrowth
	u.MaxMP += mpGrowth
	u.HP = u.MaxHP
	u.MP = u.MaxMP
}
