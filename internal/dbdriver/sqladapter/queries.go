package sqladapter

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/justapithecus/channeld/internal/dbdriver"
	"github.com/justapithecus/channeld/internal/gametypes"
)

// allocateIDs reserves Count rows in an auto-increment id table and
// returns their generated ids in ascending order, so the caller can
// assign them positionally to the zero-id records it is patching.
func allocateIDs(ctx context.Context, db *sql.DB, params any) (any, error) {
	p, ok := params.(dbdriver.AllocateIDsParams)
	if !ok {
		return nil, fmt.Errorf("sqladapter: allocateIDs: bad params %T", params)
	}
	if p.Count <= 0 {
		return []int64{}, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqladapter: allocateIDs: begin: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		res, err := tx.ExecContext(ctx, `INSERT INTO item_ids () VALUES ()`)
		if err != nil {
			return nil, fmt.Errorf("sqladapter: allocateIDs: insert: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("sqladapter: allocateIDs: last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqladapter: allocateIDs: commit: %w", err)
	}
	return ids, nil
}

// updateCharacter performs the full multi-table upsert described in
// spec.md §5: base stats, equipped gear, equip-inventory rows,
// inventory rows across the four non-equip inventories, per-quest mob
// progress and info rows, completed-quest timestamps, skills, monster-
// book counts, and the packed key-map. All statements run in one
// transaction so a mid-upsert failure leaves no partial character
// state (spec.md §7 "DatabaseFailure ... flush does not attempt
// retry").
func updateCharacter(ctx context.Context, db *sql.DB, params any) (any, error) {
	p, ok := params.(dbdriver.UpdateCharacterParams)
	if !ok || p.Character == nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: bad params %T", params)
	}
	c := p.Character

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE characters SET map_id=?, portal_sp=?, level=?, job=?, exp=?,
			hp=?, max_hp=?, mp=?, max_mp=?, ap=?, sp=?, meso=?,
			str=?, dex=?, intt=?, luk=?, gender=?, auto_hp=?, auto_mp=?
		WHERE id=?`,
		c.MapID, c.PortalSP, c.Level, c.Job, c.Exp,
		c.HP, c.MaxHP, c.MP, c.MaxMP, c.AP, c.SP, c.Meso,
		c.Str, c.Dex, c.Int, c.Luk, c.Gender, c.AutoHP, c.AutoMP,
		c.ID,
	); err != nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: base stats: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM equipped WHERE character_id=?`, c.ID); err != nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: clear equipped: %w", err)
	}
	for slot, eq := range c.Equipped {
		if eq == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO equipped (character_id, slot, item_id, str, dex, intt, luk, watk, matk)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			c.ID, slot, eq.ItemID, eq.STR, eq.DEX, eq.INT, eq.LUK, eq.WATK, eq.MATK,
		); err != nil {
			return nil, fmt.Errorf("sqladapter: updateCharacter: equipped slot %d: %w", slot, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_slots WHERE character_id=?`, c.ID); err != nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: clear inventory: %w", err)
	}
	for inv, slots := range c.Inventories {
		for pos, s := range slots {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO inventory_slots (character_id, inventory, position, item_id, quantity)
				VALUES (?,?,?,?,?)`,
				c.ID, inv, pos, s.ItemID, s.Quantity,
			); err != nil {
				return nil, fmt.Errorf("sqladapter: updateCharacter: inventory %d/%d: %w", inv, pos, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM quest_progress WHERE character_id=?`, c.ID); err != nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: clear quest progress: %w", err)
	}
	for qid, q := range c.Quests {
		var completedAt any
		if q.Completed {
			completedAt = q.CompletedAt
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quest_progress (character_id, quest_id, completed, completed_at)
			VALUES (?,?,?,?)`,
			c.ID, qid, q.Completed, completedAt,
		); err != nil {
			return nil, fmt.Errorf("sqladapter: updateCharacter: quest %d: %w", qid, err)
		}
		for mobID, count := range q.MobProgress {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO quest_mob_progress (character_id, quest_id, mob_id, count)
				VALUES (?,?,?,?)`,
				c.ID, qid, mobID, count,
			); err != nil {
				return nil, fmt.Errorf("sqladapter: updateCharacter: quest %d mob %d: %w", qid, mobID, err)
			}
		}
		for k, v := range q.Info {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO quest_info (character_id, quest_id, info_key, info_value)
				VALUES (?,?,?,?)`,
				c.ID, qid, k, v,
			); err != nil {
				return nil, fmt.Errorf("sqladapter: updateCharacter: quest %d info %s: %w", qid, k, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM skills WHERE character_id=?`, c.ID); err != nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: clear skills: %w", err)
	}
	for skillID, s := range c.Skills {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO skills (character_id, skill_id, level, master_level)
			VALUES (?,?,?,?)`,
			c.ID, skillID, s.Level, s.MasterLevel,
		); err != nil {
			return nil, fmt.Errorf("sqladapter: updateCharacter: skill %d: %w", skillID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM monster_book WHERE character_id=?`, c.ID); err != nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: clear monster book: %w", err)
	}
	for cardID, count := range c.MonsterBook {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO monster_book (character_id, card_id, count)
			VALUES (?,?,?)`,
			c.ID, cardID, count,
		); err != nil {
			return nil, fmt.Errorf("sqladapter: updateCharacter: monster book %d: %w", cardID, err)
		}
	}

	packedKeyMap := packKeyMap(c.KeyMap)
	if _, err := tx.ExecContext(ctx, `
		UPDATE characters SET key_map=? WHERE id=?`,
		packedKeyMap, c.ID,
	); err != nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: key map: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqladapter: updateCharacter: commit: %w", err)
	}
	return nil, nil
}

// packKeyMap serializes only type!=0 slots (spec.md §5 "a packed
// key-map (only type!=0 slots)") as a flat key/type/action triple
// sequence, little-endian.
func packKeyMap(keyMap map[int32]gametypes.KeyBinding) []byte {
	buf := make([]byte, 0, len(keyMap)*9)
	for key, binding := range keyMap {
		if binding.Type == 0 {
			continue
		}
		var tmp [9]byte
		putInt32LE(tmp[0:4], key)
		tmp[4] = byte(binding.Type)
		putInt32LE(tmp[5:9], binding.Action)
		buf = append(buf, tmp[:]...)
	}
	return buf
}

func putInt32LE(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}
