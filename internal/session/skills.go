package session

// UseSkill validates and applies a skill-use action (spec.md §4.5
// "use_skill(id, &mut level, &mut projectile?) — verify the player has
// the skill; fetch level info; deduct hp/mp con and bullet count from
// inventory; fail with ShutdownBan on packet-edit conditions (skill
// declared but passes projectile=None, or vice versa)"). projectile, if
// non-nil, names the inventory item id the client declares as the
// bullet/star/arrow stack to consume; it must be present exactly when
// the skill's static data requires one.
func (u *User) UseSkill(skillID int32, projectile *int32) (level int16, err error) {
	entry, ok := u.Skills[skillID]
	if !ok || entry.Level <= 0 {
		return 0, ErrShutdownBan
	}
	tmpl, ok := u.store.LookupSkill(skillID)
	if !ok || int(entry.Level) >= len(tmpl.Levels) {
		return 0, ErrShutdownBan
	}
	lvl := tmpl.Levels[entry.Level]

	requiresProjectile := lvl.BulletCon > 0
	if requiresProjectile != (projectile != nil) {
		return 0, ErrShutdownBan
	}
	if u.HP < int32(lvl.HPCon) || u.MP < int32(lvl.MPCon) {
		return 0, ErrShutdownBan
	}
	if requiresProjectile && !u.consumeBullets(*projectile, lvl.BulletCon) {
		return 0, ErrShutdownBan
	}

	u.HP -= int32(lvl.HPCon)
	u.MP -= int32(lvl.MPCon)
	return entry.Level, nil
}

// consumeBullets deducts need units of itemID from the use inventory
// (inventory type 2), failing if the stack does not hold enough.
func (u *User) consumeBullets(itemID int32, need int16) bool {
	slots := u.Inventories[useInventory]
	for i, s := range slots {
		if s.IsEquip || s.Item.ItemID != itemID {
			continue
		}
		if s.Item.Quantity < need {
			return false
		}
		slots[i].Item.Quantity -= need
		return true
	}
	return false
}
