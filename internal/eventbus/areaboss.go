package eventbus

// Area-boss reset result, fanned out as the AreaBoss event's property
// 1; property 0 carries the map id (spec.md §4.8 "Area-boss event reset re-triggers a fixed list of
// world maps; if the map had no live boss and the registration
// succeeds, the boss is (re)spawned with a map-specific welcome system
// notice.").
const (
	AreaBossResetFailed int32 = iota
	AreaBossResetSucceeded
)

// TriggerAreaBossReset fans property 0=mapID and property 1=outcome to
// every listener on the area_boss event. mapID is the world map the
// reset targets; succeeded reports whether that map had no live boss
// and the registration succeeded, matching spec.md's conditional
// respawn-plus-notice behavior (the respawn and notice themselves are
// worldmap-side responsibilities driven by the listener's handler).
func TriggerAreaBossReset(areaBoss *Event, mapID int32, succeeded bool) {
	areaBoss.SetProperty(0, mapID)
	outcome := AreaBossResetFailed
	if succeeded {
		outcome = AreaBossResetSucceeded
	}
	areaBoss.SetProperty(1, outcome)
}
