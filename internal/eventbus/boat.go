package eventbus

import "time"

// Boat status values, the Boat event's property 0 (spec.md §4.8, §8
// scenario S2: "at t=0 property=arrived; at t=10s property=sailing; at
// t=15s departed").
const (
	BoatArrived int32 = iota
	BoatSailing
	BoatDeparted
)

const (
	boatGateCloseDelay = 10 * time.Second
	boatSailDuration   = 5 * time.Second
	boatDockDuration   = 15 * time.Second
)

// RunBoatScheduler drives boat through its arrive -> close_gates ->
// depart -> arrive loop forever, using sched as the single serializing
// scheduler for this event (spec.md §4.8 "boat arrive -> close_gates@
// 10s -> depart@5s -> arrive@15s loop"). Listeners registered on boat
// (typically each subscribed map's dock_undock_boat/start_sailing/
// end_sailing handler, enqueued onto that map's Worker) observe the
// three transitions in this fixed order every cycle.
func RunBoatScheduler(sched *Scheduler, boat *Event) {
	var cycle func()
	cycle = func() {
		boat.SetProperty(0, BoatArrived)
		sched.WaitForEvent(boatGateCloseDelay, func() {
			boat.SetProperty(0, BoatSailing)
			sched.WaitForEvent(boatSailDuration, func() {
				boat.SetProperty(0, BoatDeparted)
				sched.WaitForEvent(boatDockDuration, cycle)
			})
		})
	}
	cycle()
}
