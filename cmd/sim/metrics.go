package main

import (
	"fmt"
	"net/http"
	"sync"

	"hivecore.ai/internal/persistence/indexdb"
	"hivecore.ai/internal/sim/gameloop"
	"hivecore.ai/internal/transport/observer"
)

// metrics keeps per-tick counters for the Prometheus text endpoint. It is a
// tick sink so the loop never waits on a scrape.
type metrics struct {
	idx *indexdb.SQLiteIndex
	obs *observer.Server

	mu       sync.Mutex
	tick     uint64
	rooms    []roomMetrics
	scanErrs uint64
	unitErrs uint64
}

type roomMetrics struct {
	room     string
	units    int
	assigned int
	offers   int
}

func (m *metrics) WriteTick(e gameloop.TickLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick = e.Tick
	m.rooms = m.rooms[:0]
	for _, r := range e.Rooms {
		if r.ScanErr != "" {
			m.scanErrs++
		}
		m.unitErrs += uint64(r.Errors())
		m.rooms = append(m.rooms, roomMetrics{room: r.Room, units: len(r.Units), assigned: r.Assigned(), offers: r.Offers})
	}
	return nil
}

func (m *metrics) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintf(rw, "# HELP hivecore_tick Last completed tick.\n")
	fmt.Fprintf(rw, "# TYPE hivecore_tick gauge\n")
	fmt.Fprintf(rw, "hivecore_tick %d\n", m.tick)

	fmt.Fprintf(rw, "# HELP hivecore_room_units Units visited in the room on the last tick.\n")
	fmt.Fprintf(rw, "# TYPE hivecore_room_units gauge\n")
	for _, r := range m.rooms {
		fmt.Fprintf(rw, "hivecore_room_units{room=%q} %d\n", r.room, r.units)
	}
	fmt.Fprintf(rw, "# HELP hivecore_room_assigned Units holding a job after the last tick.\n")
	fmt.Fprintf(rw, "# TYPE hivecore_room_assigned gauge\n")
	for _, r := range m.rooms {
		fmt.Fprintf(rw, "hivecore_room_assigned{room=%q} %d\n", r.room, r.assigned)
	}
	fmt.Fprintf(rw, "# HELP hivecore_room_offers Offers in the room's current pool.\n")
	fmt.Fprintf(rw, "# TYPE hivecore_room_offers gauge\n")
	for _, r := range m.rooms {
		fmt.Fprintf(rw, "hivecore_room_offers{room=%q} %d\n", r.room, r.offers)
	}

	fmt.Fprintf(rw, "# HELP hivecore_scan_errors_total Room scans that failed.\n")
	fmt.Fprintf(rw, "# TYPE hivecore_scan_errors_total counter\n")
	fmt.Fprintf(rw, "hivecore_scan_errors_total %d\n", m.scanErrs)
	fmt.Fprintf(rw, "# HELP hivecore_unit_errors_total Unit turns that returned an error.\n")
	fmt.Fprintf(rw, "# TYPE hivecore_unit_errors_total counter\n")
	fmt.Fprintf(rw, "hivecore_unit_errors_total %d\n", m.unitErrs)

	if m.obs != nil {
		fmt.Fprintf(rw, "# HELP hivecore_observers Connected observers.\n")
		fmt.Fprintf(rw, "# TYPE hivecore_observers gauge\n")
		fmt.Fprintf(rw, "hivecore_observers %d\n", m.obs.Sessions())
	}
	if m.idx != nil {
		st := m.idx.Stats()
		fmt.Fprintf(rw, "# HELP hivecore_index_queue_depth Pending index writes.\n")
		fmt.Fprintf(rw, "# TYPE hivecore_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "hivecore_index_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "# HELP hivecore_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE hivecore_index_dropped_total counter\n")
		fmt.Fprintf(rw, "hivecore_index_dropped_total{kind=%q} %d\n", "tick", st.DropTickTotal)
		fmt.Fprintf(rw, "hivecore_index_dropped_total{kind=%q} %d\n", "snapshot", st.DropSnapshotTotal)
	}
}
