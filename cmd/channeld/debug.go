package main

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/justapithecus/channeld/metrics"
)

// debugServer exposes a read-only JSON metrics.Snapshot for
// cmd/channelctl to poll (SPEC_FULL.md §4.16). It has no effect on
// simulation correctness.
type debugServer struct {
	listener net.Listener
	srv      *http.Server
}

func newDebugServer(addr string, collector *metrics.Collector) (*debugServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(collector.Snapshot())
	})

	return &debugServer{listener: ln, srv: &http.Server{Handler: mux}}, nil
}

func (d *debugServer) Serve() {
	_ = d.srv.Serve(d.listener)
}

func (d *debugServer) Close() {
	_ = d.srv.Close()
}
