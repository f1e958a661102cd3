// Package main provides the channeld server entrypoint.
//
// Usage:
//
//	channeld --config channel/config.json
//
// Exit codes (spec.md §6): 0 success, -1 fatal startup failure
// (config, server create, listener bind).
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/channeld/adapter"
	"github.com/justapithecus/channeld/adapter/redis"
	"github.com/justapithecus/channeld/adapter/webhook"
	"github.com/justapithecus/channeld/internal/channelserver"
	"github.com/justapithecus/channeld/internal/channelworld"
	"github.com/justapithecus/channeld/internal/config"
	"github.com/justapithecus/channeld/internal/coordinator"
	"github.com/justapithecus/channeld/internal/dbdriver/sqladapter"
	"github.com/justapithecus/channeld/internal/eventbus"
	"github.com/justapithecus/channeld/internal/persist"
	"github.com/justapithecus/channeld/internal/resourcedb/memstore"
	"github.com/justapithecus/channeld/internal/scripting/luaengine"
	"github.com/justapithecus/channeld/internal/worker"
	"github.com/justapithecus/channeld/log"
	"github.com/justapithecus/channeld/metrics"
)

// numEventProperties is the per-event integer-property count EventManager
// allocates (spec.md §4.8 leaves the exact count to the caller; the boat/
// train/subway/genie/airplane/elevator schedulers this repo grounds on all
// fit within three: state, a destination map, a countdown).
const numEventProperties = 3

func main() {
	app := &cli.App{
		Name:           "channeld",
		Usage:          "sharded room-based channel server",
		ExitErrHandler: exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "channel/config.json",
				Usage: "path to config.json",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("channeld: %v", err), -1)
	}

	logger := log.NewLogger(log.Context{})

	driver, err := sqladapter.Open(cfg.Database.DSN())
	if err != nil {
		return cli.Exit(fmt.Sprintf("channeld: database: %v", err), -1)
	}

	store, err := memstore.Load(cfg.Resources.FixturePath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("channeld: resources: %v", err), -1)
	}

	engine := luaengine.New(luaengine.NewFileLoader(cfg.Resources.ScriptsDir))

	collector := metrics.NewCollector(cfg.Identity.Channel, cfg.Identity.World, cfg.Workers.Count)
	eventMgr := eventbus.New(numEventProperties)
	if err := wireEventSink(eventMgr, cfg.EventSink, logger); err != nil {
		return cli.Exit(fmt.Sprintf("channeld: event sink: %v", err), -1)
	}

	flusher := persist.New(driver, logger)
	if cfg.Audit.Dir != "" {
		sink, err := persist.NewFilesystemAuditSink(cfg.Audit.Dir, cfg.Identity.World, cfg.Identity.Channel, logger)
		if err != nil {
			return cli.Exit(fmt.Sprintf("channeld: audit: %v", err), -1)
		}
		flusher = flusher.WithAudit(sink)
	}

	clientListener, err := net.Listen(listenNetwork(cfg.Listen), cfg.Listen)
	if err != nil {
		return cli.Exit(fmt.Sprintf("channeld: listen: %v", err), -1)
	}

	var loginCtl *channelserver.LoginControl
	if cfg.LoginControl.Listen != "" {
		loginListener, err := net.Listen(listenNetwork(cfg.LoginControl.Listen), cfg.LoginControl.Listen)
		if err != nil {
			return cli.Exit(fmt.Sprintf("channeld: login-control listen: %v", err), -1)
		}
		loginCtl = channelserver.NewLoginControl(loginListener, logger)
		go loginCtl.Serve()
	}

	pool := worker.NewThreadPool(cfg.Workers.Count, cfg.Workers.QueueDepth)
	coord := coordinator.New(cfg.Workers.Count)
	world := channelworld.New(pool, coord, store, engine, eventMgr, flusher, loginCtl, logger, collector, cfg.Resources.SpawnMapID)

	srv := channelserver.New(clientListener, world, logger, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	if err := wireTransportEvents(ctx, world, eventMgr, cfg); err != nil {
		return cli.Exit(fmt.Sprintf("channeld: transport events: %v", err), -1)
	}

	var debugSrv *debugServer
	if cfg.Debug.Listen != "" {
		debugSrv, err = newDebugServer(cfg.Debug.Listen, collector)
		if err != nil {
			return cli.Exit(fmt.Sprintf("channeld: debug listen: %v", err), -1)
		}
		go debugSrv.Serve()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		_ = srv.Stop()
		if loginCtl != nil {
			_ = loginCtl.Close()
		}
		if debugSrv != nil {
			debugSrv.Close()
		}
	}()

	srv.Serve(ctx)
	pool.Shutdown()
	return nil
}

// listenNetwork picks "unix" for filesystem-path addresses and "tcp"
// otherwise, matching spec.md §6's "ipv4/ipv6/AF_UNIX" address forms.
func listenNetwork(addr string) string {
	if len(addr) > 0 && addr[0] == '/' {
		return "unix"
	}
	return "tcp"
}

// wireEventSink builds the configured external adapter.Sink, if any,
// and registers it against every fixed event (SPEC_FULL.md §4.15).
func wireEventSink(mgr *eventbus.Manager, cfg config.EventSink, logger *log.Logger) error {
	if cfg.Type == "" {
		return nil
	}

	var sink adapter.Sink
	var err error
	switch cfg.Type {
	case "webhook":
		sink, err = webhook.New(webhook.Config{URL: cfg.URL})
	case "redis":
		sink, err = redis.New(redis.Config{URL: cfg.URL, Channel: cfg.Channel})
	default:
		return fmt.Errorf("unknown event_sink.type %q", cfg.Type)
	}
	if err != nil {
		return err
	}

	listener := eventbus.SinkListener(context.Background(), sink, logger.Sugar())
	for _, name := range eventbus.FixedEvents {
		if err := mgr.AddListener(name, listener); err != nil {
			return fmt.Errorf("register sink listener for %s: %w", name, err)
		}
	}
	return nil
}

// wireTransportEvents registers the per-map transport listeners
// (SPEC_FULL.md/spec.md §4.8) against eventMgr and starts the
// schedulers that drive their events, so the map-side consumer half of
// EventManager actually runs in the real binary and not just in tests.
func wireTransportEvents(ctx context.Context, world *channelworld.World, eventMgr *eventbus.Manager, cfg *config.Config) error {
	if cfg.BoatRoute.DockMapID != 0 {
		if err := world.RegisterBoatRoute(eventMgr, cfg.BoatRoute.DockMapID, cfg.BoatRoute.DestMapID, cfg.BoatRoute.DestPortal); err != nil {
			return fmt.Errorf("boat route: %w", err)
		}
		boat, err := eventMgr.Event(eventbus.Boat)
		if err != nil {
			return fmt.Errorf("boat event: %w", err)
		}
		sched := eventbus.NewScheduler(ctx)
		go eventbus.RunBoatScheduler(sched, boat)
	}

	if cfg.AreaBoss.Enabled {
		if err := world.RegisterAreaBossRoute(eventMgr); err != nil {
			return fmt.Errorf("area boss route: %w", err)
		}
	}
	return nil
}

func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
