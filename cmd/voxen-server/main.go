// Command voxen-server runs a voxel world simulation and serves its
// presentation feed over websocket, plus /healthz and /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxen/internal/config"
	"voxen/internal/engine"
	"voxen/internal/profiling"
	"voxen/internal/registry"
	"voxen/internal/transport/feed"
	"voxen/internal/world"
	"voxen/pkg/blockpack"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config yaml (defaults apply when empty)")
		addr        = flag.String("addr", "", "http listen address (overrides config)")
		workers     = flag.Int("workers", 0, "mesh worker count (overrides config)")
		radius      = flag.Int("radius", 0, "active radius in chunks (overrides config)")
		allowRemote = flag.Bool("allow-remote", false, "accept non-loopback feed connections")
		packsDir    = flag.String("packs", "", "directory of block pack json files")
		demo        = flag.Bool("demo", false, "seed a small demo terrain on startup")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[voxen] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Feed.Addr = *addr
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *radius > 0 {
		cfg.ActiveRadius = *radius
	}
	if *allowRemote {
		cfg.Feed.AllowRemote = true
	}

	reg := registry.Default()
	if *packsDir != "" {
		n, err := blockpack.Install(*packsDir, reg)
		if err != nil {
			logger.Fatalf("install packs: %v", err)
		}
		logger.Printf("installed %d block pack(s) from %s", n, *packsDir)
	}

	eng := engine.New(cfg, reg, logger)
	srv := feed.NewServer(eng, cfg.Feed, logger)

	// Seed before Run so the writes happen ahead of the tick loop.
	if *demo {
		buildDemoTerrain(eng, reg)
		logger.Printf("demo terrain seeded")
	}

	ctx, cancel := signalContext()
	defer cancel()

	engineDone := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(engineDone)
	}()

	worldID := eng.ID.String()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, worldID, eng.Stats(), srv.Stats())
	})
	mux.HandleFunc("/ws", srv.Handler())

	httpSrv := &http.Server{
		Addr:              cfg.Feed.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = httpSrv.Shutdown(ctx2)
	}()

	logger.Printf("world %s listening on %s", worldID, cfg.Feed.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	<-engineDone
	eng.Close()
	logger.Printf("shutdown complete")
}

// writeMetrics emits a minimal Prometheus exposition of the engine and feed
// counters plus the profiling totals.
func writeMetrics(rw io.Writer, worldID string, es engine.Stats, fs feed.Stats) {
	fmt.Fprintf(rw, "# HELP voxen_ticks_total Simulation ticks completed.\n")
	fmt.Fprintf(rw, "# TYPE voxen_ticks_total counter\n")
	fmt.Fprintf(rw, "voxen_ticks_total{world=%q} %d\n", worldID, es.Ticks)

	fmt.Fprintf(rw, "# HELP voxen_chunks Materialized chunk count.\n")
	fmt.Fprintf(rw, "# TYPE voxen_chunks gauge\n")
	fmt.Fprintf(rw, "voxen_chunks{world=%q} %d\n", worldID, es.Chunks)

	fmt.Fprintf(rw, "# HELP voxen_meshes Chunks currently holding a mesh.\n")
	fmt.Fprintf(rw, "# TYPE voxen_meshes gauge\n")
	fmt.Fprintf(rw, "voxen_meshes{world=%q} %d\n", worldID, es.Meshes)

	fmt.Fprintf(rw, "# HELP voxen_remesh_backlog Chunks waiting for a remesh.\n")
	fmt.Fprintf(rw, "# TYPE voxen_remesh_backlog gauge\n")
	fmt.Fprintf(rw, "voxen_remesh_backlog{world=%q,state=%q} %d\n", worldID, "dirty", es.Dirty)
	fmt.Fprintf(rw, "voxen_remesh_backlog{world=%q,state=%q} %d\n", worldID, "deferred", es.Deferred)
	fmt.Fprintf(rw, "voxen_remesh_backlog{world=%q,state=%q} %d\n", worldID, "in_flight", es.InFlight)

	fmt.Fprintf(rw, "# HELP voxen_edits_applied_total Voxel writes applied.\n")
	fmt.Fprintf(rw, "# TYPE voxen_edits_applied_total counter\n")
	fmt.Fprintf(rw, "voxen_edits_applied_total{world=%q} %d\n", worldID, es.EditsApplied)

	fmt.Fprintf(rw, "# HELP voxen_remeshes_queued_total Remesh jobs dispatched to the pool.\n")
	fmt.Fprintf(rw, "# TYPE voxen_remeshes_queued_total counter\n")
	fmt.Fprintf(rw, "voxen_remeshes_queued_total{world=%q} %d\n", worldID, es.RemeshesQueued)

	fmt.Fprintf(rw, "# HELP voxen_meshes_applied_total Mesh results installed.\n")
	fmt.Fprintf(rw, "# TYPE voxen_meshes_applied_total counter\n")
	fmt.Fprintf(rw, "voxen_meshes_applied_total{world=%q} %d\n", worldID, es.MeshesApplied)

	fmt.Fprintf(rw, "# HELP voxen_meshes_detached_total Meshes dropped after a chunk emptied.\n")
	fmt.Fprintf(rw, "# TYPE voxen_meshes_detached_total counter\n")
	fmt.Fprintf(rw, "voxen_meshes_detached_total{world=%q} %d\n", worldID, es.MeshesDetached)

	fmt.Fprintf(rw, "# HELP voxen_tick_ms Last tick duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE voxen_tick_ms gauge\n")
	fmt.Fprintf(rw, "voxen_tick_ms{world=%q} %.3f\n", worldID, es.LastTickMS)

	fmt.Fprintf(rw, "# HELP voxen_feed_sessions Connected feed sessions.\n")
	fmt.Fprintf(rw, "# TYPE voxen_feed_sessions gauge\n")
	fmt.Fprintf(rw, "voxen_feed_sessions{world=%q} %d\n", worldID, fs.Sessions)

	fmt.Fprintf(rw, "# HELP voxen_feed_frames_total Binary frames pushed to sessions.\n")
	fmt.Fprintf(rw, "# TYPE voxen_feed_frames_total counter\n")
	fmt.Fprintf(rw, "voxen_feed_frames_total{world=%q,result=%q} %d\n", worldID, "sent", fs.FramesSent)
	fmt.Fprintf(rw, "voxen_feed_frames_total{world=%q,result=%q} %d\n", worldID, "dropped", fs.FramesDropped)

	fmt.Fprintf(rw, "# HELP voxen_feed_edits_total Edit batches accepted from sessions.\n")
	fmt.Fprintf(rw, "# TYPE voxen_feed_edits_total counter\n")
	fmt.Fprintf(rw, "voxen_feed_edits_total{world=%q} %d\n", worldID, fs.EditsIn)

	fmt.Fprintf(rw, "# HELP voxen_feed_actors_total Actor updates accepted from sessions.\n")
	fmt.Fprintf(rw, "# TYPE voxen_feed_actors_total counter\n")
	fmt.Fprintf(rw, "voxen_feed_actors_total{world=%q} %d\n", worldID, fs.ActorsIn)

	fmt.Fprintf(rw, "# HELP voxen_feed_rejects_total Session messages rejected with an error reply.\n")
	fmt.Fprintf(rw, "# TYPE voxen_feed_rejects_total counter\n")
	fmt.Fprintf(rw, "voxen_feed_rejects_total{world=%q} %d\n", worldID, fs.Rejects)

	profs := profiling.Snapshot()
	names := make([]string, 0, len(profs))
	for name := range profs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(rw, "# HELP voxen_profile_seconds_total Cumulative time per profiled section.\n")
	fmt.Fprintf(rw, "# TYPE voxen_profile_seconds_total counter\n")
	for _, name := range names {
		fmt.Fprintf(rw, "voxen_profile_seconds_total{world=%q,section=%q} %.6f\n", worldID, name, profs[name].Total.Seconds())
	}

	fmt.Fprintf(rw, "# HELP voxen_profile_calls_total Cumulative calls per profiled section.\n")
	fmt.Fprintf(rw, "# TYPE voxen_profile_calls_total counter\n")
	for _, name := range names {
		fmt.Fprintf(rw, "voxen_profile_calls_total{world=%q,section=%q} %d\n", worldID, name, profs[name].Count)
	}
}

// buildDemoTerrain seeds a small island with a cabin and a tunnel so a fresh
// server has something to stream.
func buildDemoTerrain(eng *engine.Engine, reg *registry.Registry) {
	voxelFor := func(id world.BlockID) world.Voxel {
		def, ok := reg.Get(id)
		if !ok {
			return world.Air
		}
		return def.Voxel()
	}
	stone := voxelFor(registry.StoneID)
	soil := voxelFor(registry.SoilID)
	grass := voxelFor(registry.GrassID)
	plank := voxelFor(registry.PlankID)

	eng.Fill(engine.Box{Min: [3]int{-24, 0, -24}, Max: [3]int{24, 1, 24}}, stone)
	eng.Fill(engine.Box{Min: [3]int{-24, 2, -24}, Max: [3]int{24, 2, 24}}, soil)
	eng.Fill(engine.Box{Min: [3]int{-24, 3, -24}, Max: [3]int{24, 3, 24}}, grass)

	// Cabin shell, hollowed, with a doorway on the south face.
	eng.Fill(engine.Box{Min: [3]int{4, 4, 4}, Max: [3]int{11, 9, 11}}, plank)
	eng.Carve(engine.Box{Min: [3]int{5, 4, 5}, Max: [3]int{10, 8, 10}})
	eng.Carve(engine.Box{Min: [3]int{7, 4, 4}, Max: [3]int{8, 6, 4}})

	// Tunnel through the island along x.
	eng.Carve(engine.Box{Min: [3]int{-20, 1, -1}, Max: [3]int{20, 2, 1}})

	eng.SetActor(mgl64.Vec3{0, 6, 0})
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
