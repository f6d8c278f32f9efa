package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/gravityworks/blob-simulator/core"
	"github.com/gravityworks/blob-simulator/history"
	"github.com/gravityworks/blob-simulator/internal/logging"
	"github.com/gravityworks/blob-simulator/internal/observability"
	"github.com/gravityworks/blob-simulator/model"
	"github.com/gravityworks/blob-simulator/timectrl"
)

func main() {
	seed := flag.Int64("seed", 0, "Generation seed; 0 draws a fresh one")
	pattern := flag.String("pattern", "circular", "Starting pattern: circular or square")
	velocity := flag.String("velocity", "computed", "Starting velocities: computed or random")
	chaos := flag.Bool("chaos", false, "Perturb orbital planes and phases at generation")
	planets := flag.Int("planets", 0, "Number of planets; 0 takes the default")
	moons := flag.Int("moons", 35, "Number of moons distributed among the planets")
	duration := flag.Duration("duration", 0, "Wall-equivalent run duration; 0 runs until interrupted")
	tick := flag.Duration("tick", 16*time.Millisecond, "Frame interval")
	realtime := flag.Bool("realtime", false, "Pace frames against the wall clock instead of running flat out")
	timescale := flag.Float64("timescale", core.DefaultTimescale, "Simulated seconds per real second")
	snapshotDays := flag.Float64("snapshot-days", 90, "Simulated days between rewind snapshots")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	savePath := flag.String("save", "", "Path to a state file; loaded at start if present, written at exit")
	statusEvery := flag.Duration("status-every", 5*time.Second, "How often to log a status line")
	flag.Parse()

	baseLog := logging.NewFromEnv()
	ctx := context.Background()

	// A resumed session keeps its saved ID; a fresh run mints one.
	doc := loadDocument(baseLog, *savePath)
	if doc != nil && doc.SessionID != "" {
		ctx = logging.ContextWithSessionID(ctx, doc.SessionID)
	}
	ctx, log := logging.WithSessionLogger(ctx, baseLog)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)
	tracer := otel.Tracer("blob-simulator")

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	var bodies []*model.Body
	if doc != nil {
		bodies = doc.State.Bodies
	} else {
		genCtx, span := tracer.Start(ctx, "generate-system")
		bodies, err = generateSystem(genCtx, log, *seed, *pattern, *velocity, *chaos, *planets, *moons)
		span.End()
		if err != nil {
			log.Error(ctx, "system generation failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	engine, err := core.NewSimulationEngine(bodies,
		core.WithLogger(baseLog),
		core.WithSessionID(logging.SessionIDFromContext(ctx)),
		core.WithMetrics(collector),
		core.WithTimescale(*timescale),
	)
	if err != nil {
		log.Error(ctx, "failed to build simulation engine", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if doc != nil {
		if err := engine.Restore(doc.State); err != nil {
			log.Error(ctx, "failed to restore saved state", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	recorder := history.NewRecorder(engine, *snapshotDays*model.Day,
		history.WithLogger(log),
		history.WithMetrics(collector),
	)
	if doc != nil {
		recorder.Adopt(doc.Snapshots)
	}
	engine.RegisterTickListener(recorder.Observe)

	mode := timectrl.Accelerated
	if *realtime {
		mode = timectrl.RealTime
	}
	clock := timectrl.NewFrameClock(*tick, mode)
	clock.AddListener(func(dt time.Duration) {
		engine.Tick(dt.Seconds())
	})

	log.Info(ctx, "starting simulation",
		logging.Int("bodies", len(bodies)),
		logging.Any("timescale", engine.Timescale()),
	)
	done := clock.Start(*duration)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *statusEvery <= 0 {
		*statusEvery = 5 * time.Second
	}
	status := time.NewTicker(*statusEvery)
	defer status.Stop()

loop:
	for {
		select {
		case <-stopCtx.Done():
			clock.Stop()
			<-done
			break loop
		case <-done:
			break loop
		case <-status.C:
			logStatus(ctx, log, engine, recorder)
		}
	}

	log.Info(ctx, "shutting down simulator")
	logStatus(ctx, log, engine, recorder)
	saveDocument(log, *savePath, engine, recorder)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func generateSystem(ctx context.Context, log logging.Logger, seed int64, pattern, velocity string, chaos bool, planets, moons int) ([]*model.Body, error) {
	p, err := core.ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	v, err := core.ParseVelocityMode(velocity)
	if err != nil {
		return nil, err
	}

	gen, err := core.NewGenerator(core.GenConfig{
		Seed:         seed,
		Planets:      planets,
		Moons:        moons,
		Pattern:      p,
		VelocityMode: v,
		AngularChaos: chaos,
	}, log)
	if err != nil {
		return nil, err
	}
	return gen.Generate()
}

func logStatus(ctx context.Context, log logging.Logger, engine *core.SimulationEngine, recorder *history.Recorder) {
	stats := engine.Stats()
	log.Info(ctx, "simulation status",
		logging.Int("live", stats.Live),
		logging.Int("swallowed", stats.Swallowed),
		logging.Int("escaped", stats.Escaped),
		logging.Any("elapsed_days", stats.ElapsedDays),
		logging.Int("snapshots", recorder.Count()),
	)
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func loadDocument(log logging.Logger, path string) *core.Document {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn(context.Background(), "skipping state load", logging.String("path", path), logging.String("error", err.Error()))
		}
		return nil
	}
	defer f.Close()

	doc, err := core.LoadDocument(f)
	if err != nil {
		log.Warn(context.Background(), "failed to parse state file", logging.String("path", path), logging.String("error", err.Error()))
		return nil
	}

	log.Info(context.Background(), "loaded saved state",
		logging.String("path", path),
		logging.Int("bodies", len(doc.State.Bodies)),
		logging.Int("snapshots", len(doc.Snapshots)),
	)
	return doc
}

func saveDocument(log logging.Logger, path string, engine *core.SimulationEngine, recorder *history.Recorder) {
	if path == "" {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		log.Warn(context.Background(), "failed to create state file", logging.String("path", path), logging.String("error", err.Error()))
		return
	}
	defer f.Close()

	doc := &core.Document{
		SessionID: engine.SessionID(),
		State:     engine.Capture(),
		Snapshots: recorder.Snapshots(),
	}
	if err := core.SaveDocument(f, doc); err != nil {
		log.Warn(context.Background(), "failed to write state file", logging.String("path", path), logging.String("error", err.Error()))
		return
	}

	log.Info(context.Background(), "saved state",
		logging.String("path", path),
		logging.Int("snapshots", len(doc.Snapshots)),
	)
}
