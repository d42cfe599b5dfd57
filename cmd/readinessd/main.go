package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/config"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/history"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/httpapi"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/journal"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/replay"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/telemetry"
)

// #region main

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	policy, err := config.LoadPolicy(settings.PolicyPath)
	if err != nil {
		log.Fatalf("load policy: %v", err)
	}

	jnl, err := journal.Open(settings.DBPath)
	if err != nil {
		log.Fatalf("open journal: %v", err)
	}
	defer jnl.Close()

	run, err := jnl.BeginRun(policy)
	if err != nil {
		log.Fatalf("begin run: %v", err)
	}

	store := history.NewStore()
	store.SetCapacity(settings.HistorySize)
	metrics := httpapi.NewMetrics()
	engine := readiness.NewEngine(policy)

	srv := &http.Server{
		Addr:    settings.Addr,
		Handler: httpapi.NewServer(store, metrics).Router(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api server: %v", err)
		}
	}()

	fmt.Println("Phase Readiness daemon ready.")
	fmt.Printf("  DB: %s | API: %s | run: %s\n", settings.DBPath, settings.Addr, run.RunID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := &evalLoop{
		engine:  engine,
		store:   store,
		journal: jnl,
		metrics: metrics,
		runID:   run.RunID,
	}

	switch settings.Source {
	case "stdin":
		loop.runStdin(ctx)
	default:
		scenario, err := telemetry.ParseScenario(settings.Scenario)
		if err != nil {
			log.Fatalf("scenario: %v", err)
		}
		loop.runSynthetic(ctx, scenario, settings.TickSec)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown: %v", err)
	}
	log.Println("readinessd stopped")
}

// #endregion main

// #region loop

type evalLoop struct {
	engine  *readiness.Engine
	store   *history.Store
	journal *journal.Journal
	metrics *httpapi.Metrics
	runID   string
}

func (l *evalLoop) process(sig readiness.Signals) {
	out := l.engine.Evaluate(sig)
	l.store.Update(sig, out)
	l.metrics.Observe(out)
	if err := l.journal.Append(l.runID, sig, out); err != nil {
		log.Printf("journal append: %v", err)
	}
}

// runSynthetic drives the engine from the named scenario at a fixed tick
// until the context is canceled.
func (l *evalLoop) runSynthetic(ctx context.Context, scenario telemetry.Scenario, tickSec float64) {
	gen := telemetry.NewGenerator(scenario)
	ticker := time.NewTicker(time.Duration(tickSec * float64(time.Second)))
	defer ticker.Stop()

	var t float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.process(gen.At(t))
			t += tickSec
		}
	}
}

// runStdin drives the engine from JSON lines on stdin, one signal per line in
// the fixture sample format. Malformed lines are logged and skipped.
func (l *evalLoop) runStdin(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sample replay.FixtureSample
		if err := json.Unmarshal(line, &sample); err != nil {
			log.Printf("bad signal line: %v", err)
			continue
		}
		l.process(sample.ToSignals())
	}
	if err := scanner.Err(); err != nil {
		log.Printf("stdin: %v", err)
	}
}

// #endregion loop
