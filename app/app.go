package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/searchktools/fast-core/config"
	"github.com/searchktools/fast-core/core/logging"
	"github.com/searchktools/fast-core/core/metrics"
	"github.com/searchktools/fast-core/core/receiver"
	"github.com/searchktools/fast-core/core/tuning"
)

// App wires a ReceiverConfig into a running Receiver, its metrics
// endpoint, and signal-driven shutdown.
type App struct {
	cfg *config.ReceiverConfig
	log logging.Logger
	mgr *config.Manager
}

// New creates an application instance. If logger is nil, a StdLogger at
// the level named in cfg.LogLevel is used.
func New(cfg *config.ReceiverConfig, logger logging.Logger) *App {
	if logger == nil {
		logger = logging.NewStdLogger(logging.ParseLevel(cfg.LogLevel))
	}
	return &App{cfg: cfg, log: logger}
}

// WithManager attaches a config.Manager so that changes to its
// "log-level" and "dedup-window" keys take effect on the running logger
// and receiver without a restart, and so "stats-interval",
// "metrics-enabled", "log-sample-rate" and "log-tags" are read through
// it rather than straight off cfg. Watchers are registered the next
// time Run is called. If WithManager is never called, Run creates a
// private Manager seeded from cfg, so the rest of Run can always read
// through a.mgr.
func (a *App) WithManager(mgr *config.Manager) *App {
	a.mgr = mgr
	return a
}

// Run applies GC tuning, starts the metrics server, starts the
// receiver, and blocks until ctx is canceled or a SIGINT/SIGTERM
// arrives, at which point it stops the receiver and returns.
func (a *App) Run(ctx context.Context, consumer receiver.PacketConsumer) error {
	tuning.ApplyGCConfig(tuning.GCConfig{GOGC: a.cfg.GCPercent})

	if a.mgr == nil {
		a.mgr = config.NewManager()
	}

	sessionID := a.cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	rcv := receiver.New(a.cfg.MulticastGroupIP, a.cfg.ListenInterfaceIP, a.cfg.PortNumber).
		WithSessionID(sessionID)
	if a.cfg.ReceiveBufferBytes > 0 {
		rcv = rcv.WithReceiveBuffer(a.cfg.ReceiveBufferBytes)
	}
	if a.cfg.DedupWindow > 0 {
		rcv = rcv.WithDuplicateDetection(a.cfg.DedupWindow)
	}

	a.mgr.Set("log-level", a.cfg.LogLevel)
	a.mgr.Set("dedup-window", a.cfg.DedupWindow)
	a.mgr.Set("stats-interval", a.cfg.StatsInterval)
	a.mgr.Set("metrics-enabled", a.cfg.MetricsEnabled)
	a.mgr.Set("log-sample-rate", a.cfg.LogSampleRate)
	a.mgr.Set("log-tags", a.cfg.LogTags)
	a.mgr.Watch("log-level", func(_ string, _ interface{}) {
		if setter, ok := a.log.(logging.LevelSetter); ok {
			setter.SetLevel(logging.ParseLevel(a.mgr.GetString("log-level")))
		}
	})
	a.mgr.Watch("dedup-window", func(_ string, _ interface{}) {
		rcv.SetDedupWindow(a.mgr.GetInt("dedup-window"))
	})

	a.log.LogMessage(logging.Verbose, fmt.Sprintf("active config: %v", a.mgr.GetAll()))
	a.log.LogMessage(logging.Verbose, fmt.Sprintf(
		"log sample rate: %.2f", a.mgr.GetFloat("log-sample-rate", a.cfg.LogSampleRate)))
	if tags := a.mgr.GetStringSlice("log-tags"); len(tags) > 0 {
		a.log.LogMessage(logging.Info, "log tags: "+strings.Join(tags, ","))
	}

	if a.cfg.DumpConfigFile != "" {
		if err := a.mgr.SaveToJSON(a.cfg.DumpConfigFile); err != nil {
			a.log.LogMessage(logging.Warning, fmt.Sprintf("dump-config-file: %v", err))
		}
	}

	if a.mgr.GetBool("metrics-enabled", true) && a.cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(a.cfg.MetricsAddr, rcv); err != nil {
				a.log.LogMessage(logging.Warning, fmt.Sprintf("metrics server stopped: %v", err))
			}
		}()
		a.log.LogMessage(logging.Info, fmt.Sprintf("metrics listening on %s", a.cfg.MetricsAddr))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.awaitSignal(cancel)

	a.log.LogMessage(logging.Info, fmt.Sprintf(
		"joining %s:%d on %s, session %s", a.cfg.MulticastGroupIP, a.cfg.PortNumber, a.cfg.ListenInterfaceIP, sessionID))

	if err := rcv.Start(runCtx, consumer, a.cfg.BufferSize, a.cfg.BufferCount); err != nil {
		return fmt.Errorf("receiver start: %w", err)
	}

	a.runStatsLoop(runCtx, rcv)

	<-runCtx.Done()
	rcv.Stop()
	a.log.LogMessage(logging.Info, "receiver stopped: "+rcv.Snapshot().Text())
	return nil
}

// runStatsLoop logs rcv's snapshot at the interval named by the
// "stats-interval" manager key until ctx is done. An interval of 0 or
// less disables periodic logging; the final snapshot is still logged by
// Run after Stop.
func (a *App) runStatsLoop(ctx context.Context, rcv *receiver.Receiver) {
	interval := a.mgr.GetDuration("stats-interval", a.cfg.StatsInterval)
	if interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				a.log.LogMessage(logging.Info, rcv.Snapshot().Text())
			}
		}
	}()
}

func (a *App) awaitSignal(cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	a.log.LogMessage(logging.Info, fmt.Sprintf("signal received: %v, shutting down", sig))
	cancel()
}
