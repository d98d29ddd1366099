// Command fastreceiver runs a standalone multicast FAST feed receiver,
// logging datagram activity and serving Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/searchktools/fast-core/config"
	"github.com/searchktools/fast-core/core/logging"
	"github.com/searchktools/fast-core/core/metrics"
	"github.com/searchktools/fast-core/core/receiver"
	"github.com/searchktools/fast-core/core/tuning"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config.ReceiverConfig{}
	var logTags string

	root := &cobra.Command{
		Use:   "fastreceiver",
		Short: "Joins a multicast FAST feed and reports receive statistics",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start receiving datagrams from the configured multicast group",
		RunE: func(cmd *cobra.Command, args []string) error {
			if logTags != "" {
				cfg.LogTags = strings.Split(logTags, ",")
			}
			if cfg.ConfigFile != "" {
				fileValues := config.NewManager()
				if err := fileValues.LoadFromJSON(cfg.ConfigFile); err != nil {
					return fmt.Errorf("config-file: %w", err)
				}
				fileValues.Unmarshal("", cfg)
			}
			return runStart(cmd.Context(), cfg)
		},
	}

	flags := start.Flags()
	flags.StringVar(&cfg.MulticastGroupIP, "group", "239.1.1.1", "multicast group address to join")
	flags.StringVar(&cfg.ListenInterfaceIP, "iface", "0.0.0.0", "local interface address to join the group on")
	flags.IntVar(&cfg.PortNumber, "port", 30001, "UDP port to listen on")
	flags.IntVar(&cfg.BufferSize, "buffer-size", 1600, "size in bytes of each receive buffer")
	flags.IntVar(&cfg.BufferCount, "buffer-count", 64, "number of receive buffers in the fixed pool")
	flags.IntVar(&cfg.ReceiveBufferBytes, "recv-buffer", 0, "SO_RCVBUF size in bytes, 0 to leave the OS default")
	flags.StringVar(&cfg.SessionID, "session-id", "", "session identifier, random if empty")
	flags.IntVar(&cfg.DedupWindow, "dedup-window", 0, "duplicate-detection ring size, 0 to disable")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	flags.BoolVar(&cfg.MetricsEnabled, "metrics-enabled", true, "serve /metrics; false disables the HTTP server entirely")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "log level: fatal, serious, warning, info, verbose")
	flags.Float64Var(&cfg.LogSampleRate, "log-sample-rate", 1.0, "fraction of Verbose datagram log lines actually emitted, 0..1")
	flags.StringVar(&logTags, "log-tags", "", "comma-separated tags logged once at startup")
	flags.IntVar(&cfg.GCPercent, "gc-percent", 200, "GOGC target percentage")
	flags.DurationVar(&cfg.StatsInterval, "stats-interval", 30*time.Second, "how often to log receiver statistics while running, 0 to disable")
	flags.StringVar(&cfg.ConfigFile, "config-file", "", "optional JSON file of overrides applied on top of these flags")
	flags.StringVar(&cfg.DumpConfigFile, "dump-config-file", "", "if set, write the resolved runtime configuration as JSON to this path")

	root.AddCommand(start)
	return root
}

// diagnosticConsumer is the default PacketConsumer used by the CLI: it
// logs activity through the same logging.Logger the app layer uses and
// does not attempt to decode FAST templates. sampleRate thins the
// per-datagram line out at high packet rates.
type diagnosticConsumer struct {
	log        logging.Logger
	count      uint64
	sampleRate float64
}

func (c *diagnosticConsumer) ReceiverStarted() {
	c.log.LogMessage(logging.Info, "receiver started")
}

func (c *diagnosticConsumer) ConsumeBuffer(data []byte) bool {
	c.count++
	if c.log.WantLog(logging.Verbose) && c.sampled() {
		c.log.LogMessage(logging.Verbose, fmt.Sprintf("datagram %d: %d bytes", c.count, len(data)))
	}
	return true
}

func (c *diagnosticConsumer) sampled() bool {
	switch {
	case c.sampleRate >= 1:
		return true
	case c.sampleRate <= 0:
		return false
	default:
		return rand.Float64() < c.sampleRate
	}
}

func (c *diagnosticConsumer) ReportCommunicationError(msg string) bool {
	c.log.LogMessage(logging.Serious, "communication error: "+msg)
	return true
}

func (c *diagnosticConsumer) ReportDecodingError(msg string) bool {
	c.log.LogMessage(logging.Warning, "decoding error: "+msg)
	return true
}

func (c *diagnosticConsumer) WantLog(level logging.Level) bool { return c.log.WantLog(level) }

func (c *diagnosticConsumer) LogMessage(level logging.Level, msg string) bool {
	return c.log.LogMessage(level, msg)
}

func runStart(ctx context.Context, cfg *config.ReceiverConfig) error {
	logger := logging.NewStdLogger(logging.ParseLevel(cfg.LogLevel))
	tuning.ApplyGCConfig(tuning.GCConfig{GOGC: cfg.GCPercent})

	rcv := receiver.New(cfg.MulticastGroupIP, cfg.ListenInterfaceIP, cfg.PortNumber).
		WithSessionID(cfg.SessionID)
	if cfg.ReceiveBufferBytes > 0 {
		rcv = rcv.WithReceiveBuffer(cfg.ReceiveBufferBytes)
	}
	if cfg.DedupWindow > 0 {
		rcv = rcv.WithDuplicateDetection(cfg.DedupWindow)
	}

	mgr := config.NewManager()
	mgr.Set("log-level", cfg.LogLevel)
	mgr.Set("dedup-window", cfg.DedupWindow)
	mgr.Set("stats-interval", cfg.StatsInterval)
	mgr.Set("metrics-enabled", cfg.MetricsEnabled)
	mgr.Set("log-sample-rate", cfg.LogSampleRate)
	mgr.Set("log-tags", cfg.LogTags)
	mgr.Watch("log-level", func(_ string, _ interface{}) {
		logger.SetLevel(logging.ParseLevel(mgr.GetString("log-level")))
	})
	mgr.Watch("dedup-window", func(_ string, _ interface{}) {
		rcv.SetDedupWindow(mgr.GetInt("dedup-window"))
	})

	logger.LogMessage(logging.Verbose, fmt.Sprintf("active config: %v", mgr.GetAll()))
	if tags := mgr.GetStringSlice("log-tags"); len(tags) > 0 {
		logger.LogMessage(logging.Info, "log tags: "+strings.Join(tags, ","))
	}
	if cfg.DumpConfigFile != "" {
		if err := mgr.SaveToJSON(cfg.DumpConfigFile); err != nil {
			logger.LogMessage(logging.Warning, fmt.Sprintf("dump-config-file: %v", err))
		}
	}

	if mgr.GetBool("metrics-enabled", true) && cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr, rcv); err != nil {
				logger.LogMessage(logging.Warning, "metrics server stopped: "+err.Error())
			}
		}()
	}

	consumer := &diagnosticConsumer{log: logger, sampleRate: mgr.GetFloat("log-sample-rate", cfg.LogSampleRate)}
	if err := rcv.Start(ctx, consumer, cfg.BufferSize, cfg.BufferCount); err != nil {
		return err
	}

	stopStats := runStatsLoop(ctx, mgr, rcv, cfg.StatsInterval)
	defer stopStats()

	<-ctx.Done()
	rcv.Stop()
	fmt.Println(rcv.Snapshot().Text())
	fmt.Println(tuning.GetGCStats().Text())
	return nil
}

// runStatsLoop logs rcv's snapshot at the interval named by the
// "stats-interval" manager key until ctx is done or the returned stop
// function is called. An interval of 0 or less disables periodic
// logging; the final snapshot is still printed by runStart after Stop.
func runStatsLoop(ctx context.Context, mgr *config.Manager, rcv *receiver.Receiver, fallback time.Duration) func() {
	interval := mgr.GetDuration("stats-interval", fallback)
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-t.C:
				fmt.Println(rcv.Snapshot().Text())
			}
		}
	}()
	return func() { close(done) }
}
