package config

import (
	"flag"
	"strings"
	"time"
)

// ReceiverConfig holds everything needed to start one multicast
// receiver plus its ambient logging and metrics. Fields tagged `config`
// are the ones ConfigFile can override -- see Manager.Unmarshal.
type ReceiverConfig struct {
	MulticastGroupIP   string `config:"group"`
	ListenInterfaceIP  string `config:"iface"`
	PortNumber         int    `config:"port"`
	BufferSize         int    `config:"buffer-size"`
	BufferCount        int    `config:"buffer-count"`
	ReceiveBufferBytes int    `config:"recv-buffer"`
	SessionID          string `config:"session-id"`
	DedupWindow        int    `config:"dedup-window"`

	MetricsAddr    string        `config:"metrics-addr"`
	MetricsEnabled bool          `config:"metrics-enabled"`
	LogLevel       string        `config:"log-level"`
	LogSampleRate  float64       `config:"log-sample-rate"`
	LogTags        []string      `config:"-"` // Manager.setFieldValue can't assign []interface{} into []string; set via flag/CLI only
	GCPercent      int           `config:"gc-percent"`
	StatsInterval  time.Duration `config:"stats-interval"`

	// ConfigFile, if set, is loaded as a JSON object and overlaid onto
	// the fields above after flags are parsed. DumpConfigFile, if set,
	// is where the resolved runtime configuration is written back out
	// as JSON for diagnostics.
	ConfigFile     string `config:"-"`
	DumpConfigFile string `config:"-"`
}

// New loads a ReceiverConfig from command-line flags, then from
// FAST_GROUP and FAST_METRICS_ADDR for the group and metrics address
// when their flags are left at the default (no other field is read from
// the environment), then from ConfigFile if one was given, which
// overrides both earlier layers.
func New() *ReceiverConfig {
	cfg := &ReceiverConfig{}
	var logTags string

	flag.StringVar(&cfg.MulticastGroupIP, "group", "239.1.1.1", "multicast group address to join")
	flag.StringVar(&cfg.ListenInterfaceIP, "iface", "0.0.0.0", "local interface address to join the group on")
	flag.IntVar(&cfg.PortNumber, "port", 30001, "UDP port to listen on")
	flag.IntVar(&cfg.BufferSize, "buffer-size", 1600, "size in bytes of each receive buffer")
	flag.IntVar(&cfg.BufferCount, "buffer-count", 64, "number of receive buffers in the fixed pool")
	flag.IntVar(&cfg.ReceiveBufferBytes, "recv-buffer", 0, "SO_RCVBUF size in bytes, 0 to leave the OS default")
	flag.StringVar(&cfg.SessionID, "session-id", "", "session identifier, random if empty")
	flag.IntVar(&cfg.DedupWindow, "dedup-window", 0, "duplicate-detection ring size, 0 to disable")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	flag.BoolVar(&cfg.MetricsEnabled, "metrics-enabled", true, "serve /metrics; false disables the HTTP server entirely")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level: fatal, serious, warning, info, verbose")
	flag.Float64Var(&cfg.LogSampleRate, "log-sample-rate", 1.0, "fraction of Verbose datagram log lines actually emitted, 0..1")
	flag.StringVar(&logTags, "log-tags", "", "comma-separated tags logged once at startup")
	flag.IntVar(&cfg.GCPercent, "gc-percent", 200, "GOGC target percentage")
	flag.DurationVar(&cfg.StatsInterval, "stats-interval", 30*time.Second, "how often to log receiver statistics while running, 0 to disable")
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "optional JSON file of overrides applied on top of flags and environment")
	flag.StringVar(&cfg.DumpConfigFile, "dump-config-file", "", "if set, write the resolved runtime configuration as JSON to this path")

	flag.Parse()
	if logTags != "" {
		cfg.LogTags = strings.Split(logTags, ",")
	}

	// LoadFromEnv lowercases FAST_GROUP to "group" and turns any other
	// underscore into a dot, so FAST_METRICS_ADDR becomes "metrics.addr".
	env := NewManager()
	env.LoadFromEnv("FAST_")
	overrideStringIfDefault(env, "group", &cfg.MulticastGroupIP, "239.1.1.1")
	overrideStringIfDefault(env, "metrics.addr", &cfg.MetricsAddr, ":9090")

	if cfg.ConfigFile != "" {
		fileValues := NewManager()
		if err := fileValues.LoadFromJSON(cfg.ConfigFile); err == nil {
			fileValues.Unmarshal("", cfg)
		}
	}

	return cfg
}

// overrideStringIfDefault replaces *field with env's value for key, but
// only if *field is still sitting at defaultValue -- an explicit flag
// always wins over the environment.
func overrideStringIfDefault(env *Manager, key string, field *string, defaultValue string) {
	if *field != defaultValue {
		return
	}
	if v := env.GetString(key); v != "" {
		*field = v
	}
}
