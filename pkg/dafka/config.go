package dafka

import (
	"time"

	"github.com/dafka-go/consumer/pkg/seqindex"
	"github.com/dafka-go/consumer/pkg/wire"
)

// Config holds the options recognized at construction (spec §6). It is
// built with functional options, the idiom this stack's clients use for
// their own Config types.
type Config struct {
	// Reset is consumer/offset/reset: ResetLatest (default) or
	// ResetEarliest.
	Reset seqindex.ResetPolicy

	// Verbose is consumer/verbose: enables LogLevelDebug output.
	Verbose bool

	// Logger receives diagnostic output. Defaults to NopLogger.
	Logger Logger

	// FetchDedupWindow suppresses a repeat fetch for the same
	// (topic, producer, from) within this duration (§9 open question 1).
	// Zero disables suppression: every gap observation emits a fetch.
	FetchDedupWindow time.Duration

	// ReannounceEarliestOnStoreConnect re-emits an Earliest frame for every
	// subscribed topic, under ResetEarliest, each time the beacon reports a
	// store, including repeat announcements of a store already seen (§9
	// open question 3). Default false: the spec does
	// not require it because the beacon is expected to trigger
	// resubscription on its own.
	ReannounceEarliestOnStoreConnect bool

	// Compression is the codec DATA/DIRECT payloads are expected to
	// arrive compressed with; inbound payloads are decompressed with it
	// before reaching the application. Producers and stores on the same
	// cluster must agree on this out of band — the wire format carries no
	// per-frame compression tag.
	Compression wire.Compression
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithReset sets the offset reset policy.
func WithReset(r seqindex.ResetPolicy) Option {
	return func(c *Config) { c.Reset = r }
}

// WithVerbose enables or disables debug-level logging.
func WithVerbose(v bool) Option {
	return func(c *Config) { c.Verbose = v }
}

// WithLogger sets the Logger used for diagnostics.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithFetchDedupWindow sets the redundant-fetch suppression window.
func WithFetchDedupWindow(d time.Duration) Option {
	return func(c *Config) { c.FetchDedupWindow = d }
}

// WithReannounceEarliestOnStoreConnect enables re-announcing Earliest frames
// when the beacon reports a new store for a subscribed earliest-mode topic.
func WithReannounceEarliestOnStoreConnect(v bool) Option {
	return func(c *Config) { c.ReannounceEarliestOnStoreConnect = v }
}

// WithCompression sets the codec inbound DATA/DIRECT payloads are
// decompressed with.
func WithCompression(c wire.Compression) Option {
	return func(cfg *Config) { cfg.Compression = c }
}

func defaultConfig() Config {
	return Config{
		Reset:            seqindex.ResetLatest,
		Logger:           NopLogger{},
		FetchDedupWindow: 250 * time.Millisecond,
	}
}

// NewConfig builds a Config from the defaults plus the given options.
func NewConfig(opts ...Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
