// Command dafka-consumer runs the consumer core as a standalone process:
// it connects to a NATS server standing in for the wire transport, joins
// the beacon segment, subscribes to the topics named on the command line,
// and logs every delivered payload. It exists to exercise pkg/dafka end to
// end, not as a production deployment tool.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dafka-go/consumer/pkg/beacon"
	"github.com/dafka-go/consumer/pkg/dafka"
	"github.com/dafka-go/consumer/pkg/metrics"
	"github.com/dafka-go/consumer/pkg/seqindex"
	"github.com/dafka-go/consumer/pkg/transport"
	"github.com/dafka-go/consumer/pkg/wire"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "dafka-consumer",
		Short: "Run a dafka consumer against a NATS-backed cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("nats-url", "nats://127.0.0.1:4222", "address of the NATS server standing in for the wire transport")
	flags.StringSlice("topic", nil, "topic to subscribe to at startup (repeatable)")
	flags.String("consumer.offset.reset", "latest", `"latest" or "earliest"`)
	flags.Bool("consumer.verbose", false, "enable debug-level diagnostic logging")
	flags.Duration("consumer.fetch-dedup-window", 250*time.Millisecond, "suppress a repeat fetch for the same (topic, producer, from) within this window; 0 disables")
	flags.Bool("consumer.reannounce-earliest-on-store-connect", false, "re-emit Earliest for subscribed earliest-mode topics each time the beacon reports a store")
	flags.String("beacon.listen-addr", ":9999", "local UDP address to receive beacon announcements on")
	flags.String("beacon.broadcast-addr", "255.255.255.255:9999", "UDP address this consumer's own announcements are sent to")
	flags.Duration("beacon.interval", time.Second, "how often this consumer re-announces itself")
	flags.String("beacon.secret", "", "shared secret authenticating beacon announcements on the segment")
	flags.String("metrics.listen-addr", "", "if set, serve Prometheus metrics on this address (e.g. :2112)")
	flags.String("consumer.compression", "none", `codec inbound payloads arrive compressed with: "none", "gzip", "snappy", or "lz4"`)

	v.BindPFlags(flags)
	v.SetEnvPrefix("dafka")
	v.AutomaticEnv()

	return cmd
}

func run(v *viper.Viper) error {
	logger := dafka.NewSlogLogger(logThreshold(v.GetBool("consumer.verbose")), "text")

	conn, err := transport.DialNATS(v.GetString("nats-url"))
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}

	m := metrics.New()
	if addr := v.GetString("metrics.listen-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		m.MustRegister(reg)
		go serveMetrics(addr, reg, logger)
	}

	beaconCfg := beacon.Config{
		ListenAddr:    v.GetString("beacon.listen-addr"),
		BroadcastAddr: v.GetString("beacon.broadcast-addr"),
		Interval:      v.GetDuration("beacon.interval"),
		Secret:        []byte(v.GetString("beacon.secret")),
	}

	client, err := dafka.New(conn, beaconCfg, m,
		dafka.WithReset(seqindex.ParseResetPolicy(v.GetString("consumer.offset.reset"))),
		dafka.WithVerbose(v.GetBool("consumer.verbose")),
		dafka.WithLogger(logger),
		dafka.WithFetchDedupWindow(v.GetDuration("consumer.fetch-dedup-window")),
		dafka.WithReannounceEarliestOnStoreConnect(v.GetBool("consumer.reannounce-earliest-on-store-connect")),
		dafka.WithCompression(parseCompression(v.GetString("consumer.compression"))),
	)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	logger.Log(dafka.LogLevelInfo, "consumer ready", "address", client.Address().String())

	for _, topic := range v.GetStringSlice("topic") {
		if err := client.Subscribe(topic); err != nil {
			return fmt.Errorf("subscribe %q: %w", topic, err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case d := <-client.Deliveries():
			logger.Log(dafka.LogLevelInfo, "delivered", "topic", d.Topic, "producer", d.Producer, "bytes", len(d.Payload))
		case <-sigCh:
			logger.Log(dafka.LogLevelInfo, "shutting down")
			return client.Close()
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger dafka.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log(dafka.LogLevelError, "metrics server exited", "err", err)
	}
}

func parseCompression(s string) wire.Compression {
	switch s {
	case "gzip":
		return wire.CompressionGzip
	case "snappy":
		return wire.CompressionSnappy
	case "lz4":
		return wire.CompressionLZ4
	default:
		return wire.CompressionNone
	}
}

func logThreshold(verbose bool) dafka.LogLevel {
	if verbose {
		return dafka.LogLevelDebug
	}
	return dafka.LogLevelInfo
}
