// Package metrics exposes a Receiver's counters as Prometheus metrics,
// pulled on scrape via a custom prometheus.Collector rather than pushed
// on every counter update, so instrumentation never touches the
// receiver's hot path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/searchktools/fast-core/core/receiver"
)

const namespace = "fast_receiver"

// Collector implements prometheus.Collector over a single Receiver's
// Snapshot, labeling every series with the receiver's session id so a
// process running several feeds reports them distinctly.
type Collector struct {
	rcv *receiver.Receiver

	noBufferAvailable *prometheus.Desc
	packetsReceived   *prometheus.Desc
	errorPackets      *prometheus.Desc
	emptyPackets      *prometheus.Desc
	packetsQueued     *prometheus.Desc
	batchesProcessed  *prometheus.Desc
	packetsProcessed  *prometheus.Desc
	bytesReceived     *prometheus.Desc
	bytesProcessed    *prometheus.Desc
	largestPacket     *prometheus.Desc
	duplicatePackets  *prometheus.Desc
	bytesReadable     *prometheus.Desc
}

// NewCollector returns a Collector reading from rcv on every scrape.
func NewCollector(rcv *receiver.Receiver) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(namespace+"_"+name, help, []string{"session_id"}, nil)
	}
	return &Collector{
		rcv:               rcv,
		noBufferAvailable: desc("no_buffer_available_total", "Receives that found the idle pool exhausted."),
		packetsReceived:   desc("packets_received_total", "OS receive completions, success or failure."),
		errorPackets:      desc("error_packets_total", "Receive completions that reported a communication error."),
		emptyPackets:      desc("empty_packets_total", "Receive completions with zero bytes."),
		packetsQueued:     desc("packets_queued_total", "Datagrams enqueued for the consumer."),
		batchesProcessed:  desc("batches_processed_total", "Service-loop batches run."),
		packetsProcessed:  desc("packets_processed_total", "Datagrams dequeued by the servicer."),
		bytesReceived:     desc("bytes_received_total", "Bytes received from the socket."),
		bytesProcessed:    desc("bytes_processed_total", "Bytes handed to the consumer."),
		largestPacket:     desc("largest_packet_bytes", "Largest single datagram seen."),
		duplicatePackets:  desc("duplicate_packets_total", "Datagrams recognized as repeats within the dedup window."),
		bytesReadable:     desc("bytes_readable", "Bytes received but not yet processed, including any still queued in the OS."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.noBufferAvailable
	ch <- c.packetsReceived
	ch <- c.errorPackets
	ch <- c.emptyPackets
	ch <- c.packetsQueued
	ch <- c.batchesProcessed
	ch <- c.packetsProcessed
	ch <- c.bytesReceived
	ch <- c.bytesProcessed
	ch <- c.largestPacket
	ch <- c.duplicatePackets
	ch <- c.bytesReadable
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.rcv.Snapshot()
	counter := func(desc *prometheus.Desc, v uint64) prometheus.Metric {
		return prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), snap.SessionID)
	}
	gauge := func(desc *prometheus.Desc, v uint64) prometheus.Metric {
		return prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(v), snap.SessionID)
	}

	ch <- counter(c.noBufferAvailable, snap.NoBufferAvailable)
	ch <- counter(c.packetsReceived, snap.PacketsReceived)
	ch <- counter(c.errorPackets, snap.ErrorPackets)
	ch <- counter(c.emptyPackets, snap.EmptyPackets)
	ch <- counter(c.packetsQueued, snap.PacketsQueued)
	ch <- counter(c.batchesProcessed, snap.BatchesProcessed)
	ch <- counter(c.packetsProcessed, snap.PacketsProcessed)
	ch <- counter(c.bytesReceived, snap.BytesReceived)
	ch <- counter(c.bytesProcessed, snap.BytesProcessed)
	ch <- gauge(c.largestPacket, snap.LargestPacket)
	ch <- counter(c.duplicatePackets, snap.DuplicatePackets)
	ch <- gauge(c.bytesReadable, snap.BytesReadable)
}

// Serve starts a blocking HTTP server on addr exposing /metrics for rcv.
// Intended to be run in its own goroutine.
func Serve(addr string, rcv *receiver.Receiver) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(rcv))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
