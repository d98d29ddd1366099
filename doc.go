/*
Package fastcore provides the core runtime of a FAST (FIX Adapted for
STreaming) wire-protocol ingestion pipeline for market-data feeds.

FAST is a stop-bit-terminated, template-driven binary encoding that
compresses repetitive structured financial records. This module implements
the two pieces of that runtime that carry the real engineering weight:

  - the presence-map codec, the bit-packed sideband that tells a decoder
    which fields are explicitly present in an encoded message
  - the asynchronous multicast packet receiver, which ingests UDP
    datagrams into a bounded buffer pool under backpressure and drives a
    single consumer goroutine in strict arrival order

Out of scope: field codecs (integer/decimal/string/sequence/group),
template registry parsing, XML configuration, and the diagnostics/
profiler facility. Those are the job of a decoder built on top of this
runtime.

Quick Start

Basic usage example:

package main

import (
    "context"
    "log"

    "github.com/searchktools/fast-core/app"
    "github.com/searchktools/fast-core/config"
    "github.com/searchktools/fast-core/core/receiver"
)

func main() {
    cfg := config.New()

    a := app.New(cfg, nil)
    consumer := myPacketConsumer{}

    if err := a.Run(context.Background(), consumer); err != nil {
        log.Fatal(err)
    }
}

Modules

The runtime is organized into several packages:

  - app: process lifecycle (signal handling, metrics server, receiver startup)
  - config: the receiver's configuration surface
  - core/bytesio: ByteSource/ByteSink streaming contracts
  - core/presence: the PresenceMap bit-vector codec
  - core/buffers: LinkedBuffer, the idle pool and the single-server queue
  - core/receiver: PacketConsumer and the multicast Receiver
  - core/logging: the abstract Logger contract plus std/zap adapters
  - core/metrics: Prometheus wiring for the receiver's counters
  - core/tuning: GC tuning for low-latency ingestion processes
  - cmd/fastreceiver: a standalone CLI built on the above

Design notes

  - Every received datagram flows through a fixed pool of pre-allocated
    buffers; once the pool is exhausted, further completions are counted
    (noBufferAvailable) rather than allocated, applying backpressure
    instead of unbounded growth.
  - Exactly one goroutine ever calls the consumer's ConsumeBuffer, in
    strict arrival order, regardless of how many completions race to
    enqueue a packet.

For more information, see https://github.com/searchktools/fast-core
*/
package fastcore
