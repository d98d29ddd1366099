// Package receiver implements the asynchronous multicast packet receiver:
// a bounded pool of receive buffers, a single-servicer FIFO queue, and the
// goroutine plumbing that drives exactly one consumer callback per
// datagram in strict arrival order under backpressure.
package receiver

import "github.com/searchktools/fast-core/core/logging"

// PacketConsumer is the callback contract a caller implements to receive
// datagrams and diagnostics from a Receiver. Its methods are invoked from
// receiver-owned goroutines; an implementation must not call back into
// the same Receiver's Start or Stop from within any of them, directly or
// transitively, without deadlocking.
type PacketConsumer interface {
	// ReceiverStarted is called once, synchronously, from Start after the
	// socket is open and the multicast group has been joined but before
	// any buffers are posted for receive.
	ReceiverStarted()

	// ConsumeBuffer is called once per received datagram, strictly in
	// arrival order, by a single goroutine at a time. data aliases the
	// receive buffer and must not be retained past the call. Returning
	// false requests that the receiver stop; a panic is recovered and
	// routed to ReportDecodingError.
	ConsumeBuffer(data []byte) bool

	// ReportCommunicationError is called when the underlying socket
	// reports an error. Returning false requests that the receiver stop.
	ReportCommunicationError(msg string) bool

	// ReportDecodingError is called when ConsumeBuffer panics. Returning
	// false requests that the receiver stop.
	ReportDecodingError(msg string) bool

	// WantLog and LogMessage let the receiver emit its own diagnostic
	// messages (multicast join confirmation, etc.) through whatever
	// logging facility the consumer is already wired to. LogMessage
	// returns false to request that the receiver stop, mirroring
	// ReportCommunicationError and ReportDecodingError's continue/stop
	// contract.
	WantLog(level logging.Level) bool
	LogMessage(level logging.Level, msg string) bool
}

// LoggerAdapter exposes a PacketConsumer's WantLog/LogMessage pair as a
// logging.Logger, for code that wants to log through the consumer's
// chosen sink without depending on the rest of the PacketConsumer
// contract.
type LoggerAdapter struct {
	Consumer PacketConsumer
}

func (a LoggerAdapter) WantLog(level logging.Level) bool { return a.Consumer.WantLog(level) }

func (a LoggerAdapter) LogMessage(level logging.Level, msg string) bool {
	return a.Consumer.LogMessage(level, msg)
}
