// SPDX-License-Identifier: MIT
/*
Package transport fans published feature snapshots out to external
consumers: a WebSocket JSON broadcast, binary UDP packets (udp
subpackage) and a debug logging sink. Send is called from the single
analysis goroutine and must never block it; transport failures are
reported to the caller, logged, and never fatal.
*/
package transport

// Transport is a sink for published feature snapshots.
type Transport interface {
	Send(data any) error
	Close() error
}
