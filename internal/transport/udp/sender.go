// SPDX-License-Identifier: MIT
/*
Package udp streams fixed-layout binary feature packets to a single
peer. The publisher samples the snapshot slot on its own ticker, so a
slow or absent receiver costs the analysis loop nothing.
*/
package udp

import (
	"fmt"
	"net"
	"sync"

	"sonoscope/internal/log"
)

// Sender owns the UDP socket. Safe for concurrent Send and Close.
type Sender struct {
	mu     sync.Mutex
	conn   *net.UDPConn
	closed bool
}

// NewSender dials target ("host:port"). UDP connect does not probe the
// peer, so this succeeds with nobody listening.
func NewSender(target string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve udp target %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp %q: %w", target, err)
	}

	log.Infof("udp transport sending to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits one datagram.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("udp sender closed")
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("udp send: %w", err)
	}
	return nil
}

// Close shuts the socket. Safe to call twice.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
