package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// SourceKind is the closed set of readiness sources.
type SourceKind int

const (
	SourceSocket SourceKind = iota
	SourceInput
)

func (k SourceKind) String() string {
	switch k {
	case SourceSocket:
		return "socket"
	case SourceInput:
		return "input"
	default:
		return fmt.Sprintf("source(%d)", int(k))
	}
}

// Source produces one unit of data per Read. Read may block.
type Source struct {
	Kind SourceKind
	Read func() ([]byte, error)
}

// Event is one ready source and what it produced.
type Event struct {
	Source SourceKind
	Data   []byte
	Err    error
}

// SocketSource reads datagrams from conn.
func SocketSource(conn Conn) Source {
	return Source{Kind: SourceSocket, Read: conn.Receive}
}

// LineSource reads newline-terminated lines from r with the line ending
// stripped. A final unterminated line is still delivered before io.EOF.
func LineSource(r io.Reader) Source {
	br := bufio.NewReader(r)
	return Source{
		Kind: SourceInput,
		Read: func() ([]byte, error) {
			line, err := br.ReadString('\n')
			if err != nil && line == "" {
				return nil, err
			}
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			return []byte(line), nil
		},
	}
}

// Mux multiplexes sources without polling. Each source is read only once
// its previous event has been returned from Wait, so the caller fully
// handles one event before the next read starts. Wait must be called from
// a single goroutine.
type Mux struct {
	events  chan Event
	demand  map[SourceKind]chan struct{}
	armed   map[SourceKind]bool
	stopped map[SourceKind]bool
}

// NewMux starts one pump per source. Pumps exit when ctx is done; a pump
// blocked inside Read exits once its Read returns.
func NewMux(ctx context.Context, sources ...Source) *Mux {
	m := &Mux{
		events:  make(chan Event),
		demand:  make(map[SourceKind]chan struct{}, len(sources)),
		armed:   make(map[SourceKind]bool, len(sources)),
		stopped: make(map[SourceKind]bool, len(sources)),
	}
	for _, src := range sources {
		d := make(chan struct{}, 1)
		m.demand[src.Kind] = d
		go m.pump(ctx, src, d)
	}
	return m
}

func (m *Mux) pump(ctx context.Context, src Source, demand <-chan struct{}) {
	for {
		select {
		case <-demand:
		case <-ctx.Done():
			return
		}
		data, err := src.Read()
		select {
		case m.events <- Event{Source: src.Kind, Data: data, Err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil && (src.Kind == SourceInput || !IsRetryable(err)) {
			return
		}
	}
}

// Wait blocks until a source is ready. A non-retryable socket error is
// returned as ErrWaitFailed. An input error (including io.EOF) stops the
// input source and is returned as the event's Err.
func (m *Mux) Wait(ctx context.Context) (Event, error) {
	live := 0
	for kind, d := range m.demand {
		if m.stopped[kind] {
			continue
		}
		live++
		if !m.armed[kind] {
			d <- struct{}{}
			m.armed[kind] = true
		}
	}
	if live == 0 {
		return Event{}, fmt.Errorf("%w: no live sources", ErrWaitFailed)
	}

	select {
	case ev := <-m.events:
		m.armed[ev.Source] = false
		if ev.Err == nil {
			return ev, nil
		}
		if ev.Source == SourceInput {
			m.stopped[ev.Source] = true
			return ev, nil
		}
		if !IsRetryable(ev.Err) {
			m.stopped[ev.Source] = true
			return ev, fmt.Errorf("%w: %s: %w", ErrWaitFailed, ev.Source, ev.Err)
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Live reports whether kind is still being read.
func (m *Mux) Live(kind SourceKind) bool {
	_, ok := m.demand[kind]
	return ok && !m.stopped[kind]
}
