// Package logging fans log lines out to any number of sinks. The sync
// session only sees the Logger interface, so it runs the same with or
// without a UI attached.
package logging

import (
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"
)

// Logger is what the core depends on.
type Logger interface {
	Logf(format string, args ...any)
}

// Entry is one formatted log line.
type Entry struct {
	Time    time.Time
	Message string
}

func (e Entry) String() string {
	return e.Time.Format("15:04:05") + " " + e.Message
}

// Sink receives every entry logged after it was attached. Write must not
// block for long; it runs on the caller's goroutine.
type Sink interface {
	Write(e Entry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry)

func (f SinkFunc) Write(e Entry) { f(e) }

// Service is a Logger that fans out to registered sinks. The zero value is
// not usable; use New.
type Service struct {
	mu    sync.RWMutex
	sinks []attached
	next  int
	now   func() time.Time
}

type attached struct {
	id   int
	sink Sink
}

// New returns a service writing to the given sinks.
func New(sinks ...Sink) *Service {
	s := &Service{now: time.Now}
	for _, sink := range sinks {
		s.Attach(sink)
	}
	return s
}

// Attach registers sink and returns a function that detaches it.
func (s *Service) Attach(sink Sink) (detach func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.sinks = append(s.sinks, attached{id: id, sink: sink})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sinks = slices.DeleteFunc(s.sinks, func(a attached) bool { return a.id == id })
	}
}

// Logf formats a line and hands it to every sink, in attach order.
func (s *Service) Logf(format string, args ...any) {
	e := Entry{Time: s.now(), Message: fmt.Sprintf(format, args...)}

	s.mu.RLock()
	sinks := slices.Clone(s.sinks)
	s.mu.RUnlock()

	for _, a := range sinks {
		a.sink.Write(e)
	}
}

// Std writes through the standard library logger, which the TUI points at
// its log file with tea.LogToFile.
func Std() Sink {
	return SinkFunc(func(e Entry) {
		log.Print(e.Message)
	})
}

// Writer writes entries to w with the standard date/time prefix.
func Writer(w io.Writer) Sink {
	l := log.New(w, "", log.LstdFlags)
	return SinkFunc(func(e Entry) {
		l.Print(e.Message)
	})
}

// Discard drops everything.
var Discard Logger = discard{}

type discard struct{}

func (discard) Logf(string, ...any) {}

// Channel buffers entries for a consumer on another goroutine, such as the
// TUI log pane. Entries are dropped when the buffer is full so logging never
// blocks.
type Channel struct {
	C       chan Entry
	dropped int
	mu      sync.Mutex
}

// NewChannel returns a sink buffering up to size entries.
func NewChannel(size int) *Channel {
	return &Channel{C: make(chan Entry, size)}
}

func (c *Channel) Write(e Entry) {
	select {
	case c.C <- e:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	}
}

// Dropped returns how many entries did not fit in the buffer.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
