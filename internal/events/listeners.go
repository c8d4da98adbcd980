package events

import (
	"context"

	"mobile-clean/internal/model"
)

// Nop ignores every callback. Embed it to implement only the callbacks you
// care about.
type Nop struct{}

func (Nop) OnScanStarted()               {}
func (Nop) OnScanProgress(int, string)   {}
func (Nop) OnFileFound(model.Descriptor) {}
func (Nop) OnScanCompleted(int, int64)   {}
func (Nop) OnScanError(error)            {}
func (Nop) OnCleanStarted()              {}
func (Nop) OnCleanProgress(int, string)  {}
func (Nop) OnCleanCompleted(int, int64)  {}
func (Nop) OnCleanError(error)           {}

var (
	_ ScanListener  = Nop{}
	_ CleanListener = Nop{}
)

// Func adapts a single callback into both listener interfaces.
type Func func(Event)

func (f Func) OnScanStarted()                    { f(ScanStarted{}) }
func (f Func) OnScanProgress(p int, path string) { f(ScanProgress{Percent: p, Path: path}) }
func (f Func) OnFileFound(d model.Descriptor)    { f(FileFound{File: d}) }
func (f Func) OnScanCompleted(n int, size int64) { f(ScanCompleted{TotalFiles: n, TotalSize: size}) }
func (f Func) OnScanError(err error)             { f(ScanError{Err: err}) }
func (f Func) OnCleanStarted()                   { f(CleanStarted{}) }
func (f Func) OnCleanProgress(p int, name string) {
	f(CleanProgress{Percent: p, Name: name})
}
func (f Func) OnCleanCompleted(n int, size int64) {
	f(CleanCompleted{DeletedCount: n, DeletedSize: size})
}
func (f Func) OnCleanError(err error) { f(CleanError{Err: err}) }

// Dispatch delivers an event to the matching callback of l. l must implement
// ScanListener, CleanListener, or both; events without a matching interface
// are dropped.
func Dispatch(l any, e Event) {
	if sl, ok := l.(ScanListener); ok {
		switch ev := e.(type) {
		case ScanStarted:
			sl.OnScanStarted()
			return
		case ScanProgress:
			sl.OnScanProgress(ev.Percent, ev.Path)
			return
		case FileFound:
			sl.OnFileFound(ev.File)
			return
		case ScanCompleted:
			sl.OnScanCompleted(ev.TotalFiles, ev.TotalSize)
			return
		case ScanError:
			sl.OnScanError(ev.Err)
			return
		}
	}
	if cl, ok := l.(CleanListener); ok {
		switch ev := e.(type) {
		case CleanStarted:
			cl.OnCleanStarted()
		case CleanProgress:
			cl.OnCleanProgress(ev.Percent, ev.Name)
		case CleanCompleted:
			cl.OnCleanCompleted(ev.DeletedCount, ev.DeletedSize)
		case CleanError:
			cl.OnCleanError(ev.Err)
		}
	}
}

// Multi fans every callback out to each listener in order, synchronously.
func Multi(listeners ...any) Func {
	return func(e Event) {
		for _, l := range listeners {
			if l != nil {
				Dispatch(l, e)
			}
		}
	}
}

// Stream pushes events into a channel read by a single consumer. Sends block
// until the consumer reads or the context is done, so a slow consumer slows
// the producer down instead of losing events.
type Stream struct {
	ctx context.Context
	ch  chan Event
}

// NewStream returns a stream with the given channel buffer.
func NewStream(ctx context.Context, buffer int) *Stream {
	return &Stream{ctx: ctx, ch: make(chan Event, buffer)}
}

// Events is the receive side. It is never closed by the stream; stop reading
// after a terminal event or call Close once the producer is done.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Close closes the channel. Call it only after the producer has returned.
func (s *Stream) Close() {
	close(s.ch)
}

func (s *Stream) send(e Event) {
	select {
	case s.ch <- e:
	case <-s.ctx.Done():
	}
}

func (s *Stream) OnScanStarted()                    { s.send(ScanStarted{}) }
func (s *Stream) OnScanProgress(p int, path string) { s.send(ScanProgress{Percent: p, Path: path}) }
func (s *Stream) OnFileFound(d model.Descriptor)    { s.send(FileFound{File: d}) }
func (s *Stream) OnScanCompleted(n int, size int64) {
	s.send(ScanCompleted{TotalFiles: n, TotalSize: size})
}
func (s *Stream) OnScanError(err error) { s.send(ScanError{Err: err}) }
func (s *Stream) OnCleanStarted()       { s.send(CleanStarted{}) }
func (s *Stream) OnCleanProgress(p int, name string) {
	s.send(CleanProgress{Percent: p, Name: name})
}
func (s *Stream) OnCleanCompleted(n int, size int64) {
	s.send(CleanCompleted{DeletedCount: n, DeletedSize: size})
}
func (s *Stream) OnCleanError(err error) { s.send(CleanError{Err: err}) }

// Recorder keeps every event it receives. Useful in tests and for replaying a
// finished scan to late subscribers.
type Recorder struct {
	Func
	events []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.Func = func(e Event) { r.events = append(r.events, e) }
	return r
}

// Events returns the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	return append([]Event(nil), r.events...)
}

// Types returns the type tags of the recorded events.
func (r *Recorder) Types() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type()
	}
	return out
}
