// Package events defines the listener callbacks emitted by scans and cleans,
// and a typed event form of the same callbacks for consumers that prefer a
// channel or need to ship events over the wire.
package events

import (
	"encoding/json"
	"fmt"

	"mobile-clean/internal/model"
)

// ScanListener receives junk-scan progress. Callbacks arrive from the scan's
// own goroutine, in order.
type ScanListener interface {
	OnScanStarted()
	OnScanProgress(percent int, path string)
	OnFileFound(file model.Descriptor)
	OnScanCompleted(totalFiles int, totalSize int64)
	OnScanError(err error)
}

// CleanListener receives deletion progress.
type CleanListener interface {
	OnCleanStarted()
	OnCleanProgress(percent int, name string)
	OnCleanCompleted(deletedCount int, deletedSize int64)
	OnCleanError(err error)
}

// Event is one listener callback in value form. The set of implementations
// is closed.
type Event interface {
	Type() string
	isEvent()
}

type ScanStarted struct{}

type ScanProgress struct {
	Percent int    `json:"percent"`
	Path    string `json:"path"`
}

type FileFound struct {
	File model.Descriptor `json:"file"`
}

type ScanCompleted struct {
	TotalFiles int   `json:"total_files"`
	TotalSize  int64 `json:"total_size"`
}

type ScanError struct {
	Err error `json:"-"`
}

type CleanStarted struct{}

type CleanProgress struct {
	Percent int    `json:"percent"`
	Name    string `json:"name"`
}

type CleanCompleted struct {
	DeletedCount int   `json:"deleted_count"`
	DeletedSize  int64 `json:"deleted_size"`
}

type CleanError struct {
	Err error `json:"-"`
}

func (ScanStarted) Type() string    { return "scan_started" }
func (ScanProgress) Type() string   { return "scan_progress" }
func (FileFound) Type() string      { return "file_found" }
func (ScanCompleted) Type() string  { return "scan_completed" }
func (ScanError) Type() string      { return "scan_error" }
func (CleanStarted) Type() string   { return "clean_started" }
func (CleanProgress) Type() string  { return "clean_progress" }
func (CleanCompleted) Type() string { return "clean_completed" }
func (CleanError) Type() string     { return "clean_error" }

func (ScanStarted) isEvent()    {}
func (ScanProgress) isEvent()   {}
func (FileFound) isEvent()      {}
func (ScanCompleted) isEvent()  {}
func (ScanError) isEvent()      {}
func (CleanStarted) isEvent()   {}
func (CleanProgress) isEvent()  {}
func (CleanCompleted) isEvent() {}
func (CleanError) isEvent()     {}

// Terminal reports whether e ends its scan or clean.
func Terminal(e Event) bool {
	switch e.(type) {
	case ScanCompleted, ScanError, CleanCompleted, CleanError:
		return true
	}
	return false
}

// envelope is the wire form: {"type": "...", "data": {...}}.
type envelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Marshal encodes an event with its type tag.
func Marshal(e Event) ([]byte, error) {
	env := envelope{Type: e.Type()}
	switch ev := e.(type) {
	case ScanStarted, CleanStarted:
	case ScanError:
		env.Error = errString(ev.Err)
	case CleanError:
		env.Error = errString(ev.Err)
	default:
		env.Data = ev
	}
	return json.Marshal(env)
}

// Unmarshal decodes an event produced by Marshal.
func Unmarshal(b []byte) (Event, error) {
	var env struct {
		Type  string          `json:"type"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	decode := func(v any) error {
		if len(env.Data) == 0 {
			return nil
		}
		return json.Unmarshal(env.Data, v)
	}

	var (
		e   Event
		err error
	)
	switch env.Type {
	case "scan_started":
		e = ScanStarted{}
	case "scan_progress":
		var v ScanProgress
		err, e = decode(&v), &v
	case "file_found":
		var v FileFound
		err, e = decode(&v), &v
	case "scan_completed":
		var v ScanCompleted
		err, e = decode(&v), &v
	case "scan_error":
		e = ScanError{Err: remoteError(env.Error)}
	case "clean_started":
		e = CleanStarted{}
	case "clean_progress":
		var v CleanProgress
		err, e = decode(&v), &v
	case "clean_completed":
		var v CleanCompleted
		err, e = decode(&v), &v
	case "clean_error":
		e = CleanError{Err: remoteError(env.Error)}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return deref(e), nil
}

func deref(e Event) Event {
	switch v := e.(type) {
	case *ScanProgress:
		return *v
	case *FileFound:
		return *v
	case *ScanCompleted:
		return *v
	case *CleanProgress:
		return *v
	case *CleanCompleted:
		return *v
	}
	return e
}

type remoteError string

func (e remoteError) Error() string { return string(e) }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
