// Package session holds the consumer-side state of a scan or clean: the
// lifecycle state machine fed by listener callbacks, and the user's
// selection. Sessions are safe for concurrent use.
package session

import "errors"

// ErrBusy is returned by selection changes while a scan is running.
var ErrBusy = errors.New("session is busy")

// State is one of Idle, Scanning, Cleaning, Completed or Failed.
type State interface {
	Name() string
	isState()
}

type Idle struct{}

type Scanning struct {
	Progress int
	Path     string
}

type Cleaning struct {
	Progress int
	Current  string
}

type Completed struct {
	Count int
	Size  int64
}

type Failed struct {
	Err error
}

func (Idle) Name() string      { return "idle" }
func (Scanning) Name() string  { return "scanning" }
func (Cleaning) Name() string  { return "cleaning" }
func (Completed) Name() string { return "completed" }
func (Failed) Name() string    { return "failed" }

func (Idle) isState()      {}
func (Scanning) isState()  {}
func (Cleaning) isState()  {}
func (Completed) isState() {}
func (Failed) isState()    {}

// Status is the flattened, JSON-friendly form of a State.
type Status struct {
	State    string `json:"state"`
	Progress int    `json:"progress"`
	Path     string `json:"path,omitempty"`
	Count    int    `json:"count,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StatusOf flattens s.
func StatusOf(s State) Status {
	st := Status{State: s.Name()}
	switch v := s.(type) {
	case Scanning:
		st.Progress, st.Path = v.Progress, v.Path
	case Cleaning:
		st.Progress, st.Path = v.Progress, v.Current
	case Completed:
		st.Progress, st.Count, st.Size = 100, v.Count, v.Size
	case Failed:
		if v.Err != nil {
			st.Error = v.Err.Error()
		}
	}
	return st
}
