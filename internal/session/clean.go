package session

import "sync"

// CleanSession tracks one clean run. It implements events.CleanListener.
type CleanSession struct {
	mu    sync.RWMutex
	state State
}

func NewCleanSession() *CleanSession {
	return &CleanSession{state: Idle{}}
}

func (c *CleanSession) OnCleanStarted() {
	c.set(Cleaning{})
}

func (c *CleanSession) OnCleanProgress(percent int, name string) {
	c.set(Cleaning{Progress: percent, Current: name})
}

func (c *CleanSession) OnCleanCompleted(deletedCount int, deletedSize int64) {
	c.set(Completed{Count: deletedCount, Size: deletedSize})
}

func (c *CleanSession) OnCleanError(err error) {
	c.set(Failed{Err: err})
}

func (c *CleanSession) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Cleaning reports whether a clean is in progress.
func (c *CleanSession) Cleaning() bool {
	_, ok := c.State().(Cleaning)
	return ok
}

// Reset returns the session to Idle.
func (c *CleanSession) Reset() {
	c.set(Idle{})
}

func (c *CleanSession) set(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}
