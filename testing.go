package aesd

import (
	"sync"

	"github.com/ehrlich-b/go-aesd/internal/interfaces"
)

// MockObserver is a test double for interfaces.Observer that records every
// call for later assertions instead of forwarding to a Metrics instance.
type MockObserver struct {
	mu sync.Mutex

	ReadCalls    int
	WriteCalls   int
	SeekCalls    int
	ControlCalls int

	ReadBytes  uint64
	WriteBytes uint64

	ReadErrors    int
	WriteErrors   int
	SeekErrors    int
	ControlErrors int

	ConnectionsAccepted int
	ConnectionsRejected int
}

// NewMockObserver creates a zeroed MockObserver.
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

func (o *MockObserver) ObserveRead(bytes uint64, _ uint64, success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ReadCalls++
	if success {
		o.ReadBytes += bytes
	} else {
		o.ReadErrors++
	}
}

func (o *MockObserver) ObserveWrite(bytes uint64, _ uint64, success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.WriteCalls++
	if success {
		o.WriteBytes += bytes
	} else {
		o.WriteErrors++
	}
}

func (o *MockObserver) ObserveSeek(success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.SeekCalls++
	if !success {
		o.SeekErrors++
	}
}

func (o *MockObserver) ObserveControl(success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ControlCalls++
	if !success {
		o.ControlErrors++
	}
}

func (o *MockObserver) ObserveConnection(accepted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if accepted {
		o.ConnectionsAccepted++
	} else {
		o.ConnectionsRejected++
	}
}

// Reset clears all recorded call counts.
func (o *MockObserver) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ReadCalls, o.WriteCalls, o.SeekCalls, o.ControlCalls = 0, 0, 0, 0
	o.ReadBytes, o.WriteBytes = 0, 0
	o.ReadErrors, o.WriteErrors, o.SeekErrors, o.ControlErrors = 0, 0, 0, 0
	o.ConnectionsAccepted, o.ConnectionsRejected = 0, 0
}

var _ interfaces.Observer = (*MockObserver)(nil)
