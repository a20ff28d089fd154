package server

import (
	"sync"
	"time"

	aesd "github.com/ehrlich-b/go-aesd"
	"github.com/ehrlich-b/go-aesd/internal/constants"
	"github.com/ehrlich-b/go-aesd/internal/interfaces"
)

// Timestamper periodically appends a "timestamp:<date>\n" record to a
// Store, through the same Write path a client connection uses, so it is
// serialized by whatever mutex the Store holds. It is meant to run against
// the file-mirrored store, where a human tailing the data file benefits
// from the markers; running it against the plain in-process Device is
// harmless but mostly useful for tests.
type Timestamper struct {
	store    aesd.Store
	interval time.Duration
	logger   interfaces.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewTimestamper creates a Timestamper appending to store every interval.
// A zero interval uses the default (10s).
func NewTimestamper(store aesd.Store, interval time.Duration, logger interfaces.Logger) *Timestamper {
	if interval <= 0 {
		interval = constants.DefaultTimestampInterval
	}
	return &Timestamper{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the background goroutine.
func (ts *Timestamper) Start() {
	ts.wg.Add(1)
	go ts.loop()
}

// Stop halts the background goroutine and waits for it to exit.
func (ts *Timestamper) Stop() {
	close(ts.stop)
	ts.wg.Wait()
}

func (ts *Timestamper) loop() {
	defer ts.wg.Done()

	h := ts.store.Open()
	defer ts.store.Close(h)

	ticker := time.NewTicker(ts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ts.stop:
			return
		case now := <-ticker.C:
			record := "timestamp:" + now.Format(time.RFC822) + string(constants.Terminator)
			if _, err := ts.store.Write(h, []byte(record)); err != nil {
				if ts.logger != nil {
					ts.logger.Warn("timestamp append failed", "error", err)
				}
			}
		}
	}
}
