package naivestore

import (
	"time"

	"github.com/theia-log/theia/pkg/logger"
)

// PeriodicFlusher runs action on a fixed interval until Stop is called.
// The first invocation happens after the initial sleep, not immediately;
// panics and errors raised by action are swallowed so flushing remains
// best-effort and never kills the ticker (§4.4).
type PeriodicFlusher struct {
	interval time.Duration
	action   func()

	stop chan struct{}
	done chan struct{}
}

// NewPeriodicFlusher builds a flusher that will call action every interval
// once Start is called.
func NewPeriodicFlusher(interval time.Duration, action func()) *PeriodicFlusher {
	return &PeriodicFlusher{
		interval: interval,
		action:   action,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background ticker goroutine.
func (f *PeriodicFlusher) Start() {
	go f.run()
}

func (f *PeriodicFlusher) run() {
	defer close(f.done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.safeInvoke()
		}
	}
}

func (f *PeriodicFlusher) safeInvoke() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("naivestore: periodic flush panicked: %v", r)
		}
	}()
	f.action()
}

// Cancel stops the ticker. Cancellation is observed at the next wake of
// its sleep, same as the source's cooperative cancellation.
func (f *PeriodicFlusher) Cancel() {
	close(f.stop)
}

// Join blocks until the background goroutine has exited.
func (f *PeriodicFlusher) Join() {
	<-f.done
}
