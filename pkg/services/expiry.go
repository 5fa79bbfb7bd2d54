package services

import (
	"fmt"
	"sync"
	"time"
)

// ExpiryScheduler runs the periodic expiry sweep in a long-running
// process. The sweep itself is one atomic conditional bulk write, so
// overlapping schedulers in different replicas are harmless; each due
// row is transitioned exactly once.
type ExpiryScheduler struct {
	connections *ConnectionService
	interval    time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.WaitGroup
}

func NewExpiryScheduler(connections *ConnectionService, interval time.Duration) *ExpiryScheduler {
	return &ExpiryScheduler{connections: connections, interval: interval}
}

// Start runs one sweep immediately, then sweeps on every tick until
// Stop is called. Starting an already-running scheduler is a no-op.
func (s *ExpiryScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped.Add(1)

	go func() {
		defer s.stopped.Done()

		// catch up on anything that came due while the process was down
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				return
			}
		}
	}()

	fmt.Printf("⏰ Expiry scheduler started (interval: %s)\n", s.interval)
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()

	s.stopped.Wait()
	fmt.Println("⏰ Expiry scheduler stopped")
}

// sweep logs and continues on failure; the next tick retries.
func (s *ExpiryScheduler) sweep() {
	count, err := s.connections.ExpireDue(time.Now())
	if err != nil {
		fmt.Printf("❌ Expiry sweep failed: %v\n", err)
		return
	}
	if count > 0 {
		fmt.Printf("⏰ Expired %d overdue invitation(s)\n", count)
	}
}
