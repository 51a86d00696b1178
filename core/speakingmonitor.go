package orchestration

import "time"

// speakingMonitor polls the synthesizer on a fixed interval. Readings are
// taken on the event loop; the ticker goroutine only schedules them.
type speakingMonitor struct {
	interval time.Duration
	stopCh   chan struct{}
	speaking bool
}

func (m *speakingMonitor) start(tick func()) {
	m.stop()

	stopCh := make(chan struct{})
	m.stopCh = stopCh
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

func (m *speakingMonitor) stop() {
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
}

func (m *speakingMonitor) running() bool {
	return m.stopCh != nil
}

// observe records a reading and reports whether it differs from the
// previous one.
func (m *speakingMonitor) observe(speaking bool) (changed bool) {
	if speaking == m.speaking {
		return false
	}
	m.speaking = speaking
	return true
}
