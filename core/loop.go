package orchestration

const inboxCapacity = 64

// submit schedules task on the event loop, starting the loop on first use.
// It reports false once the agent reached a terminal state and the loop is
// gone.
func (a *Agent) submit(task func()) bool {
	a.loopOnce.Do(func() { go a.run() })

	select {
	case <-a.done:
		return false
	default:
	}

	select {
	case a.inbox <- task:
		return true
	case <-a.done:
		return false
	}
}

func (a *Agent) schedule(task func()) {
	a.submit(task)
}

// call runs task on the event loop and waits for its result.
func (a *Agent) call(task func() error) error {
	result := make(chan error, 1)
	if !a.submit(func() { result <- task() }) {
		return a.terminalErr()
	}

	select {
	case err := <-result:
		return err
	case <-a.done:
		select {
		case err := <-result:
			return err
		default:
			return a.terminalErr()
		}
	}
}

func (a *Agent) run() {
	defer close(a.done)

	for task := range a.inbox {
		task()
		if a.State().terminal() {
			return
		}
	}
}
