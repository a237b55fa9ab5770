package engine

// progressEvent is one per-group completion update.
type progressEvent struct {
	groupID string
	percent int
}

// progressTracker decouples the schedulers from the caller's progress
// sink: events go through a buffered channel and a forwarding goroutine,
// so a slow sink can drop updates but never stalls a wave.
type progressTracker struct {
	events chan progressEvent
	done   chan struct{}
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	t := &progressTracker{
		events: make(chan progressEvent, 1024),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		for ev := range t.events {
			if fn != nil {
				fn(ev.groupID, ev.percent)
			}
		}
	}()
	return t
}

func (t *progressTracker) emit(groupID string, percent int) {
	select {
	case t.events <- progressEvent{groupID: groupID, percent: percent}:
	default:
	}
}

// close drains the channel and waits for the forwarder, so every buffered
// event is delivered before Run returns.
func (t *progressTracker) close() {
	close(t.events)
	<-t.done
}
