package progress

// Subscriber receives ordered snapshots of one job. Delivery is
// fire-and-forget: a subscriber that stops draining its channel misses
// intermediate snapshots but never blocks the pipeline.
type Subscriber struct {
	tracker *Tracker
	ch      chan Snapshot
}

const subscriberBuffer = 16

// Subscribe registers a new subscriber and immediately queues the current
// state so late joiners never start behind.
func (t *Tracker) Subscribe() *Subscriber {
	sub := &Subscriber{
		tracker: t,
		ch:      make(chan Snapshot, subscriberBuffer),
	}

	t.mu.Lock()
	t.subscribers[sub] = struct{}{}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	sub.ch <- snap
	return sub
}

// Updates returns the subscriber's ordered snapshot stream.
func (s *Subscriber) Updates() <-chan Snapshot {
	return s.ch
}

// Close unregisters the subscriber. The job itself is unaffected; ingestion
// is independent of observation.
func (s *Subscriber) Close() {
	t := s.tracker
	t.mu.Lock()
	if _, ok := t.subscribers[s]; ok {
		delete(t.subscribers, s)
		close(s.ch)
	}
	t.mu.Unlock()
}

// publishLocked fans the current state out to every subscriber. Called with
// t.mu held, which serializes publishes and preserves per-subscriber
// ordering. A full subscriber buffer drops the oldest queued snapshot; the
// newest state always lands.
func (t *Tracker) publishLocked() {
	if len(t.subscribers) == 0 {
		return
	}
	snap := t.snapshotLocked()
	for sub := range t.subscribers {
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snap:
			default:
			}
		}
	}
}
