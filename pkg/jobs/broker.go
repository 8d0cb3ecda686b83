package jobs

import "sync"

// maxFinishedStreams bounds how many completed event streams stay
// replayable. Once exceeded, the oldest finished stream is dropped.
const maxFinishedStreams = 128

const subscriberBuffer = 64

type stream struct {
	events []Event
	subs   map[chan Event]struct{}
	closed bool
}

// Broker fans job events out to SSE subscribers. Every event is also kept
// in the stream's buffer so a subscriber that connects late, even after the
// job finished, still receives the full history including the terminal
// event.
type Broker struct {
	mu       sync.Mutex
	streams  map[string]*stream
	finished []string
}

func NewBroker() *Broker {
	return &Broker{streams: make(map[string]*stream)}
}

// Open creates the event stream for a job. Call it before the job starts so
// subscribers can attach before the first event is published.
func (b *Broker) Open(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.streams[jobID]; !ok {
		b.streams[jobID] = &stream{subs: make(map[chan Event]struct{})}
	}
}

// Publish appends an event to the job's stream and delivers it to live
// subscribers. A terminal event closes the stream; subsequent publishes for
// the same job are ignored.
func (b *Broker) Publish(jobID string, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.streams[jobID]
	if !ok {
		s = &stream{subs: make(map[chan Event]struct{})}
		b.streams[jobID] = s
	}
	if s.closed {
		return
	}

	s.events = append(s.events, ev)
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is not keeping up. It still sees the full
			// history on reconnect via replay.
		}
	}

	if ev.Terminal() {
		s.closed = true
		for ch := range s.subs {
			close(ch)
		}
		s.subs = make(map[chan Event]struct{})
		b.finished = append(b.finished, jobID)
		b.evictLocked()
	}
}

// Subscribe returns a channel that replays the job's buffered events and
// then streams live ones. The channel is closed after the terminal event.
// ok is false when the job has no stream. The returned cancel func must be
// called when the subscriber goes away.
func (b *Broker) Subscribe(jobID string) (events <-chan Event, cancel func(), ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, found := b.streams[jobID]
	if !found {
		return nil, nil, false
	}

	ch := make(chan Event, len(s.events)+subscriberBuffer)
	for _, ev := range s.events {
		ch <- ev
	}

	if s.closed {
		close(ch)
		return ch, func() {}, true
	}

	s.subs[ch] = struct{}{}
	cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, live := s.subs[ch]; live {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, true
}

func (b *Broker) evictLocked() {
	for len(b.finished) > maxFinishedStreams {
		oldest := b.finished[0]
		b.finished = b.finished[1:]
		delete(b.streams, oldest)
	}
}
