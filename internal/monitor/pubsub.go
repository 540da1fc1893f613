package monitor

import "sync"

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind starts losing records rather than stalling ingestion.
const subscriberBuffer = 64

// broker is a publish/subscribe registry keyed by record category. The four
// categories stay type-distinct on purpose: subscribers receive concrete
// record types, never an untyped envelope.
type broker struct {
	mu     sync.Mutex
	nextID int

	toolSubs     map[int]chan ToolCallRecord
	resourceSubs map[int]chan ResourceAccessRecord
	promptSubs   map[int]chan PromptCallRecord
	errorSubs    map[int]chan ErrorRecord
}

func newBroker() *broker {
	return &broker{
		toolSubs:     make(map[int]chan ToolCallRecord),
		resourceSubs: make(map[int]chan ResourceAccessRecord),
		promptSubs:   make(map[int]chan PromptCallRecord),
		errorSubs:    make(map[int]chan ErrorRecord),
	}
}

func (b *broker) subscribeToolCalls() (<-chan ToolCallRecord, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan ToolCallRecord, subscriberBuffer)
	b.toolSubs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.toolSubs[id]; ok {
			delete(b.toolSubs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broker) subscribeResourceAccesses() (<-chan ResourceAccessRecord, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan ResourceAccessRecord, subscriberBuffer)
	b.resourceSubs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.resourceSubs[id]; ok {
			delete(b.resourceSubs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broker) subscribePromptCalls() (<-chan PromptCallRecord, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan PromptCallRecord, subscriberBuffer)
	b.promptSubs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.promptSubs[id]; ok {
			delete(b.promptSubs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broker) subscribeErrors() (<-chan ErrorRecord, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan ErrorRecord, subscriberBuffer)
	b.errorSubs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.errorSubs[id]; ok {
			delete(b.errorSubs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broker) publishToolCall(rec ToolCallRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.toolSubs {
		select {
		case ch <- rec:
		default:
			// Subscriber buffer full, drop.
		}
	}
}

func (b *broker) publishResourceAccess(rec ResourceAccessRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.resourceSubs {
		select {
		case ch <- rec:
		default:
		}
	}
}

func (b *broker) publishPromptCall(rec PromptCallRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.promptSubs {
		select {
		case ch <- rec:
		default:
		}
	}
}

func (b *broker) publishError(rec ErrorRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.errorSubs {
		select {
		case ch <- rec:
		default:
		}
	}
}
