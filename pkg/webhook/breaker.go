package webhook

import (
	"sync"
	"time"
)

// breakers tracks consecutive failures per endpoint host. After threshold
// failures the host is skipped until cooldown has passed; the next attempt
// then decides whether it closes again.
type breakers struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	hosts     map[string]*breakerState
}

type breakerState struct {
	failures int
	openedAt time.Time
}

func newBreakers(threshold int, cooldown time.Duration, now func() time.Time) *breakers {
	return &breakers{
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
		hosts:     make(map[string]*breakerState),
	}
}

func (b *breakers) allow(host string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.hosts[host]
	if !ok || st.failures < b.threshold {
		return true
	}
	return b.now().Sub(st.openedAt) >= b.cooldown
}

func (b *breakers) success(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.hosts, host)
}

func (b *breakers) failure(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.hosts[host]
	if !ok {
		st = &breakerState{}
		b.hosts[host] = st
	}
	st.failures++
	if st.failures >= b.threshold {
		st.openedAt = b.now()
	}
}
