package monitor

import "sync"

// Targets hands out probe addresses in a fixed rotating order. The cycle
// never runs out and Reset starts it over.
type Targets struct {
	mu   sync.Mutex
	list []string
	next int
}

func NewTargets(list []string) *Targets {
	return &Targets{list: append([]string(nil), list...)}
}

func (t *Targets) Next() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.list) == 0 {
		return ""
	}
	target := t.list[t.next]
	t.next = (t.next + 1) % len(t.list)
	return target
}

func (t *Targets) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next = 0
}

func (t *Targets) Len() int {
	return len(t.list)
}

func (t *Targets) List() []string {
	return append([]string(nil), t.list...)
}
