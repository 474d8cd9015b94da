package session

import (
	"sync"

	"github.com/google/uuid"
)

// SwitchEvent describes a completed company switch.
type SwitchEvent struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
}

// SwitchListener is called after a user switches company.
type SwitchListener func(event SwitchEvent)

// SwitchNotifier delivers company switch events to subscribers.
// Listeners are invoked synchronously, in subscription order, after
// the switch has been committed.
type SwitchNotifier struct {
	mu        sync.RWMutex
	listeners []SwitchListener
}

// NewSwitchNotifier creates an empty notifier.
func NewSwitchNotifier() *SwitchNotifier {
	return &SwitchNotifier{}
}

// Subscribe registers a listener. There is no unsubscribe: subscribers
// are wired once at startup.
func (n *SwitchNotifier) Subscribe(listener SwitchListener) {
	n.mu.Lock()
	n.listeners = append(n.listeners, listener)
	n.mu.Unlock()
}

// Notify delivers the event to every listener in subscription order.
func (n *SwitchNotifier) Notify(event SwitchEvent) {
	n.mu.RLock()
	listeners := make([]SwitchListener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}
