package session

import "sync"

// MemoryNavigator is a [Navigator] that only records the current view and the
// navigation history. Hosts without a router (CLI, tests) use it.
type MemoryNavigator struct {
	mu      sync.Mutex
	current string
	history []string
}

// NewMemoryNavigator starts at view.
func NewMemoryNavigator(view string) *MemoryNavigator {
	return &MemoryNavigator{current: view}
}

func (n *MemoryNavigator) CurrentView() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *MemoryNavigator) Navigate(view string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = view
	n.history = append(n.history, view)
}

// History returns every view navigated to, oldest first.
func (n *MemoryNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}
