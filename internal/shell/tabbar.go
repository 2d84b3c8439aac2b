package shell

import "sync"

// TabBarConfig is the host navigation tab bar state.
type TabBarConfig struct {
	Visible bool   `json:"visible"`
	Style   string `json:"style,omitempty"`
}

// TabBarHost is the navigation container the fund screen is mounted in.
type TabBarHost interface {
	TabBar() TabBarConfig
	SetTabBar(TabBarConfig)
}

// HideTabBar hides the host tab bar and returns the release that restores the
// configuration found at mount. Calling release more than once is a no-op.
func HideTabBar(host TabBarHost) (release func()) {
	previous := host.TabBar()
	hidden := previous
	hidden.Visible = false
	host.SetTabBar(hidden)

	var once sync.Once
	return func() {
		once.Do(func() { host.SetTabBar(previous) })
	}
}

// MemoryHost mirrors the client's tab bar for one session.
type MemoryHost struct {
	mu     sync.Mutex
	config TabBarConfig
}

func NewMemoryHost(initial TabBarConfig) *MemoryHost {
	return &MemoryHost{config: initial}
}

func (h *MemoryHost) TabBar() TabBarConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

func (h *MemoryHost) SetTabBar(c TabBarConfig) {
	h.mu.Lock()
	h.config = c
	h.mu.Unlock()
}
