// Package session keeps the live fund screen sessions. A session is created
// when the screen mounts and owns one deposit controller and the tab bar
// acquisition of its host.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zyedidia/generic/cache"

	"github.com/congo-pay/wallet_bff/internal/deposit"
	"github.com/congo-pay/wallet_bff/internal/shell"
)

const idPrefix = "fund_"

var (
	ErrNotFound      = errors.New("session not found")
	ErrForbidden     = errors.New("session belongs to another user")
	ErrUnknownPicker = errors.New("unknown picker")
)

// Session is one mounted fund screen.
type Session struct {
	ID         string
	Controller *deposit.Controller
	Host       *shell.MemoryHost
	CreatedAt  time.Time

	tokenHash string
	release   func()

	mu       sync.Mutex
	picker   string
	lastSeen time.Time
}

// SetPicker opens or closes a picker modal.
func (s *Session) SetPicker(picker string) error {
	switch picker {
	case shell.PickerNone, shell.PickerProvider, shell.PickerCountry:
	default:
		return ErrUnknownPicker
	}
	s.mu.Lock()
	s.picker = picker
	s.mu.Unlock()
	return nil
}

// Screen renders the current state of the session.
func (s *Session) Screen() shell.Screen {
	s.mu.Lock()
	view := shell.View{Picker: s.picker}
	s.mu.Unlock()
	view.TabBar = s.Host.TabBar()
	return shell.Render(s.Controller.Snapshot(), view)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Options configures a Store.
type Options struct {
	Capacity int
	IdleTTL  time.Duration
	Logger   *slog.Logger
	// OnChange is called with the number of live sessions after every change.
	OnChange func(n int)
}

// Store is an LRU of sessions with an idle timeout. Sessions leaving the
// store, by eviction, expiry or deletion, release their tab bar.
type Store struct {
	mu       sync.Mutex
	lru      *cache.Cache[string, *Session]
	live     map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
	onChange func(int)
	entropy  io.Reader
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = 10000
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		lru:      cache.New[string, *Session](capacity),
		live:     make(map[string]*Session),
		ttl:      opts.IdleTTL,
		logger:   logger,
		onChange: opts.OnChange,
		entropy:  ulid.Monotonic(rand.Reader, 0),
		now:      time.Now,
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create mounts a new screen for token. The host tab bar starts at tabBar and
// is hidden until the session ends.
func (st *Store) Create(token string, controller *deposit.Controller, tabBar shell.TabBarConfig) *Session {
	host := shell.NewMemoryHost(tabBar)

	st.mu.Lock()
	now := st.now()
	sess := &Session{
		ID:         idPrefix + ulid.MustNew(ulid.Timestamp(now), st.entropy).String(),
		Controller: controller,
		Host:       host,
		CreatedAt:  now,
		tokenHash:  hashToken(token),
		release:    shell.HideTabBar(host),
		lastSeen:   now,
	}
	st.lru.Put(sess.ID, sess)
	st.live[sess.ID] = sess
	evicted := st.reconcile()
	n := len(st.live)
	st.mu.Unlock()

	for _, s := range evicted {
		st.logger.Info("session evicted", slog.String("session_id", s.ID))
		s.release()
	}
	st.changed(n)
	return sess
}

// reconcile drops sessions the LRU evicted. The caller holds the lock.
func (st *Store) reconcile() []*Session {
	if len(st.live) <= st.lru.Size() {
		return nil
	}
	kept := make(map[string]struct{}, st.lru.Size())
	st.lru.Each(func(id string, _ *Session) {
		kept[id] = struct{}{}
	})
	var evicted []*Session
	for id, s := range st.live {
		if _, ok := kept[id]; !ok {
			delete(st.live, id)
			evicted = append(evicted, s)
		}
	}
	return evicted
}

// Get returns the session if token owns it and it did not expire.
func (st *Store) Get(id, token string) (*Session, error) {
	st.mu.Lock()
	sess, ok := st.lru.Get(id)
	if !ok {
		st.mu.Unlock()
		return nil, ErrNotFound
	}
	now := st.now()
	if st.expired(sess, now) {
		st.removeLocked(id)
		n := len(st.live)
		st.mu.Unlock()
		sess.release()
		st.changed(n)
		return nil, ErrNotFound
	}
	st.mu.Unlock()

	if subtle.ConstantTimeCompare([]byte(sess.tokenHash), []byte(hashToken(token))) != 1 {
		return nil, ErrForbidden
	}
	sess.touch(now)
	return sess, nil
}

// Delete unmounts the screen and returns the restored tab bar.
func (st *Store) Delete(id, token string) (shell.TabBarConfig, error) {
	sess, err := st.Get(id, token)
	if err != nil {
		return shell.TabBarConfig{}, err
	}
	st.mu.Lock()
	st.removeLocked(id)
	n := len(st.live)
	st.mu.Unlock()

	sess.Controller.Dismiss()
	sess.release()
	st.changed(n)
	return sess.Host.TabBar(), nil
}

func (st *Store) removeLocked(id string) {
	st.lru.Remove(id)
	delete(st.live, id)
}

func (st *Store) expired(s *Session, now time.Time) bool {
	return st.ttl > 0 && now.Sub(s.idleSince()) > st.ttl
}

// Sweep removes expired sessions and reports how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	now := st.now()
	var expired []*Session
	for id, s := range st.live {
		if st.expired(s, now) {
			st.removeLocked(id)
			expired = append(expired, s)
		}
	}
	n := len(st.live)
	st.mu.Unlock()

	for _, s := range expired {
		s.Controller.Dismiss()
		s.release()
	}
	if len(expired) > 0 {
		st.logger.Debug("expired sessions removed", slog.Int("count", len(expired)))
		st.changed(n)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.live)
}

func (st *Store) changed(n int) {
	if st.onChange != nil {
		st.onChange(n)
	}
}
