package users

import (
	"context"
	"log/slog"
	"sync"

	"askmeter-hq/askproxy/pkg/config"
)

// Policy maps caller-supplied users to metric label values so the number of
// per-user series stays bounded.
//
// With an allowlist, listed users keep their own label and everyone else is
// recorded under the overflow label. Without one, the first MaxLabelValues
// distinct users are admitted and later ones overflow. A cap of 0 admits
// every user.
type Policy struct {
	mu        sync.RWMutex
	allowlist map[string]struct{}
	admitted  map[string]struct{}

	path   string
	max    int
	other  string
	logger *slog.Logger

	watcher *FileWatcher
}

// NewPolicy builds a policy from cfg. When an allowlist path is configured
// it is loaded immediately and a missing or unreadable file is an error.
func NewPolicy(cfg config.UsersConfig) (*Policy, error) {
	other := cfg.OtherLabel
	if other == "" {
		other = config.DefaultOtherLabel
	}

	p := &Policy{
		admitted: make(map[string]struct{}),
		path:     cfg.AllowlistPath,
		max:      cfg.MaxLabelValues,
		other:    other,
		logger:   slog.Default().With("component", "users"),
	}

	if p.path != "" {
		if err := p.Reload(); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Label returns the metric label value for user, admitting user under the
// cap when a slot is free.
func (p *Policy) Label(user string) string {
	if label, decided := p.lookup(user); decided {
		return label
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.admitted[user]; ok {
		return user
	}
	if len(p.admitted) < p.max {
		p.admitted[user] = struct{}{}
		return user
	}
	return p.other
}

// Peek returns the label user currently maps to without admitting it. A user
// not yet admitted under the cap reports the overflow label.
func (p *Policy) Peek(user string) string {
	if label, decided := p.lookup(user); decided {
		return label
	}
	return p.other
}

// lookup resolves user under the read lock. decided is false only when user
// is not yet admitted under the cap.
func (p *Policy) lookup(user string) (label string, decided bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.allowlist != nil {
		if _, ok := p.allowlist[user]; ok {
			return user, true
		}
		return p.other, true
	}
	if p.max <= 0 {
		return user, true
	}
	if _, ok := p.admitted[user]; ok {
		return user, true
	}
	return "", false
}

// OtherLabel returns the overflow label value.
func (p *Policy) OtherLabel() string {
	return p.other
}

// Admitted returns how many distinct users currently hold their own label
// under the cap. It is 0 in allowlist mode.
func (p *Policy) Admitted() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.admitted)
}

// Reload re-reads the allowlist file. On error the previous list stays in
// effect.
func (p *Policy) Reload() error {
	users, err := LoadAllowlist(p.path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.allowlist = users
	p.mu.Unlock()

	p.logger.Info("allowlist loaded", "path", p.path, "users", len(users))
	return nil
}

// Watch reloads the allowlist whenever the file changes. It blocks until
// ctx is canceled or Close is called, and returns immediately when no
// allowlist is configured.
func (p *Policy) Watch(ctx context.Context) error {
	if p.path == "" {
		return nil
	}

	w, err := NewFileWatcher(p.path, DefaultDebounceInterval, p.logger)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.watcher = w
	p.mu.Unlock()

	return w.Watch(ctx, p.Reload)
}

// Close stops the allowlist watcher, if running.
func (p *Policy) Close() error {
	p.mu.Lock()
	w := p.watcher
	p.watcher = nil
	p.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Stop()
}
