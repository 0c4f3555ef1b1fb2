// Package registry owns the per-(user, role) chat sessions and the
// provider fallback policy. It is the single entry point used by the
// HTTP layer.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/astanafx/fxbot/internal/chat"
	"github.com/astanafx/fxbot/internal/role"
	"github.com/astanafx/fxbot/internal/store"
)

// ErrAllProvidersExhausted is returned when every candidate provider
// failed for a turn. It wraps the last underlying error.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

type convKey struct {
	userID int64
	role   string
}

// Registry caches chat sessions keyed by (user, role), remembers each
// user's selected role, and drives automatic fallback across the fixed
// provider order.
//
// The maps are guarded by a mutex; turn execution itself is not, so
// concurrent turns for the same (user, role) can interleave appends. The
// caller is expected to issue one request per user at a time.
type Registry struct {
	mu        sync.Mutex
	userRoles map[int64]string
	sessions  map[convKey]*chat.Session

	store    store.Store
	prompts  *role.Source
	fallback []chat.Adapter
	byName   map[string]chat.Adapter
	opts     chat.Options
}

// New creates a registry. fallback defines the automatic try order and is
// not modified after construction.
func New(st store.Store, prompts *role.Source, fallback []chat.Adapter, opts chat.Options) *Registry {
	byName := make(map[string]chat.Adapter, len(fallback))
	for _, a := range fallback {
		byName[a.Name()] = a
	}
	return &Registry{
		userRoles: make(map[int64]string),
		sessions:  make(map[convKey]*chat.Session),
		store:     st,
		prompts:   prompts,
		fallback:  fallback,
		byName:    byName,
		opts:      opts,
	}
}

// Resolve returns the role a request for userID should use. An explicit
// valid role is remembered as the user's default for subsequent calls;
// anything else falls back to the remembered role or the global default.
func (r *Registry) Resolve(userID int64, requested string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(userID, requested, true)
}

func (r *Registry) resolveLocked(userID int64, requested string, remember bool) string {
	if requested != "" && r.prompts.IsValid(requested) {
		if remember {
			r.userRoles[userID] = requested
		}
		return requested
	}
	if saved, ok := r.userRoles[userID]; ok {
		return saved
	}
	return role.DefaultRole
}

// session returns the cached session for the key, or builds one bound to
// adapter and hydrated from the store.
func (r *Registry) session(key convKey, adapter chat.Adapter) *chat.Session {
	r.mu.Lock()
	sess, ok := r.sessions[key]
	if !ok {
		sess = chat.NewSession(key.userID, key.role, r.prompts.Prompt(key.role), adapter, r.store, r.opts)
		r.sessions[key] = sess
	}
	r.mu.Unlock()

	if !ok {
		sess.LoadHistory()
	}
	return sess
}

// Process executes one conversational turn for userID. An explicit
// providerOverride naming a known provider is tried first; its failure
// falls through to automatic mode rather than propagating. Automatic mode
// tries the cached session's current binding first, then sweeps the
// fallback order, rebinding the session to the first provider that
// succeeds, so later calls prefer the last-working provider.
func (r *Registry) Process(ctx context.Context, userID int64, message, requestedRole, providerOverride string) (string, string, chat.Summary, error) {
	r.mu.Lock()
	usedRole := r.resolveLocked(userID, requestedRole, true)
	r.mu.Unlock()

	if len(r.fallback) == 0 {
		return "", usedRole, chat.Summary{}, fmt.Errorf("%w: no providers configured", ErrAllProvidersExhausted)
	}

	key := convKey{userID: userID, role: usedRole}
	tried := make(map[string]bool)

	var lastErr error

	if providerOverride != "" {
		if adapter, ok := r.byName[providerOverride]; ok {
			sess := r.session(key, adapter)
			sess.Bind(adapter)
			reply, err := sess.ExecuteTurn(ctx, message)
			if err == nil {
				return reply, usedRole, sess.Summary(), nil
			}
			log.Printf("[registry] override provider %s failed for user=%d role=%s: %v",
				providerOverride, userID, usedRole, err)
			tried[providerOverride] = true
			lastErr = err
		} else {
			log.Printf("[registry] unknown provider override %q, using automatic mode", providerOverride)
		}
	}

	// Prefer the provider that answered last time for this key.
	sess := r.session(key, r.fallback[0])
	if !tried[sess.Provider()] {
		reply, err := sess.ExecuteTurn(ctx, message)
		if err == nil {
			return reply, usedRole, sess.Summary(), nil
		}
		log.Printf("[registry] provider %s failed for user=%d role=%s: %v",
			sess.Provider(), userID, usedRole, err)
		tried[sess.Provider()] = true
		lastErr = err
	}

	for _, adapter := range r.fallback {
		if tried[adapter.Name()] {
			continue
		}
		sess.Bind(adapter)
		reply, err := sess.ExecuteTurn(ctx, message)
		if err == nil {
			return reply, usedRole, sess.Summary(), nil
		}
		log.Printf("[registry] provider %s failed for user=%d role=%s: %v",
			adapter.Name(), userID, usedRole, err)
		tried[adapter.Name()] = true
		lastErr = err
	}

	return "", usedRole, chat.Summary{}, fmt.Errorf("%w: %w", ErrAllProvidersExhausted, lastErr)
}

// Clear empties the history for one of the user's roles, or for all of
// them when requestedRole is empty. It returns false when the user has no
// matching session; a cleared session stays registered and usable.
func (r *Registry) Clear(userID int64, requestedRole string) bool {
	r.mu.Lock()
	var targets []*chat.Session
	if requestedRole != "" {
		if sess, ok := r.sessions[convKey{userID: userID, role: requestedRole}]; ok {
			targets = append(targets, sess)
		}
	} else {
		for key, sess := range r.sessions {
			if key.userID == userID {
				targets = append(targets, sess)
			}
		}
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		return false
	}
	for _, sess := range targets {
		if err := sess.Clear(); err != nil {
			log.Printf("[registry] %v", err)
		}
	}
	return true
}

// Stats reports usage statistics for (userID, role), building and
// hydrating the session if it does not exist yet. Unlike Process it does
// not change the user's remembered role.
func (r *Registry) Stats(userID int64, requestedRole string) chat.Summary {
	r.mu.Lock()
	usedRole := r.resolveLocked(userID, requestedRole, false)
	r.mu.Unlock()

	if len(r.fallback) == 0 {
		return chat.Summary{}
	}
	sess := r.session(convKey{userID: userID, role: usedRole}, r.fallback[0])
	return sess.Summary()
}

// Providers lists the configured provider names in fallback order.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.fallback))
	for _, a := range r.fallback {
		names = append(names, a.Name())
	}
	return names
}
