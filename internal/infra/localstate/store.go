// Package localstate keeps the per-user state that the finance server
// never sees: notification preferences, dismissed/completed reminder
// overlays, the gamification profile and onboarding flags. It is the
// server-side counterpart of the well-known browser storage keys the app
// clients used, with the same semantics (JSON blobs under string keys,
// dismissals expire after 24 hours).
package localstate

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// DismissTTL is how long a dismissed reminder id stays suppressed.
const DismissTTL = 24 * time.Hour

// Well-known key prefixes, one per state family.
const (
	keyPreferences = "notificationPreferences"
	keyDismissed   = "dismissedReminders"
	keyCompleted   = "completedReminders"
	keyProfile     = "gamificationProfile"
	keyOnboarding  = "onboardingSeen"
)

// Store is a thread-safe keyed JSON store with optional file persistence.
// An empty path keeps everything in memory (used by tests).
type Store struct {
	mu     sync.RWMutex
	path   string
	data   map[string]json.RawMessage
	logger *zap.Logger
}

// New creates a store, loading the persisted snapshot when path exists.
func New(path string, logger *zap.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		data:   make(map[string]json.RawMessage),
		logger: logger,
	}

	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstate: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("localstate: parse %s: %w", path, err)
	}
	return s, nil
}

func userKey(family, user string) string {
	return family + ":" + user
}

// get unmarshals the value under key into out; returns false on miss.
func (s *Store) get(key string, out any) bool {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("localstate: corrupt value dropped", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// set stores the value under key and persists the snapshot.
func (s *Store) set(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("localstate: marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()

	s.persist()
}

// persist writes the snapshot atomically (tmp file + rename). Failures
// are logged, not fatal: the in-memory state stays valid.
func (s *Store) persist() {
	if s.path == "" {
		return
	}

	s.mu.RLock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error("localstate: snapshot marshal failed", zap.Error(err))
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		s.logger.Error("localstate: snapshot write failed", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("localstate: snapshot rename failed", zap.Error(err))
	}
}

// ============================================================
// Notification preferences
// ============================================================

// Preferences returns the user's notification preferences, defaulting to
// all-enabled for users who never toggled anything.
func (s *Store) Preferences(user string) domain.NotificationPreferences {
	var p domain.NotificationPreferences
	if !s.get(userKey(keyPreferences, user), &p) {
		return domain.DefaultPreferences()
	}
	return p
}

// SetPreferences stores the user's notification preferences.
func (s *Store) SetPreferences(user string, p domain.NotificationPreferences) {
	s.set(userKey(keyPreferences, user), p)
}

// ============================================================
// Dismissed / completed reminder overlays
// ============================================================

// DismissReminder records a reminder id as dismissed, timestamped now.
func (s *Store) DismissReminder(user, id string) {
	dismissed := s.dismissedRaw(user)
	dismissed[id] = time.Now()
	s.set(userKey(keyDismissed, user), dismissed)
}

// DismissedSet returns the non-expired dismissed ids for a user. Expired
// entries are pruned from the store as a side effect.
func (s *Store) DismissedSet(user string) map[string]struct{} {
	dismissed := s.dismissedRaw(user)

	pruned := false
	cutoff := time.Now().Add(-DismissTTL)
	for id, at := range dismissed {
		if at.Before(cutoff) {
			delete(dismissed, id)
			pruned = true
		}
	}
	if pruned {
		s.set(userKey(keyDismissed, user), dismissed)
	}

	out := make(map[string]struct{}, len(dismissed))
	for id := range dismissed {
		out[id] = struct{}{}
	}
	return out
}

func (s *Store) dismissedRaw(user string) map[string]time.Time {
	dismissed := make(map[string]time.Time)
	s.get(userKey(keyDismissed, user), &dismissed)
	return dismissed
}

// CompleteReminderLocal overlays a completed status onto a reminder id.
// Used for synthetic reminders, which have no server-side row to patch.
func (s *Store) CompleteReminderLocal(user, id string) {
	completed := s.CompletedSet(user)
	completed[id] = struct{}{}
	s.set(userKey(keyCompleted, user), completed)
}

// CompletedSet returns the locally-completed reminder ids for a user.
func (s *Store) CompletedSet(user string) map[string]struct{} {
	completed := make(map[string]struct{})
	s.get(userKey(keyCompleted, user), &completed)
	return completed
}

// ============================================================
// Gamification profile
// ============================================================

// Profile returns the user's gamification profile (zero value for new
// users, at level 1).
func (s *Store) Profile(user string) domain.GamificationProfile {
	var p domain.GamificationProfile
	if !s.get(userKey(keyProfile, user), &p) {
		p.Level = 1
	}
	return p
}

// SaveProfile stores the user's gamification profile.
func (s *Store) SaveProfile(user string, p domain.GamificationProfile) {
	s.set(userKey(keyProfile, user), p)
}

// ============================================================
// Onboarding flags
// ============================================================

// OnboardingSeen reports whether the user has seen the named flow.
func (s *Store) OnboardingSeen(user, flow string) bool {
	seen := make(map[string]bool)
	s.get(userKey(keyOnboarding, user), &seen)
	return seen[flow]
}

// MarkOnboardingSeen records that the user has seen the named flow.
func (s *Store) MarkOnboardingSeen(user, flow string) {
	seen := make(map[string]bool)
	s.get(userKey(keyOnboarding, user), &seen)
	seen[flow] = true
	s.set(userKey(keyOnboarding, user), seen)
}
