package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/abhisek/lingua/internal/store"
)

const (
	keyPrefix = "lingua:state:"

	// AccountsKey holds the directory of locally known accounts.
	AccountsKey = "lingua:accounts"

	// legacyVersion is assumed for records written before the envelope existed.
	legacyVersion = "v1.0.0"
)

var (
	// ErrPersistenceDecode reports a stored record that could not be decoded.
	// Load never returns it; it is only logged before the record is discarded.
	ErrPersistenceDecode = errors.New("persisted record could not be decoded")

	// ErrNoUser is returned when a session context carries no user identity.
	ErrNoUser = errors.New("session has no user")
)

// Key returns the storage key for a user. Emails are case-insensitive.
func Key(userID string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(userID))
}

// Migration upgrades the raw JSON of records older than Version.
type Migration struct {
	Version string
	Apply   func(data map[string]any) error
}

// Account is one entry of the known-accounts directory.
type Account struct {
	Email    string    `json:"email"`
	LastSeen time.Time `json:"last_seen"`
}

type envelope struct {
	Version string          `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// Store persists one record of type R per user in a key/value store.
// Every save fully replaces the previous record.
type Store[R any] struct {
	kv         store.KV
	version    string
	migrations []Migration
	now        func() time.Time
}

// NewStore returns a store writing records at the given semver version.
// Migrations run in version order on records older than their Version.
func NewStore[R any](kv store.KV, version string, migrations ...Migration) *Store[R] {
	ms := slices.Clone(migrations)
	slices.SortFunc(ms, func(a, b Migration) int {
		return semver.Compare(a.Version, b.Version)
	})
	return &Store[R]{
		kv:         kv,
		version:    version,
		migrations: ms,
		now:        time.Now,
	}
}

// Save writes rec for the session's user. It is a no-op in incognito mode.
func (s *Store[R]) Save(ctx context.Context, sc Context, rec R) error {
	if sc.Incognito {
		return nil
	}
	if sc.UserID == "" {
		return ErrNoUser
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	now := s.now().UTC()
	raw, err := json.Marshal(envelope{Version: s.version, SavedAt: now, Data: data})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := s.kv.Put(ctx, Key(sc.UserID), string(raw)); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return s.touchAccount(ctx, sc.UserID, now)
}

// Load returns the session user's record, or nil if there is none.
// In incognito mode any stored record is deleted and nil is returned.
// A record that fails to decode is deleted and treated as absent.
func (s *Store[R]) Load(ctx context.Context, sc Context) (*R, error) {
	if sc.UserID == "" {
		return nil, ErrNoUser
	}
	key := Key(sc.UserID)

	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if !ok {
		return nil, nil
	}
	if sc.Incognito {
		slog.Info("incognito session, removing stored record", "user", sc.UserID)
		if err := s.kv.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete record: %w", err)
		}
		return nil, nil
	}

	rec, err := s.decode(raw)
	if err != nil {
		slog.Warn("discarding corrupt session record", "user", sc.UserID, "error", err)
		if err := s.kv.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete corrupt record: %w", err)
		}
		return nil, nil
	}
	return rec, nil
}

// Delete removes a user's record and their directory entry.
func (s *Store[R]) Delete(ctx context.Context, userID string) error {
	if err := s.kv.Delete(ctx, Key(userID)); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(userID))
	accounts = slices.DeleteFunc(accounts, func(a Account) bool { return a.Email == email })
	return s.putAccounts(ctx, accounts)
}

// Inspect returns the stored envelope metadata and raw record JSON for a user.
func (s *Store[R]) Inspect(ctx context.Context, userID string) (version string, savedAt time.Time, data json.RawMessage, err error) {
	raw, ok, err := s.kv.Get(ctx, Key(userID))
	if err != nil || !ok {
		return "", time.Time{}, nil, err
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", time.Time{}, nil, fmt.Errorf("%w: %v", ErrPersistenceDecode, err)
	}
	return env.Version, env.SavedAt, env.Data, nil
}

// Accounts returns the known-accounts directory, most recently seen first.
func (s *Store[R]) Accounts(ctx context.Context) ([]Account, error) {
	raw, ok, err := s.kv.Get(ctx, AccountsKey)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var accounts []Account
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		slog.Warn("discarding corrupt accounts directory", "error", err)
		return nil, nil
	}
	return accounts, nil
}

func (s *Store[R]) touchAccount(ctx context.Context, userID string, now time.Time) error {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(userID))
	accounts = slices.DeleteFunc(accounts, func(a Account) bool { return a.Email == email })
	accounts = append([]Account{{Email: email, LastSeen: now}}, accounts...)
	return s.putAccounts(ctx, accounts)
}

func (s *Store[R]) putAccounts(ctx context.Context, accounts []Account) error {
	raw, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := s.kv.Put(ctx, AccountsKey, string(raw)); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

func (s *Store[R]) decode(raw string) (*R, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceDecode, err)
	}
	if env.Version == "" && env.Data == nil {
		// Written before records were wrapped: the whole value is the record.
		env.Version = legacyVersion
		env.Data = json.RawMessage(raw)
	}
	if !semver.IsValid(env.Version) {
		return nil, fmt.Errorf("%w: invalid version %q", ErrPersistenceDecode, env.Version)
	}

	data, err := s.migrate(env.Version, env.Data)
	if err != nil {
		return nil, err
	}

	var rec R
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceDecode, err)
	}
	return &rec, nil
}

func (s *Store[R]) migrate(from string, data json.RawMessage) (json.RawMessage, error) {
	var pending []Migration
	for _, m := range s.migrations {
		if semver.Compare(from, m.Version) < 0 {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return data, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceDecode, err)
	}
	for _, m := range pending {
		if err := m.Apply(doc); err != nil {
			return nil, fmt.Errorf("%w: migrate to %s: %v", ErrPersistenceDecode, m.Version, err)
		}
		slog.Debug("migrated session record", "from", from, "to", m.Version)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceDecode, err)
	}
	return out, nil
}
