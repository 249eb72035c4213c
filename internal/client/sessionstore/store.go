package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/shiftdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/dbx"
	"github.com/dmitrijs2005/shiftdesk/internal/logging"
)

// Store is safe for concurrent use within one process. Separate processes
// sharing the database file are not coordinated: the last writer of the
// active pointer wins.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time

	mu sync.Mutex
}

func New(db *sql.DB, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// Upsert stores s, replacing any prior entry for the same account. A zero
// ExpiresAt defaults to now plus common.DefaultSessionValidity.
func (st *Store) Upsert(ctx context.Context, s StoredSession) error {
	return st.upsert(ctx, s, false)
}

// UpsertActive stores s and makes it the active account in one transaction.
func (st *Store) UpsertActive(ctx context.Context, s StoredSession) error {
	return st.upsert(ctx, s, true)
}

func (st *Store) upsert(ctx context.Context, s StoredSession, activate bool) error {
	if s.AccountID == "" {
		return fmt.Errorf("%w: empty account id", common.ErrInvalidFormat)
	}
	if s.ExpiresAt == 0 {
		s.ExpiresAt = st.now().Add(common.DefaultSessionValidity).UnixMilli()
	}

	return st.mutate(ctx, func(ctx context.Context, repo metadata.Repository, sessions []StoredSession) ([]StoredSession, error) {
		replaced := false
		for i := range sessions {
			if sessions[i].AccountID == s.AccountID {
				sessions[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			sessions = append(sessions, s)
		}

		if activate {
			if err := repo.Set(ctx, ActiveKey, []byte(s.AccountID)); err != nil {
				return nil, err
			}
		}
		return sessions, nil
	})
}

// ListValid returns the sessions that have not expired at now. Expired ones
// are evicted and the eviction is persisted before returning. If the active
// account was among them the pointer is cleared too.
func (st *Store) ListValid(ctx context.Context, now time.Time) ([]StoredSession, error) {
	var valid []StoredSession

	err := st.mutate(ctx, func(ctx context.Context, repo metadata.Repository, sessions []StoredSession) ([]StoredSession, error) {
		valid = make([]StoredSession, 0, len(sessions))
		var evicted []string
		for _, s := range sessions {
			if s.Expired(now) {
				evicted = append(evicted, s.AccountID)
				continue
			}
			valid = append(valid, s)
		}

		if len(evicted) == 0 {
			return nil, nil
		}

		st.logger.Info(ctx, "evicted expired sessions", "count", len(evicted))
		if err := clearActiveIfIn(ctx, repo, evicted...); err != nil {
			return nil, err
		}
		return valid, nil
	})
	if err != nil {
		return nil, err
	}
	return valid, nil
}

// Get returns the stored session for accountID whether or not it has
// expired; callers decide what to do with an expired one. A missing entry
// yields common.ErrNoStoredSession.
func (st *Store) Get(ctx context.Context, accountID string) (StoredSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sessions, err := st.load(ctx, metadata.NewSQLiteRepository(st.db))
	if err != nil {
		return StoredSession{}, err
	}
	for _, s := range sessions {
		if s.AccountID == accountID {
			return s, nil
		}
	}
	return StoredSession{}, common.ErrNoStoredSession
}

// FindByEmail looks a session up by the account's email, ignoring case.
func (st *Store) FindByEmail(ctx context.Context, email string) (StoredSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sessions, err := st.load(ctx, metadata.NewSQLiteRepository(st.db))
	if err != nil {
		return StoredSession{}, err
	}
	for _, s := range sessions {
		if equalFoldTrim(s.Email, email) {
			return s, nil
		}
	}
	return StoredSession{}, common.ErrNoStoredSession
}

// Evict removes the session for accountID, clearing the active pointer if it
// pointed at that account. Evicting an unknown account is a no-op.
func (st *Store) Evict(ctx context.Context, accountID string) error {
	return st.mutate(ctx, func(ctx context.Context, repo metadata.Repository, sessions []StoredSession) ([]StoredSession, error) {
		kept := make([]StoredSession, 0, len(sessions))
		for _, s := range sessions {
			if s.AccountID != accountID {
				kept = append(kept, s)
			}
		}
		if err := clearActiveIfIn(ctx, repo, accountID); err != nil {
			return nil, err
		}
		if len(kept) == len(sessions) {
			return nil, nil
		}
		return kept, nil
	})
}

// ClearAll drops every stored session and the active pointer.
func (st *Store) ClearAll(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := metadata.NewSQLiteRepository(st.db).DeleteMany(ctx, SessionsKey, ActiveKey); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

// Active returns the active account id, or "" when none is set.
func (st *Store) Active(ctx context.Context) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	v, _, err := metadata.NewSQLiteRepository(st.db).Get(ctx, ActiveKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// ReplaceTokens stores the rotated tokens and expiry of an account that is
// already stored. It never touches the active pointer, so a renewal that
// finishes after a switch cannot move the device back. A session removed in
// the meantime stays removed and common.ErrNoStoredSession is returned.
func (st *Store) ReplaceTokens(ctx context.Context, s StoredSession) error {
	return st.mutate(ctx, func(ctx context.Context, repo metadata.Repository, sessions []StoredSession) ([]StoredSession, error) {
		for i := range sessions {
			if sessions[i].AccountID == s.AccountID {
				sessions[i].AccessToken = s.AccessToken
				sessions[i].RefreshToken = s.RefreshToken
				if s.ExpiresAt != 0 {
					sessions[i].ExpiresAt = s.ExpiresAt
				}
				return sessions, nil
			}
		}
		return nil, common.ErrNoStoredSession
	})
}

// ClearActive unsets the pointer and keeps every stored session.
func (st *Store) ClearActive(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	return metadata.NewSQLiteRepository(st.db).Delete(ctx, ActiveKey)
}

// Others returns the sessions valid at now other than the active one.
func (st *Store) Others(ctx context.Context, now time.Time) ([]StoredSession, error) {
	valid, err := st.ListValid(ctx, now)
	if err != nil {
		return nil, err
	}
	active, err := st.Active(ctx)
	if err != nil {
		return nil, err
	}

	others := make([]StoredSession, 0, len(valid))
	for _, s := range valid {
		if s.AccountID != active {
			others = append(others, s)
		}
	}
	return others, nil
}

// CanQuickSwitch reports whether more than one session valid at now is
// stored.
func (st *Store) CanQuickSwitch(ctx context.Context, now time.Time) (bool, error) {
	valid, err := st.ListValid(ctx, now)
	if err != nil {
		return false, err
	}
	return len(valid) > 1, nil
}

// mutate loads the table inside a transaction and hands it to fn. A non-nil
// slice returned by fn is written back; nil means nothing changed.
func (st *Store) mutate(ctx context.Context, fn func(ctx context.Context, repo metadata.Repository, sessions []StoredSession) ([]StoredSession, error)) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	return dbx.WithTx(ctx, st.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		sessions, err := st.load(ctx, repo)
		if err != nil {
			return err
		}

		updated, err := fn(ctx, repo, sessions)
		if err != nil {
			return err
		}
		if updated == nil {
			return nil
		}
		return st.save(ctx, repo, updated)
	})
}

func (st *Store) load(ctx context.Context, repo metadata.Repository) ([]StoredSession, error) {
	raw, found, err := repo.Get(ctx, SessionsKey)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	if !found || len(raw) == 0 {
		return []StoredSession{}, nil
	}

	var sessions []StoredSession
	if err := json.Unmarshal(raw, &sessions); err != nil {
		st.logger.Warn(ctx, "stored sessions are corrupt, treating as empty", "error", err)
		return []StoredSession{}, nil
	}

	out := sessions[:0]
	for _, s := range sessions {
		if s.AccountID != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (st *Store) save(ctx context.Context, repo metadata.Repository, sessions []StoredSession) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := repo.Set(ctx, SessionsKey, raw); err != nil {
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

func clearActiveIfIn(ctx context.Context, repo metadata.Repository, accountIDs ...string) error {
	active, _, err := repo.Get(ctx, ActiveKey)
	if err != nil {
		return err
	}
	for _, id := range accountIDs {
		if string(active) == id {
			return repo.Delete(ctx, ActiveKey)
		}
	}
	return nil
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
