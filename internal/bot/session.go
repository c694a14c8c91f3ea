package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/store"
)

const sessionKeyPrefix = "hrbot:session:"

// DefaultSessionTTL idle time after which an unfinished flow is forgotten.
const DefaultSessionTTL = 30 * time.Minute

// Session one caller's active flow. Absent keys in Data are skipped optional fields.
type Session struct {
	Flow      string            `json:"flow"`
	Step      int               `json:"step"`
	Data      map[string]string `json:"data"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func newSession(flow string) *Session {
	return &Session{Flow: flow, Data: map[string]string{}}
}

// SessionStore keeps sessions in a KV with an idle TTL refreshed on every save.
type SessionStore struct {
	kv  store.KV
	ttl time.Duration
}

func NewSessionStore(kv store.KV, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{kv: kv, ttl: ttl}
}

func sessionKey(caller int64) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, caller)
}

// Load returns nil when the caller has no live session.
func (s *SessionStore) Load(ctx context.Context, caller int64) (*Session, error) {
	raw, err := s.kv.Get(ctx, sessionKey(caller))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w: %w", domain.ErrUnavailable, err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// unreadable state is dropped rather than replayed
		_ = s.kv.Delete(ctx, sessionKey(caller))
		return nil, nil
	}
	if sess.Data == nil {
		sess.Data = map[string]string{}
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, caller int64, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.kv.Set(ctx, sessionKey(caller), string(b), s.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w: %w", domain.ErrUnavailable, err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context, caller int64) error {
	if err := s.kv.Delete(ctx, sessionKey(caller)); err != nil {
		return fmt.Errorf("failed to clear session: %w: %w", domain.ErrUnavailable, err)
	}
	return nil
}

// Count live sessions.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	keys, err := s.kv.ScanKeys(ctx, sessionKeyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to scan sessions: %w: %w", domain.ErrUnavailable, err)
	}
	return len(keys), nil
}

// callerLocks serializes events of one caller; entries are dropped when unused.
type callerLocks struct {
	mu    sync.Mutex
	locks map[int64]*callerLock
}

type callerLock struct {
	mu   sync.Mutex
	refs int
}

func newCallerLocks() *callerLocks {
	return &callerLocks{locks: map[int64]*callerLock{}}
}

func (l *callerLocks) lock(caller int64) (unlock func()) {
	l.mu.Lock()
	cl, ok := l.locks[caller]
	if !ok {
		cl = &callerLock{}
		l.locks[caller] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, caller)
		}
		l.mu.Unlock()
	}
}

func (l *callerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
