package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/cache"
	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/metrics"
)

const DefaultSessionTTL = 24 * time.Hour

// SessionStore хранит сессии в TTL-кеше. Наружу отдаются копии,
// изменения идут только через методы стора.
type SessionStore struct {
	mu      sync.Mutex
	cache   cache.Cache[int64, domain.Session]
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSessionStore(c cache.Cache[int64, domain.Session], ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// Get returns a copy of the user's session, or a fresh one if there is none.
func (s *SessionStore) Get(userID int64) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userID)
}

// Lookup is Get without the fallback.
func (s *SessionStore) Lookup(userID int64) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.cache.Get(userID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *SessionStore) Save(sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(sess)
}

func (s *SessionStore) SetCredential(userID int64, apiKey string) {
	s.update(userID, func(sess *domain.Session) {
		sess.APIKey = apiKey
	})
	s.logger.Info("credential updated", zap.Int64("user_id", userID))
}

func (s *SessionStore) SetModel(userID int64, model string) {
	s.update(userID, func(sess *domain.Session) {
		sess.Model = model
	})
}

func (s *SessionStore) RecordAnalysis(userID int64, prompt string, res *domain.AnalysisResult) {
	s.update(userID, func(sess *domain.Session) {
		sess.RecordAnalysis(prompt, res)
	})
}

func (s *SessionStore) RecordImprovement(userID int64, improved string) {
	s.update(userID, func(sess *domain.Session) {
		sess.RecordImprovement(improved)
	})
}

func (s *SessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(userID)
	s.report()
}

func (s *SessionStore) update(userID int64, fn func(*domain.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.load(userID)
	fn(sess)
	sess.UpdatedAt = time.Now()
	s.store(sess)
}

func (s *SessionStore) load(userID int64) *domain.Session {
	if sess, ok := s.cache.Get(userID); ok {
		return &sess
	}
	return domain.NewSession(userID)
}

func (s *SessionStore) store(sess *domain.Session) {
	s.cache.Set(sess.UserID, *sess, s.ttl)
	s.report()
}

func (s *SessionStore) report() {
	if s.metrics != nil {
		s.metrics.SetActiveSessions(float64(s.cache.Len()))
	}
}
