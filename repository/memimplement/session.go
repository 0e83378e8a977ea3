package memimplement

import (
	"fmt"
	"time"

	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
)

// ========== CleaningSessionRepository 内存实现 ==========

type CleaningSessionRepository struct {
	store *store
}

func (r *CleaningSessionRepository) Create(session *entity.CleaningSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	clone := *session
	clone.CreatedAt = now
	clone.UpdatedAt = now
	r.store.sessions = append(r.store.sessions, &clone)
	return nil
}

func (r *CleaningSessionRepository) Get(sessionID string) (*entity.CleaningSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, s := range r.store.sessions {
		if s.ID == sessionID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *CleaningSessionRepository) GetActive(fileID string, qualityVersion int64) (*entity.CleaningSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := len(r.store.sessions) - 1; i >= 0; i-- {
		s := r.store.sessions[i]
		if s.FileID == fileID && s.QualityVersion == qualityVersion &&
			constant.SessionStatus(s.Status).IsActive() {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *CleaningSessionRepository) CloseActive(fileID string, qualityVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	for _, s := range r.store.sessions {
		if s.FileID == fileID && s.QualityVersion == qualityVersion &&
			constant.SessionStatus(s.Status).IsActive() {
			s.Status = constant.SessionStatusClosed.String()
			s.UpdatedAt = now
			s.ClosedAt = &now
		}
	}
	return nil
}

func (r *CleaningSessionRepository) Close(sessionID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, s := range r.store.sessions {
		if s.ID != sessionID || s.Status == constant.SessionStatusClosed.String() {
			continue
		}
		now := time.Now()
		s.Status = constant.SessionStatusClosed.String()
		s.UpdatedAt = now
		s.ClosedAt = &now
	}
	return nil
}

func (r *CleaningSessionRepository) TransitionStatus(sessionID string, from string, to string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, s := range r.store.sessions {
		if s.ID != sessionID || s.Status != from {
			continue
		}
		now := time.Now()
		s.Status = to
		s.UpdatedAt = now
		if to == constant.SessionStatusRunning.String() {
			s.LockedAt = &now
		}
		if to == constant.SessionStatusClosed.String() {
			s.ClosedAt = &now
		}
		return true, nil
	}
	return false, nil
}

// ========== UserModificationRepository 内存实现 ==========

type UserModificationRepository struct {
	store *store
}

func (r *UserModificationRepository) Create(modification *entity.UserModification) error {
	if modification == nil || modification.ID == "" {
		return fmt.Errorf("modification id is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	clone := *modification
	clone.CreatedAt = time.Now()
	r.store.modifications = append(r.store.modifications, &clone)
	return nil
}

func (r *UserModificationRepository) ListBySession(sessionID string) ([]*entity.UserModification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	modifications := make([]*entity.UserModification, 0)
	for _, m := range r.store.modifications {
		if m.SessionID == sessionID {
			clone := *m
			modifications = append(modifications, &clone)
		}
	}
	return modifications, nil
}

func (r *UserModificationRepository) ListUnconsumed(sessionID string) ([]*entity.UserModification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	modifications := make([]*entity.UserModification, 0)
	for _, m := range r.store.modifications {
		if m.SessionID == sessionID && !m.Consumed {
			clone := *m
			modifications = append(modifications, &clone)
		}
	}
	return modifications, nil
}

func (r *UserModificationRepository) MarkConsumed(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	for _, m := range r.store.modifications {
		if _, ok := idSet[m.ID]; ok {
			m.Consumed = true
		}
	}
	return nil
}
