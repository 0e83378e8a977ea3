package xormimplement

import (
	"fmt"
	"time"

	"xorm.io/builder"

	"github.com/game-diot/Data-visualization-applications-sub000/constant"
	"github.com/game-diot/Data-visualization-applications-sub000/entity"
	"github.com/game-diot/Data-visualization-applications-sub000/repository"
)

// ========== CleaningSessionRepository 实现 ==========

type CleaningSessionRepository struct {
	session *Session
}

func NewCleaningSessionRepository(session *Session) repository.CleaningSessionRepository {
	return &CleaningSessionRepository{session: session}
}

func (r *CleaningSessionRepository) Create(session *entity.CleaningSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	_, err := r.session.Table(entity.TableNameCleaningSession).Insert(session)
	if err != nil {
		return fmt.Errorf("failed to create cleaning session: %w", err)
	}
	return nil
}

func (r *CleaningSessionRepository) Get(sessionID string) (*entity.CleaningSession, error) {
	session := &entity.CleaningSession{}
	has, err := r.session.Table(entity.TableNameCleaningSession).
		Where(builder.Eq{entity.CleaningSessionFieldID: sessionID}).
		Get(session)
	if err != nil {
		return nil, fmt.Errorf("failed to get cleaning session: %w", err)
	}
	if !has {
		return nil, nil
	}
	return session, nil
}

func (r *CleaningSessionRepository) GetActive(fileID string, qualityVersion int64) (*entity.CleaningSession, error) {
	session := &entity.CleaningSession{}
	has, err := r.session.Table(entity.TableNameCleaningSession).
		Where(builder.Eq{
			entity.CleaningSessionFieldFileID:         fileID,
			entity.CleaningSessionFieldQualityVersion: qualityVersion,
		}).
		And(builder.Neq{entity.CleaningSessionFieldStatus: constant.SessionStatusClosed.String()}).
		OrderBy(entity.CleaningSessionFieldCreatedAt + " desc").
		Get(session)
	if err != nil {
		return nil, fmt.Errorf("failed to get active cleaning session: %w", err)
	}
	if !has {
		return nil, nil
	}
	return session, nil
}

func (r *CleaningSessionRepository) CloseActive(fileID string, qualityVersion int64) error {
	now := time.Now()
	_, err := r.session.Table(entity.TableNameCleaningSession).
		Where(builder.Eq{
			entity.CleaningSessionFieldFileID:         fileID,
			entity.CleaningSessionFieldQualityVersion: qualityVersion,
		}).
		And(builder.Neq{entity.CleaningSessionFieldStatus: constant.SessionStatusClosed.String()}).
		Update(map[string]interface{}{
			entity.CleaningSessionFieldStatus:    constant.SessionStatusClosed.String(),
			entity.CleaningSessionFieldUpdatedAt: now,
			entity.CleaningSessionFieldClosedAt:  now,
		})
	if err != nil {
		return fmt.Errorf("failed to close active cleaning sessions: %w", err)
	}
	return nil
}

func (r *CleaningSessionRepository) Close(sessionID string) error {
	now := time.Now()
	_, err := r.session.Table(entity.TableNameCleaningSession).
		Where(builder.Eq{entity.CleaningSessionFieldID: sessionID}).
		And(builder.Neq{entity.CleaningSessionFieldStatus: constant.SessionStatusClosed.String()}).
		Update(map[string]interface{}{
			entity.CleaningSessionFieldStatus:    constant.SessionStatusClosed.String(),
			entity.CleaningSessionFieldUpdatedAt: now,
			entity.CleaningSessionFieldClosedAt:  now,
		})
	if err != nil {
		return fmt.Errorf("failed to close cleaning session: %w", err)
	}
	return nil
}

func (r *CleaningSessionRepository) TransitionStatus(sessionID string, from string, to string) (bool, error) {
	now := time.Now()
	updateData := map[string]interface{}{
		entity.CleaningSessionFieldStatus:    to,
		entity.CleaningSessionFieldUpdatedAt: now,
	}
	if to == constant.SessionStatusRunning.String() {
		updateData[entity.CleaningSessionFieldLockedAt] = now
	}
	if to == constant.SessionStatusClosed.String() {
		updateData[entity.CleaningSessionFieldClosedAt] = now
	}
	affected, err := r.session.Table(entity.TableNameCleaningSession).
		Where(builder.Eq{
			entity.CleaningSessionFieldID:     sessionID,
			entity.CleaningSessionFieldStatus: from,
		}).
		Update(updateData)
	if err != nil {
		return false, fmt.Errorf("failed to transition cleaning session status: %w", err)
	}
	return affected > 0, nil
}

// ========== UserModificationRepository 实现 ==========

type UserModificationRepository struct {
	session *Session
}

func NewUserModificationRepository(session *Session) repository.UserModificationRepository {
	return &UserModificationRepository{session: session}
}

func (r *UserModificationRepository) Create(modification *entity.UserModification) error {
	if modification == nil || modification.ID == "" {
		return fmt.Errorf("modification id is required")
	}
	_, err := r.session.Table(entity.TableNameUserModification).Insert(modification)
	if err != nil {
		return fmt.Errorf("failed to create user modification: %w", err)
	}
	return nil
}

func (r *UserModificationRepository) ListBySession(sessionID string) ([]*entity.UserModification, error) {
	modifications := make([]*entity.UserModification, 0)
	err := r.session.Table(entity.TableNameUserModification).
		Where(builder.Eq{entity.UserModificationFieldSessionID: sessionID}).
		OrderBy(entity.UserModificationFieldCreatedAt + " asc").
		Find(&modifications)
	if err != nil {
		return nil, fmt.Errorf("failed to list user modifications: %w", err)
	}
	return modifications, nil
}

func (r *UserModificationRepository) ListUnconsumed(sessionID string) ([]*entity.UserModification, error) {
	modifications := make([]*entity.UserModification, 0)
	err := r.session.Table(entity.TableNameUserModification).
		Where(builder.Eq{
			entity.UserModificationFieldSessionID: sessionID,
			entity.UserModificationFieldConsumed:  false,
		}).
		OrderBy(entity.UserModificationFieldCreatedAt + " asc").
		Find(&modifications)
	if err != nil {
		return nil, fmt.Errorf("failed to list unconsumed user modifications: %w", err)
	}
	return modifications, nil
}

func (r *UserModificationRepository) MarkConsumed(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.session.Table(entity.TableNameUserModification).
		In(entity.UserModificationFieldID, ids).
		Update(map[string]interface{}{
			entity.UserModificationFieldConsumed: true,
		})
	if err != nil {
		return fmt.Errorf("failed to mark user modifications consumed: %w", err)
	}
	return nil
}
