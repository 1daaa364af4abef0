package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/messenger/internal/model"
)

type ParticipantRepository interface {
	Add(ctx context.Context, threadID string, users ...model.Ref) ([]*model.Participant, error)
	Remove(ctx context.Context, threadID string, users ...model.Ref) error
	FindByUser(ctx context.Context, threadID string, user model.Ref) (*model.Participant, error)
	ExistsForUser(ctx context.Context, threadID string, user model.Ref) (bool, error)
	RestoreAll(ctx context.Context, threadID string) error
	MarkRead(ctx context.Context, threadID string, user model.Ref, at time.Time) error
	ListActive(ctx context.Context, threadID string) ([]*model.Participant, error)
}

type participantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

// Add 幂等：已是活跃成员时返回现有记录
func (r *participantRepository) Add(ctx context.Context, threadID string, users ...model.Ref) ([]*model.Participant, error) {
	out := make([]*model.Participant, 0, len(users))
	for _, u := range users {
		p, err := findOrCreateParticipant(r.db.WithContext(ctx), threadID, u)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// findOrCreateParticipant 按 (thread_id, user) 找到或创建活跃成员。
// 插入撞上复合唯一键说明存在软删除的旧记录，按已是成员处理：
// 恢复该行后重查，last_read 保留原值。
func findOrCreateParticipant(db *gorm.DB, threadID string, user model.Ref) (*model.Participant, error) {
	var p model.Participant
	err := db.Where("thread_id = ? AND user_id = ? AND user_type = ?", threadID, user.ID, user.Type).
		First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrapErr(err)
	}

	fresh := model.Participant{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		UserID:   user.ID,
		UserType: user.Type,
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return restoreAndFetch(db, threadID, user)
		}
		return nil, wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return restoreAndFetch(db, threadID, user)
	}
	return &fresh, nil
}

func restoreAndFetch(db *gorm.DB, threadID string, user model.Ref) (*model.Participant, error) {
	if err := db.Unscoped().Model(&model.Participant{}).
		Where("thread_id = ? AND user_id = ? AND user_type = ?", threadID, user.ID, user.Type).
		Update("deleted_at", nil).Error; err != nil {
		return nil, wrapErr(err)
	}
	var p model.Participant
	if err := db.Where("thread_id = ? AND user_id = ? AND user_type = ?", threadID, user.ID, user.Type).
		First(&p).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &p, nil
}

// Remove 软删除；用户不是成员时不报错
func (r *participantRepository) Remove(ctx context.Context, threadID string, users ...model.Ref) error {
	for _, u := range users {
		if err := r.db.WithContext(ctx).
			Where("thread_id = ? AND user_id = ? AND user_type = ?", threadID, u.ID, u.Type).
			Delete(&model.Participant{}).Error; err != nil {
			return wrapErr(err)
		}
	}
	return nil
}

func (r *participantRepository) FindByUser(ctx context.Context, threadID string, user model.Ref) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND user_id = ? AND user_type = ?", threadID, user.ID, user.Type).
		First(&p).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &p, nil
}

func (r *participantRepository) ExistsForUser(ctx context.Context, threadID string, user model.Ref) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("thread_id = ? AND user_id = ? AND user_type = ?", threadID, user.ID, user.Type).
		Count(&cnt).Error; err != nil {
		return false, wrapErr(err)
	}
	return cnt > 0, nil
}

// RestoreAll 恢复该会话全部成员记录（含未删除的，幂等）
func (r *participantRepository) RestoreAll(ctx context.Context, threadID string) error {
	return wrapErr(r.db.WithContext(ctx).Unscoped().
		Model(&model.Participant{}).
		Where("thread_id = ?", threadID).
		Update("deleted_at", nil).Error)
}

// MarkRead 更新已读游标；用户不是成员时静默跳过
func (r *participantRepository) MarkRead(ctx context.Context, threadID string, user model.Ref, at time.Time) error {
	return wrapErr(r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("thread_id = ? AND user_id = ? AND user_type = ?", threadID, user.ID, user.Type).
		Update("last_read", at).Error)
}

func (r *participantRepository) ListActive(ctx context.Context, threadID string) ([]*model.Participant, error) {
	var res []*model.Participant
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}
