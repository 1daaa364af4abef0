package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/messenger/internal/model"
)

// ThreadWithUnread 附带针对某个用户的未读数
type ThreadWithUnread struct {
	model.Thread
	UnreadCount int64 `gorm:"column:unread_count"`
}

type ThreadRepository interface {
	Create(ctx context.Context, t *model.Thread) error
	GetByID(ctx context.Context, id string) (*model.Thread, error)
	ByName(ctx context.Context, name string) ([]*model.Thread, error)
	AllLatest(ctx context.Context) ([]*model.Thread, error)
	ForUser(ctx context.Context, user model.Ref) ([]*model.Thread, error)
	Between(ctx context.Context, users []model.Ref) ([]*model.Thread, error)
	ForSubject(ctx context.Context, subject model.Ref) ([]*model.Thread, error)
	SortByLatestMessage(ctx context.Context) ([]*model.Thread, error)
	WithUnreadCount(ctx context.Context, user model.Ref) ([]*ThreadWithUnread, error)
	WhereHasUnread(ctx context.Context, user model.Ref) ([]*ThreadWithUnread, error)
	SetSubject(ctx context.Context, id string, subject model.Ref) error
	Delete(ctx context.Context, id string) error
}

type threadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) Create(ctx context.Context, t *model.Thread) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return wrapErr(r.db.WithContext(ctx).Create(t).Error)
}

func (r *threadRepository) GetByID(ctx context.Context, id string) (*model.Thread, error) {
	var t model.Thread
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &t, nil
}

// ByName 支持 LIKE 通配（如 "%name"）
func (r *threadRepository) ByName(ctx context.Context, name string) ([]*model.Thread, error) {
	var res []*model.Thread
	err := r.db.WithContext(ctx).
		Where("name LIKE ?", name).
		Order("created_at ASC").
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

func (r *threadRepository) AllLatest(ctx context.Context) ([]*model.Thread, error) {
	var res []*model.Thread
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

// ForUser 用户作为活跃成员的全部会话
func (r *threadRepository) ForUser(ctx context.Context, user model.Ref) ([]*model.Thread, error) {
	var res []*model.Thread
	err := r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Joins("JOIN participants ON participants.thread_id = threads.id").
		Where("participants.user_id = ? AND participants.user_type = ?", user.ID, user.Type).
		Where("participants.deleted_at IS NULL").
		Select("threads.*").
		Order("threads.updated_at DESC").
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

// Between 活跃成员集恰好等于给定用户集的会话；有额外成员的会话被排除
func (r *threadRepository) Between(ctx context.Context, users []model.Ref) ([]*model.Thread, error) {
	if len(users) == 0 {
		return []*model.Thread{}, nil
	}

	match := r.db.Where("participants.user_id = ? AND participants.user_type = ?", users[0].ID, users[0].Type)
	for _, u := range users[1:] {
		match = match.Or("participants.user_id = ? AND participants.user_type = ?", u.ID, u.Type)
	}

	matching := r.db.Model(&model.Participant{}).
		Select("COUNT(*)").
		Where("participants.thread_id = threads.id").
		Where("participants.deleted_at IS NULL").
		Where(match)
	total := r.db.Model(&model.Participant{}).
		Select("COUNT(*)").
		Where("participants.thread_id = threads.id").
		Where("participants.deleted_at IS NULL")

	var res []*model.Thread
	err := r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Where("(?) = ?", matching, len(users)).
		Where("(?) = ?", total, len(users)).
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

func (r *threadRepository) ForSubject(ctx context.Context, subject model.Ref) ([]*model.Thread, error) {
	var res []*model.Thread
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND subject_type = ?", subject.ID, subject.Type).
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

// SortByLatestMessage 按各会话最新消息时间倒序
func (r *threadRepository) SortByLatestMessage(ctx context.Context) ([]*model.Thread, error) {
	latest := r.db.Model(&model.Message{}).
		Select("MAX(created_at)").
		Where("messages.thread_id = threads.id").
		Where("messages.deleted_at IS NULL")

	var res []*model.Thread
	err := r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Select("threads.*, (?) AS latest_message_created_at", latest).
		Order("latest_message_created_at DESC").
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

func (r *threadRepository) unreadCountSubquery(user model.Ref) *gorm.DB {
	return unreadScope(r.db, user).
		Select("COUNT(*)").
		Where("messages.thread_id = threads.id").
		Where("messages.deleted_at IS NULL")
}

func (r *threadRepository) WithUnreadCount(ctx context.Context, user model.Ref) ([]*ThreadWithUnread, error) {
	var res []*ThreadWithUnread
	err := r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Select("threads.*, (?) AS unread_count", r.unreadCountSubquery(user)).
		Order("threads.updated_at DESC").
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

func (r *threadRepository) WhereHasUnread(ctx context.Context, user model.Ref) ([]*ThreadWithUnread, error) {
	var res []*ThreadWithUnread
	err := r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Select("threads.*, (?) AS unread_count", r.unreadCountSubquery(user)).
		Where("(?) > 0", r.unreadCountSubquery(user)).
		Order("threads.updated_at DESC").
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

func (r *threadRepository) SetSubject(ctx context.Context, id string, subject model.Ref) error {
	res := r.db.WithContext(ctx).
		Model(&model.Thread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subject_id":   subject.ID,
			"subject_type": subject.Type,
		})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 软删除会话及其成员与消息；硬删除的级联由外键动作兜底
func (r *threadRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Thread{})
		if res.Error != nil {
			return wrapErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("thread_id = ?", id).Delete(&model.Participant{}).Error; err != nil {
			return wrapErr(err)
		}
		return wrapErr(tx.Where("thread_id = ?", id).Delete(&model.Message{}).Error)
	})
}
