package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/messenger/internal/model"
)

type MessageRepository interface {
	Append(ctx context.Context, msg *model.Message, author *model.Ref) (*model.Message, error)
	Latest(ctx context.Context, threadID string) (*model.Message, error)
	Oldest(ctx context.Context, threadID string) (*model.Message, error)
	AllForThread(ctx context.Context, threadID string) ([]*model.Message, error)
	UnreadFor(ctx context.Context, threadID string, user model.Ref) ([]*model.Message, error)
	UnreadCountFor(ctx context.Context, threadID string, user model.Ref) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Append 落地消息：校验会话存在，必要时为作者补建成员记录并回填
// participant_id，同一事务内推进会话 updated_at。
func (r *messageRepository) Append(ctx context.Context, msg *model.Message, author *model.Ref) (*model.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread model.Thread
		if err := tx.Where("id = ?", msg.ThreadID).First(&thread).Error; err != nil {
			return wrapErr(err)
		}
		if author != nil {
			msg.UserID = author.ID
			msg.UserType = author.Type
			if msg.ParticipantID == nil {
				p, err := findOrCreateParticipant(tx, msg.ThreadID, *author)
				if err != nil {
					return err
				}
				msg.ParticipantID = &p.ID
			}
		}
		if err := tx.Create(msg).Error; err != nil {
			return wrapErr(err)
		}
		return wrapErr(tx.Model(&model.Thread{}).
			Where("id = ?", msg.ThreadID).
			UpdateColumn("updated_at", time.Now()).Error)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Latest 最新消息，没有时返回 nil
func (r *messageRepository) Latest(ctx context.Context, threadID string) (*model.Message, error) {
	var m model.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &m, nil
}

// Oldest 最早消息，包含软删除的（用于推导会话创建者）
func (r *messageRepository) Oldest(ctx context.Context, threadID string) (*model.Message, error) {
	var m model.Message
	err := r.db.WithContext(ctx).Unscoped().
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &m, nil
}

func (r *messageRepository) AllForThread(ctx context.Context, threadID string) ([]*model.Message, error) {
	var res []*model.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

// unreadScope 针对 user 的未读条件：排除本人发的消息，且存在该用户的
// 活跃成员记录、其 last_read 为空或早于消息 created_at。非成员自然得空集。
func unreadScope(db *gorm.DB, user model.Ref) *gorm.DB {
	sub := db.Model(&model.Participant{}).
		Select("1").
		Where("participants.thread_id = messages.thread_id").
		Where("participants.user_id = ? AND participants.user_type = ?", user.ID, user.Type).
		Where("participants.deleted_at IS NULL").
		Where("(participants.last_read IS NULL OR participants.last_read < messages.created_at)")
	return db.Model(&model.Message{}).
		Where("NOT (messages.user_id = ? AND messages.user_type = ?)", user.ID, user.Type).
		Where("EXISTS (?)", sub)
}

func (r *messageRepository) UnreadFor(ctx context.Context, threadID string, user model.Ref) ([]*model.Message, error) {
	var res []*model.Message
	err := unreadScope(r.db.WithContext(ctx), user).
		Where("messages.thread_id = ?", threadID).
		Order("messages.created_at ASC").
		Find(&res).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

func (r *messageRepository) UnreadCountFor(ctx context.Context, threadID string, user model.Ref) (int64, error) {
	var cnt int64
	err := unreadScope(r.db.WithContext(ctx), user).
		Where("messages.thread_id = ?", threadID).
		Count(&cnt).Error
	if err != nil {
		return 0, wrapErr(err)
	}
	return cnt, nil
}
