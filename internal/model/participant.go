package model

import (
	"time"

	"gorm.io/gorm"
)

// Participant 参与者（成员关系 + 已读游标）
type Participant struct {
	ID       string  `gorm:"primaryKey;type:varchar(36)"`
	ThreadID string  `gorm:"type:varchar(36);not null;index:idx_participant_thread;uniqueIndex:ux_participant_thread_user"`
	Thread   *Thread `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	UserID   string  `gorm:"type:varchar(36);not null;uniqueIndex:ux_participant_thread_user"`
	UserType string  `gorm:"type:varchar(191);not null;uniqueIndex:ux_participant_thread_user"`
	// 复合唯一键，同一会话内一个用户至多一条记录
	// ux_participant_thread_user = (thread_id, user_id, user_type)
	LastRead  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Participant) TableName() string { return "participants" }

// UserRef 成员的多态用户引用
func (p *Participant) UserRef() Ref {
	return Ref{ID: p.UserID, Type: p.UserType}
}
