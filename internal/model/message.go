package model

import (
	"time"

	"gorm.io/gorm"
)

// Message 会话消息，作者为多态用户引用
type Message struct {
	ID            string       `gorm:"primaryKey;type:varchar(36)"`
	ThreadID      string       `gorm:"type:varchar(36);not null;index:idx_message_thread_created"`
	Thread        *Thread      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	ParticipantID *string      `gorm:"type:varchar(36)"`
	Participant   *Participant `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	UserID        string       `gorm:"type:varchar(36);index:idx_message_user"`
	UserType      string       `gorm:"type:varchar(191);index:idx_message_user"`
	Body          string       `gorm:"type:text"`
	CreatedAt     time.Time    `gorm:"index:idx_message_thread_created"`
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (Message) TableName() string { return "messages" }

// Author 消息作者引用；系统消息无作者时为 nil
func (m *Message) Author() *Ref {
	if m.UserID == "" && m.UserType == "" {
		return nil
	}
	return &Ref{ID: m.UserID, Type: m.UserType}
}
