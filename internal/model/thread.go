package model

import (
	"time"

	"gorm.io/gorm"
)

// Thread 会话（拥有参与者与消息）
type Thread struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)"`
	Name        string  `gorm:"type:varchar(191)"`
	SubjectID   *string `gorm:"type:varchar(36);index:idx_thread_subject"`
	SubjectType *string `gorm:"type:varchar(191);index:idx_thread_subject"`
	CreatedAt   time.Time
	// 每次保存所属消息时推进（见 MessageRepository.Append）
	UpdatedAt time.Time `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Thread) TableName() string { return "threads" }

// Subject 返回多态主题引用，未设置时为 nil
func (t *Thread) Subject() *Ref {
	if t.SubjectID == nil || t.SubjectType == nil {
		return nil
	}
	return &Ref{ID: *t.SubjectID, Type: *t.SubjectType}
}

// SetSubject 关联多态主题
func (t *Thread) SetSubject(subject Ref) {
	t.SubjectID = &subject.ID
	t.SubjectType = &subject.Type
}
