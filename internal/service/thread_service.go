package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/d60-Lab/messenger/internal/model"
	"github.com/d60-Lab/messenger/internal/repository"
)

var (
	ErrNoUserResolver = errors.New("no user resolver configured")
)

// UserResolver 外部协作方：按多态引用解析用户展示字段（name、email 等）
type UserResolver interface {
	Resolve(ctx context.Context, ref model.Ref) (map[string]string, error)
}

// ThreadService 会话引擎：组合三个仓储实现会话级操作
type ThreadService struct {
	threads      repository.ThreadRepository
	participants repository.ParticipantRepository
	messages     repository.MessageRepository
	users        UserResolver
}

func NewThreadService(
	threads repository.ThreadRepository,
	participants repository.ParticipantRepository,
	messages repository.MessageRepository,
	users UserResolver,
) *ThreadService {
	return &ThreadService{threads: threads, participants: participants, messages: messages, users: users}
}

// CreateThread 创建会话，name 与 subject 均可选
func (s *ThreadService) CreateThread(ctx context.Context, name string, subject *model.Ref) (*model.Thread, error) {
	t := &model.Thread{Name: name}
	if subject != nil {
		t.SetSubject(*subject)
	}
	if err := s.threads.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Send 发送文本消息；author 给定时自动关联/补建其成员记录
func (s *ThreadService) Send(ctx context.Context, threadID, body string, author *model.Ref) (*model.Message, error) {
	return s.SendMessage(ctx, &model.Message{ThreadID: threadID, Body: body}, author)
}

// SendMessage 发送预构建消息（调用方已设置 ThreadID 之外的字段时用这个）
func (s *ThreadService) SendMessage(ctx context.Context, msg *model.Message, author *model.Ref) (*model.Message, error) {
	return s.messages.Append(ctx, msg, author)
}

func (s *ThreadService) SetSubject(ctx context.Context, threadID string, subject model.Ref) error {
	return s.threads.SetSubject(ctx, threadID, subject)
}

// AddParticipants 幂等添加，单个或多个均走这里
func (s *ThreadService) AddParticipants(ctx context.Context, threadID string, users ...model.Ref) ([]*model.Participant, error) {
	return s.participants.Add(ctx, threadID, users...)
}

func (s *ThreadService) RemoveParticipants(ctx context.Context, threadID string, users ...model.Ref) error {
	return s.participants.Remove(ctx, threadID, users...)
}

// RestoreAllParticipants 恢复全部成员（会话重新激活时用）
func (s *ThreadService) RestoreAllParticipants(ctx context.Context, threadID string) error {
	return s.participants.RestoreAll(ctx, threadID)
}

// MarkAsRead 非成员是正常状态，不作为错误
func (s *ThreadService) MarkAsRead(ctx context.Context, threadID string, user model.Ref) error {
	err := s.participants.MarkRead(ctx, threadID, user, time.Now())
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// IsUnread 粗粒度判断：比较会话 updated_at 与成员 last_read。
// 与逐条的 UserUnreadMessagesCount 是两套独立口径，可能不一致
// （比如没有新消息但会话被更新过）。
func (s *ThreadService) IsUnread(ctx context.Context, threadID string, user model.Ref) (bool, error) {
	t, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return false, err
	}
	p, err := s.participants.FindByUser(ctx, threadID, user)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.LastRead == nil || t.UpdatedAt.After(*p.LastRead) {
		return true, nil
	}
	return false, nil
}

// UserUnreadMessages 逐条口径；非成员得空集，从未读过则全部未读
func (s *ThreadService) UserUnreadMessages(ctx context.Context, threadID string, user model.Ref) ([]*model.Message, error) {
	return s.messages.UnreadFor(ctx, threadID, user)
}

func (s *ThreadService) UserUnreadMessagesCount(ctx context.Context, threadID string, user model.Ref) (int64, error) {
	return s.messages.UnreadCountFor(ctx, threadID, user)
}

// Creator 最早一条消息（含软删除）的作者；无消息时返回 nil。
// 每次调用重新计算，不持有实例级缓存。
func (s *ThreadService) Creator(ctx context.Context, threadID string) (*model.Ref, error) {
	m, err := s.messages.Oldest(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	return m.Author(), nil
}

func (s *ThreadService) HasParticipant(ctx context.Context, threadID string, user model.Ref) (bool, error) {
	return s.participants.ExistsForUser(ctx, threadID, user)
}

func (s *ThreadService) LatestMessage(ctx context.Context, threadID string) (*model.Message, error) {
	return s.messages.Latest(ctx, threadID)
}

// ParticipantsString 拼接成员展示串。except 非空时排除该用户；
// fields 默认 ["name"]，同一成员的多个字段直接相连后去除首尾空格，
// 成员之间以 ", " 分隔。
func (s *ThreadService) ParticipantsString(ctx context.Context, threadID string, except *model.Ref, fields []string) (string, error) {
	if s.users == nil {
		return "", ErrNoUserResolver
	}
	if len(fields) == 0 {
		fields = []string{"name"}
	}
	ps, err := s.participants.ListActive(ctx, threadID)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		ref := p.UserRef()
		if except != nil && ref.Equal(*except) {
			continue
		}
		attrs, err := s.users.Resolve(ctx, ref)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, f := range fields {
			b.WriteString(attrs[f])
		}
		parts = append(parts, strings.Trim(b.String(), " "))
	}
	return strings.Join(parts, ", "), nil
}
