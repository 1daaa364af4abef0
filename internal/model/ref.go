package model

import "errors"

// ErrInvalidReference 无法从输入推导出 (id, type) 的用户引用
var ErrInvalidReference = errors.New("invalid user reference")

// Refable 任何可以作为会话成员的实体（多态 user）
type Refable interface {
	GetKey() string
	MorphClass() string
}

// Ref 多态用户引用 (id + 类型判别)
type Ref struct {
	ID   string
	Type string
}

// RefFor 从实体派生引用，类型取自 MorphClass
func RefFor(u Refable) Ref {
	return Ref{ID: u.GetKey(), Type: u.MorphClass()}
}

// NewRef 由显式 (id, type) 构造；缺一不可
func NewRef(id, typ string) (Ref, error) {
	if id == "" || typ == "" {
		return Ref{}, ErrInvalidReference
	}
	return Ref{ID: id, Type: typ}, nil
}

// Equal 两个引用仅当 id 与 type 都相同才相等
func (r Ref) Equal(other Ref) bool {
	return r.ID == other.ID && r.Type == other.Type
}

// IsZero 空引用（无作者等场景）
func (r Ref) IsZero() bool {
	return r.ID == "" && r.Type == ""
}
