package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 按键查询未命中
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation 数据库层外键/唯一键冲突
	ErrConstraintViolation = errors.New("constraint violation")
)

func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrConstraintViolation
	default:
		return err
	}
}
