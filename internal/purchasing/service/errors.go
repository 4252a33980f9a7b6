package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/procure/internal/purchasing/repository"
)

// ValidationError 输入不合法，Field 指出出错字段
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError 引用了不存在的记录
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError 与当前状态冲突，例如重复确认收货
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// notFoundOr 把仓库层的 ErrNotFound 转成带实体信息的错误
func notFoundOr(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}
