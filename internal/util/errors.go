package util

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrModuleLocked       = errors.New("module is locked")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrAlreadyIssued      = errors.New("certificate already issued")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// NotFoundError 未知的学员/路径/模块
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFound(resource string, id uint) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ModuleLockedError 尝试完成尚未解锁的模块
type ModuleLockedError struct {
	ModuleID uint
}

func (e *ModuleLockedError) Error() string {
	return fmt.Sprintf("module %d is locked", e.ModuleID)
}

func (e *ModuleLockedError) Is(target error) bool { return target == ErrModuleLocked }

// AlreadyIssuedError 同一 (学员, 路径) 重复签发证书，出现即说明并发控制有缺陷
type AlreadyIssuedError struct {
	UserID  uint
	TrackID uint
}

func (e *AlreadyIssuedError) Error() string {
	return fmt.Sprintf("certificate already issued for user %d track %d", e.UserID, e.TrackID)
}

func (e *AlreadyIssuedError) Is(target error) bool { return target == ErrAlreadyIssued }

// InvalidDateRangeError 报表查询参数不合法
type InvalidDateRangeError struct {
	Reason string
}

func (e *InvalidDateRangeError) Error() string {
	return "invalid date range: " + e.Reason
}

func (e *InvalidDateRangeError) Is(target error) bool { return target == ErrInvalidDateRange }
