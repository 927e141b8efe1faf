package service

import (
	"context"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/constants"
)

// Session 已认证调用方
type Session struct {
	UserID    uint
	Name      string
	Role      string
	ExpiresAt time.Time
}

// IsStaff 后台人员（含管理员）
func (s Session) IsStaff() bool {
	return s.Role == constants.RoleStaff || s.Role == constants.RoleAdmin
}

// IsDriver 司机
func (s Session) IsDriver() bool {
	return s.Role == constants.RoleDriver
}

// Expired 会话是否已过期
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SystemSession 后台任务使用的系统身份
var SystemSession = Session{Name: "system", Role: constants.RoleAdmin}

type sessionKey struct{}

type requestIDKey struct{}

// WithSession 将会话放入 context
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext 读取会话
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// WithRequestID 将请求 ID 放入 context，审计日志使用
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext 读取请求 ID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
