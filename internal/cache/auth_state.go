package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// AuthState 账号鉴权快照，避免每个请求都查库
type AuthState struct {
	UserID       uint   `json:"user_id"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	TokenVersion uint64 `json:"token_version"`
}

func authStateKey(userID uint) string {
	return fmt.Sprintf("auth:user:%d", userID)
}

// BuildAuthState 从账号构建快照
func BuildAuthState(user *models.User) *AuthState {
	if user == nil {
		return nil
	}
	return &AuthState{
		UserID:       user.ID,
		Role:         user.Role,
		Status:       user.Status,
		TokenVersion: user.TokenVersion,
	}
}

// GetAuthState 读取鉴权快照
func GetAuthState(ctx context.Context, userID uint) (*AuthState, bool, error) {
	if userID == 0 {
		return nil, false, nil
	}
	var state AuthState
	ok, err := GetJSON(ctx, authStateKey(userID), &state)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &state, true, nil
}

// SetAuthState 写入鉴权快照
func SetAuthState(ctx context.Context, state *AuthState) error {
	if state == nil || state.UserID == 0 {
		return nil
	}
	return SetJSON(ctx, authStateKey(state.UserID), state, authStateCacheTTL)
}

// DelAuthState 删除鉴权快照
func DelAuthState(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	return Del(ctx, authStateKey(userID))
}
