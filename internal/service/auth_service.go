package service

import (
	"context"
	"strings"
	"time"

	"github.com/renthportal/renthportal-sub001/internal/cache"
	"github.com/renthportal/renthportal-sub001/internal/config"
	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/models"
	"github.com/renthportal/renthportal-sub001/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 认证服务
type AuthService struct {
	cfg      *config.JWTConfig
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.JWTConfig, userRepo repository.UserRepository) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, now: time.Now}
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// JWTClaims JWT 声明
type JWTClaims struct {
	UserID       uint   `json:"user_id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// TokenPair 登录结果
type TokenPair struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(user *models.User) (string, time.Time, error) {
	now := s.now()
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = 12
	}
	expiresAt := now.Add(time.Duration(hours) * time.Hour)

	claims := JWTClaims{
		UserID:       user.ID,
		Username:     user.Username,
		Name:         user.Name(),
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// Login 账号登录
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.userRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != constants.UserStatusActive {
		return nil, ErrUserDisabled
	}

	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.TouchLogin(user.ID, s.now()); err != nil {
		logger.Warnw("auth_touch_login_failed", "user_id", user.ID, "error", err)
	}
	_ = cache.SetAuthState(ctx, cache.BuildAuthState(user))
	return &TokenPair{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Refresh 在临近过期的窗口内换发新令牌
func (s *AuthService) Refresh(ctx context.Context, tokenString string) (*TokenPair, error) {
	claims, err := s.ParseJWT(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if err := checkClaimsAgainstUser(claims, user); err != nil {
		return nil, err
	}
	window := time.Duration(s.cfg.RefreshWindowMinutes) * time.Minute
	if window > 0 && claims.ExpiresAt != nil && claims.ExpiresAt.Sub(s.now()) > window {
		// 未到续期窗口，继续使用原令牌
		return &TokenPair{Token: tokenString, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
	}
	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, err
	}
	_ = cache.SetAuthState(ctx, cache.BuildAuthState(user))
	return &TokenPair{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout 使该账号已签发的令牌全部失效
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	if err := s.userRepo.BumpTokenVersion(userID); err != nil {
		return err
	}
	_ = cache.DelAuthState(ctx, userID)
	return nil
}

// Authenticate 解析令牌并校验账号当前状态，返回会话
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (Session, error) {
	claims, err := s.ParseJWT(tokenString)
	if err != nil {
		return Session{}, err
	}
	state, ok, err := cache.GetAuthState(ctx, claims.UserID)
	if err != nil {
		logger.Warnw("auth_state_cache_read_failed", "user_id", claims.UserID, "error", err)
	}
	if !ok || state == nil {
		user, err := s.userRepo.GetByID(claims.UserID)
		if err != nil {
			return Session{}, err
		}
		if user == nil {
			return Session{}, ErrInvalidToken
		}
		state = cache.BuildAuthState(user)
		_ = cache.SetAuthState(ctx, state)
	}
	if state.Status != constants.UserStatusActive {
		return Session{}, ErrUserDisabled
	}
	if state.TokenVersion != claims.TokenVersion || state.Role != claims.Role {
		return Session{}, ErrInvalidToken
	}
	return SessionFromClaims(claims), nil
}

// SessionFromClaims 由令牌声明构造会话
func SessionFromClaims(claims *JWTClaims) Session {
	session := Session{
		UserID: claims.UserID,
		Name:   claims.Name,
		Role:   claims.Role,
	}
	if session.Name == "" {
		session.Name = claims.Username
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session
}

// GetUser 读取账号
func (s *AuthService) GetUser(userID uint) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

func checkClaimsAgainstUser(claims *JWTClaims, user *models.User) error {
	if user == nil {
		return ErrInvalidToken
	}
	if user.Status != constants.UserStatusActive {
		return ErrUserDisabled
	}
	if user.TokenVersion != claims.TokenVersion {
		return ErrInvalidToken
	}
	return nil
}
