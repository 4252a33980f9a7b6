package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/procure/internal/middleware"
	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials 用户名或密码错误、令牌无效
var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLength = 6

// AuthOptions JWT配置
type AuthOptions struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthService 认证服务
type AuthService struct {
	userRepo *repository.UserRepository
	tokens   RefreshTokenStore
	logger   *zap.Logger
	opts     AuthOptions
}

func NewAuthService(userRepo *repository.UserRepository, tokens RefreshTokenStore, logger *zap.Logger, opts AuthOptions) *AuthService {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 24 * time.Hour
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{userRepo: userRepo, tokens: tokens, logger: logger.Named("auth"), opts: opts}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResult 登录/注册结果
type AuthResult struct {
	TokenPair
	User *entity.User `json:"user"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register 注册并直接登录
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, invalid("username", "is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, invalid("password", "must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &entity.User{
		ID:           uuid.New().String()[:32],
		Username:     username,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
	}
	if user.FullName == "" {
		user.FullName = username
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: "username already exists"}
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.String("username", username))
	return s.issue(ctx, user)
}

// Login 用户名密码登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// Refresh 使用刷新令牌换取新的Token对，旧刷新令牌作废
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	if claims["type"] != "refresh" {
		return nil, ErrInvalidCredentials
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, ErrInvalidCredentials
	}

	userID, err := s.tokens.Take(ctx, jti)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// CurrentUser 获取当前用户
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *entity.User) (*AuthResult, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.JWTClaims{
		UserID: user.ID,
		Name:   user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.AccessTTL)),
			ID:        uuid.New().String(),
		},
	})
	accessString, err := access.SignedString([]byte(s.opts.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshJti := uuid.New().String()
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.opts.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.opts.RefreshTTL).Unix(),
		"jti":  refreshJti,
	})
	refreshString, err := refresh.SignedString([]byte(s.opts.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.tokens.Save(ctx, refreshJti, user.ID, s.opts.RefreshTTL); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResult{
		TokenPair: TokenPair{
			AccessToken:  accessString,
			RefreshToken: refreshString,
			ExpiresIn:    int64(s.opts.AccessTTL.Seconds()),
		},
		User: user,
	}, nil
}
