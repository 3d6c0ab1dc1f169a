package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/jwt"
	"github.com/dumeirei/agency-portal/internal/common/logger"
	"github.com/dumeirei/agency-portal/internal/repository"
	"github.com/dumeirei/agency-portal/internal/service/remote"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

// BackOfficeRoles 允许进入管理端的角色
var BackOfficeRoles = []apiclient.Role{apiclient.RoleAdmin, apiclient.RoleModerator}

// Sessions 会话存储，*repository.SessionRepository 满足该接口
type Sessions interface {
	Save(ctx context.Context, s *repository.Session) error
	Get(ctx context.Context, id string) (*repository.Session, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	TokenStore(id string) apiclient.TokenStore
}

// Closer 会话结束时释放工作区，*workspace.Registry 满足该接口
type Closer interface {
	Close(sessionID string)
}

// Service 管理端登录与会话服务
type Service struct {
	sessions Sessions
	tokens   *jwt.Manager
	factory  apiclient.Factory
	closer   Closer
	log      *zap.Logger
	now      func() time.Time
}

// NewService 创建会话服务
func NewService(sessions Sessions, tokens *jwt.Manager, factory apiclient.Factory, closer Closer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		sessions: sessions,
		tokens:   tokens,
		factory:  factory,
		closer:   closer,
		log:      log.With(logger.Module("auth")),
		now:      time.Now,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录结果
type LoginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt int64               `json:"expires_at"`
	User      *repository.Session `json:"user"`
}

// Login 通过上游认证，保存上游令牌并签发门户会话令牌
func (s *Service) Login(ctx context.Context, req *LoginRequest, ip string) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, errors.ErrValidation.WithMessage("缺少必填字段: username, password")
	}

	sid := uuid.NewString()
	store := s.sessions.TokenStore(sid)
	client, err := s.factory(store)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	upstream, err := client.Auth.Login(ctx, apiclient.LoginRequest{Username: username, Password: req.Password})
	if err != nil {
		if apiclient.IsStatus(err, http.StatusUnauthorized) || apiclient.IsStatus(err, http.StatusBadRequest) {
			s.log.Info("login rejected", logger.Username(username), logger.IP(ip))
			return nil, errors.ErrLoginFailed
		}
		return nil, remote.Error(err, nil)
	}

	user := &upstream.User
	if user.ID == 0 && user.Username == "" {
		if user, err = client.Auth.Me(ctx); err != nil {
			_ = store.Clear(ctx)
			return nil, remote.Error(err, nil)
		}
	}
	if !allowed(user.Role) {
		_ = store.Clear(ctx)
		s.log.Warn("login denied for role", logger.Username(username), zap.String("role", string(user.Role)))
		return nil, errors.ErrPermissionDenied.WithMessage("该账号无权访问管理后台")
	}

	sess := &repository.Session{
		ID:        sid,
		UserID:    user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Email:     user.Email,
		Role:      string(user.Role),
		IP:        ip,
		CreatedAt: s.now(),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		_ = store.Clear(ctx)
		return nil, errors.ErrCacheError.WithError(err)
	}

	token, exp, err := s.tokens.Issue(jwt.Subject{
		SessionID: sid,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      sess.Role,
	})
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	s.log.Info("login", logger.SessionID(sid), logger.UserID(user.ID), logger.Username(user.Username), logger.IP(ip))
	return &LoginResponse{Token: token, ExpiresAt: exp, User: sess}, nil
}

// Authenticate 校验会话令牌并续期会话
func (s *Service) Authenticate(ctx context.Context, token string) (*repository.Session, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrTokenInvalid
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if stderrors.Is(err, repository.ErrSessionNotFound) {
			return nil, errors.ErrSessionExpired
		}
		return nil, errors.ErrCacheError.WithError(err)
	}
	if err := s.sessions.Touch(ctx, sess.ID); err != nil && !stderrors.Is(err, repository.ErrSessionNotFound) {
		s.log.Warn("touch session failed", logger.SessionID(sess.ID), zap.Error(err))
	}
	return sess, nil
}

// Logout 清除上游令牌、会话与工作区
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if s.closer != nil {
		s.closer.Close(sessionID)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return errors.ErrCacheError.WithError(err)
	}
	s.log.Info("logout", logger.SessionID(sessionID))
	return nil
}

func allowed(role apiclient.Role) bool {
	for _, r := range BackOfficeRoles {
		if r == role {
			return true
		}
	}
	return false
}
