package service

import (
	"apart_backend/internal/config"
	"apart_backend/internal/dto"
	"apart_backend/internal/model"
	"apart_backend/internal/repository"
	"apart_backend/internal/util"
	"apart_backend/pkg/logger"
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ResetTokenStore 一次性重置令牌的存储
type ResetTokenStore interface {
	Save(ctx context.Context, token string, userID uint, ttl time.Duration) error
	Consume(ctx context.Context, token string) (uint, error)
}

// Mailer sends the password reset link and pending activity reminders.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, resetURL string) error
	SendPendingActivities(ctx context.Context, notice PendingNotice) error
}

// LogMailer 只把链接写进日志，用于未接入邮件服务的环境
type LogMailer struct{}

func (LogMailer) SendPasswordReset(_ context.Context, toEmail, resetURL string) error {
	logger.Log.Info("password reset requested", zap.String("email", toEmail), zap.String("resetUrl", resetURL))
	return nil
}

func (LogMailer) SendPendingActivities(_ context.Context, notice PendingNotice) error {
	titles := make([]string, 0, len(notice.Activities))
	for _, a := range notice.Activities {
		titles = append(titles, a.Title)
	}
	logger.Log.Info("pending activity reminder",
		zap.String("email", notice.Email),
		zap.String("subject", notice.Subject()),
		zap.Time("deadline", notice.Deadline),
		zap.Strings("activities", titles),
	)
	return nil
}

type AuthService struct {
	DB          *gorm.DB
	UserRepo    *repository.UserRepository
	StudentRepo *repository.StudentRepository
	Tokens      ResetTokenStore
	Mailer      Mailer
	Cfg         *config.Config
}

func NewAuthService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	studentRepo *repository.StudentRepository,
	tokens ResetTokenStore,
	mailer Mailer,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		DB:          db,
		UserRepo:    userRepo,
		StudentRepo: studentRepo,
		Tokens:      tokens,
		Mailer:      mailer,
		Cfg:         cfg,
	}
}

// Register 新用户默认学生角色，同时创建学生档案
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	exists, err := s.UserRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrEmailRegistered
	}
	exists, err = s.UserRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:  req.Username,
		Email:     email,
		Password:  string(hashed),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      model.Student,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.UserRepo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.StudentRepo.WithTx(tx).Create(ctx, &model.StudentProfile{UserID: user.ID})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if user.Disabled {
		return "", nil, util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		logger.Log.Warn("update last login failed", zap.Uint("userId", user.ID), zap.Error(err))
	}
	return token, user, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset 邮箱不存在时同样返回 nil，不暴露账号是否注册
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.UserRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token := uuid.NewString()
	ttl := time.Duration(s.Cfg.PasswordReset.ExpiryHours) * time.Hour
	if err := s.Tokens.Save(ctx, token, user.ID, ttl); err != nil {
		return err
	}
	return s.Mailer.SendPasswordReset(ctx, user.Email, s.resetURL(token))
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if _, err := uuid.Parse(token); err != nil {
		return util.ErrResetTokenInvalid
	}
	userID, err := s.Tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return util.ErrResetTokenInvalid
		}
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.UserRepo.UpdatePassword(ctx, userID, string(hashed))
}

func (s *AuthService) resetURL(token string) string {
	base := strings.TrimRight(s.Cfg.PasswordReset.ResetURL, "/")
	return base + "/" + url.PathEscape(token) + "/"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
