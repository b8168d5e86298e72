package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const maxUsernameLength = 150

var (
	// ErrInvalidCredentials indicates an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")
	// ErrInvalidAccount indicates the username or password cannot be stored.
	ErrInvalidAccount = errors.New("accounts: invalid account")
)

// ServiceConfig describes the dependencies required for admin authentication.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	BcryptCost int
	Logger     *zap.Logger
}

// Service stores admin accounts and verifies their passwords.
type Service struct {
	db     *gorm.DB
	now    func() time.Time
	cost   int
	logger *zap.Logger
	hashes sync.Map
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("accounts: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("accounts: bcrypt cost %d out of range", cost)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     cfg.Database,
		now:    clock,
		cost:   cost,
		logger: logger,
	}, nil
}

// EnsureAccount creates the account or resets its password when it already exists.
func (s *Service) EnsureAccount(ctx context.Context, username, password string) (Account, error) {
	name := normalize(username)
	if name == "" || len(name) > maxUsernameLength {
		return Account{}, fmt.Errorf("%w: username", ErrInvalidAccount)
	}
	if password == "" {
		return Account{}, fmt.Errorf("%w: password", ErrInvalidAccount)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}

	now := s.now().UTC()
	var account Account
	err = s.db.WithContext(ctx).Where("username = ?", name).Take(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = Account{
			Username:     name,
			PasswordHash: string(hash),
			CreatedAt:    now,
			LastSeenAt:   now,
		}
		if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
			return Account{}, err
		}
	case err != nil:
		return Account{}, err
	default:
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
			account.PasswordHash = string(hash)
			if err := s.db.WithContext(ctx).Model(&Account{}).
				Where("username = ?", name).
				Update("password_hash", account.PasswordHash).Error; err != nil {
				return Account{}, err
			}
		}
	}

	s.hashes.Store(name, account.PasswordHash)
	return account, nil
}

// Authenticate verifies the password and returns the canonical username.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	name := normalize(username)
	if name == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	hash, err := s.passwordHash(ctx, name)
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	err = s.db.WithContext(ctx).Model(&Account{}).
		Where("username = ?", name).
		Update("last_seen_at", s.now().UTC()).
		Error
	if err != nil {
		s.logger.Warn("account last seen update failed", zap.String("username", name), zap.Error(err))
	}
	return name, nil
}

// Exists reports whether the username still maps to an account.
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	_, err := s.passwordHash(ctx, normalize(username))
	if errors.Is(err, ErrInvalidCredentials) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) passwordHash(ctx context.Context, name string) (string, error) {
	if cached, ok := s.hashes.Load(name); ok {
		if hash, ok := cached.(string); ok {
			return hash, nil
		}
	}
	var account Account
	err := s.db.WithContext(ctx).Where("username = ?", name).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	s.hashes.Store(name, account.PasswordHash)
	return account.PasswordHash, nil
}
