package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-access/database"
	"github.com/yeremiapane/restaurant-access/models"
	"github.com/yeremiapane/restaurant-access/utils"
	"gorm.io/gorm"
)

// AccessTokenTTL is the lifetime of every bearer token issued at login.
const AccessTokenTTL = 12 * time.Hour

// WaiterAuthService manages waiter accounts and issues bearer tokens.
type WaiterAuthService struct {
	DB    *gorm.DB
	Codec *utils.CredentialCodec
	Now   func() time.Time
}

// NewWaiterAuthService uses the default codec and a UTC wall clock.
func NewWaiterAuthService(db *gorm.DB) *WaiterAuthService {
	return &WaiterAuthService{
		DB:    db,
		Codec: utils.DefaultCodec,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// Credentials identify a waiter within a restaurant. A nil or empty Password means none.
type Credentials struct {
	RestaurantID uint
	Name         string
	Password     *string
}

func (c Credentials) password() (string, bool) {
	if c.Password == nil || *c.Password == "" {
		return "", false
	}
	return *c.Password, true
}

// validate returns the name as given; names match exactly, so " Ana" and
// "Ana" are different waiters. Whitespace-only names are rejected.
func (c Credentials) validate() (string, error) {
	if c.RestaurantID == 0 || strings.TrimSpace(c.Name) == "" {
		return "", fmt.Errorf("%w: restaurantId and name are required", ErrInvalidArgument)
	}
	return c.Name, nil
}

// EnsureSchema applies the waiter and access token migrations.
func (s *WaiterAuthService) EnsureSchema(ctx context.Context) error {
	return database.Apply(ctx, s.DB, database.WaiterMigrations)
}

// Register creates a waiter. Duplicate names within a restaurant are accepted;
// Login resolves them to the lowest id.
func (s *WaiterAuthService) Register(ctx context.Context, in Credentials) (models.WaiterSummary, error) {
	name, err := in.validate()
	if err != nil {
		return models.WaiterSummary{}, err
	}

	waiter, err := s.createWaiter(s.DB.WithContext(ctx), in.RestaurantID, name, in)
	if err != nil {
		return models.WaiterSummary{}, fmt.Errorf("register waiter: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id": waiter.RestaurantID,
		"waiter_id":     waiter.ID,
		"has_password":  waiter.HasPassword(),
	}).Info("waiter registered")
	return waiter.Summary(), nil
}

// Login verifies the waiter's password when one is set, creating the account on
// first login, and always issues a fresh token. Earlier tokens stay valid.
func (s *WaiterAuthService) Login(ctx context.Context, in Credentials) (models.LoginResult, error) {
	name, err := in.validate()
	if err != nil {
		return models.LoginResult{}, err
	}

	var result models.LoginResult
	created := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var waiter models.Waiter
		err := tx.Where("restaurant_id = ? AND name = ?", in.RestaurantID, name).
			Order("id ASC").
			First(&waiter).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			waiter, err = s.createWaiter(tx, in.RestaurantID, name, in)
			if err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		case waiter.HasPassword():
			password, ok := in.password()
			if !ok || !s.Codec.VerifyPassword(password, *waiter.PasswordHash) {
				return ErrUnauthorized
			}
		}

		token, err := s.issueToken(tx, waiter.ID)
		if err != nil {
			return err
		}
		result = models.LoginResult{
			ID:           waiter.ID,
			Name:         waiter.Name,
			RestaurantID: waiter.RestaurantID,
			Token:        token.Token,
			ExpiresAt:    token.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			utils.InfoLogger.WithFields(logrus.Fields{
				"restaurant_id": in.RestaurantID,
			}).Warn("waiter login rejected")
			return models.LoginResult{}, err
		}
		return models.LoginResult{}, fmt.Errorf("login waiter: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id": result.RestaurantID,
		"waiter_id":     result.ID,
		"registered":    created,
	}).Info("waiter logged in")
	return result, nil
}

// Authenticate resolves a bearer token to its waiter. Unknown and expired
// tokens are ErrUnauthorized.
func (s *WaiterAuthService) Authenticate(ctx context.Context, token string) (models.Waiter, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Waiter{}, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	db := s.DB.WithContext(ctx)
	var at models.AccessToken
	err := db.Where("token = ?", token).First(&at).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Waiter{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if err != nil {
		return models.Waiter{}, fmt.Errorf("lookup token: %w", err)
	}
	if !at.ExpiresAt.After(s.Now()) {
		return models.Waiter{}, fmt.Errorf("%w: token expired", ErrUnauthorized)
	}

	var waiter models.Waiter
	err = db.First(&waiter, at.WaiterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Waiter{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if err != nil {
		return models.Waiter{}, fmt.Errorf("lookup waiter: %w", err)
	}
	return waiter, nil
}

// ListByRestaurant returns waiters in id order without password hashes.
func (s *WaiterAuthService) ListByRestaurant(ctx context.Context, restaurantID uint) ([]models.WaiterSummary, error) {
	if restaurantID == 0 {
		return nil, fmt.Errorf("%w: restaurantId is required", ErrInvalidArgument)
	}

	var waiters []models.Waiter
	if err := s.DB.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("id ASC").
		Find(&waiters).Error; err != nil {
		return nil, fmt.Errorf("list waiters: %w", err)
	}

	summaries := make([]models.WaiterSummary, 0, len(waiters))
	for _, w := range waiters {
		summaries = append(summaries, w.Summary())
	}
	return summaries, nil
}

func (s *WaiterAuthService) createWaiter(tx *gorm.DB, restaurantID uint, name string, in Credentials) (models.Waiter, error) {
	waiter := models.Waiter{
		RestaurantID: restaurantID,
		Name:         name,
		CreatedAt:    s.Now(),
	}
	if password, ok := in.password(); ok {
		hash, err := s.Codec.HashPassword(password)
		if err != nil {
			return models.Waiter{}, err
		}
		waiter.PasswordHash = &hash
	}
	if err := tx.Create(&waiter).Error; err != nil {
		return models.Waiter{}, err
	}
	return waiter, nil
}

func (s *WaiterAuthService) issueToken(tx *gorm.DB, waiterID uint) (models.AccessToken, error) {
	value, err := s.Codec.GenerateToken()
	if err != nil {
		return models.AccessToken{}, err
	}
	token := models.AccessToken{
		Token:     value,
		WaiterID:  waiterID,
		ExpiresAt: s.Now().Add(AccessTokenTTL),
	}
	if err := tx.Create(&token).Error; err != nil {
		return models.AccessToken{}, err
	}
	return token, nil
}
