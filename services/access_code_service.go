package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-access/database"
	"github.com/yeremiapane/restaurant-access/models"
	"github.com/yeremiapane/restaurant-access/utils"
	"gorm.io/gorm"
)

// MaxCodeAttempts bounds regeneration when a drawn code collides with an active one.
const MaxCodeAttempts = 10

// MaxTTLMinutes is the largest ttl whose expiry still fits in a time.Duration.
const MaxTTLMinutes = int64(math.MaxInt64 / int64(time.Minute))

// AccessCodeService issues, validates and lists table access codes.
type AccessCodeService struct {
	DB    *gorm.DB
	Codec *utils.CredentialCodec
	Now   func() time.Time

	// SingleUse rejects validation of a code that was already validated once.
	SingleUse bool
	Events    EventPublisher

	// issueMu serializes draw, check and insert so two concurrent issues in
	// this process cannot both claim the same free code.
	issueMu sync.Mutex
}

// NewAccessCodeService uses the default codec and a UTC wall clock; tests
// replace Now and Codec after construction.
func NewAccessCodeService(db *gorm.DB) *AccessCodeService {
	return &AccessCodeService{
		DB:    db,
		Codec: utils.DefaultCodec,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// IssueCodeInput carries the optional table, waiter and ttl of a new code.
// A nil TTLMinutes issues a code that never expires.
type IssueCodeInput struct {
	RestaurantID uint
	TableNumber  *string
	WaiterID     *uint
	TTLMinutes   *int
}

// EnsureSchema applies the access code migrations.
func (s *AccessCodeService) EnsureSchema(ctx context.Context) error {
	return database.Apply(ctx, s.DB, database.AccessCodeMigrations)
}

// IssueCode draws a code not held by any active row and stores it with
// expiresAt = createdAt + ttl.
func (s *AccessCodeService) IssueCode(ctx context.Context, in IssueCodeInput) (models.IssuedCode, error) {
	if in.RestaurantID == 0 {
		return models.IssuedCode{}, fmt.Errorf("%w: restaurantId is required", ErrInvalidArgument)
	}
	if in.TTLMinutes != nil && (*in.TTLMinutes <= 0 || int64(*in.TTLMinutes) > MaxTTLMinutes) {
		return models.IssuedCode{}, fmt.Errorf("%w: ttlMinutes must be between 1 and %d", ErrInvalidArgument, MaxTTLMinutes)
	}

	s.issueMu.Lock()
	defer s.issueMu.Unlock()

	var record models.AccessCode
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.drawFreeCode(tx)
		if err != nil {
			return err
		}

		createdAt := s.Now()
		record = models.AccessCode{
			Code:         code,
			RestaurantID: in.RestaurantID,
			TableNumber:  trimmedOrNil(in.TableNumber),
			WaiterID:     in.WaiterID,
			CreatedAt:    createdAt,
			IsActive:     true,
		}
		if in.TTLMinutes != nil {
			expiresAt := createdAt.Add(time.Duration(*in.TTLMinutes) * time.Minute)
			record.ExpiresAt = &expiresAt
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		if errors.Is(err, ErrExhaustedRetries) {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"restaurant_id": in.RestaurantID,
				"attempts":      MaxCodeAttempts,
			}).Error("access code space exhausted")
			return models.IssuedCode{}, err
		}
		return models.IssuedCode{}, fmt.Errorf("issue access code: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id": record.RestaurantID,
		"code_id":       record.ID,
		"expires_at":    record.ExpiresAt,
	}).Info("access code issued")
	s.publish(record.RestaurantID, EventCodeIssued, record)

	return models.IssuedCode{Code: record.Code, ExpiresAt: record.ExpiresAt}, nil
}

func (s *AccessCodeService) drawFreeCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < MaxCodeAttempts; attempt++ {
		candidate, err := s.Codec.GenerateCode()
		if err != nil {
			return "", err
		}

		var active int64
		if err := tx.Model(&models.AccessCode{}).
			Where("code = ? AND is_active = ?", candidate, true).
			Count(&active).Error; err != nil {
			return "", err
		}
		if active == 0 {
			return candidate, nil
		}
		utils.InfoLogger.WithField("attempt", attempt+1).Debug("access code collision")
	}
	return "", ErrExhaustedRetries
}

// ValidateCode resolves an active code and stamps its first use. The returned
// record is the state read before the stamp, so UsedAt is nil on first use.
func (s *AccessCodeService) ValidateCode(ctx context.Context, code string) (models.AccessCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.AccessCode{}, fmt.Errorf("%w: code is required", ErrInvalidArgument)
	}

	var snapshot models.AccessCode
	var stampedAt *time.Time
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Only one active row per code is expected; newest wins otherwise.
		err := tx.Where("code = ? AND is_active = ?", code, true).
			Order("id DESC").
			First(&snapshot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		now := s.Now()
		if snapshot.Expired(now) {
			return ErrExpired
		}
		if snapshot.UsedAt != nil {
			if s.SingleUse {
				return ErrAlreadyUsed
			}
			return nil
		}

		res := tx.Model(&models.AccessCode{}).
			Where("id = ? AND used_at IS NULL", snapshot.ID).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if s.SingleUse {
				return ErrAlreadyUsed
			}
			return nil
		}
		stampedAt = &now
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired), errors.Is(err, ErrAlreadyUsed):
			utils.InfoLogger.WithField("reason", err.Error()).Info("access code rejected")
			return models.AccessCode{}, err
		}
		return models.AccessCode{}, fmt.Errorf("validate access code: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id": snapshot.RestaurantID,
		"code_id":       snapshot.ID,
		"first_use":     stampedAt != nil,
	}).Info("access code validated")

	if stampedAt != nil {
		event := snapshot
		event.UsedAt = stampedAt
		s.publish(snapshot.RestaurantID, EventCodeValidated, event)
	}
	return snapshot, nil
}

// ListByWaiter returns every code ever issued to waiterID, newest first.
func (s *AccessCodeService) ListByWaiter(ctx context.Context, waiterID uint) ([]models.AccessCode, error) {
	if waiterID == 0 {
		return nil, fmt.Errorf("%w: waiterId is required", ErrInvalidArgument)
	}

	var codes []models.AccessCode
	if err := s.DB.WithContext(ctx).
		Where("waiter_id = ?", waiterID).
		Order("id DESC").
		Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("list access codes: %w", err)
	}
	if codes == nil {
		codes = []models.AccessCode{}
	}
	return codes, nil
}

func (s *AccessCodeService) publish(restaurantID uint, event string, code models.AccessCode) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(restaurantID, event, code)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
