package billingmodule

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/clipforge/clipforge/internal/database"
)

// ErrInsufficientCredits is returned when a deduction would overdraw.
var ErrInsufficientCredits = errors.New("insufficient credits")

// AccountRepository persists subscriptions and credit balances.
type AccountRepository struct {
	db     *gorm.DB
	logger hclog.Logger
}

// NewAccountRepository creates an account repository.
func NewAccountRepository(db *gorm.DB, logger hclog.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger.Named("account-repository")}
}

// GetSubscription loads a user's subscription, provisioning the free plan
// for first-time users.
func (r *AccountRepository) GetSubscription(userID string) (*database.UserSubscription, error) {
	var sub database.UserSubscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.provision(userID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading subscription: %w", err)
	}
	return &sub, nil
}

// GetCredits loads a user's balance, provisioning defaults when absent.
func (r *AccountRepository) GetCredits(userID string) (*database.UserCredits, error) {
	var credits database.UserCredits
	err := r.db.Where("user_id = ?", userID).First(&credits).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if _, err := r.provision(userID); err != nil {
			return nil, err
		}
		err = r.db.Where("user_id = ?", userID).First(&credits).Error
	}
	if err != nil {
		return nil, fmt.Errorf("loading credits: %w", err)
	}
	return &credits, nil
}

// Deduct subtracts amount from the user's balance inside tx. The guarded
// UPDATE keeps two concurrent generation requests from overdrawing.
func (r *AccountRepository) Deduct(tx *gorm.DB, userID string, amount float64) error {
	result := tx.Model(&database.UserCredits{}).
		Where("user_id = ? AND remaining_credits >= ?", userID, amount).
		Update("remaining_credits", gorm.Expr("remaining_credits - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("deducting credits: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientCredits
	}

	r.logger.Info("credits deducted", "user_id", userID, "amount", amount)
	return nil
}

// provision creates the free-plan records for a new user.
func (r *AccountRepository) provision(userID string) (*database.UserSubscription, error) {
	sub := NewSubscription(userID, PlanFree)
	limits := LimitsFor(PlanFree)
	credits := &database.UserCredits{
		UserID:           userID,
		RemainingCredits: limits.InitialCredits,
		TotalCredits:     limits.InitialCredits,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return tx.Create(credits).Error
	})
	if err != nil {
		return nil, fmt.Errorf("provisioning account: %w", err)
	}

	r.logger.Info("provisioned new account", "user_id", userID, "plan", sub.Plan)
	return sub, nil
}
