package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"verdant/internal/registration/models"
	dErrors "verdant/pkg/domain-errors"
	"verdant/pkg/email"
	"verdant/pkg/platform/sentinel"
	"verdant/pkg/requestcontext"
)

// Account is a member account backing an approved registration.
type Account struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      Role
	CreatedAt time.Time
}

// AccountStore persists accounts keyed by ID and email.
type AccountStore interface {
	CreateIfEmailAvailable(ctx context.Context, acct *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, addr string) (*Account, error)
}

// AccountService provisions member accounts. EnsureAccount is idempotent by
// email, so approvals that race or retry converge on a single account.
type AccountService struct {
	accounts AccountStore
	logger   *slog.Logger
}

func NewAccountService(accounts AccountStore, logger *slog.Logger) *AccountService {
	return &AccountService{accounts: accounts, logger: logger}
}

// EnsureAccount returns the ID of the account for the registration's contact
// email, creating one with the member role if none exists. Names are derived
// from the email address when the registration carries no usable contact
// name split.
func (s *AccountService) EnsureAccount(ctx context.Context, reg *models.Registration) (string, error) {
	existing, err := s.accounts.FindByEmail(ctx, reg.Email)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}

	first, last := email.DeriveNameFromEmail(reg.Email)
	acct := &Account{
		ID:        uuid.NewString(),
		Email:     reg.Email,
		FirstName: first,
		LastName:  last,
		Role:      RoleMember,
		CreatedAt: requestcontext.Now(ctx),
	}

	if err := s.accounts.CreateIfEmailAvailable(ctx, acct); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a provisioning race; the winner's account is the account.
			winner, findErr := s.accounts.FindByEmail(ctx, reg.Email)
			if findErr != nil {
				return "", dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to resolve account after conflict")
			}
			return winner.ID, nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.logger.InfoContext(ctx, "provisioned member account",
		"account_id", acct.ID,
		"registration_id", reg.ID,
	)
	return acct.ID, nil
}

// FindAccount returns an account by ID.
func (s *AccountService) FindAccount(ctx context.Context, id string) (*Account, error) {
	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}
	return acct, nil
}
