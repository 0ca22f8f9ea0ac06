package identity_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"verdant/internal/identity"
	idstore "verdant/internal/identity/store"
	"verdant/internal/registration/models"
)

type AccountSuite struct {
	suite.Suite

	svc *identity.AccountService
}

func (s *AccountSuite) SetupTest() {
	s.svc = identity.NewAccountService(idstore.NewInMemory(), slog.Default())
}

func (s *AccountSuite) reg(email string) *models.Registration {
	return &models.Registration{ID: "reg-1", Email: email}
}

func (s *AccountSuite) TestEnsureAccount() {
	s.Run("creates a member account with names derived from the address", func() {
		id, err := s.svc.EnsureAccount(context.Background(), s.reg("maria.santos@coastal.example"))
		s.Require().NoError(err)
		s.NotEmpty(id)

		acct, err := s.svc.FindAccount(context.Background(), id)
		s.Require().NoError(err)
		s.Equal("Maria", acct.FirstName)
		s.Equal("Santos", acct.LastName)
		s.Equal(identity.RoleMember, acct.Role)
	})

	s.Run("is idempotent by email", func() {
		first, err := s.svc.EnsureAccount(context.Background(), s.reg("repeat@coastal.example"))
		s.Require().NoError(err)

		second, err := s.svc.EnsureAccount(context.Background(), s.reg("Repeat@Coastal.example"))
		s.Require().NoError(err)
		s.Equal(first, second)
	})

	s.Run("concurrent provisioning converges on one account", func() {
		const n = 8
		ids := make([]string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, err := s.svc.EnsureAccount(context.Background(), s.reg("race@coastal.example"))
				s.NoError(err)
				ids[i] = id
			}(i)
		}
		wg.Wait()

		for _, id := range ids[1:] {
			s.Equal(ids[0], id)
		}
	})
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}
