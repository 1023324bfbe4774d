//go:build integration

package account_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"stoop/internal/onboarding/store/account"
	"stoop/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := containers.NewPostgres(t, account.Schema)
	suite.Run(t, &StoreContractSuite{
		newStore: func() Store {
			if _, err := db.Exec(`TRUNCATE accounts`); err != nil {
				t.Fatalf("truncate accounts: %v", err)
			}
			return account.NewPostgres(db)
		},
	})
}
