//go:build integration

package otp

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"stoop/pkg/testutil/containers"
)

func TestRedisStoreAgainstServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	client, flush := containers.NewRedis(t)
	suite.Run(t, &StoreSuite{newStore: func() Store {
		flush()
		return NewRedisStore(client)
	}})
}
