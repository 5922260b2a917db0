package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/arnold/esg-pledges-api/internal/store"
	"github.com/arnold/esg-pledges-api/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		name := fmt.Sprintf("esg_pledges_test_%d", time.Now().UnixNano())
		s, err := Open(ctx, uri, name)
		require.NoError(t, err)
		require.NoError(t, s.Migrate(ctx))
		t.Cleanup(func() {
			_ = s.db.Drop(context.Background())
			_ = s.Close()
		})
		return s
	})
}
