package eduAuth

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/eduAuth/session"
)

type testEnv struct {
	client  *Client
	storage *session.MemoryStorage
	nav     *session.MemoryNavigator
}

func newTestClient(t *testing.T, baseURL string, tune ...func(*Builder)) testEnv {
	t.Helper()

	cfg := DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 2 * time.Second

	env := testEnv{
		storage: session.NewMemoryStorage(),
		nav:     session.NewMemoryNavigator(cfg.Views.Login),
	}
	b := New().WithConfig(cfg).WithStorage(env.storage).WithNavigator(env.nav)
	for _, fn := range tune {
		fn(b)
	}

	c, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	env.client = c
	return env
}

func (e testEnv) persistedToken(t *testing.T) string {
	t.Helper()
	token, _ := session.NewPersistence(e.storage, "", "").Token(context.Background())
	return token
}
