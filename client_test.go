package eduAuth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrEthical07/eduAuth/authtest"
	"github.com/MrEthical07/eduAuth/session"
	"github.com/MrEthical07/eduAuth/transport"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDemoLoginAgainstStub(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":"1","email":"demo@test.com","firstName":"Demo","lastName":"User","role":"STUDENT"},"token":"tok_abc"},"message":"Login successful"}`))
	}))
	defer ts.Close()

	env := newTestClient(t, ts.URL+"/api")
	res, err := env.client.Login(context.Background(), LoginInput{Email: DemoEmail, Password: DemoPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token != "tok_abc" || res.User.ID != "1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if gotBody["email"] != DemoEmail || gotBody["password"] != DemoPassword {
		t.Fatalf("unexpected request body %v", gotBody)
	}

	st := env.client.Session()
	if !st.IsAuthenticated || st.IsLoading {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.User == nil || st.User.FirstName != "Demo" {
		t.Fatalf("unexpected user %+v", st.User)
	}
	if got := env.persistedToken(t); got != "tok_abc" {
		t.Fatalf("persisted token=%q", got)
	}
	if env.client.MetricsSnapshot().Counters[MetricLoginSuccess] != 1 {
		t.Fatal("login success not counted")
	}
}

func TestLoginSendsPersistedBearerToken(t *testing.T) {
	srv := authtest.Start(t)
	env := newTestClient(t, srv.URL)
	ctx := context.Background()

	if _, err := env.client.Login(ctx, LoginInput{Email: DemoEmail, Password: DemoPassword}); err != nil {
		t.Fatalf("login: %v", err)
	}
	user, err := env.client.Me(ctx)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if user.Email != DemoEmail {
		t.Fatalf("me email=%q", user.Email)
	}
	if got := srv.LastHeaders().Get("Authorization"); got != "Bearer "+env.persistedToken(t) {
		t.Fatalf("authorization header=%q", got)
	}
	if srv.LastHeaders().Get(transport.HeaderRequestID) == "" {
		t.Fatal("missing request id header")
	}
}

func TestLoginInvalidEmailMakesNoRequest(t *testing.T) {
	srv := authtest.Start(t)
	env := newTestClient(t, srv.URL)

	_, err := env.client.Login(context.Background(), LoginInput{Email: "not-an-email", Password: "secret123"})
	var fe FieldErrors
	if !errors.As(err, &fe) || !fe.Has("email") {
		t.Fatalf("expected email field error, got %v", err)
	}
	if n := srv.Requests("/api/auth/login"); n != 0 {
		t.Fatalf("expected no request, got %d", n)
	}
	if ErrorCode(err) != transport.CodeValidation {
		t.Fatalf("code=%q", ErrorCode(err))
	}
	if env.client.MetricsSnapshot().Counters[MetricValidationRejected] != 1 {
		t.Fatal("validation rejection not counted")
	}
}

func TestLoginWrongPasswordKeepsServerMessage(t *testing.T) {
	srv := authtest.Start(t)
	env := newTestClient(t, srv.URL)

	_, err := env.client.Login(context.Background(), LoginInput{Email: DemoEmail, Password: "wrong-password"})
	if !errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unexpected error %v", err)
	}
	if got := ErrorMessage(err); got != "Invalid email or password" {
		t.Fatalf("message=%q", got)
	}
	if env.client.IsAuthenticated() {
		t.Fatal("failed login must not authenticate")
	}
}

func TestUnauthorizedClearsSessionAndNavigates(t *testing.T) {
	srv := authtest.Start(t)
	env := newTestClient(t, srv.URL)
	ctx := context.Background()

	res := env.client.LoginForm().SubmitInput(ctx, LoginInput{Email: DemoEmail, Password: DemoPassword})
	if !res.Succeeded {
		t.Fatalf("login form: %+v", res)
	}
	if env.nav.CurrentView() != env.client.Config().Views.Dashboard {
		t.Fatalf("view=%q", env.nav.CurrentView())
	}

	if err := srv.RevokeTokens(); err != nil {
		t.Fatal(err)
	}
	_, err := env.client.Me(ctx)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if ErrorMessage(err) != transport.MessageSessionExpired {
		t.Fatalf("message=%q", ErrorMessage(err))
	}

	st := env.client.Session()
	if st.IsAuthenticated || st.User != nil || st.Token != "" {
		t.Fatalf("session not cleared: %+v", st)
	}
	if env.persistedToken(t) != "" {
		t.Fatal("persisted token not cleared")
	}
	if env.nav.CurrentView() != session.ViewLogin {
		t.Fatalf("view=%q", env.nav.CurrentView())
	}
	if env.client.MetricsSnapshot().Counters[MetricUnauthorized] != 1 {
		t.Fatal("unauthorized not counted")
	}
}

func TestUnauthorizedOnLoginViewDoesNotNavigate(t *testing.T) {
	srv := authtest.Start(t)
	env := newTestClient(t, srv.URL)

	_, _ = env.client.Login(context.Background(), LoginInput{Email: DemoEmail, Password: "wrong-password"})
	if len(env.nav.History()) != 0 {
		t.Fatalf("unexpected navigation %v", env.nav.History())
	}
}

func TestMeWithoutSessionMakesNoRequest(t *testing.T) {
	srv := authtest.Start(t)
	env := newTestClient(t, srv.URL)

	_, err := env.client.Me(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if srv.Requests("/api/auth/me") != 0 {
		t.Fatal("expected no request")
	}
	if ErrorMessage(err) != MessageNotSignedIn {
		t.Fatalf("message=%q", ErrorMessage(err))
	}
}

func TestNetworkErrorMessage(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL + "/api"
	ts.Close()

	env := newTestClient(t, url)
	_, err := env.client.Login(context.Background(), LoginInput{Email: DemoEmail, Password: DemoPassword})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if ErrorCode(err) != transport.CodeNetwork {
		t.Fatalf("code=%q", ErrorCode(err))
	}
	if ErrorMessage(err) != transport.MessageNetwork {
		t.Fatalf("message=%q", ErrorMessage(err))
	}
	if env.client.Session().IsLoading {
		t.Fatal("loading flag left set")
	}
	if env.client.MetricsSnapshot().Counters[MetricRequestNetworkError] != 1 {
		t.Fatal("network error not counted")
	}
}

func TestLoadingFlagTransitions(t *testing.T) {
	tests := []struct {
		name     string
		in       LoginInput
		offline  bool
		wantAuth bool
	}{
		{name: "success", in: LoginInput{Email: DemoEmail, Password: DemoPassword}, wantAuth: true},
		{name: "rejected credentials", in: LoginInput{Email: DemoEmail, Password: "wrong-password"}},
		{name: "network error", in: LoginInput{Email: DemoEmail, Password: DemoPassword}, offline: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := authtest.Start(t)
			env := newTestClient(t, srv.URL)
			if tc.offline {
				srv.Close()
			}

			var (
				mu      sync.Mutex
				loading []bool
			)
			unsubscribe := env.client.Subscribe(func(s State) {
				mu.Lock()
				defer mu.Unlock()
				if n := len(loading); n == 0 || loading[n-1] != s.IsLoading {
					loading = append(loading, s.IsLoading)
				}
			})
			defer unsubscribe()

			if env.client.Session().IsLoading {
				t.Fatal("loading before login")
			}
			_, err := env.client.Login(context.Background(), tc.in)
			if (err == nil) != tc.wantAuth {
				t.Fatalf("login err=%v", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(loading) != 2 || !loading[0] || loading[1] {
				t.Fatalf("loading transitions=%v", loading)
			}
			if env.client.Session().IsLoading {
				t.Fatal("loading flag left set")
			}
		})
	}
}

func TestLogoutClearsAndNavigates(t *testing.T) {
	srv := authtest.Start(t)
	env := newTestClient(t, srv.URL)
	ctx := context.Background()

	if res := env.client.LoginForm().SubmitInput(ctx, LoginInput{Email: DemoEmail, Password: DemoPassword}); !res.Succeeded {
		t.Fatalf("login: %+v", res)
	}
	res := env.client.SignOut(ctx)
	if !res.Succeeded || res.Notice != "Logged out successfully" {
		t.Fatalf("sign out: %+v", res)
	}
	if env.client.IsAuthenticated() || env.persistedToken(t) != "" {
		t.Fatal("session survived logout")
	}
	if env.nav.CurrentView() != session.ViewLogin {
		t.Fatalf("view=%q", env.nav.CurrentView())
	}
}

func TestRehydrateAcrossBuilds(t *testing.T) {
	srv := authtest.Start(t)
	dir := t.TempDir()
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Storage.Backend = StorageFile
	cfg.Storage.Path = dir

	first, err := New().WithConfig(cfg).Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := first.Login(ctx, LoginInput{Email: DemoEmail, Password: DemoPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := New().WithConfig(cfg).Build(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer second.Close()

	st := second.Session()
	if !st.IsAuthenticated || st.Token != res.Token || st.User.ID != "1" {
		t.Fatalf("session not restored: %+v", st)
	}
	if second.MetricsSnapshot().Counters[MetricSessionRehydrated] != 1 {
		t.Fatal("rehydration not counted")
	}
	if _, err := second.Me(ctx); err != nil {
		t.Fatalf("restored token rejected: %v", err)
	}
}

func TestRedisBackend(t *testing.T) {
	srv := authtest.Start(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Storage.Backend = StorageRedis

	c, err := New().WithConfig(cfg).WithRedis(rdb).Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	if _, err := c.Login(ctx, LoginInput{Email: DemoEmail, Password: DemoPassword}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(mr.Keys()) == 0 {
		t.Fatal("snapshot not written to redis")
	}

	again, err := New().WithConfig(cfg).WithRedis(rdb).Build(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer again.Close()
	if !again.IsAuthenticated() {
		t.Fatal("redis session not restored")
	}
}

func TestBuilderErrors(t *testing.T) {
	ctx := context.Background()

	b := New()
	c, err := b.Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()
	if _, err := b.Build(ctx); err == nil {
		t.Fatal("expected builder reuse to fail")
	}

	cfg := DefaultConfig()
	cfg.API.Timeout = 0
	if _, err := New().WithConfig(cfg).Build(ctx); err == nil {
		t.Fatal("expected invalid config to fail")
	}

	cfg = DefaultConfig()
	cfg.Storage.Backend = StorageRedis
	if _, err := New().WithConfig(cfg).Build(ctx); !errors.Is(err, ErrRedisRequired) {
		t.Fatalf("expected ErrRedisRequired, got %v", err)
	}
}

func TestClosedClient(t *testing.T) {
	c, err := New().Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := c.Login(context.Background(), LoginInput{Email: DemoEmail, Password: DemoPassword}); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}

	var zero Client
	if _, err := zero.Me(context.Background()); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady, got %v", err)
	}
}
