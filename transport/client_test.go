package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, bool) {
	return string(s), s != ""
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type recordingObserver struct {
	mu    sync.Mutex
	codes []Code
}

func (r *recordingObserver) ObserveRequest(_, _ string, _ int, code Code, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func newClient(t *testing.T, srv *httptest.Server, opts Options) *Client {
	t.Helper()
	opts.BaseURL = srv.URL + "/api"
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "http://"})
	assert.Error(t, err)

	c, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestOutgoingHeaders(t *testing.T) {
	var got http.Header
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":"u-1","email":"demo@test.com"}}`)
	}))
	defer srv.Close()

	c := newClient(t, srv, Options{
		Tokens: staticToken("tok-123"),
		Interceptors: []Interceptor{func(r *http.Request) error {
			r.Header.Set("X-Client", "cli")
			return nil
		}},
	})

	var env Envelope[user]
	require.NoError(t, c.Post(context.Background(), "/auth/login", map[string]string{"email": "demo@test.com"}, &env))

	assert.Equal(t, "/api/auth/login", gotPath)
	assert.Equal(t, "Bearer tok-123", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	assert.Equal(t, "cli", got.Get("X-Client"))
	assert.Len(t, got.Get(HeaderRequestID), 36)
	assert.Equal(t, "demo@test.com", gotBody["email"])

	require.True(t, env.OK())
	assert.Equal(t, "u-1", env.Data.ID)
}

func TestNoTokenNoAuthorizationHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"success":true}`)
	}))
	defer srv.Close()

	c := newClient(t, srv, Options{Tokens: staticToken("")})
	require.NoError(t, c.Get(context.Background(), "/auth/me", nil))
	assert.Empty(t, auth)
}

func TestServerErrorPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode Code
		wantMsg  string
	}{
		{
			name:     "structured error wins",
			status:   http.StatusBadRequest,
			body:     `{"success":false,"message":"generic","error":{"code":"VALIDATION_ERROR","message":"Email is invalid"}}`,
			wantCode: CodeValidation,
			wantMsg:  "Email is invalid",
		},
		{
			name:     "generic message when no structured message",
			status:   http.StatusConflict,
			body:     `{"success":false,"message":"User already exists","error":{"code":"EMAIL_ALREADY_EXISTS"}}`,
			wantCode: CodeEmailExists,
			wantMsg:  "User already exists",
		},
		{
			name:     "transport code and message for bare 4xx",
			status:   http.StatusNotFound,
			body:     ``,
			wantCode: CodeBadRequest,
			wantMsg:  "Request failed with status code 404",
		},
		{
			name:     "bad response for 5xx html",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantCode: CodeBadResponse,
			wantMsg:  "Request failed with status code 502",
		},
		{
			name:     "server code on 5xx",
			status:   http.StatusInternalServerError,
			body:     `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"Something broke"}}`,
			wantCode: CodeInternal,
			wantMsg:  "Something broke",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			}))
			defer srv.Close()

			err := newClient(t, srv, Options{}).Get(context.Background(), "/x", nil)
			e, ok := AsError(err)
			require.True(t, ok, "expected *Error, got %T", err)
			assert.Equal(t, tc.wantCode, e.Code)
			assert.Equal(t, tc.wantMsg, e.Message)
			assert.Equal(t, tc.status, e.Status)
			assert.NotEmpty(t, e.RequestID)
		})
	}
}

func TestDomainSentinels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"code invalid credentials", 401, `{"error":{"code":"INVALID_CREDENTIALS","message":"Nope"}}`, ErrInvalidCredentials},
		{"substring invalid credentials", 401, `{"message":"Invalid credentials"}`, ErrInvalidCredentials},
		{"substring invalid email or password", 400, `{"message":"Invalid email or password"}`, ErrInvalidCredentials},
		{"code exists", 400, `{"error":{"code":"EMAIL_ALREADY_EXISTS"}}`, ErrAccountExists},
		{"status conflict", 409, `{}`, ErrAccountExists},
		{"substring exists", 400, `{"message":"User with this email already exists"}`, ErrAccountExists},
		{"code not found", 404, `{"error":{"code":"USER_NOT_FOUND","message":"gone"}}`, ErrUserNotFound},
		{"substring not found", 400, `{"message":"User not found"}`, ErrUserNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			}))
			defer srv.Close()

			err := newClient(t, srv, Options{}).Post(context.Background(), "/auth/login", struct{}{}, nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestServerCodeSuppressesSubstringFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"error":{"code":"VALIDATION_ERROR","message":"field already exists in payload"}}`)
	}))
	defer srv.Close()

	err := newClient(t, srv, Options{}).Get(context.Background(), "/x", nil)
	assert.NotErrorIs(t, err, ErrAccountExists)
}

func TestUnauthorizedPublishesSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"success":false,"message":"jwt expired"}`)
	}))
	defer srv.Close()

	signals := NewSignals()
	var got []Unauthorized
	unsubscribe := signals.Subscribe(func(_ context.Context, sig Unauthorized) {
		got = append(got, sig)
	})
	defer unsubscribe()

	c := newClient(t, srv, Options{Tokens: staticToken("stale"), Signals: signals})
	err := c.Get(context.Background(), "/auth/me", nil)

	require.Len(t, got, 1)
	assert.True(t, got[0].HadToken)
	assert.Equal(t, "/auth/me", got[0].Path)
	assert.Equal(t, http.MethodGet, got[0].Method)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, MessageSessionExpired, e.Message)
	assert.Equal(t, CodeUnauthorized, e.Code)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAnonymousUnauthorizedKeepsServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"success":false,"message":"Invalid credentials"}`)
	}))
	defer srv.Close()

	signals := NewSignals()
	published := 0
	signals.Subscribe(func(context.Context, Unauthorized) { published++ })

	err := newClient(t, srv, Options{Signals: signals}).Post(context.Background(), "/auth/login", struct{}{}, nil)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid credentials", e.Message)
	assert.Equal(t, CodeBadRequest, e.Code)
	assert.Equal(t, 1, published)
}

func TestNetworkErrorUsesFixedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c := newClient(t, srv, Options{})
	srv.Close()

	err := c.Get(context.Background(), "/auth/me", nil)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNetwork, e.Code)
	assert.Equal(t, MessageNetwork, e.Message)
	assert.Zero(t, e.Status)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestTimeoutUsesFixedMessage(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, srv, Options{Timeout: 50 * time.Millisecond})
	err := c.Get(context.Background(), "/slow", nil)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTimeout, e.Code)
	assert.Equal(t, MessageTimeout, e.Message)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newClient(t, srv, Options{}).Get(ctx, "/x", nil)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMalformedSuccessBody(t *testing.T) {
	for _, body := range []string{`{"success":tru`, ``} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, body)
		}))

		var env Envelope[user]
		err := newClient(t, srv, Options{}).Get(context.Background(), "/x", &env)
		srv.Close()

		e, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, CodeBadResponse, e.Code)
		assert.Equal(t, MessageBadResponse, e.Message)
	}
}

func TestInterceptorFailureIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	}))
	defer srv.Close()

	boom := errors.New("signing failed")
	c := newClient(t, srv, Options{Interceptors: []Interceptor{func(*http.Request) error { return boom }}})

	err := c.Get(context.Background(), "/x", nil)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeUnknown, e.Code)
	assert.Equal(t, "signing failed", e.Message)
	assert.ErrorIs(t, err, boom)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	}))
	defer srv.Close()

	c := newClient(t, srv, Options{RateLimit: 0.001, Burst: 1})
	require.NoError(t, c.Get(context.Background(), "/x", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Get(ctx, "/x", nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestObserverSeesEveryCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/fail" {
			writeJSON(w, http.StatusInternalServerError, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `{}`)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := newClient(t, srv, Options{Observer: obs})
	_ = c.Get(context.Background(), "/ok", nil)
	_ = c.Get(context.Background(), "/fail", nil)

	assert.Equal(t, []Code{"", CodeBadResponse}, obs.codes)
}

func TestSignalsUnsubscribe(t *testing.T) {
	s := NewSignals()
	calls := 0
	unsubscribe := s.Subscribe(func(context.Context, Unauthorized) { calls++ })

	s.Publish(context.Background(), Unauthorized{})
	unsubscribe()
	unsubscribe()
	s.Publish(context.Background(), Unauthorized{})

	assert.Equal(t, 1, calls)

	var nilSignals *Signals
	assert.NotPanics(t, func() { nilSignals.Publish(context.Background(), Unauthorized{}) })
}

func TestRejectedAndWithMessage(t *testing.T) {
	err := Rejected("", "Login failed")
	assert.Equal(t, CodeAuthFailed, err.Code)
	assert.Equal(t, "Login failed", err.Message)

	err = Rejected("Account disabled", "Login failed")
	assert.Equal(t, "Account disabled", err.Message)

	orig := &Error{Code: CodeEmailExists, Status: 409, Message: "dup"}
	copied := orig.WithMessage("An account with this email already exists.")
	assert.Equal(t, "dup", orig.Message)
	assert.Equal(t, "An account with this email already exists.", copied.Message)
	assert.Equal(t, 409, copied.Status)
	assert.ErrorIs(t, copied, ErrAccountExists)
}

func TestMessagesReplaceFixedTexts(t *testing.T) {
	msgs := Messages{
		Network:        "Impossible de joindre le serveur.",
		SessionExpired: "Votre session a expiré.",
	}

	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c := newClient(t, down, Options{Messages: msgs})
	down.Close()

	e, ok := AsError(c.Get(context.Background(), "/auth/me", nil))
	require.True(t, ok)
	assert.Equal(t, CodeNetwork, e.Code)
	assert.Equal(t, msgs.Network, e.Message)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"success":false}`)
	}))
	defer srv.Close()

	e, ok = AsError(newClient(t, srv, Options{Tokens: staticToken("stale"), Messages: msgs}).Get(context.Background(), "/auth/me", nil))
	require.True(t, ok)
	assert.Equal(t, msgs.SessionExpired, e.Message)

	// Unset texts keep the English defaults.
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `not json`)
	}))
	defer srv2.Close()

	var out user
	e, ok = AsError(newClient(t, srv2, Options{Messages: msgs}).Get(context.Background(), "/auth/me", &out))
	require.True(t, ok)
	assert.Equal(t, MessageBadResponse, e.Message)
}

func TestZeroSignalsAcceptsSubscribers(t *testing.T) {
	var signals Signals
	calls := 0
	var unsubscribe func()
	require.NotPanics(t, func() {
		unsubscribe = signals.Subscribe(func(context.Context, Unauthorized) { calls++ })
	})

	signals.Publish(context.Background(), Unauthorized{Path: "/auth/me"})
	assert.Equal(t, 1, calls)

	unsubscribe()
	signals.Publish(context.Background(), Unauthorized{Path: "/auth/me"})
	assert.Equal(t, 1, calls)
}
