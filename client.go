package eduAuth

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/MrEthical07/eduAuth/internal/audit"
	"github.com/MrEthical07/eduAuth/internal/flows"
	"github.com/MrEthical07/eduAuth/session"
	"github.com/MrEthical07/eduAuth/transport"
	"github.com/MrEthical07/eduAuth/validation"
)

// Client owns one session: its store, the HTTP client reading the session's
// token and the validator gating submissions. Methods are safe for concurrent
// use.
type Client struct {
	config    Config
	store     *session.Store
	api       *transport.Client
	signals   *transport.Signals
	validator *validation.Validator
	nav       Navigator
	flow      flows.Service
	metrics   *Metrics
	audit     *audit.Dispatcher
	log       *slog.Logger

	unsubscribe  func()
	closeStorage func() error
	closed       atomic.Bool
}

func (c *Client) initFlows() {
	c.flow = flows.New(flows.Deps{
		Auth: flows.AuthDeps{
			LoginPath:    c.config.API.LoginPath,
			RegisterPath: c.config.API.RegisterPath,
			Post:         c.api.Post,
			SetAuth:      c.store.SetAuth,
			BeginLoading: c.store.BeginLoading,
			MetricInc:    c.metricInc,
			EmitAudit:    c.emitAudit,
			Metrics: flows.AuthMetrics{
				LoginSuccess:      int(MetricLoginSuccess),
				LoginFailure:      int(MetricLoginFailure),
				RegisterSuccess:   int(MetricRegisterSuccess),
				RegisterFailure:   int(MetricRegisterFailure),
				RegisterDuplicate: int(MetricRegisterDuplicate),
			},
			Events: flows.AuthEvents{
				LoginSuccess:    AuditEventLoginSuccess,
				LoginFailure:    AuditEventLoginFailure,
				RegisterSuccess: AuditEventRegisterSuccess,
				RegisterFailure: AuditEventRegisterFailure,
			},
			Messages: flows.AuthMessages{
				LoginFailed:    c.validator.Message(validation.MessageLoginFailed),
				RegisterFailed: c.validator.Message(validation.MessageRegisterFailed),
				AccountExists:  c.validator.Message(validation.MessageAccountExists),
			},
			Errors: flows.AuthErrors{NotReady: ErrClientNotReady},
		},
		Me: flows.MeDeps{
			Path:            c.config.API.MePath,
			Get:             c.api.Get,
			IsAuthenticated: c.store.IsAuthenticated,
			UpdateUser:      c.store.UpdateUser,
			MetricInc:       c.metricInc,
			Metrics:         flows.MeMetrics{Refreshed: int(MetricProfileRefreshed)},
			FailedMessage:   c.validator.Message(validation.MessageProfileFailed),
			Errors:          flows.MeErrors{NotReady: ErrClientNotReady, NotAuthenticated: ErrNotAuthenticated},
		},
		Logout: flows.LogoutDeps{
			CurrentUser: c.store.User,
			Logout:      c.store.Logout,
			MetricInc:   c.metricInc,
			EmitAudit:   c.emitAudit,
			Metric:      int(MetricLogout),
			Event:       AuditEventLogout,
			NotReady:    ErrClientNotReady,
		},
		Invalidate: flows.InvalidateDeps{
			CurrentUser: c.store.User,
			Invalidate:  c.store.Invalidate,
			MetricInc:   c.metricInc,
			EmitAudit:   c.emitAudit,
			Metric:      int(MetricUnauthorized),
			Event:       AuditEventSessionInvalidated,
			Warn:        c.log.Warn,
		},
		Rehydrate: flows.RehydrateDeps{
			Rehydrate: c.store.Rehydrate,
			Current:   c.store.State,
			MetricInc: c.metricInc,
			EmitAudit: c.emitAudit,
			Metric:    int(MetricSessionRehydrated),
			Event:     AuditEventSessionRehydrated,
			NotReady:  ErrClientNotReady,
		},
	})
}

func (c *Client) metricInc(id int) {
	c.metrics.Inc(MetricID(id))
}

func (c *Client) handleUnauthorized(ctx context.Context, sig transport.Unauthorized) {
	c.flow.Invalidate(ctx, sig)
}

func (c *Client) ready() error {
	if c == nil || !c.flow.Initialized() {
		return ErrClientNotReady
	}
	if c.closed.Load() {
		return ErrClientClosed
	}
	return nil
}

// Login validates in and, when it passes, logs in and stores the session.
// Validation failures are returned as [FieldErrors] without any network call.
func (c *Client) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	if err := c.ready(); err != nil {
		return AuthResult{}, err
	}
	if fe := c.validator.Login(in); len(fe) > 0 {
		c.metrics.Inc(MetricValidationRejected)
		return AuthResult{}, fe
	}
	return c.flow.Login(ctx, in)
}

// Register validates in and, when it passes, creates the account and stores
// the returned session. confirmPassword is never sent.
func (c *Client) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if err := c.ready(); err != nil {
		return AuthResult{}, err
	}
	if fe := c.validator.Register(in); len(fe) > 0 {
		c.metrics.Inc(MetricValidationRejected)
		return AuthResult{}, fe
	}
	return c.flow.Register(ctx, in)
}

// Me refreshes the held user from the server. It returns [ErrNotAuthenticated]
// without a request when no session is held.
func (c *Client) Me(ctx context.Context) (User, error) {
	if err := c.ready(); err != nil {
		return User{}, err
	}
	return c.flow.Me(ctx)
}

// Logout clears the session and navigates to the login view.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.flow.Logout(ctx)
}

// Rehydrate reloads the persisted session. Build already did this once.
func (c *Client) Rehydrate(ctx context.Context) (LoadReport, error) {
	if err := c.ready(); err != nil {
		return LoadReport{}, err
	}
	return c.flow.Rehydrate(ctx)
}

// UpdateUser merges patch into the held user. It reports false when no user
// is held.
func (c *Client) UpdateUser(ctx context.Context, patch UserPatch) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.store.UpdateUser(ctx, patch)
}

// Session returns a copy of the current state.
func (c *Client) Session() State {
	return c.store.State()
}

// IsAuthenticated reports whether a session is held.
func (c *Client) IsAuthenticated() bool {
	return c.store.IsAuthenticated()
}

// Subscribe registers fn for state changes and returns its removal function.
// fn runs synchronously and must not call back into the client.
func (c *Client) Subscribe(fn func(State)) func() {
	return c.store.Subscribe(fn)
}

// Navigator returns the navigation the client drives.
func (c *Client) Navigator() Navigator {
	return c.nav
}

// Validator returns the validator used to gate submissions.
func (c *Client) Validator() *validation.Validator {
	return c.validator
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.config
}

// MetricsSnapshot copies the client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{}
	}
	return c.metrics.Snapshot()
}

// AuditDropped counts audit events lost to backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close detaches the 401 handler, drains the audit dispatcher and closes
// storage the client opened itself. The persisted session is kept.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.audit.Close()
	if c.closeStorage != nil {
		return c.closeStorage()
	}
	return nil
}
