package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/eduAuth/session"
	"github.com/MrEthical07/eduAuth/transport"
	"github.com/MrEthical07/eduAuth/validation"
)

// AuthData is the data member of a successful login or register answer.
type AuthData struct {
	User  *session.User `json:"user"`
	Token string        `json:"token"`
}

// AuthResult is returned once the session has been stored.
type AuthResult struct {
	User    session.User
	Token   string
	Message string
}

// AuthMetrics carries metric IDs used by login and register.
type AuthMetrics struct {
	LoginSuccess      int
	LoginFailure      int
	RegisterSuccess   int
	RegisterFailure   int
	RegisterDuplicate int
}

// AuthEvents carries audit event names used by login and register.
type AuthEvents struct {
	LoginSuccess    string
	LoginFailure    string
	RegisterSuccess string
	RegisterFailure string
}

// AuthMessages carries the user-facing fallbacks.
type AuthMessages struct {
	LoginFailed    string
	RegisterFailed string
	AccountExists  string
}

// AuthErrors carries host-level sentinel errors.
type AuthErrors struct {
	NotReady error
}

// AuthDeps captures login and register dependencies.
type AuthDeps struct {
	LoginPath    string
	RegisterPath string

	Post         func(ctx context.Context, path string, body, out any) error
	SetAuth      func(ctx context.Context, user session.User, token string) error
	BeginLoading func() (release func())

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics  AuthMetrics
	Events   AuthEvents
	Messages AuthMessages
	Errors   AuthErrors
}

func (d AuthDeps) ready() (AuthDeps, bool) {
	if d.MetricInc == nil {
		d.MetricInc = noopMetric
	}
	if d.EmitAudit == nil {
		d.EmitAudit = noopAudit
	}
	if d.BeginLoading == nil {
		d.BeginLoading = func() func() { return noopRelease }
	}
	return d, d.Post != nil && d.SetAuth != nil
}

// RunLogin posts the credentials and stores the returned session. The loading
// flag is held for the whole call.
func RunLogin(ctx context.Context, in validation.LoginInput, deps AuthDeps) (AuthResult, error) {
	deps, ok := deps.ready()
	if !ok {
		return AuthResult{}, deps.Errors.NotReady
	}

	release := deps.BeginLoading()
	defer release()

	res, err := exchange(ctx, deps.LoginPath, in, deps.Messages.LoginFailed, deps)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", in.Email, err, nil)
		return AuthResult{}, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, res.User.ID, res.User.Email, nil, func() map[string]string {
		return map[string]string{"role": string(res.User.Role)}
	})
	return res, nil
}

// RunRegister posts the registration payload without the confirmation field
// and stores the returned session. A duplicate account keeps its code and
// status but carries the fixed already-exists message.
func RunRegister(ctx context.Context, in validation.RegisterInput, deps AuthDeps) (AuthResult, error) {
	deps, ok := deps.ready()
	if !ok {
		return AuthResult{}, deps.Errors.NotReady
	}

	release := deps.BeginLoading()
	defer release()

	res, err := exchange(ctx, deps.RegisterPath, in.Payload(), deps.Messages.RegisterFailed, deps)
	if err != nil {
		if errors.Is(err, transport.ErrAccountExists) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			if te, ok := transport.AsError(err); ok {
				err = te.WithMessage(deps.Messages.AccountExists)
			}
		} else {
			deps.MetricInc(deps.Metrics.RegisterFailure)
		}
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", in.Email, err, nil)
		return AuthResult{}, err
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, res.User.ID, res.User.Email, nil, func() map[string]string {
		md := map[string]string{"role": string(res.User.Role)}
		if res.User.Grade != nil {
			md["grade"] = fmt.Sprint(*res.User.Grade)
		}
		return md
	})
	return res, nil
}

func exchange(ctx context.Context, path string, body any, fallback string, deps AuthDeps) (AuthResult, error) {
	var resp transport.Envelope[AuthData]
	if err := deps.Post(ctx, path, body, &resp); err != nil {
		return AuthResult{}, err
	}
	if !resp.OK() || resp.Data.User == nil || resp.Data.User.ID == "" || resp.Data.Token == "" {
		return AuthResult{}, transport.Rejected(resp.Message, fallback)
	}

	user := resp.Data.User.Clone()
	if err := deps.SetAuth(ctx, *user, resp.Data.Token); err != nil {
		return AuthResult{}, transport.Wrap(fmt.Errorf("store session: %w", err), fallback)
	}
	return AuthResult{User: *user, Token: resp.Data.Token, Message: resp.Message}, nil
}
