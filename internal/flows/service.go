package flows

import (
	"context"

	"github.com/MrEthical07/eduAuth/session"
	"github.com/MrEthical07/eduAuth/transport"
	"github.com/MrEthical07/eduAuth/validation"
)

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Auth.Post != nil && s.deps.Auth.SetAuth != nil
}

func (s Service) Login(ctx context.Context, in validation.LoginInput) (AuthResult, error) {
	return RunLogin(ctx, in, s.deps.Auth)
}

func (s Service) Register(ctx context.Context, in validation.RegisterInput) (AuthResult, error) {
	return RunRegister(ctx, in, s.deps.Auth)
}

func (s Service) Me(ctx context.Context) (session.User, error) {
	return RunMe(ctx, s.deps.Me)
}

func (s Service) Logout(ctx context.Context) error {
	return RunLogout(ctx, s.deps.Logout)
}

func (s Service) Invalidate(ctx context.Context, sig transport.Unauthorized) {
	RunInvalidate(ctx, sig, s.deps.Invalidate)
}

func (s Service) Rehydrate(ctx context.Context) (session.LoadReport, error) {
	return RunRehydrate(ctx, s.deps.Rehydrate)
}
