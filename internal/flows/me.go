package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/eduAuth/session"
	"github.com/MrEthical07/eduAuth/transport"
)

// MeMetrics carries metric IDs used by the profile refresh.
type MeMetrics struct {
	Refreshed int
}

// MeErrors carries host-level sentinel errors used by the profile refresh.
type MeErrors struct {
	NotReady         error
	NotAuthenticated error
}

// MeDeps captures profile refresh dependencies.
type MeDeps struct {
	Path string

	Get             func(ctx context.Context, path string, out any) error
	IsAuthenticated func() bool
	UpdateUser      func(ctx context.Context, patch session.UserPatch) (bool, error)

	MetricInc func(int)
	Metrics   MeMetrics

	FailedMessage string
	Errors        MeErrors
}

// RunMe fetches the current user and merges it into the held session. Without
// a session no request is issued.
func RunMe(ctx context.Context, deps MeDeps) (session.User, error) {
	if deps.Get == nil || deps.IsAuthenticated == nil || deps.UpdateUser == nil {
		return session.User{}, deps.Errors.NotReady
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if !deps.IsAuthenticated() {
		return session.User{}, deps.Errors.NotAuthenticated
	}

	var resp transport.Envelope[session.User]
	if err := deps.Get(ctx, deps.Path, &resp); err != nil {
		return session.User{}, err
	}
	if !resp.OK() {
		return session.User{}, transport.Rejected(resp.Message, deps.FailedMessage)
	}

	user := *resp.Data
	held, err := deps.UpdateUser(ctx, session.PatchFromUser(user))
	if err != nil {
		return session.User{}, transport.Wrap(fmt.Errorf("store profile: %w", err), deps.FailedMessage)
	}
	if !held {
		// Logged out while the request was in flight.
		return session.User{}, deps.Errors.NotAuthenticated
	}
	deps.MetricInc(deps.Metrics.Refreshed)
	return user, nil
}
