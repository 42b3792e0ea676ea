package flows

import (
	"context"

	"github.com/MrEthical07/eduAuth/session"
	"github.com/MrEthical07/eduAuth/transport"
)

// LogoutDeps captures local logout dependencies.
type LogoutDeps struct {
	CurrentUser func() *session.User
	Logout      func(ctx context.Context) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Metric    int
	Event     string
	NotReady  error
}

// RunLogout clears the session. There is no server endpoint; logout is local.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.Logout == nil {
		return deps.NotReady
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}

	var userID, email string
	if deps.CurrentUser != nil {
		if u := deps.CurrentUser(); u != nil {
			userID, email = u.ID, u.Email
		}
	}

	if err := deps.Logout(ctx); err != nil {
		deps.EmitAudit(ctx, deps.Event, false, userID, email, err, nil)
		return err
	}
	deps.MetricInc(deps.Metric)
	deps.EmitAudit(ctx, deps.Event, true, userID, email, nil, nil)
	return nil
}

// InvalidateDeps captures the dependencies of the unauthorized-signal handler.
type InvalidateDeps struct {
	CurrentUser func() *session.User
	Invalidate  func(ctx context.Context) (bool, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Metric    int
	Event     string
	Warn      func(msg string, args ...any)
}

// RunInvalidate reacts to a rejected credential by dropping the session. It
// runs synchronously inside the failing request.
func RunInvalidate(ctx context.Context, sig transport.Unauthorized, deps InvalidateDeps) {
	if deps.Invalidate == nil {
		return
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	var userID, email string
	if deps.CurrentUser != nil {
		if u := deps.CurrentUser(); u != nil {
			userID, email = u.ID, u.Email
		}
	}

	deps.MetricInc(deps.Metric)
	had, err := deps.Invalidate(ctx)
	if err != nil {
		deps.Warn("invalidate session after 401", "path", sig.Path, "request_id", sig.RequestID, "error", err)
	}
	if !had && !sig.HadToken {
		return
	}
	deps.EmitAudit(ctx, deps.Event, err == nil, userID, email, err, func() map[string]string {
		return map[string]string{
			"method":     sig.Method,
			"path":       sig.Path,
			"request_id": sig.RequestID,
		}
	})
}

// RehydrateDeps captures startup restore dependencies.
type RehydrateDeps struct {
	Rehydrate func(ctx context.Context) (session.LoadReport, error)
	Current   func() session.State

	MetricInc func(int)
	EmitAudit AuditFunc
	Metric    int
	Event     string
	NotReady  error
}

// RunRehydrate restores the persisted session and records what was found.
func RunRehydrate(ctx context.Context, deps RehydrateDeps) (session.LoadReport, error) {
	if deps.Rehydrate == nil {
		return session.LoadReport{}, deps.NotReady
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}

	report, err := deps.Rehydrate(ctx)
	if err != nil {
		deps.EmitAudit(ctx, deps.Event, false, "", "", err, nil)
		return report, err
	}

	var userID, email string
	if deps.Current != nil {
		if st := deps.Current(); st.User != nil {
			userID, email = st.User.ID, st.User.Email
		}
	}
	if userID != "" {
		deps.MetricInc(deps.Metric)
	}
	deps.EmitAudit(ctx, deps.Event, true, userID, email, nil, func() map[string]string {
		return map[string]string{
			"found":                boolString(report.Found),
			"discarded":            boolString(report.Discarded),
			"legacy_token_removed": boolString(report.LegacyTokenRemoved),
		}
	})
	return report, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
