package flows

import "context"

// Deps groups flow dependency sets. The root client builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Auth       AuthDeps
	Me         MeDeps
	Logout     LogoutDeps
	Invalidate InvalidateDeps
	Rehydrate  RehydrateDeps
}

// AuditFunc records one outcome. metadata is evaluated only when the event is
// actually recorded.
type AuditFunc func(ctx context.Context, event string, success bool, userID, email string, err error, metadata func() map[string]string)

func noopMetric(int) {}

func noopAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func noopRelease() {}
