package eduAuth

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/MrEthical07/eduAuth/validation"
)

// Demo account offered by the login form.
const (
	DemoEmail    = "demo@test.com"
	DemoPassword = "Demo123!"
)

// DefaultGrade prefills the registration form.
const DefaultGrade = 6

// FormResult is what a form hands back to the view after one submission.
type FormResult struct {
	// FieldErrors is set when validation stopped the submission before the
	// network.
	FieldErrors FieldErrors
	// Message is the error text to display. Empty on success.
	Message string
	// Notice is the success text to display.
	Notice    string
	Succeeded bool
	// Redirect is the view the form navigated to.
	Redirect string
	Err      error
}

// formGuard admits one submission at a time.
type formGuard struct {
	inFlight atomic.Bool
}

func (g *formGuard) run(c *Client, fn func() FormResult) FormResult {
	if !g.inFlight.CompareAndSwap(false, true) {
		c.metrics.Inc(MetricSubmissionRejected)
		return c.failure(ErrSubmissionInFlight)
	}
	defer g.inFlight.Store(false)
	return fn()
}

// InFlight reports whether a submission is running.
func (g *formGuard) InFlight() bool {
	return g.inFlight.Load()
}

func (c *Client) failure(err error) FormResult {
	res := FormResult{Message: c.ErrorMessage(err), Err: err}
	var fe FieldErrors
	if errors.As(err, &fe) {
		res.FieldErrors = fe
		res.Message = ""
	}
	return res
}

// decodeFailure merges the per-field conversion errors over the messages of
// the fields that did convert, so every failing field is reported at once.
func (c *Client) decodeFailure(err error, checked FieldErrors) FormResult {
	fe := FieldErrors{}
	for k, v := range checked {
		fe[k] = v
	}
	for k, v := range c.validator.FieldErrorsFor(err) {
		fe[k] = v
	}
	c.metrics.Inc(MetricValidationRejected)
	return c.failure(fe)
}

// LoginForm drives the login view.
type LoginForm struct {
	formGuard
	client *Client
}

// LoginForm returns a login form bound to c.
func (c *Client) LoginForm() *LoginForm {
	return &LoginForm{client: c}
}

// Demo returns the demo credentials to prefill and the notice to show.
func (f *LoginForm) Demo() (map[string]any, string) {
	return map[string]any{
			"email":    DemoEmail,
			"password": DemoPassword,
		},
		f.client.validator.Message(validation.NoticeDemoFilled)
}

// Submit decodes raw form values, validates them and logs in. On success the
// session is stored and the client navigates to the dashboard.
func (f *LoginForm) Submit(ctx context.Context, raw map[string]any) FormResult {
	return f.run(f.client, func() FormResult {
		c := f.client
		in, err := validation.DecodeLogin(raw)
		if err != nil {
			return c.decodeFailure(err, c.validator.Login(in))
		}
		return f.submit(ctx, in)
	})
}

// SubmitInput is Submit for an already typed payload.
func (f *LoginForm) SubmitInput(ctx context.Context, in LoginInput) FormResult {
	return f.run(f.client, func() FormResult {
		return f.submit(ctx, in)
	})
}

func (f *LoginForm) submit(ctx context.Context, in LoginInput) FormResult {
	c := f.client
	res, err := c.Login(ctx, in)
	if err != nil {
		return c.failure(err)
	}
	return c.succeed(c.validator.Message(validation.NoticeWelcome, res.User.FirstName))
}

// RegisterForm drives the registration view.
type RegisterForm struct {
	formGuard
	client *Client
}

// RegisterForm returns a registration form bound to c.
func (c *Client) RegisterForm() *RegisterForm {
	return &RegisterForm{client: c}
}

// Defaults returns the initial form values.
func (f *RegisterForm) Defaults() map[string]any {
	return map[string]any{"grade": DefaultGrade}
}

// Submit decodes raw form values, validates them and registers. A password
// mismatch is reported on confirmPassword.
func (f *RegisterForm) Submit(ctx context.Context, raw map[string]any) FormResult {
	return f.run(f.client, func() FormResult {
		c := f.client
		in, err := validation.DecodeRegister(raw)
		if err != nil {
			return c.decodeFailure(err, c.validator.Register(in))
		}
		return f.submit(ctx, in)
	})
}

// SubmitInput is Submit for an already typed payload.
func (f *RegisterForm) SubmitInput(ctx context.Context, in RegisterInput) FormResult {
	return f.run(f.client, func() FormResult {
		return f.submit(ctx, in)
	})
}

func (f *RegisterForm) submit(ctx context.Context, in RegisterInput) FormResult {
	c := f.client
	if _, err := c.Register(ctx, in); err != nil {
		return c.failure(err)
	}
	return c.succeed(c.validator.Message(validation.NoticeRegistered))
}

func (c *Client) succeed(notice string) FormResult {
	view := c.config.Views.Dashboard
	c.nav.Navigate(view)
	return FormResult{
		Notice:    notice,
		Succeeded: true,
		Redirect:  view,
	}
}

// SignOut logs out and returns the notice to show. The store has already
// navigated to the login view when it returns.
func (c *Client) SignOut(ctx context.Context) FormResult {
	if err := c.Logout(ctx); err != nil {
		return c.failure(err)
	}
	return FormResult{
		Notice:    c.validator.Message(validation.NoticeLoggedOut),
		Succeeded: true,
		Redirect:  c.config.Views.Login,
	}
}
