package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/textjournal/backend/internal/logging"
)

// PreflightChecker is the gateway stage: input, rate limit and lockout
// checks. It never sees session tokens.
type PreflightChecker interface {
	Preflight(ctx context.Context, req PreflightRequest) (*PreflightResult, error)
}

// CredentialVerifier is the identity provider stage, called directly by
// the client.
type CredentialVerifier interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	CurrentUser(ctx context.Context, token string) (*User, error)
	SignOut(ctx context.Context, token string) error
}

type FailureReporter interface {
	ReportFailedSignin(ctx context.Context, email string) error
}

// ProfileActions are the side actions run after sign-up.
type ProfileActions interface {
	RecordConsent(ctx context.Context, token string, consent Consent) error
	RequestConfirmation(ctx context.Context, token string) error
}

type Deps struct {
	Gateway  PreflightChecker
	Verifier CredentialVerifier
	Failures FailureReporter
	Profile  ProfileActions
	Tokens   TokenStore
	Log      logging.Logger
	Now      func() time.Time
}

// Orchestrator runs sign-up, sign-in and sign-out and owns the session
// store. Start it once, Close it when done.
type Orchestrator struct {
	gateway  PreflightChecker
	verifier CredentialVerifier
	failures FailureReporter
	profile  ProfileActions
	tokens   TokenStore
	log      logging.Logger
	now      func() time.Time

	sessions    *SessionStore
	unsubscribe func()
	startOnce   sync.Once
	wg          sync.WaitGroup
}

func NewOrchestrator(d Deps) *Orchestrator {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Tokens == nil {
		d.Tokens = &MemoryTokenStore{}
	}
	return &Orchestrator{
		gateway:  d.Gateway,
		verifier: d.Verifier,
		failures: d.Failures,
		profile:  d.Profile,
		tokens:   d.Tokens,
		log:      d.Log,
		now:      d.Now,
		sessions: NewSessionStore(),
	}
}

// Sessions exposes the store for subscribers.
func (o *Orchestrator) Sessions() *SessionStore { return o.sessions }

// Session returns the current session or nil.
func (o *Orchestrator) Session() *Session { return o.sessions.Current() }

// Start subscribes token persistence to session changes and restores a
// stored session if the provider still accepts it.
func (o *Orchestrator) Start(ctx context.Context) error {
	var err error
	o.startOnce.Do(func() {
		o.unsubscribe = o.sessions.Subscribe(o.persist)
		err = o.restore(ctx)
	})
	return err
}

func (o *Orchestrator) persist(ev SessionEvent, s *Session) {
	// the liveness check guards against a change racing teardown
	if !o.sessions.Alive() {
		return
	}
	var err error
	switch ev {
	case SessionSignedIn, SessionRestored:
		err = o.tokens.Save(s)
	case SessionSignedOut:
		err = o.tokens.Clear()
	}
	if err != nil {
		o.log.Warn(context.Background(), "session persistence failed", "event", ev.String(), "error", err)
	}
}

func (o *Orchestrator) restore(ctx context.Context) error {
	stored, err := o.tokens.Load()
	if err != nil {
		o.log.Warn(ctx, "stored session unreadable", "error", err)
		o.sessions.Clear()
		return nil
	}
	if stored == nil {
		return nil
	}
	if stored.Expired(o.now()) {
		o.sessions.Clear()
		return nil
	}

	user, err := o.verifier.CurrentUser(ctx, stored.AccessToken)
	if errors.Is(err, ErrUnauthorized) {
		o.sessions.Clear()
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	stored.User = user
	if !o.sessions.Set(SessionRestored, stored) {
		return ErrClosed
	}
	return nil
}

// Close tears the orchestrator down. Results of calls still in flight are
// dropped. It waits for background reports.
func (o *Orchestrator) Close() {
	o.sessions.Close()
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
	o.wg.Wait()
}

type SignUpInput struct {
	Email       string
	Password    string
	PhoneNumber string
	Timezone    string
	// Consent, when set, is recorded once the account exists.
	Consent *Consent
	// SendConfirmation asks for a best-effort welcome message.
	SendConfirmation bool
}

type SignUpResult struct {
	Account   *User
	RateLimit RateLimit
	// Session is nil when the follow-up sign-in did not succeed.
	Session *Session
}

// SignUp creates the account through the gateway, then signs in and runs
// the consent and confirmation side actions. Only the gateway call can fail
// the sign-up.
func (o *Orchestrator) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	if !o.sessions.Alive() {
		return nil, ErrClosed
	}
	res, err := o.gateway.Preflight(ctx, PreflightRequest{
		Action:      ActionSignup,
		Email:       in.Email,
		Password:    in.Password,
		PhoneNumber: in.PhoneNumber,
		Timezone:    in.Timezone,
	})
	if err != nil {
		return nil, err
	}
	out := &SignUpResult{RateLimit: res.RateLimit}
	if res.Data != nil {
		out.Account = res.Data.User
	}

	if in.Consent == nil && !in.SendConfirmation {
		return out, nil
	}

	sess, err := o.verifier.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		o.log.Warn(ctx, "sign-in after sign-up failed, skipping side actions", "error", err)
		return out, nil
	}
	if o.sessions.Set(SessionSignedIn, sess) {
		out.Session = sess
	}

	if in.Consent != nil && o.profile != nil {
		if err := o.profile.RecordConsent(ctx, sess.AccessToken, *in.Consent); err != nil {
			o.log.Warn(ctx, "consent recording failed", "error", err)
		}
	}
	if in.SendConfirmation && o.profile != nil {
		if err := o.profile.RequestConfirmation(ctx, sess.AccessToken); err != nil {
			o.log.Warn(ctx, "confirmation request failed", "error", err)
		}
	}
	return out, nil
}

// SignIn runs the gateway pre-flight, then verifies credentials directly
// with the identity provider. A rejected password is reported in the
// background.
func (o *Orchestrator) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if !o.sessions.Alive() {
		return nil, ErrClosed
	}
	res, err := o.gateway.Preflight(ctx, PreflightRequest{Action: ActionSignin, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if !res.ValidationPassed {
		msg := res.Message
		if msg == "" {
			msg = "validation did not pass"
		}
		return nil, &ValidationError{Message: msg}
	}

	sess, err := o.verifier.SignInWithPassword(ctx, email, password)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			o.reportFailure(ctx, email)
		}
		return nil, err
	}

	if !o.sessions.Set(SessionSignedIn, sess) {
		return nil, ErrClosed
	}
	return sess, nil
}

func (o *Orchestrator) reportFailure(ctx context.Context, email string) {
	if o.failures == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.failures.ReportFailedSignin(detached, email); err != nil {
			o.log.Warn(detached, "failed sign-in report dropped", "error", err)
		}
	}()
}

// SignOut clears local state first and unconditionally, then revokes the
// session remotely. A remote failure is returned but local state stays
// cleared.
func (o *Orchestrator) SignOut(ctx context.Context) error {
	sess := o.sessions.Current()
	o.sessions.Clear()
	if sess == nil {
		return ErrNotSignedIn
	}
	if err := o.verifier.SignOut(ctx, sess.AccessToken); err != nil && !errors.Is(err, ErrUnauthorized) {
		return fmt.Errorf("remote sign-out: %w", err)
	}
	return nil
}

// Flush waits for background failure reports.
func (o *Orchestrator) Flush() {
	o.wg.Wait()
}

// AccessToken returns the current token or ErrNotSignedIn.
func (o *Orchestrator) AccessToken() (string, error) {
	sess := o.sessions.Current()
	if sess == nil {
		return "", ErrNotSignedIn
	}
	if sess.Expired(o.now()) {
		o.sessions.Clear()
		return "", ErrNotSignedIn
	}
	return sess.AccessToken, nil
}
