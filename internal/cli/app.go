// Package cli is the terminal front end for the journal: account commands
// run through the client orchestrator, entry commands through the API.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/textjournal/backend/internal/client"
)

// Journal is the entry surface the CLI needs.
type Journal interface {
	ListEntries(ctx context.Context, token string, q client.EntryQuery) ([]client.Entry, error)
	CreateEntry(ctx context.Context, token string, in client.NewEntry) (*client.Entry, error)
}

type App struct {
	auth    *client.Orchestrator
	journal Journal
	reader  *bufio.Reader
	out     io.Writer
	now     func() time.Time
}

func NewApp(auth *client.Orchestrator, journal Journal, in io.Reader, out io.Writer) *App {
	return &App{auth: auth, journal: journal, reader: bufio.NewReader(in), out: out, now: time.Now}
}

const usage = `usage: journal <command>

commands:
  signup             create an account
  signin             sign in
  signout            sign out
  whoami             show the signed-in account
  entries [tag]      list recent entries
  add                write an entry
`

// Run executes one command. Errors are already user-facing.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return nil
	}

	switch args[0] {
	case "signup":
		return a.signUp(ctx)
	case "signin", "login":
		return a.signIn(ctx)
	case "signout", "logout":
		return a.signOut(ctx)
	case "whoami":
		return a.whoami()
	case "entries", "list":
		tag := ""
		if len(args) > 1 {
			tag = args[1]
		}
		return a.listEntries(ctx, tag)
	case "add":
		return a.addEntry(ctx)
	case "help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q, try 'journal help'", args[0])
}

func (a *App) signUp(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)
	phone, err := GetSimpleText(a.reader, "Phone number for journaling by text (optional)", a.out)
	if err != nil {
		return err
	}
	tz, err := GetSimpleText(a.reader, "Timezone, e.g. America/New_York (optional)", a.out)
	if err != nil {
		return err
	}

	in := client.SignUpInput{
		Email:       email,
		Password:    string(password),
		PhoneNumber: phone,
		Timezone:    tz,
	}
	if phone != "" {
		answer, err := GetSimpleText(a.reader, "Receive text messages from Text Journal? [y/N]", a.out)
		if err != nil {
			return err
		}
		agreed := strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
		in.Consent = &client.Consent{
			PhoneNumber: phone,
			ConsentText: "I agree to receive text messages from Text Journal.",
			Consented:   agreed,
		}
		in.SendConfirmation = agreed
	}

	res, err := a.auth.SignUp(ctx, in)
	if err != nil {
		return a.describe(err)
	}
	fmt.Fprintf(a.out, "Account created for %s\n", email)
	if res.Session != nil {
		fmt.Fprintln(a.out, "You are signed in.")
	}
	return nil
}

func (a *App) signIn(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	sess, err := a.auth.SignIn(ctx, email, string(password))
	a.auth.Flush()
	if err != nil {
		return a.describe(err)
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", sess.User.Email)
	return nil
}

func (a *App) signOut(ctx context.Context) error {
	err := a.auth.SignOut(ctx)
	if errors.Is(err, client.ErrNotSignedIn) {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	fmt.Fprintln(a.out, "Signed out.")
	if err != nil {
		return fmt.Errorf("the server did not confirm sign-out: %w", err)
	}
	return nil
}

func (a *App) whoami() error {
	sess := a.auth.Session()
	if sess == nil || sess.User == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s)\n", sess.User.Email, sess.User.ID)
	return nil
}

func (a *App) listEntries(ctx context.Context, tag string) error {
	token, err := a.auth.AccessToken()
	if err != nil {
		return a.describe(err)
	}
	entries, err := a.journal.ListEntries(ctx, token, client.EntryQuery{Tag: tag, Limit: 20})
	if err != nil {
		return a.describe(err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No entries yet.")
		return nil
	}
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(a.out, "%s  %-7s %s\n", e.EntryDate, e.Source, title)
		if e.Degraded {
			fmt.Fprintln(a.out, "    [could not be decrypted]")
			continue
		}
		fmt.Fprintf(a.out, "    %s\n", e.Content)
	}
	return nil
}

func (a *App) addEntry(ctx context.Context) error {
	token, err := a.auth.AccessToken()
	if err != nil {
		return a.describe(err)
	}
	title, err := GetSimpleText(a.reader, "Title (optional)", a.out)
	if err != nil {
		return err
	}
	content, err := GetMultiline(a.reader, "Entry", a.out)
	if err != nil {
		return err
	}
	tags, err := GetSimpleText(a.reader, "Tags, comma separated (optional)", a.out)
	if err != nil {
		return err
	}

	in := client.NewEntry{Title: title, Content: content}
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			in.Tags = append(in.Tags, t)
		}
	}
	entry, err := a.journal.CreateEntry(ctx, token, in)
	if err != nil {
		return a.describe(err)
	}
	fmt.Fprintf(a.out, "Saved entry %s for %s\n", entry.ID, entry.EntryDate)
	return nil
}

// describe turns client errors into messages for the terminal.
func (a *App) describe(err error) error {
	var (
		rl *client.RateLimitError
		lo *client.LockoutError
	)
	switch {
	case errors.As(err, &rl):
		wait := rl.RetryAfter(a.now()).Round(time.Minute)
		return fmt.Errorf("%s Try again in %s.", rl.Message, wait)
	case errors.As(err, &lo):
		return fmt.Errorf("%s Locked until %s.", lo.Message, lo.LockedUntil.Local().Format(time.Kitchen))
	case errors.Is(err, client.ErrNotSignedIn), errors.Is(err, client.ErrUnauthorized):
		return errors.New("not signed in, run 'journal signin'")
	}
	return err
}
