package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/recognize"
	"github.com/five82/melocuore/internal/session"
)

// Exit codes returned by Command.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Commands lists the headless subcommands with a one-line summary.
var Commands = []struct{ Name, Summary string }{
	{"login", "sign in; reads the password from stdin"},
	{"logout", "forget the stored credential"},
	{"register", "create an account; reads password and confirmation from stdin"},
	{"whoami", "show the signed-in account"},
	{"recognize", "upload an .mp3 or .wav file and print the recognition result"},
	{"files", "list your uploaded files"},
	{"history", "list your recognition history"},
}

// IsCommand reports whether name is a headless subcommand.
func IsCommand(name string) bool {
	for _, c := range Commands {
		if c.Name == name {
			return true
		}
	}
	return false
}

type cli struct {
	env    *env
	stdin  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
}

// Command runs one headless subcommand and returns the process exit code.
func Command(ctx context.Context, opts Options, name string, args []string) int {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	if !IsCommand(name) {
		fmt.Fprintf(stderr, "melocuore: unknown command %q\n", name)
		return ExitUsage
	}

	e, err := open(opts)
	if err != nil {
		fmt.Fprintf(stderr, "melocuore: %v\n", err)
		return ExitFailure
	}
	defer e.Close()

	c := &cli{env: e, stdin: bufio.NewReader(stdin), stdout: stdout, stderr: stderr}
	e.logger.Debug("running command", "command", name)

	switch name {
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.logout(args)
	case "register":
		return c.register(ctx, args)
	case "whoami":
		return c.whoami(ctx, args)
	case "recognize":
		return c.recognize(ctx, args)
	case "files":
		return c.files(ctx, args)
	case "history":
		return c.history(ctx, args)
	}
	return ExitUsage
}

func (c *cli) flags(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "usage: melocuore %s %s\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse returns -1 when args are valid, otherwise the exit code to use.
func (c *cli) parse(fs *flag.FlagSet, args []string, positional int) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	if fs.NArg() != positional {
		fs.Usage()
		return ExitUsage
	}
	return -1
}

func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "melocuore: %s\n", describeError(err))
	c.env.logger.Warn("command failed", "error", err)
	return ExitFailure
}

func (c *cli) readLine(prompt string) (string, error) {
	fmt.Fprint(c.stderr, prompt)
	line, err := c.stdin.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no input on stdin")
		}
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) login(ctx context.Context, args []string) int {
	fs := c.flags("login", "[-username NAME] < password")
	username := fs.String("username", "", "account name (defaults to the last one used)")
	if code := c.parse(fs, args, 0); code >= 0 {
		return code
	}
	name := strings.TrimSpace(*username)
	if name == "" {
		name = c.env.sessions.LastUsername()
	}
	if name == "" {
		fs.Usage()
		return ExitUsage
	}
	password, err := c.readLine("Password: ")
	if err != nil {
		return c.fail(err)
	}
	sess, err := c.env.sessions.Login(ctx, name, password)
	if errors.Is(err, api.ErrUnauthorized) {
		// The token endpoint answers 401 for bad credentials.
		fmt.Fprintf(c.stderr, "melocuore: %s\n", api.Message(err, "invalid username or password"))
		return ExitFailure
	}
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.stdout, "Signed in as %s%s\n", sess.Username(), adminSuffix(sess))
	return ExitOK
}

func (c *cli) logout(args []string) int {
	fs := c.flags("logout", "")
	if code := c.parse(fs, args, 0); code >= 0 {
		return code
	}
	if err := c.env.sessions.Logout(); err != nil {
		return c.fail(err)
	}
	fmt.Fprintln(c.stdout, "Signed out")
	return ExitOK
}

func (c *cli) register(ctx context.Context, args []string) int {
	fs := c.flags("register", "-username NAME [-email ADDR] < password confirmation")
	username := fs.String("username", "", "account name")
	email := fs.String("email", "", "email address (optional)")
	if code := c.parse(fs, args, 0); code >= 0 {
		return code
	}
	password, err := c.readLine("Password: ")
	if err != nil {
		return c.fail(err)
	}
	confirm, err := c.readLine("Confirm password: ")
	if err != nil {
		return c.fail(err)
	}
	reg := api.Registration{Username: *username, Email: *email, Password: password, ConfirmPassword: confirm}
	if err := c.env.sessions.Register(ctx, reg); err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.stdout, "Account %s created; run 'melocuore login' to sign in\n", strings.TrimSpace(*username))
	return ExitOK
}

func (c *cli) whoami(ctx context.Context, args []string) int {
	fs := c.flags("whoami", "")
	if code := c.parse(fs, args, 0); code >= 0 {
		return code
	}
	sess, err := c.env.sessions.Guard(ctx)
	if err != nil {
		return c.fail(err)
	}
	line := sess.Username() + adminSuffix(sess)
	if id, ok := sess.UserID(); ok {
		line += fmt.Sprintf(" (id %d)", id)
	}
	if exp := sess.Claims.ExpiresAt; exp != nil {
		line += ", token expires " + humanize.Time(exp.Time)
	}
	fmt.Fprintln(c.stdout, line)
	return ExitOK
}

func (c *cli) recognize(ctx context.Context, args []string) int {
	fs := c.flags("recognize", "FILE")
	quiet := fs.Bool("quiet", false, "do not report progress on stderr")
	if code := c.parse(fs, args, 1); code >= 0 {
		return code
	}
	path := fs.Arg(0)

	observe := func(ev recognize.Event) {
		if *quiet {
			return
		}
		switch ev.Kind {
		case recognize.EventUploaded:
			fmt.Fprintf(c.stderr, "uploaded %s as #%d\n", path, ev.Asset.ID)
		case recognize.EventPolling:
			fmt.Fprintf(c.stderr, "checking recognition status (%d/%d)\n", ev.Attempt, ev.MaxQueries)
		}
	}
	out, err := c.env.recognizer()(ctx, path, observe)
	if err != nil {
		return c.fail(err)
	}
	for _, line := range recognize.Describe(out) {
		fmt.Fprintln(c.stdout, line)
	}
	if out.State == recognize.StateFound && !out.HistorySaved {
		fmt.Fprintln(c.stderr, "warning: result was not saved to history")
	}
	switch out.State {
	case recognize.StateExhausted, recognize.StateError:
		return ExitFailure
	}
	return ExitOK
}

func (c *cli) files(ctx context.Context, args []string) int {
	fs := c.flags("files", "")
	if code := c.parse(fs, args, 0); code >= 0 {
		return code
	}
	if _, err := c.env.sessions.Guard(ctx); err != nil {
		return c.fail(err)
	}
	assets, err := c.env.client.ListFiles(ctx)
	if err != nil {
		return c.fail(err)
	}
	if len(assets) == 0 {
		fmt.Fprintln(c.stdout, "No uploads yet")
		return ExitOK
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tUPLOADED")
	for _, a := range assets {
		uploaded := a.UploadedAt
		if t := a.ParsedUploadedAt(); !t.IsZero() {
			uploaded = humanize.Time(t)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.ContentType, humanize.IBytes(uint64(max(a.Size, 0))), uploaded)
	}
	if err := tw.Flush(); err != nil {
		return c.fail(err)
	}
	return ExitOK
}

func (c *cli) history(ctx context.Context, args []string) int {
	fs := c.flags("history", "")
	if code := c.parse(fs, args, 0); code >= 0 {
		return code
	}
	if _, err := c.env.sessions.Guard(ctx); err != nil {
		return c.fail(err)
	}
	records, err := c.env.client.ListAnalyses(ctx)
	if err != nil {
		return c.fail(err)
	}
	if len(records) == 0 {
		fmt.Fprintln(c.stdout, "No analyses yet")
		return ExitOK
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tARTIST\tGENRE\tCONFIDENCE\tWHEN")
	for _, r := range records {
		when := r.CreatedAt
		if t := r.ParsedCreatedAt(); !t.IsZero() {
			when = humanize.Time(t)
		}
		confidence := ""
		if r.Confidence > 0 {
			pct := r.Confidence
			if pct <= 1 {
				pct *= 100
			}
			confidence = fmt.Sprintf("%.0f%%", pct)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Title, r.Artist, r.Genre, confidence, when)
	}
	if err := tw.Flush(); err != nil {
		return c.fail(err)
	}
	return ExitOK
}

func adminSuffix(sess session.Session) string {
	if sess.IsSuperuser() {
		return " [admin]"
	}
	return ""
}

func describeError(err error) string {
	var sessionErr *session.ValidationError
	if errors.As(err, &sessionErr) {
		return sessionErr.Message
	}
	var fileErr *recognize.ValidationError
	if errors.As(err, &fileErr) {
		return fileErr.Message
	}
	var submitErr *recognize.SubmitError
	if errors.As(err, &submitErr) {
		return submitErr.Message
	}
	switch {
	case errors.Is(err, session.ErrNoCredential):
		return "not signed in; run 'melocuore login'"
	case errors.Is(err, session.ErrDenied), errors.Is(err, api.ErrUnauthorized):
		return "session expired; run 'melocuore login'"
	}
	return api.Message(err, err.Error())
}
