// checkin submits scanned tickets to the ticketing API from the door.  It
// is the manual fallback when the camera scanner cannot read a code: the
// operator pastes the ticket token, or pipes one token per line.
//
// Usage:
//
//	checkin --server https://tickets.example.com --email door@club.org --token eyJ...
//	pbpaste | checkin --access-token "$TOKEN"
//
// The exit status is 0 when every ticket was admitted, 2 when at least one
// was refused and 1 on any other error.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var (
		server      string
		accessToken string
		email       string
		password    string
		token       string
		timeout     time.Duration
	)
	flagSet := pflag.NewFlagSet("checkin", pflag.ContinueOnError)
	flagSet.StringVar(&server, "server", envOr("CHECKIN_SERVER", "http://localhost:8080"), "ticketing API base URL")
	flagSet.StringVar(&accessToken, "access-token", os.Getenv("CHECKIN_ACCESS_TOKEN"), "operator access token")
	flagSet.StringVarP(&email, "email", "e", "", "operator email, used to log in when no access token is given")
	flagSet.StringVar(&password, "password", os.Getenv("CHECKIN_PASSWORD"), "operator password")
	flagSet.StringVarP(&token, "token", "t", "", "ticket token to check in; read from stdin when empty")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newClient(server, timeout)
	switch {
	case accessToken != "":
		c.token = accessToken
	case email != "" && password != "":
		if err := c.login(ctx, email, password); err != nil {
			return err
		}
	default:
		return errors.New("either --access-token or --email with --password is required")
	}

	var tokens []string
	if strings.TrimSpace(token) != "" {
		tokens = []string{token}
	} else {
		sc := bufio.NewScanner(stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				tokens = append(tokens, line)
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
	if len(tokens) == 0 {
		return errors.New("no ticket token given")
	}

	refused := 0
	for _, t := range tokens {
		res, err := c.verify(ctx, t)
		var rej *rejection
		switch {
		case errors.As(err, &rej):
			refused++
			fmt.Fprintf(stdout, "REFUSED  %s\n", rej.Error())
		case err != nil:
			return err
		default:
			printAdmission(stdout, res)
		}
	}
	if refused > 0 {
		return exitError{code: 2}
	}
	return nil
}

func printAdmission(w io.Writer, a *admission) {
	name := strings.TrimSpace(a.Booking.User.FirstName + " " + a.Booking.User.LastName)
	fmt.Fprintf(w, "ADMITTED %s <%s>\n", name, a.Booking.User.Email)
	fmt.Fprintf(w, "         %s, %s, %s\n", a.Booking.Event.Title, a.Booking.Event.Venue,
		a.Booking.Event.Date.Local().Format(time.RFC1123))
	fmt.Fprintf(w, "         booking %s checked in at %s\n", a.Booking.ID, a.CheckedInAt.Local().Format(time.RFC1123))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
