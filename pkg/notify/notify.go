// Package notify delivers operator notifications about a run.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep/pkg/errors"
	"github.com/covid19datasets/sitrep/pkg/reconcile"
)

// Notifier sends a message with a subject and body.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, subject, body string) error

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, subject, body string) error {
	return f(ctx, subject, body)
}

// Log writes notifications to a logger.
type Log struct {
	Logger *zerolog.Logger
}

// Notify implements Notifier.
func (l Log) Notify(_ context.Context, subject, body string) error {
	if l.Logger == nil {
		return nil
	}
	l.Logger.Warn().Str("subject", subject).Msg(body)
	return nil
}

// Command pipes the body to an external command, appending the subject as
// the final argument. This is how a mail collaborator is plugged in, e.g.
// `mail -s`.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command line on whitespace.
func ParseCommand(line string) (Command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return Command{}, errors.NewConfigError("notify", "notify command is empty", nil)
	}
	return Command{Name: f[0], Args: f[1:]}, nil
}

// Notify implements Notifier.
func (c Command) Notify(ctx context.Context, subject, body string) error {
	args := append(append([]string(nil), c.Args...), subject)
	cmd := exec.CommandContext(ctx, c.Name, args...)
	cmd.Stdin = strings.NewReader(body)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("notify command %s: %w: %s", c.Name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Message is a delivered notification.
type Message struct {
	Subject string
	Body    string
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Multi fans a notification out to several notifiers and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, subject, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChangesSubject is the subject of an entity change notification.
func ChangesSubject(reportDate string) string {
	return "Entity changes for " + reportDate
}

// ChangesBody lists added and removed entities, with "none" for empty sets.
func ChangesBody(reportDate string, r reconcile.Result) string {
	return fmt.Sprintf("Report %s\nAdded: %s\nRemoved: %s\n", reportDate, r.Added, r.Removed)
}

// FailureSubject is the subject of a failed run notification.
func FailureSubject(reportDate string) string {
	return "Scrape failed for " + reportDate
}

// FailureBody describes a fatal error, including the stage when known.
func FailureBody(reportDate string, err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Report %s\n", reportDate)
	var runErr *errors.RunError
	if errors.As(err, &runErr) {
		fmt.Fprintf(&sb, "Stage reached: %s\n", runErr.Stage)
	}
	switch {
	case errors.IsSchemaDrift(err):
		sb.WriteString("Cause: report table layout changed (schema drift)\n")
	case errors.IsExtraction(err):
		sb.WriteString("Cause: document could not be read\n")
	case errors.IsReconciliationIntegrity(err):
		sb.WriteString("Cause: previous snapshot could not be loaded\n")
	}
	fmt.Fprintf(&sb, "Error: %v\n", err)
	return sb.String()
}
