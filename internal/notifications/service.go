package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"encore/internal/config"
)

const userAgent = "Encore/0.1.0"

// Service defines the notification surface exposed to the scheduler and CLI.
type Service interface {
	NotifySubmissionsClosed(ctx context.Context, title string, count int) error
	NotifyRoundOpened(ctx context.Context, title string, round int, closesAt time.Time) error
	NotifyFinalistsSelected(ctx context.Context, title string, count int) error
	NotifyWinners(ctx context.Context, title string, winners []string) error
	NotifyTieRequiresResolution(ctx context.Context, title string) error
	NotifyCompetitionHeld(ctx context.Context, title, reason string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		rounds:   cfg.Notifications.Rounds,
		results:  cfg.Notifications.Results,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	rounds   bool
	results  bool
	errors   bool
}

func (n *ntfyService) NotifySubmissionsClosed(ctx context.Context, title string, count int) error {
	if !n.rounds {
		return nil
	}
	data := payload{
		title:   "Encore - Submissions Closed",
		message: fmt.Sprintf("%s closed with %d entries, moving into round 1", strings.TrimSpace(title), count),
		tags:    []string{"encore", "submissions", "closed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRoundOpened(ctx context.Context, title string, round int, closesAt time.Time) error {
	if !n.rounds {
		return nil
	}
	data := payload{
		title:   fmt.Sprintf("Encore - Round %d Open", round),
		message: fmt.Sprintf("Voting round %d open for %s until %s", round, strings.TrimSpace(title), closesAt.UTC().Format(time.RFC3339)),
		tags:    []string{"encore", "voting", "opened"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFinalistsSelected(ctx context.Context, title string, count int) error {
	if !n.results {
		return nil
	}
	data := payload{
		title:   "Encore - Finalists Selected",
		message: fmt.Sprintf("%d finalists advance to round 2 in %s", count, strings.TrimSpace(title)),
		tags:    []string{"encore", "finalists", "selected"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWinners(ctx context.Context, title string, winners []string) error {
	if !n.results {
		return nil
	}
	message := fmt.Sprintf("%s is complete", strings.TrimSpace(title))
	if len(winners) > 0 {
		message = fmt.Sprintf("%s\nWinners: %s", message, strings.Join(winners, ", "))
	}
	data := payload{
		title:    "Encore - Competition Complete",
		message:  message,
		tags:     []string{"encore", "competition", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTieRequiresResolution(ctx context.Context, title string) error {
	data := payload{
		title:    "Encore - Tie For First Place",
		message:  fmt.Sprintf("%s ended round 2 with a tie for first place; manual winner selection required", strings.TrimSpace(title)),
		tags:     []string{"encore", "tie", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCompetitionHeld(ctx context.Context, title, reason string) error {
	data := payload{
		title:   "Encore - Competition Held",
		message: fmt.Sprintf("%s is held: %s", strings.TrimSpace(title), strings.TrimSpace(reason)),
		tags:    []string{"encore", "held", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Encore - Error",
		message:  builder.String(),
		tags:     []string{"encore", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Encore - Test",
		message:  "Notification system test",
		tags:     []string{"encore", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySubmissionsClosed(context.Context, string, int) error         { return nil }
func (noopService) NotifyRoundOpened(context.Context, string, int, time.Time) error    { return nil }
func (noopService) NotifyFinalistsSelected(context.Context, string, int) error         { return nil }
func (noopService) NotifyWinners(context.Context, string, []string) error              { return nil }
func (noopService) NotifyTieRequiresResolution(context.Context, string) error          { return nil }
func (noopService) NotifyCompetitionHeld(context.Context, string, string) error        { return nil }
func (noopService) NotifyError(context.Context, error, string) error                   { return nil }
func (noopService) TestNotification(context.Context) error                             { return nil }
