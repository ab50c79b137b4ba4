package notify

import (
	"context"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/telemetry"
	"incov-backend/lib/timezone"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("incov.services.notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address" env:"SMTP_EMAIL"`
	Password     string `json:"password" env:"SMTP_PASSWORD"`
}

type Config struct {
	Smtp SmtpConfig `json:"smtp"`
	// notifications are off when empty
	Recipient string `json:"recipient"`
	// display name of the sender
	Name string `json:"name"`
}

type StageResult struct {
	Name string
	// false when the stage was disabled or its input was missing
	Attempted bool
	Err       error
	Duration  time.Duration
}

func (r StageResult) Outcome() string {
	switch {
	case !r.Attempted:
		return "skipped"
	case r.Err != nil:
		return "failed"
	default:
		return "ok"
	}
}

type Status struct {
	RunID       string
	Success     bool
	FailedStage string
	Stages      []StageResult
	Finished    time.Time
}

// StageTable renders the outcome of every stage as a text table.
func StageTable(stages []StageResult) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Stage", "Outcome", "Duration", "Error"})
	for _, s := range stages {
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
			kind := errs.Kind(s.Err)
			if kind != "" {
				errText = kind + ": " + errText
			}
		}
		t.AppendRow(table.Row{
			s.Name,
			s.Outcome(),
			s.Duration.Round(time.Millisecond).String(),
			errText,
		})
	}
	t.SetStyle(table.StyleRounded)
	return t
}

type Notifier struct {
	config Config
}

func NewNotifier(config Config) Notifier {
	if config.Name == "" {
		config.Name = "INCOV"
	}
	if config.Smtp.Port == 0 {
		config.Smtp.Port = 587
	}
	return Notifier{config: config}
}

func (n Notifier) Enabled() bool {
	return n.config.Recipient != ""
}

// Compose builds the status email without sending it.
func (n Notifier) Compose(status Status) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("%s <%s>", n.config.Name, n.config.Smtp.EmailAddress)
	mail.To = []string{n.config.Recipient}

	finished := status.Finished
	if finished.IsZero() {
		finished = timezone.Now()
	}

	var body strings.Builder
	if status.Success {
		mail.Subject = fmt.Sprintf("[%s] run %s succeeded", n.config.Name, status.RunID)
		fmt.Fprintf(&body, "Run %s completed successfully at %s.\n\n", status.RunID, timezone.Stamp(finished))
	} else {
		mail.Subject = fmt.Sprintf("[%s] run %s failed at %s", n.config.Name, status.RunID, status.FailedStage)
		fmt.Fprintf(
			&body, "Run %s failed at %s. The first stage to fail was %s.\n\n",
			status.RunID, timezone.Stamp(finished), status.FailedStage,
		)
	}
	body.WriteString(StageTable(status.Stages).Render())
	body.WriteString("\n")
	mail.Text = []byte(body.String())

	return mail
}

// Notify sends the status email. Failures are NotifyErrors.
func (n Notifier) Notify(ctx context.Context, status Status) error {
	ctx, span := tracer.Start(ctx, "Notify")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", status.RunID),
		attribute.Bool("success", status.Success),
	)

	if !n.Enabled() {
		slog.DebugContext(ctx, "no recipient configured, skipping notification")
		return nil
	}

	mail := n.Compose(status)
	addr := fmt.Sprintf("%s:%d", n.config.Smtp.Server, n.config.Smtp.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.config.Smtp.EmailAddress, n.config.Smtp.Password, n.config.Smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return &errs.NotifyError{Err: err}
	}

	slog.InfoContext(ctx, "sent status email", "recipient", n.config.Recipient, "success", status.Success)
	return nil
}
