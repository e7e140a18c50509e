package emails

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInvalidJob = errors.New("recipient, subject and body are required")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Job is an outbound email row; delivery happens out-of-band off the
// email_logs table.
type Job struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (j Job) Validate() error {
	if strings.TrimSpace(j.Recipient) == "" || strings.TrimSpace(j.Subject) == "" || strings.TrimSpace(j.Body) == "" {
		return ErrInvalidJob
	}
	if !emailPattern.MatchString(j.Recipient) {
		return fmt.Errorf("%w: invalid recipient", ErrInvalidJob)
	}
	return nil
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO email_logs(recipient, subject, body)
		VALUES ($1,$2,$3)`, job.Recipient, job.Subject, job.Body)
	if err != nil {
		return fmt.Errorf("queue email: %w", err)
	}
	return nil
}
