package mailer

import (
	"errors"
	"strings"
)

// EmailJob is the JSON payload queued on RabbitMQ for the email worker.
// Producers normally enqueue rendered content (Subject/Text/HTML); a job may
// instead name a Template with Data and let the worker render it.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "password_reset", "account_deleted"
	Data     map[string]any `json:"data,omitempty"`
}

// Validate rejects jobs the worker can never deliver.
func (j EmailJob) Validate() error {
	if strings.TrimSpace(j.To) == "" {
		return errors.New("mailer: job has no recipient")
	}
	if j.Template == "" && j.Subject == "" {
		return errors.New("mailer: job has neither template nor subject")
	}
	if j.Template == "" && j.Text == "" && j.HTML == "" {
		return errors.New("mailer: job has no body")
	}
	return nil
}
