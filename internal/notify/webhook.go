package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackready/stackready/internal/transition"
)

const defaultWebhookTemplate = `{"project":"{{ .Project }}","transitions":{{ toJson .Transitions }}}`

// WebhookPayload is the template context for webhook notifications.
type WebhookPayload struct {
	Project     string
	Transitions []transition.ServiceTransition
	GeneratedAt time.Time
}

// WebhookNotifier renders transitions through a template and POSTs the
// result to a generic webhook.
type WebhookNotifier struct {
	logger   zerolog.Logger
	template *template.Template
	poster   *poster
}

// NewWebhook creates a webhook notifier. An empty template uses the
// default JSON payload.
func NewWebhook(logger zerolog.Logger, webhookURL, tmpl string) (*WebhookNotifier, error) {
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		logger:   logger,
		template: parsed,
		poster:   newPoster("webhook", webhookURL, defaultPosterTiming),
	}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, project string, transitions []transition.ServiceTransition) error {
	if len(transitions) == 0 {
		return nil
	}

	payload := WebhookPayload{
		Project:     project,
		Transitions: transitions,
		GeneratedAt: time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := n.template.Execute(&buf, payload); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}

	if err := n.poster.post(ctx, buf.Bytes()); err != nil {
		return err
	}

	n.logger.Debug().
		Str("project", project).
		Int("transitions", len(transitions)).
		Msg("webhook notification sent")

	return nil
}
