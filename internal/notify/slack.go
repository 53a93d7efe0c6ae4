package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/stackready/stackready/internal/status"
	"github.com/stackready/stackready/internal/transition"
)

// Slack caps a message at 50 blocks; header and context take two, the
// rest carry one transition each.
const slackMaxTransitions = 48

// SlackNotifier posts transition summaries to a Slack incoming webhook.
type SlackNotifier struct {
	logger zerolog.Logger
	poster *poster
	timing posterTiming
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides delivery pacing, primarily for tests.
func WithSlackTiming(timing posterTiming) SlackOption {
	return func(n *SlackNotifier) {
		n.timing = timing
	}
}

// NewSlack creates a Slack notifier, or a noop notifier when the webhook
// URL is empty.
func NewSlack(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack notifications disabled")
	}

	notifier := &SlackNotifier{
		logger: logger,
		timing: defaultPosterTiming,
	}
	for _, opt := range opts {
		opt(notifier)
	}
	notifier.poster = newPoster("slack", webhookURL, notifier.timing)

	return notifier
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, project string, transitions []transition.ServiceTransition) error {
	if len(transitions) == 0 {
		return nil
	}

	message := buildSlackMessage(project, transitions)
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := n.poster.post(ctx, payload); err != nil {
		return err
	}

	n.logger.Debug().
		Str("project", project).
		Int("transitions", len(transitions)).
		Msg("slack notification sent")

	return nil
}

func buildSlackMessage(project string, transitions []transition.ServiceTransition) slack.WebhookMessage {
	summary := fmt.Sprintf("Project %s: %d service transition(s)", project, len(transitions))

	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))
	meta := slack.NewContextBlock("",
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Project: *%s*", project), false, false),
	)

	shown := transitions
	overflow := 0
	if len(shown) > slackMaxTransitions {
		overflow = len(shown) - slackMaxTransitions + 1
		shown = shown[:slackMaxTransitions-1]
	}

	blocks := []slack.Block{header, meta}
	for _, change := range shown {
		line := fmt.Sprintf("*%s*: `%s` → `%s`", change.Name, stateLabel(change.Previous), stateLabel(change.Current))
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", line, false, false), nil, nil))
	}
	if overflow > 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("_…and %d more_", overflow), false, false), nil, nil))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func stateLabel(state status.ServiceState) string {
	if state == "" {
		return "UNKNOWN"
	}
	return string(state)
}
