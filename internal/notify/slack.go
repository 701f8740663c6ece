package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"
)

// SlackAPI is the subset of the Slack client SlackNotifier uses.
type SlackAPI interface {
	GetUserByEmailContext(ctx context.Context, email string) (*slacklib.User, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackNotifier sends a direct message to the Slack user owning the
// recipient's email address.
type SlackNotifier struct {
	api SlackAPI
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(api SlackAPI) *SlackNotifier {
	return &SlackNotifier{api: api}
}

// NewSlackNotifierFromToken builds a notifier over the real Slack client.
func NewSlackNotifierFromToken(botToken string) *SlackNotifier {
	return NewSlackNotifier(slacklib.New(botToken))
}

func (n *SlackNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("notify.SlackNotifier.Notify: %w", ErrNoRecipient)
	}

	user, err := n.api.GetUserByEmailContext(ctx, msg.To)
	if err != nil {
		return fmt.Errorf("notify.SlackNotifier.Notify: lookup %s: %w", msg.To, err)
	}

	// Posting to a user id opens the bot's DM with that user.
	_, _, err = n.api.PostMessageContext(ctx, user.ID,
		slacklib.MsgOptionText(msg.Subject, false),
		slacklib.MsgOptionBlocks(BuildMessageBlocks(msg)...),
	)
	if err != nil {
		return fmt.Errorf("notify.SlackNotifier.Notify: post: %w", err)
	}

	return nil
}

// BuildMessageBlocks renders msg as a header, the body and an optional link button.
func BuildMessageBlocks(msg Message) []slacklib.Block {
	blocks := []slacklib.Block{
		slacklib.NewHeaderBlock(slacklib.NewTextBlockObject(slacklib.PlainTextType, msg.Subject, false, false)),
		slacklib.NewSectionBlock(slacklib.NewTextBlockObject(slacklib.MarkdownType, msg.Body, false, false), nil, nil),
	}

	if msg.Link != "" {
		btn := slacklib.NewButtonBlockElement("open_link", "open",
			slacklib.NewTextBlockObject(slacklib.PlainTextType, "Open", false, false))
		btn.URL = msg.Link
		blocks = append(blocks, slacklib.NewActionBlock("notify_actions", btn))
	}

	return blocks
}
