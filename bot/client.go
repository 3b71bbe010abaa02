package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"github.com/qatools/qabot/engine"
	"github.com/qatools/qabot/utils/pkg/retry"
)

// Client wraps the Slack API client with the operations the bot needs.
type Client struct {
	api       *slack.Client
	botUserID string
	log       *slog.Logger
}

// NewClient creates a new Slack client
func NewClient(botToken, appToken string, log *slog.Logger) *Client {
	var api *slack.Client
	if appToken != "" {
		api = slack.New(botToken, slack.OptionAppLevelToken(appToken))
	} else {
		api = slack.New(botToken)
	}

	return &Client{
		api: api,
		log: log,
	}
}

// API returns the underlying Slack API client
func (c *Client) API() *slack.Client {
	return c.api
}

// Initialize performs initial setup like auth test and returns the bot user ID
func (c *Client) Initialize(ctx context.Context) (string, error) {
	authTest, err := c.api.AuthTestContext(ctx)
	if err != nil {
		c.log.Warn("slack auth test failed", "error", err)
		return "", err
	}

	c.botUserID = authTest.UserID
	c.log.Info("slack auth test successful", "user_id", authTest.UserID, "team", authTest.Team, "bot_id", authTest.BotID)
	return c.botUserID, nil
}

// BotUserID returns the bot's user ID
func (c *Client) BotUserID() string {
	return c.botUserID
}

// IsBotMentioned checks if the bot is mentioned in the given text
func (c *Client) IsBotMentioned(text string) bool {
	if c.botUserID == "" {
		return false
	}
	mentionPattern1 := fmt.Sprintf("<@%s>", c.botUserID)
	mentionPattern2 := fmt.Sprintf("<@%s|", c.botUserID)
	return strings.Contains(text, mentionPattern1) || strings.Contains(text, mentionPattern2)
}

// RemoveBotMention removes bot mention from text for cleaner processing
func (c *Client) RemoveBotMention(text string) string {
	if c.botUserID == "" {
		return text
	}
	mentionPattern1 := fmt.Sprintf("<@%s>", c.botUserID)
	text = strings.ReplaceAll(text, mentionPattern1, "")
	// Handle <@USERID|username> format
	mentionPattern2 := fmt.Sprintf("<@%s|", c.botUserID)
	if strings.Contains(text, mentionPattern2) {
		re := regexp.MustCompile(fmt.Sprintf(`<@%s\|[^>]+>`, regexp.QuoteMeta(c.botUserID)))
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// SendReply posts one engine reply to the channel: the text as a section
// block plus the keyboard as button rows. Transient failures are retried
// here at the transport's discretion; the engine never retries a turn.
func (c *Client) SendReply(ctx context.Context, channelID string, reply engine.Reply) error {
	opts := []slack.MsgOption{
		slack.MsgOptionBlocks(replyBlocks(reply)...),
		slack.MsgOptionText(reply.Text, false),
	}

	retryCfg := retry.DefaultConfig()
	err := retry.Do(ctx, retryCfg, func() error {
		_, _, err := c.api.PostMessageContext(ctx, channelID, opts...)
		return err
	})
	if err != nil {
		SlackAPIErrorsTotal.WithLabelValues("post_message").Inc()
		return fmt.Errorf("failed to post message after retries: %w", err)
	}
	return nil
}

// replyBlocks renders a reply as Block Kit blocks: one markdown section
// and one actions block per keyboard row.
func replyBlocks(reply engine.Reply) []slack.Block {
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, reply.Text, false, false),
			nil, nil,
		),
	}
	for i, row := range reply.Keyboard {
		elements := make([]slack.BlockElement, 0, len(row))
		for j, label := range row {
			actionID := fmt.Sprintf("kb_%d_%d", i, j)
			btn := slack.NewButtonBlockElement(actionID, label,
				slack.NewTextBlockObject(slack.PlainTextType, label, true, false))
			elements = append(elements, btn)
		}
		blocks = append(blocks, slack.NewActionBlock(fmt.Sprintf("keyboard_%d", i), elements...))
	}
	return blocks
}
