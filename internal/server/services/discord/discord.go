package discord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"newsrelay/internal/core"
	"newsrelay/internal/features/relay/models"
)

// Client delivers notifications to chat channels and listens for commands
type Client struct {
	session     *discordgo.Session
	limiter     *rate.Limiter
	openTimeout time.Duration
	logger      *core.Logger
}

// New creates a client for a bot token. Nothing is sent until Open is called.
func New(token string, sendRate float64, openTimeout time.Duration, logger *core.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Client = &http.Client{
		Timeout: 20 * time.Second,
	}
	session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	burst := int(sendRate)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		session:     session,
		limiter:     rate.NewLimiter(rate.Limit(sendRate), burst),
		openTimeout: openTimeout,
		logger:      logger,
	}, nil
}

// Open connects to the gateway, retrying with exponential backoff until the
// open timeout elapses
func (c *Client) Open(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.openTimeout

	attempt := 0
	operation := func() error {
		attempt++
		return c.session.Open()
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Discord gateway connection failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed to open discord session after %d attempts: %w", attempt, err)
	}

	if c.session.State != nil && c.session.State.User != nil {
		c.logger.Info("Connected to discord", "user", c.session.State.User.Username)
	}
	return nil
}

// Close disconnects from the gateway
func (c *Client) Close() error {
	return c.session.Close()
}

// ResolveChannel looks the channel up in the gateway cache, then over REST
func (c *Client) ResolveChannel(ctx context.Context, channelID string) (models.Destination, error) {
	channel, err := c.session.State.Channel(channelID)
	if err != nil {
		channel, err = c.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return models.Destination{}, fmt.Errorf("channel %s not found: %w", channelID, err)
		}
	}

	if !canPost(channel.Type) {
		return models.Destination{}, fmt.Errorf("channel %s (%s) does not accept messages", channelID, channel.Name)
	}

	return models.Destination{ChannelID: channel.ID, Name: channel.Name}, nil
}

// Send posts a notification as an embed, waiting on the send limiter first
func (c *Client) Send(ctx context.Context, dest models.Destination, n models.Notification) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limiter: %w", err)
	}

	if _, err := c.session.ChannelMessageSendEmbed(dest.ChannelID, Embed(n), discordgo.WithContext(ctx)); err != nil {
		return err
	}

	c.logger.Debug("Notification sent", "channel", dest.ChannelID, "title", n.Title)
	return nil
}

// Reply posts a plain text message
func (c *Client) Reply(ctx context.Context, channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

// Latency returns the last gateway heartbeat round trip
func (c *Client) Latency() time.Duration {
	return c.session.HeartbeatLatency()
}

// UserID returns the bot's own user id, empty before Open
func (c *Client) UserID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

// OnMessage registers fn for every created message and returns a function
// that removes it
func (c *Client) OnMessage(fn func(channelID, authorID, content string)) func() {
	return c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		fn(m.ChannelID, m.Author.ID, m.Content)
	})
}

// Embed converts a notification into a discord embed
func Embed(n models.Notification) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		URL:         n.URL,
		Description: n.Description,
		Color:       n.Color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: n.Footer,
		},
	}

	if !n.Timestamp.IsZero() {
		embed.Timestamp = n.Timestamp.UTC().Format(time.RFC3339)
	}

	if n.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: n.ImageURL}
	}

	return embed
}

func canPost(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildCategory, discordgo.ChannelTypeGuildForum:
		return false
	default:
		return true
	}
}
