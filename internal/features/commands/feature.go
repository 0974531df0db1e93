package commands

import (
	"context"
	"time"

	"newsrelay/internal/core"
)

const replyTimeout = 10 * time.Second

// ChatListener is the part of the chat client commands use
type ChatListener interface {
	OnMessage(fn func(channelID, authorID, content string)) func()
	Reply(ctx context.Context, channelID, content string) error
	UserID() string
	Latency() time.Duration
}

// Feature answers chat commands about the relay
type Feature struct {
	*core.BaseFeature
	chat    ChatListener
	handler *Handler
	remove  func()
}

// NewFeature creates the chat commands feature
func NewFeature(logger *core.Logger, chat ChatListener, relay RelayInfo, prefix string, enabled bool) *Feature {
	return &Feature{
		BaseFeature: core.NewBaseFeature("commands", "Chat commands", enabled, logger),
		chat:        chat,
		handler:     NewHandler(prefix, relay, chat.Latency),
	}
}

// Init subscribes to chat messages
func (f *Feature) Init(ctx context.Context) error {
	if err := f.BaseFeature.Init(ctx); err != nil {
		return err
	}

	f.remove = f.chat.OnMessage(f.onMessage)
	return nil
}

func (f *Feature) onMessage(channelID, authorID, content string) {
	if authorID == f.chat.UserID() {
		return
	}

	reply, ok := f.handler.Handle(content)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	if err := f.chat.Reply(ctx, channelID, reply); err != nil {
		f.Logger().Error("Failed to send command reply", "channel", channelID, "error", err)
	}
}

// Shutdown unsubscribes from chat messages
func (f *Feature) Shutdown(ctx context.Context) error {
	if f.remove != nil {
		f.remove()
	}
	return f.BaseFeature.Shutdown(ctx)
}
