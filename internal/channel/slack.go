package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// SlackConfig holds the credentials a SlackAdapter needs.
type SlackConfig struct {
	BotToken string // xoxb-...
	AppToken string // xapp-..., required for socket mode
	// WorkspaceID maps this Slack team to a workspace root; the adapter
	// itself is single-workspace, matching one socket-mode connection per
	// team.
	WorkspaceID string
}

// SlackAdapter implements Listener and Poster against a single Slack
// workspace over Socket Mode.
type SlackAdapter struct {
	cfg    SlackConfig
	client *slack.Client
	socket *socketmode.Client
	logger *slog.Logger

	events       chan ChatEvent
	interactions chan InteractionEvent

	mu        sync.RWMutex
	botUserID string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewSlackAdapter builds an adapter that has not yet connected.
func NewSlackAdapter(cfg SlackConfig, logger *slog.Logger) *SlackAdapter {
	client := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	socket := socketmode.New(client)
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackAdapter{
		cfg:          cfg,
		client:       client,
		socket:       socket,
		logger:       logger.With("component", "slack_adapter", "workspace_id", cfg.WorkspaceID),
		events:       make(chan ChatEvent, 100),
		interactions: make(chan InteractionEvent, 100),
	}
}

// Start authenticates, resolves the bot's own user id (needed to detect
// @-mentions), and begins consuming socket-mode events in the background.
func (a *SlackAdapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	auth, err := a.client.AuthTestContext(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("slack auth test: %w", err)
	}
	a.mu.Lock()
	a.botUserID = auth.UserID
	a.mu.Unlock()

	a.wg.Add(1)
	go a.consume(runCtx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.socket.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			a.logger.Error("socket mode run exited", "error", err)
		}
	}()

	return nil
}

// Stop cancels the socket-mode connection and waits for its goroutines.
func (a *SlackAdapter) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the inbound ChatEvent stream.
func (a *SlackAdapter) Events() <-chan ChatEvent {
	return a.events
}

// Interactions returns the inbound block-action stream: button clicks on
// messages Lucy posted, most commonly an HITL approve/deny decision.
func (a *SlackAdapter) Interactions() <-chan InteractionEvent {
	return a.interactions
}

func (a *SlackAdapter) consume(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.socket.Events:
			if !ok {
				return
			}
			switch ev.Type {
			case socketmode.EventTypeEventsAPI:
				a.handleEventsAPI(ctx, ev)
			case socketmode.EventTypeInteractive:
				a.handleInteractive(ctx, ev)
			case socketmode.EventTypeSlashCommand:
				if ev.Request != nil {
					a.socket.Ack(*ev.Request)
				}
			}
		}
	}
}

func (a *SlackAdapter) handleEventsAPI(ctx context.Context, ev socketmode.Event) {
	outer, ok := ev.Data.(slackevents.EventsAPIEvent)
	if !ok {
		if ev.Request != nil {
			a.socket.Ack(*ev.Request)
		}
		return
	}
	if ev.Request != nil {
		a.socket.Ack(*ev.Request)
	}

	if outer.Type != slackevents.CallbackEvent {
		return
	}
	switch inner := outer.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		a.emit(ctx, ChatEvent{
			WorkspaceID: a.cfg.WorkspaceID,
			ChannelID:   inner.Channel,
			UserID:      inner.User,
			ThreadTS:    inner.ThreadTimeStamp,
			MessageTS:   inner.TimeStamp,
			Text:        a.stripMention(inner.Text),
			IsMention:   true,
		})
	case *slackevents.MessageEvent:
		if inner.BotID != "" {
			return
		}
		if inner.SubType != "" && inner.SubType != "file_share" {
			return
		}
		isDM := strings.HasPrefix(inner.Channel, "D")
		isMention := strings.Contains(inner.Text, "<@"+a.selfID()+">")
		if !isDM && !isMention && inner.ThreadTimeStamp == "" {
			return
		}
		a.emit(ctx, ChatEvent{
			WorkspaceID: a.cfg.WorkspaceID,
			ChannelID:   inner.Channel,
			UserID:      inner.User,
			ThreadTS:    inner.ThreadTimeStamp,
			MessageTS:   inner.TimeStamp,
			Text:        a.stripMention(inner.Text),
			IsDM:        isDM,
			IsMention:   isMention,
		})
	}
}

// handleInteractive parses a Slack block-action payload (a button click on a
// message Lucy posted) and emits one InteractionEvent per action. Anything
// that isn't a recognized interaction callback is acked and dropped.
func (a *SlackAdapter) handleInteractive(ctx context.Context, ev socketmode.Event) {
	cb, ok := ev.Data.(slack.InteractionCallback)
	if !ok {
		if ev.Request != nil {
			a.socket.Ack(*ev.Request)
		}
		return
	}
	if ev.Request != nil {
		a.socket.Ack(*ev.Request)
	}

	threadTS := cb.Message.ThreadTimestamp
	if threadTS == "" {
		threadTS = cb.Message.Timestamp
	}
	for _, action := range cb.ActionCallback.BlockActions {
		a.emitInteraction(ctx, InteractionEvent{
			WorkspaceID: a.cfg.WorkspaceID,
			ChannelID:   cb.Channel.ID,
			ThreadTS:    threadTS,
			UserID:      cb.User.ID,
			ActionID:    action.ActionID,
			Value:       action.Value,
		})
	}
}

func (a *SlackAdapter) emitInteraction(ctx context.Context, ev InteractionEvent) {
	select {
	case a.interactions <- ev:
	case <-ctx.Done():
	default:
		a.logger.Warn("dropping interaction event, channel full", "action_id", ev.ActionID)
	}
}

func (a *SlackAdapter) selfID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.botUserID
}

func (a *SlackAdapter) stripMention(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "<@"+a.selfID()+">", ""))
}

func (a *SlackAdapter) emit(ctx context.Context, ev ChatEvent) {
	select {
	case a.events <- ev:
	case <-ctx.Done():
	default:
		a.logger.Warn("dropping chat event, channel full", "channel_id", ev.ChannelID)
	}
}

// PostText sends a plain-text reply, threaded when threadTS is non-empty.
func (a *SlackAdapter) PostText(ctx context.Context, channelID, threadTS, text string) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := a.client.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("slack post text: %w", err)
	}
	return ts, nil
}

// PostBlocks sends a pre-marshaled Block Kit body.
func (a *SlackAdapter) PostBlocks(ctx context.Context, channelID, threadTS string, blocks Blocks) (string, error) {
	var parsed slack.Blocks
	if err := parsed.UnmarshalJSON(blocks); err != nil {
		return "", fmt.Errorf("slack parse blocks: %w", err)
	}
	opts := []slack.MsgOption{slack.MsgOptionBlocks(parsed.BlockSet...)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := a.client.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("slack post blocks: %w", err)
	}
	return ts, nil
}

// React adds an emoji reaction to an existing message.
func (a *SlackAdapter) React(ctx context.Context, channelID, messageTS, emoji string) error {
	err := a.client.AddReactionContext(ctx, emoji, slack.ItemRef{Channel: channelID, Timestamp: messageTS})
	if err != nil {
		return fmt.Errorf("slack react: %w", err)
	}
	return nil
}
