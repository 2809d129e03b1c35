// Package channel adapts the external chat platform (Slack) into the two
// things the request/task core needs: an inbound ChatEvent stream and an
// outbound Poster for replies, reactions, and cron deliveries.
package channel

import "context"

// ChatEvent is one inbound message, already stripped of platform-specific
// envelope fields the core doesn't need.
type ChatEvent struct {
	WorkspaceID string
	ChannelID   string
	UserID      string
	ThreadTS    string // empty if this message starts a new thread
	MessageTS   string
	Text        string
	IsDM        bool
	IsMention   bool
}

// Blocks is a structured, platform-native message body (e.g. Slack Block
// Kit), carried as already-marshaled JSON so callers that built it via
// json.Marshal don't need this package to know its schema.
type Blocks = []byte

// Poster is the outbound surface every delivery path (agent reply, cron
// delivery, HITL approval prompt) goes through.
type Poster interface {
	// PostText sends plain text to channelID, optionally as a thread reply
	// when threadTS is non-empty.
	PostText(ctx context.Context, channelID, threadTS, text string) (messageTS string, err error)
	// PostBlocks sends a structured block-kit body to channelID.
	PostBlocks(ctx context.Context, channelID, threadTS string, blocks Blocks) (messageTS string, err error)
	// React adds an emoji reaction to an existing message.
	React(ctx context.Context, channelID, messageTS, emoji string) error
}

// Listener is implemented by an adapter that can stream inbound ChatEvents.
type Listener interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Events() <-chan ChatEvent
}

// InteractionEvent is one inbound interactive-component action: a click on a
// button Lucy posted, most commonly an HITL approve/deny decision.
type InteractionEvent struct {
	WorkspaceID string
	ChannelID   string
	ThreadTS    string
	UserID      string
	ActionID    string // the button's fixed action_id, e.g. "hitl_approve"
	Value       string // the button's value, e.g. the signed HITL action_id
}
