package ticket

import (
	"context"
	"time"
)

// ChannelRequest describes a private ticket channel. Only the owner and the
// support roles can see it.
type ChannelRequest struct {
	GuildID        string
	ParentID       string
	Name           string
	Topic          string
	OwnerID        string
	SupportRoleIDs []string
}

// Welcome is the first message of a ticket channel, carrying the close and
// transcript buttons.
type Welcome struct {
	Number   int
	OwnerID  string
	Category string
	Message  string
}

// Message is one chat message as seen in a transcript.
type Message struct {
	Author    string
	Content   string
	Timestamp time.Time
}

// Attachment is a file sent alongside a message.
type Attachment struct {
	Name    string
	Content []byte
}

// Platform is the chat service hosting ticket channels. Every call may block
// on the network; the manager bounds each with its call timeout.
type Platform interface {
	CreatePrivateChannel(ctx context.Context, req ChannelRequest) (channelID string, err error)
	SendWelcome(ctx context.Context, channelID string, w Welcome) error
	SendMessage(ctx context.Context, channelID, content string, attachment *Attachment) error
	SendDirectMessage(ctx context.Context, userID, content string, attachment *Attachment) error
	// FetchHistory returns up to limit of the channel's most recent messages
	// in any order.
	FetchHistory(ctx context.Context, channelID string, limit int) ([]Message, error)
	DeleteChannel(ctx context.Context, channelID string) error
	ChannelExists(ctx context.Context, channelID string) (bool, error)
}
