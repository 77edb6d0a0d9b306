// ABOUTME: Value records mirroring Discord REST entities
// ABOUTME: Constructed from parsed API responses, never mutated

package discord

import "time"

// Guild is a Discord server the account belongs to.
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Channel is a guild channel. Only text-capable channel types survive
// GuildChannels filtering.
type Channel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    int    `json:"type"`
	GuildID string `json:"guild_id,omitempty"`
}

// Message is a single channel or DM message.
type Message struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	AuthorName  string    `json:"author_name"`
	AuthorID    string    `json:"author_id"`
	ChannelID   string    `json:"channel_id"`
	Timestamp   time.Time `json:"timestamp"`
	Attachments []string  `json:"attachments"`
}

// DM conversation kinds as reported in DMConversation.Type.
const (
	ConversationDM      = "dm"
	ConversationGroupDM = "group_dm"
)

// DMConversation is a direct-message conversation, either one-to-one or a
// group. Username is the recipient's account name for one-to-one DMs and
// empty for groups; Name is the human-facing display name. LastMessage is
// decoded from the snowflake identifier of the newest message and is nil
// when the conversation has none or the identifier does not parse.
type DMConversation struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Username       string     `json:"username,omitempty"`
	Type           string     `json:"type"`
	RecipientCount int        `json:"recipient_count"`
	LastMessage    *time.Time `json:"last_message_timestamp,omitempty"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
}

// Raw wire shapes. These mirror the JSON Discord returns and are decoded
// once, then converted to the exported records above.

type apiUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

type apiGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type apiChannel struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          int       `json:"type"`
	Recipients    []apiUser `json:"recipients"`
	LastMessageID string    `json:"last_message_id"`
	Icon          string    `json:"icon"`
}

type apiAttachment struct {
	URL string `json:"url"`
}

type apiMessage struct {
	ID          string          `json:"id"`
	Content     string          `json:"content"`
	Author      apiUser         `json:"author"`
	Timestamp   string          `json:"timestamp"`
	Attachments []apiAttachment `json:"attachments"`
}
