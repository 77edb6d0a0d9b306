// ABOUTME: DM conversation listing, classification and fuzzy name resolution
// ABOUTME: Snowflake timestamp decoding for last-message recency

package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// discordEpochMS is the platform epoch offset embedded in snowflake
// identifiers, milliseconds since the Unix epoch (2015-01-01T00:00:00Z).
const discordEpochMS = 1420070400000

// Channel type codes on /users/@me/channels.
const (
	channelTypeDM      = 1
	channelTypeGroupDM = 3
)

// snowflakeTime decodes the creation timestamp embedded in a snowflake
// identifier. The second return value is false when the identifier does
// not parse.
func snowflakeTime(id string) (time.Time, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	ms := (n >> 22) + discordEpochMS
	return time.UnixMilli(ms).UTC(), true
}

// displayName prefers the user's global display name over the account
// username.
func displayName(u apiUser) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Unknown"
}

// DMConversations lists the account's direct-message conversations,
// classifying each remote channel by type code: 1 is a one-to-one DM,
// 3 a group DM, everything else is skipped.
func (c *Client) DMConversations(ctx context.Context, s Session) (Session, []DMConversation, error) {
	s, data, err := c.request(ctx, s, "GET", "/users/@me/channels", nil, nil, nil)
	if err != nil {
		return s, nil, err
	}

	var raw []apiChannel
	if err := json.Unmarshal(data, &raw); err != nil {
		return s, nil, fmt.Errorf("decoding dm channels: %w", err)
	}

	var conversations []DMConversation
	for _, ch := range raw {
		var conv DMConversation
		switch ch.Type {
		case channelTypeDM:
			conv = classifyDM(ch)
		case channelTypeGroupDM:
			conv = classifyGroupDM(ch)
		default:
			continue
		}

		conv.ID = ch.ID
		conv.AvatarURL = ch.Icon
		if ch.LastMessageID != "" {
			// Decode failures leave the timestamp absent.
			if ts, ok := snowflakeTime(ch.LastMessageID); ok {
				conv.LastMessage = &ts
			}
		}
		conversations = append(conversations, conv)
	}
	c.logger.Debug("listed dm conversations", "count", len(conversations))
	return s, conversations, nil
}

// classifyDM builds the record for a one-to-one conversation. The display
// name falls back from the recipient's global name to their username;
// the username is kept separately as the exact identifier.
func classifyDM(ch apiChannel) DMConversation {
	conv := DMConversation{Type: ConversationDM, RecipientCount: 1, Name: "Unknown User"}
	if len(ch.Recipients) > 0 {
		r := ch.Recipients[0]
		conv.Name = displayName(r)
		if conv.Name == "Unknown" {
			conv.Name = "Unknown User"
		}
		conv.Username = r.Username
	}
	return conv
}

// classifyGroupDM builds the record for a group conversation. An explicit
// group name wins; otherwise up to three recipient display names are
// joined, with a "+N more" suffix when the group is larger, and an empty
// recipient list yields "Unnamed Group". Groups carry no single username.
func classifyGroupDM(ch apiChannel) DMConversation {
	name := ch.Name
	if name == "" && len(ch.Recipients) > 0 {
		shown := ch.Recipients
		if len(shown) > 3 {
			shown = shown[:3]
		}
		names := make([]string, 0, len(shown))
		for _, r := range shown {
			names = append(names, displayName(r))
		}
		name = strings.Join(names, ", ")
		if extra := len(ch.Recipients) - 3; extra > 0 {
			name += fmt.Sprintf(" +%d more", extra)
		}
	}
	if name == "" {
		name = "Unnamed Group"
	}
	return DMConversation{
		Type:           ConversationGroupDM,
		Name:           name,
		RecipientCount: len(ch.Recipients),
	}
}

// MatchConversations resolves a search string against conversations,
// case-insensitively, in five priority tiers: exact username, exact
// display name, username starts-with, display-name starts-with,
// display-name contains. Username tiers dominate name tiers: the first
// matching tier wins per conversation, and the combined result is the
// tiers concatenated in priority order, original relative order preserved
// within each. Conversations without a name are skipped.
func MatchConversations(search string, conversations []DMConversation) []DMConversation {
	needle := strings.ToLower(strings.TrimSpace(search))

	var usernameExact, nameExact, usernameStarts, nameStarts, nameContains []DMConversation

	for _, conv := range conversations {
		if conv.Name == "" {
			continue
		}
		name := strings.ToLower(conv.Name)
		username := strings.ToLower(conv.Username)

		if username != "" {
			if username == needle {
				usernameExact = append(usernameExact, conv)
				continue
			}
			if strings.HasPrefix(username, needle) {
				usernameStarts = append(usernameStarts, conv)
				continue
			}
		}

		switch {
		case name == needle:
			nameExact = append(nameExact, conv)
		case strings.HasPrefix(name, needle):
			nameStarts = append(nameStarts, conv)
		case strings.Contains(name, needle):
			nameContains = append(nameContains, conv)
		}
	}

	result := make([]DMConversation, 0,
		len(usernameExact)+len(nameExact)+len(usernameStarts)+len(nameStarts)+len(nameContains))
	result = append(result, usernameExact...)
	result = append(result, nameExact...)
	result = append(result, usernameStarts...)
	result = append(result, nameStarts...)
	result = append(result, nameContains...)
	return result
}
