// ABOUTME: Domain operations over the API gateway
// ABOUTME: Guild, channel, message and DM-conversation queries and sends

package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// MaxFetchLimit is the hard per-call message cap imposed by the remote API.
const MaxFetchLimit = 100

// textChannelTypes are the channel-type codes GuildChannels keeps: text,
// voice (text-capable), announcement, threads, stage, forum and media
// channels. Categories and the rest are dropped.
var textChannelTypes = map[int]bool{
	0: true, 2: true, 5: true, 11: true, 12: true, 13: true, 15: true, 16: true,
}

// Guilds lists the servers the account belongs to.
func (c *Client) Guilds(ctx context.Context, s Session) (Session, []Guild, error) {
	s, data, err := c.request(ctx, s, "GET", "/users/@me/guilds", nil, nil, nil)
	if err != nil {
		return s, nil, err
	}

	var raw []apiGuild
	if err := json.Unmarshal(data, &raw); err != nil {
		return s, nil, fmt.Errorf("decoding guilds: %w", err)
	}

	guilds := make([]Guild, 0, len(raw))
	for _, g := range raw {
		guilds = append(guilds, Guild{ID: g.ID, Name: g.Name, Icon: g.Icon})
	}
	c.logger.Debug("listed guilds", "count", len(guilds))
	return s, guilds, nil
}

// GuildChannels lists the text-capable channels of a guild.
func (c *Client) GuildChannels(ctx context.Context, s Session, guildID string) (Session, []Channel, error) {
	s, data, err := c.request(ctx, s, "GET", "/guilds/"+guildID+"/channels", nil, nil, nil)
	if err != nil {
		return s, nil, err
	}

	var raw []apiChannel
	if err := json.Unmarshal(data, &raw); err != nil {
		return s, nil, fmt.Errorf("decoding channels: %w", err)
	}

	var channels []Channel
	for _, ch := range raw {
		if !textChannelTypes[ch.Type] {
			continue
		}
		channels = append(channels, Channel{ID: ch.ID, Name: ch.Name, Type: ch.Type, GuildID: guildID})
	}
	c.logger.Debug("listed channels", "guild_id", guildID, "count", len(channels))
	return s, channels, nil
}

// ChannelMessages fetches up to limit messages from a channel or DM
// conversation, newest first, in the order the API provides. limit is
// clamped to the remote hard maximum of 100. before and after are optional
// message-ID pagination bounds.
func (c *Client) ChannelMessages(ctx context.Context, s Session, channelID string, limit int, before, after string) (Session, []Message, error) {
	if limit > MaxFetchLimit {
		limit = MaxFetchLimit
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if before != "" {
		query.Set("before", before)
	}
	if after != "" {
		query.Set("after", after)
	}

	s, data, err := c.request(ctx, s, "GET", "/channels/"+channelID+"/messages", query, nil, nil)
	if err != nil {
		return s, nil, err
	}

	var raw []apiMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return s, nil, fmt.Errorf("decoding messages: %w", err)
	}

	messages := make([]Message, 0, len(raw))
	for _, m := range raw {
		ts, err := time.Parse(time.RFC3339, m.Timestamp)
		if err != nil {
			c.logger.Warn("unparseable message timestamp", "message_id", m.ID, "timestamp", m.Timestamp)
		}

		authorName := m.Author.Username
		if authorName == "" {
			authorName = "Unknown"
		}
		attachments := make([]string, 0, len(m.Attachments))
		for _, att := range m.Attachments {
			attachments = append(attachments, att.URL)
		}

		messages = append(messages, Message{
			ID:          m.ID,
			Content:     m.Content,
			AuthorName:  authorName,
			AuthorID:    m.Author.ID,
			ChannelID:   channelID,
			Timestamp:   ts,
			Attachments: attachments,
		})
	}
	c.logger.Debug("fetched messages", "channel_id", channelID, "count", len(messages))
	return s, messages, nil
}

// ReadRecent fetches up to maxMessages from a channel and keeps only those
// strictly newer than now minus hoursBack. The remote API has no time-range
// parameter for this, so the cutoff is applied client-side.
func (c *Client) ReadRecent(ctx context.Context, s Session, channelID string, hoursBack, maxMessages int) (Session, []Message, error) {
	cutoff := c.now().UTC().Add(-time.Duration(hoursBack) * time.Hour)

	s, all, err := c.ChannelMessages(ctx, s, channelID, maxMessages, "", "")
	if err != nil {
		return s, nil, err
	}

	recent := make([]Message, 0, len(all))
	for _, m := range all {
		if m.Timestamp.After(cutoff) {
			recent = append(recent, m)
		}
	}
	c.logger.Debug("filtered recent messages", "channel_id", channelID, "total", len(all), "recent", len(recent), "cutoff", cutoff)
	return s, recent, nil
}

// SendMessage posts a single message and returns its ID. Content must
// already fit the platform limit; chunking long content is the caller's
// job (see SplitMessage).
func (c *Client) SendMessage(ctx context.Context, s Session, channelID, content string) (Session, string, error) {
	s, data, err := c.request(ctx, s, "POST", "/channels/"+channelID+"/messages",
		nil, map[string]string{"content": content}, nil)
	if err != nil {
		return s, "", err
	}

	var msg apiMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return s, "", fmt.Errorf("decoding send response: %w", err)
	}
	c.logger.Debug("sent message", "channel_id", channelID, "message_id", msg.ID)
	return s, msg.ID, nil
}

// SendChunked splits content at the 2000-character limit and posts the
// chunks sequentially, pausing briefly between sends to reduce rate-limit
// risk. It returns the ordered message IDs.
func (c *Client) SendChunked(ctx context.Context, s Session, channelID, content string) (Session, []string, error) {
	chunks := SplitMessage(content)

	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		var id string
		var err error
		s, id, err = c.SendMessage(ctx, s, channelID, chunk)
		if err != nil {
			return s, ids, fmt.Errorf("sending chunk %d/%d: %w", i+1, len(chunks), err)
		}
		ids = append(ids, id)

		if i < len(chunks)-1 {
			select {
			case <-time.After(c.sendDelay):
			case <-ctx.Done():
				return s, ids, ctx.Err()
			}
		}
	}
	return s, ids, nil
}

// SendWithAttachment posts a message with one file attached, as a
// multipart payload_json + files[0] request. The file must exist and be
// readable; content with an attachment cannot be chunked, so the caller
// validates its length up front.
func (c *Client) SendWithAttachment(ctx context.Context, s Session, channelID, content, filePath, filename string) (Session, string, error) {
	path := ExpandHome(filePath)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, "", fmt.Errorf("file not found: %s", filePath)
		}
		return s, "", fmt.Errorf("stat %s: %w", filePath, err)
	}
	if info.IsDir() {
		return s, "", fmt.Errorf("path is not a file: %s", filePath)
	}

	fileContent, err := os.ReadFile(path)
	if err != nil {
		return s, "", fmt.Errorf("cannot read file %s: %w", filePath, err)
	}

	if filename == "" {
		filename = filepath.Base(path)
	}

	s, data, err := c.request(ctx, s, "POST", "/channels/"+channelID+"/messages",
		nil, map[string]string{"content": content}, &filePayload{name: filename, content: fileContent})
	if err != nil {
		return s, "", err
	}

	var msg apiMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return s, "", fmt.Errorf("decoding send response: %w", err)
	}
	c.logger.Debug("sent attachment message", "channel_id", channelID, "message_id", msg.ID, "filename", filename)
	return s, msg.ID, nil
}

// ExpandHome resolves a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
