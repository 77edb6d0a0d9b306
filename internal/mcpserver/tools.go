// ABOUTME: Tool definitions and handlers for the Discord MCP surface
// ABOUTME: Validation runs before the gate; domain errors become tool errors

package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/2389/discord-mcp/internal/discord"
)

// Validation bounds, matching the remote API's practical limits.
const (
	minHoursBack = 1
	maxHoursBack = 8760 // one year

	minMessages = 1
	maxMessages = 1000

	// noTimeLimitHours effectively disables time filtering when the
	// caller omits hours_back.
	noTimeLimitHours = 87600 // ten years
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("get_servers",
		mcp.WithDescription("List all Discord servers (guilds) you have access to"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetServers)

	s.mcp.AddTool(mcp.NewTool("get_channels",
		mcp.WithDescription("List all channels in a specific Discord server"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("server_id", mcp.Required(),
			mcp.Description("Discord server ID")),
	), s.handleGetChannels)

	s.mcp.AddTool(mcp.NewTool("read_messages",
		mcp.WithDescription("Read recent messages from a specific channel"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("server_id", mcp.Required(),
			mcp.Description("Discord server ID")),
		mcp.WithString("channel_id", mcp.Required(),
			mcp.Description("Discord channel ID")),
		mcp.WithNumber("max_messages", mcp.Required(),
			mcp.Description("Maximum number of messages to return (1-1000)")),
		mcp.WithNumber("hours_back",
			mcp.Description("How many hours back to look (optional, default: no time limit, range: 1-8760)")),
	), s.handleReadMessages)

	s.mcp.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to a specific Discord channel. Long messages are automatically split."),
		mcp.WithString("server_id", mcp.Required(),
			mcp.Description("Discord server ID")),
		mcp.WithString("channel_id", mcp.Required(),
			mcp.Description("Discord channel ID")),
		mcp.WithString("content", mcp.Required(),
			mcp.Description("Message text content")),
	), s.handleSendMessage)

	s.mcp.AddTool(mcp.NewTool("send_message_with_attachment",
		mcp.WithDescription("Send a message with a file attachment to a Discord channel"),
		mcp.WithString("server_id", mcp.Required(),
			mcp.Description("Discord server ID")),
		mcp.WithString("channel_id", mcp.Required(),
			mcp.Description("Discord channel ID")),
		mcp.WithString("content", mcp.Required(),
			mcp.Description("Message text content (max 2000 chars, cannot be split with an attachment)")),
		mcp.WithString("file_path", mcp.Required(),
			mcp.Description("Path to the file to attach")),
		mcp.WithString("filename",
			mcp.Description("Optional custom filename to display")),
	), s.handleSendMessageWithAttachment)

	s.mcp.AddTool(mcp.NewTool("get_dm_conversations",
		mcp.WithDescription("List all direct message conversations (1-on-1 and group DMs)"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetDMConversations)

	s.mcp.AddTool(mcp.NewTool("read_dm_messages",
		mcp.WithDescription("Read recent messages from a DM conversation by username or display name. "+
			"For best results, use the username from get_dm_conversations output."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("name", mcp.Required(),
			mcp.Description("Username (e.g. \"johndoe123\") or display name (e.g. \"John Doe\") to search for")),
		mcp.WithNumber("max_messages", mcp.Required(),
			mcp.Description("Maximum number of messages to return (1-1000)")),
		mcp.WithNumber("hours_back",
			mcp.Description("How many hours back to look (optional, default: no time limit, range: 1-8760)")),
	), s.handleReadDMMessages)
}

// validateWindow checks the shared max_messages/hours_back bounds.
// hoursBack of 0 means the argument was omitted.
func validateWindow(maxMsgs, hoursBack int) error {
	if maxMsgs < minMessages || maxMsgs > maxMessages {
		return fmt.Errorf("max_messages must be between %d and %d", minMessages, maxMessages)
	}
	if hoursBack != 0 && (hoursBack < minHoursBack || hoursBack > maxHoursBack) {
		return fmt.Errorf("hours_back must be between %d and %d (1 year)", minHoursBack, maxHoursBack)
	}
	return nil
}

func (s *Server) handleGetServers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.withSession(ctx, func(ctx context.Context, sess discord.Session) (discord.Session, any, error) {
		sess, guilds, err := s.client.Guilds(ctx, sess)
		return sess, guilds, err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	guilds := result.([]discord.Guild)
	payload := make([]map[string]string, 0, len(guilds))
	for _, g := range guilds {
		if len(s.cfg.Discord.GuildIDs) > 0 && !slices.Contains(s.cfg.Discord.GuildIDs, g.ID) {
			continue
		}
		payload = append(payload, map[string]string{"id": g.ID, "name": g.Name})
	}
	return jsonResult(payload)
}

func (s *Server) handleGetChannels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serverID, err := req.RequireString("server_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.withSession(ctx, func(ctx context.Context, sess discord.Session) (discord.Session, any, error) {
		sess, channels, err := s.client.GuildChannels(ctx, sess, serverID)
		return sess, channels, err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	channels := result.([]discord.Channel)
	payload := make([]map[string]string, 0, len(channels))
	for _, ch := range channels {
		payload = append(payload, map[string]string{
			"id":   ch.ID,
			"name": ch.Name,
			"type": strconv.Itoa(ch.Type),
		})
	}
	return jsonResult(payload)
}

func (s *Server) handleReadMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// server_id is schema-required for symmetry with get_channels but the
	// messages endpoint only needs the channel.
	if _, err := req.RequireString("server_id"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channelID, err := req.RequireString("channel_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxMsgs, err := req.RequireInt("max_messages")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hoursBack := req.GetInt("hours_back", 0)
	if err := validateWindow(maxMsgs, hoursBack); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hoursBack == 0 {
		hoursBack = noTimeLimitHours
	}

	result, err := s.withSession(ctx, func(ctx context.Context, sess discord.Session) (discord.Session, any, error) {
		sess, messages, err := s.client.ReadRecent(ctx, sess, channelID, hoursBack, maxMsgs)
		return sess, messages, err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(messagesPayload(result.([]discord.Message), ""))
}

func (s *Server) handleSendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := req.RequireString("server_id"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channelID, err := req.RequireString("channel_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content == "" {
		return mcp.NewToolResultError("message content cannot be empty"), nil
	}

	result, err := s.withSession(ctx, func(ctx context.Context, sess discord.Session) (discord.Session, any, error) {
		sess, ids, err := s.client.SendChunked(ctx, sess, channelID, content)
		return sess, ids, err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ids := result.([]string)
	return jsonResult(map[string]any{
		"message_ids":  ids,
		"status":       "sent",
		"chunks":       len(ids),
		"total_length": len(content),
	})
}

func (s *Server) handleSendMessageWithAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := req.RequireString("server_id"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channelID, err := req.RequireString("channel_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filePath, err := req.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", "")

	if len(content) > discord.MaxMessageLength {
		return mcp.NewToolResultError(fmt.Sprintf(
			"message content exceeds the %d character limit (%d chars); "+
				"messages with attachments cannot be split, please shorten your message",
			discord.MaxMessageLength, len(content))), nil
	}

	result, err := s.withSession(ctx, func(ctx context.Context, sess discord.Session) (discord.Session, any, error) {
		sess, id, err := s.client.SendWithAttachment(ctx, sess, channelID, content, filePath, filename)
		return sess, id, err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved := discord.ExpandHome(filePath)
	var fileSize int64
	if info, statErr := os.Stat(resolved); statErr == nil {
		fileSize = info.Size()
	}
	if filename == "" {
		filename = filepath.Base(resolved)
	}

	return jsonResult(map[string]any{
		"message_id": result.(string),
		"status":     "sent",
		"file_size":  fileSize,
		"filename":   filename,
	})
}

func (s *Server) handleGetDMConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.withSession(ctx, func(ctx context.Context, sess discord.Session) (discord.Session, any, error) {
		sess, conversations, err := s.client.DMConversations(ctx, sess)
		return sess, conversations, err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conversations := result.([]discord.DMConversation)
	payload := make([]map[string]any, 0, len(conversations))
	for _, conv := range conversations {
		payload = append(payload, conversationPayload(conv))
	}
	return jsonResult(payload)
}

// dmReadResult carries both halves of a read_dm_messages invocation out
// of the gate: the resolved matches and, when unambiguous, the messages.
type dmReadResult struct {
	matches  []discord.DMConversation
	messages []discord.Message
}

func (s *Server) handleReadDMMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("name cannot be empty"), nil
	}
	maxMsgs, err := req.RequireInt("max_messages")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hoursBack := req.GetInt("hours_back", 0)
	if err := validateWindow(maxMsgs, hoursBack); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hoursBack == 0 {
		hoursBack = noTimeLimitHours
	}

	// Listing, matching and reading all happen under one gate hold so a
	// concurrent invocation cannot slip between resolution and read.
	result, err := s.withSession(ctx, func(ctx context.Context, sess discord.Session) (discord.Session, any, error) {
		sess, conversations, err := s.client.DMConversations(ctx, sess)
		if err != nil {
			return sess, nil, err
		}

		matches := discord.MatchConversations(name, conversations)
		if len(matches) != 1 {
			return sess, &dmReadResult{matches: matches}, nil
		}

		sess, messages, err := s.client.ReadRecent(ctx, sess, matches[0].ID, hoursBack, maxMsgs)
		if err != nil {
			return sess, nil, err
		}
		return sess, &dmReadResult{matches: matches, messages: messages}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	read := result.(*dmReadResult)
	switch len(read.matches) {
	case 0:
		return mcp.NewToolResultError(fmt.Sprintf(
			"no DM conversation found matching %q; use get_dm_conversations to see available conversations", name)), nil
	case 1:
		return jsonResult(messagesPayload(read.messages, read.matches[0].Name))
	default:
		return jsonResult([]map[string]any{multipleMatchesPayload(name, read.matches)})
	}
}

// conversationPayload renders one DM conversation; absent fields are
// explicit nulls so callers can rely on the keys being present.
func conversationPayload(c discord.DMConversation) map[string]any {
	payload := map[string]any{
		"id":                     c.ID,
		"name":                   c.Name,
		"username":               nil,
		"type":                   c.Type,
		"recipient_count":        c.RecipientCount,
		"last_message_timestamp": nil,
		"avatar_url":             nil,
	}
	if c.Username != "" {
		payload["username"] = c.Username
	}
	if c.LastMessage != nil {
		payload["last_message_timestamp"] = c.LastMessage.Format(time.RFC3339)
	}
	if c.AvatarURL != "" {
		payload["avatar_url"] = c.AvatarURL
	}
	return payload
}

// multipleMatchesPayload is the disambiguation object returned when a
// DM search resolves to more than one conversation. The suggestion
// prefers the exact username over the display name.
func multipleMatchesPayload(searchTerm string, matches []discord.DMConversation) map[string]any {
	options := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		option := conversationPayload(m)
		delete(option, "avatar_url")
		if m.Username != "" {
			option["suggestion"] = m.Username
		} else {
			option["suggestion"] = m.Name
		}
		options = append(options, option)
	}
	return map[string]any{
		"multiple_matches_found": true,
		"search_term":            searchTerm,
		"message": fmt.Sprintf(
			"Found %d conversations matching %q. Please use the exact username or full display name from the options below.",
			len(matches), searchTerm),
		"options": options,
	}
}

// messagesPayload renders messages for tool output. conversationName,
// when non-empty, is attached to each message for context.
func messagesPayload(messages []discord.Message, conversationName string) []map[string]any {
	payload := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		entry := map[string]any{
			"id":          m.ID,
			"content":     m.Content,
			"author_name": m.AuthorName,
			"timestamp":   m.Timestamp.Format(time.RFC3339),
			"attachments": m.Attachments,
		}
		if conversationName != "" {
			entry["conversation_name"] = conversationName
		}
		payload = append(payload, entry)
	}
	return payload
}
