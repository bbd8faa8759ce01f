package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/civicreport/internal/client/client"
	"github.com/dmitrijs2005/civicreport/internal/client/session"
	"github.com/dmitrijs2005/civicreport/internal/logging"
)

const (
	ChatConnectionError = "Sorry, I'm having trouble connecting. Please try again later."
	ChatEmptyResponse   = "Sorry, I couldn't process your request."
	ChatLoginHint       = "Please sign in (/auth) so I can look up your reports."
	ChatGreeting        = "Hi! I can check ticket status, list your reports and tell you which department handles what. Type \"help\" to see examples."
)

// Chatbot is the assistant transport.
type Chatbot interface {
	SendQuery(ctx context.Context, query, userID string) (*client.ChatReply, error)
}

// ChatMessage is one line of the conversation.
type ChatMessage struct {
	FromBot bool
	Text    string
}

// ChatService keeps the conversation and never surfaces transport errors:
// every failure becomes an apology message.
type ChatService struct {
	bot     Chatbot
	store   *session.Store
	logger  logging.Logger
	history []ChatMessage
}

func NewChatService(bot Chatbot, store *session.Store, logger logging.Logger) *ChatService {
	return &ChatService{
		bot:     bot,
		store:   store,
		logger:  logger.With("module", "chat"),
		history: []ChatMessage{{FromBot: true, Text: ChatGreeting}},
	}
}

// Ask sends query and returns the bot's answer, already appended to the
// history. Blank queries are ignored.
func (c *ChatService) Ask(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	c.history = append(c.history, ChatMessage{Text: query})

	var userID string
	if st := c.store.Snapshot(); st.IsAuthenticated() {
		userID = st.Session.ID
	}

	answer := c.answer(ctx, query, userID)
	c.history = append(c.history, ChatMessage{FromBot: true, Text: answer})
	return answer
}

func (c *ChatService) answer(ctx context.Context, query, userID string) string {
	reply, err := c.bot.SendQuery(ctx, query, userID)
	if errors.Is(err, client.ErrUnauthorized) {
		return ChatLoginHint
	}
	if err != nil {
		c.logger.Warn(ctx, "chatbot query failed", "error", err)
		return ChatConnectionError
	}

	text := strings.TrimSpace(reply.Response)
	if text == "" {
		text = ChatEmptyResponse
	}
	if reply.RequiresAuth && userID == "" {
		text += "\n" + ChatLoginHint
	}
	return text
}

// History returns a copy of the conversation so far.
func (c *ChatService) History() []ChatMessage {
	out := make([]ChatMessage, len(c.history))
	copy(out, c.history)
	return out
}
