package httpapi

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"

	"github.com/recipebox/recipebox/internal/chat"
)

// Websocket frame types sent to the client.
const (
	frameProgress = "progress"
	frameReply    = "reply"
	frameError    = "error"
)

type frame struct {
	Type            string   `json:"type"`
	Content         string   `json:"content,omitempty"`
	ConversationID  string   `json:"conversation_id,omitempty"`
	Reply           string   `json:"reply,omitempty"`
	ToolsUsed       []string `json:"tools_used,omitempty"`
	NewConversation bool     `json:"new_conversation,omitempty"`
	Error           string   `json:"error,omitempty"`
}

func replyFrame(r chat.Reply) frame {
	return frame{
		Type:            frameReply,
		ConversationID:  r.ConversationID,
		Reply:           r.Text,
		ToolsUsed:       r.ToolsUsed,
		NewConversation: r.NewConversation,
	}
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(s.opts.CORSOrigins) == 0 {
				return true
			}
			return slices.Contains(s.opts.CORSOrigins, r.Header.Get("Origin"))
		},
	}
}

// chatSocket runs turns for one websocket connection. Each client frame is a
// chatRequest; a frame without conversation_id continues the conversation
// the socket last used.
func (s *Server) chatSocket(c *gin.Context) {
	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	current := ""
	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Websocket closed", "err", err)
			}
			return
		}
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			if err := conn.WriteJSON(frame{Type: frameError, Error: err.Error()}); err != nil {
				return
			}
			continue
		}
		if req.ConversationID == "" {
			req.ConversationID = current
		}

		progress := func(text string) {
			if err := conn.WriteJSON(frame{Type: frameProgress, Content: text}); err != nil {
				slog.Debug("Websocket progress write failed", "err", err)
			}
		}
		reply, err := s.chat.Send(ctx, req.ConversationID, req.blocks(), progress)
		if reply.ConversationID != "" {
			current = reply.ConversationID
		}

		out := replyFrame(reply)
		if err != nil {
			out = frame{Type: frameError, ConversationID: reply.ConversationID, Error: err.Error()}
		}
		if err := conn.WriteJSON(out); err != nil {
			slog.Debug("Websocket write failed", "err", err)
			return
		}
	}
}
