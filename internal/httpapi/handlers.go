package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/recipebox/recipebox/internal/chat"
	"github.com/recipebox/recipebox/internal/schema"
)

// chatRequest is the body of POST /api/chat and of websocket frames.
type chatRequest struct {
	ConversationID string       `json:"conversation_id" binding:"omitempty,max=200"`
	Message        string       `json:"message" binding:"required_without=Images"`
	Images         []imageInput `json:"images" binding:"omitempty,max=8,dive"`
}

type imageInput struct {
	MediaType string `json:"media_type" binding:"required,oneof=image/jpeg image/png image/gif image/webp"`
	Data      string `json:"data" binding:"required,base64"`
}

func (r *chatRequest) blocks() []schema.ContentBlock {
	var out []schema.ContentBlock
	if strings.TrimSpace(r.Message) != "" {
		out = append(out, schema.TextBlock(r.Message))
	}
	for _, img := range r.Images {
		out = append(out, schema.ImageBlock(img.MediaType, img.Data))
	}
	return out
}

type historyResponse struct {
	ConversationID string           `json:"conversation_id"`
	Messages       []schema.Message `json:"messages"`
}

func (s *Server) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := s.chat.Send(c.Request.Context(), req.ConversationID, req.blocks(), nil)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error(), "conversation_id": reply.ConversationID})
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) getHistory(c *gin.Context) {
	id := c.Param("id")
	msgs, ok := s.chat.History(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, historyResponse{ConversationID: id, Messages: msgs})
}

func (s *Server) deleteChat(c *gin.Context) {
	s.chat.Reset(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// errorStatus maps a failed turn to an HTTP status.
func errorStatus(err error) int {
	if errors.Is(err, chat.ErrEmptyMessage) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
