package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Pulau-Komodo/chatbot/dao"
)

// ConversationController exposes direct exchange-graph operations.
type ConversationController struct {
	convoDAO *dao.ConversationDAO
}

func NewConversationController(convoDAO *dao.ConversationDAO) *ConversationController {
	return &ConversationController{convoDAO: convoDAO}
}

// GetConversation handles GET /conversations/:id.
func (c *ConversationController) GetConversation(ctx *gin.Context) {
	message, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	node, err := c.convoDAO.Get(message)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, node)
}

// Sever handles DELETE /conversations/:id/parent: the transport calls this
// when the platform-side message a node replied to is no longer a valid
// anchor. Idempotent.
func (c *ConversationController) Sever(ctx *gin.Context) {
	message, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := c.convoDAO.Sever(message); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"severed": message})
}
