package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pulau-Komodo/chatbot/logic"
)

// UserController handles transport authentication.
type UserController struct {
	userLogic *logic.UserLogic
}

func NewUserController(userLogic *logic.UserLogic) *UserController {
	return &UserController{userLogic: userLogic}
}

// Login handles POST /user/login: an ed25519 signature proof in exchange
// for a JWT bound to a platform user id.
func (c *UserController) Login(ctx *gin.Context) {
	type Request struct {
		User      uint64 `json:"user" binding:"required"`
		PublicKey string `json:"public_key" binding:"required"`
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, expireAt, err := c.userLogic.Login(req.User, req.PublicKey, req.Message, req.Signature)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expire_at": expireAt,
	})
}
