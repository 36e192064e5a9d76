package controller

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pulau-Komodo/chatbot/logic"
	"github.com/Pulau-Komodo/chatbot/middleware"
	"github.com/Pulau-Komodo/chatbot/pkg"
)

// TriggerController handles the admission pipeline endpoints.
type TriggerController struct {
	admission *logic.Admission
	ledger    *logic.Ledger
}

func NewTriggerController(admission *logic.Admission, ledger *logic.Ledger) *TriggerController {
	return &TriggerController{admission: admission, ledger: ledger}
}

// HandleTrigger handles POST /triggers: runs resolve, estimate, reserve,
// complete and reconcile, returning the completion output and billing.
func (c *TriggerController) HandleTrigger(ctx *gin.Context) {
	var trigger logic.Trigger
	if err := ctx.ShouldBindJSON(&trigger); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := middleware.UserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "no authenticated user"})
		return
	}
	trigger.User = user

	result, err := c.admission.HandleTrigger(ctx.Request.Context(), trigger)
	if err != nil {
		c.renderTriggerError(ctx, user, err)
		return
	}

	observeExchange(result.InputTokens, result.OutputTokens, result.Cost)
	ctx.JSON(http.StatusOK, result)
}

// HandleOneOff handles POST /oneoffs/:name: a configured single-shot
// command, billed but never stored as a conversation node.
func (c *TriggerController) HandleOneOff(ctx *gin.Context) {
	type Request struct {
		Input string `json:"input" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := middleware.UserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "no authenticated user"})
		return
	}

	result, err := c.admission.HandleOneOff(ctx.Request.Context(), user, ctx.Param("name"), req.Input)
	if err != nil {
		if errors.Is(err, logic.ErrUnknownCommand) {
			triggersTotal.WithLabelValues(outcomeIgnored).Inc()
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.renderTriggerError(ctx, user, err)
		return
	}

	triggersTotal.WithLabelValues(outcomeAccepted).Inc()
	if result.Cost > 0 {
		nanodollarsSpentTotal.Add(float64(result.Cost))
	}
	ctx.JSON(http.StatusOK, result)
}

// CommitExchange handles POST /exchanges: the transport reports the id of
// the message it sent, and the parked exchange becomes a conversation node.
func (c *TriggerController) CommitExchange(ctx *gin.Context) {
	type Request struct {
		CorrelationID uuid.UUID `json:"correlation_id" binding:"required"`
		Message       uint64    `json:"message" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := c.admission.CommitExchange(req.CorrelationID, req.Message)
	if err != nil {
		if errors.Is(err, logic.ErrUnknownExchange) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, node)
}

func (c *TriggerController) renderTriggerError(ctx *gin.Context, user uint64, err error) {
	switch {
	case errors.Is(err, logic.ErrNotAddressed):
		// Not a failure; the transport just drops the event.
		triggersTotal.WithLabelValues(outcomeIgnored).Inc()
		ctx.Status(http.StatusNoContent)
	case errors.Is(err, logic.ErrInsufficientCredit):
		triggersTotal.WithLabelValues(outcomeRejected).Inc()
		balance, _ := c.ledger.ReadBalance(user, time.Now())
		ctx.JSON(http.StatusPaymentRequired, gin.H{
			"error": "insufficient credit",
			"reply": fmt.Sprintf("You are out of allowance. (%gm$/%gm$)",
				logic.NanodollarsToMillidollars(balance),
				logic.NanodollarsToMillidollars(c.ledger.Cap())),
		})
	default:
		if upstream, ok := pkg.AsUpstreamError(err); ok {
			triggersTotal.WithLabelValues(outcomeUpstreamError).Inc()
			ctx.JSON(http.StatusBadGateway, gin.H{
				"error": upstream.Error(),
				"reply": upstream.UserFacing(),
			})
			return
		}
		triggersTotal.WithLabelValues(outcomeError).Inc()
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
