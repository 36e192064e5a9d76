package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Pulau-Komodo/chatbot/dao"
	"github.com/Pulau-Komodo/chatbot/logic"
	"github.com/Pulau-Komodo/chatbot/middleware"
)

// AllowanceController serves balance and spending reads.
type AllowanceController struct {
	ledger      *logic.Ledger
	spendingDAO *dao.SpendingDAO
}

func NewAllowanceController(ledger *logic.Ledger, spendingDAO *dao.SpendingDAO) *AllowanceController {
	return &AllowanceController{ledger: ledger, spendingDAO: spendingDAO}
}

// GetAllowance handles GET /allowance: a lock-free balance snapshot.
func (c *AllowanceController) GetAllowance(ctx *gin.Context) {
	user, ok := middleware.UserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "no authenticated user"})
		return
	}

	balance, err := c.ledger.ReadBalance(user, time.Now())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	millidollars := logic.NanodollarsToMillidollars(balance)
	maxMillidollars := logic.NanodollarsToMillidollars(c.ledger.Cap())
	ctx.JSON(http.StatusOK, gin.H{
		"balance":          balance,
		"millidollars":     millidollars,
		"max_millidollars": maxMillidollars,
		"reply":            fmt.Sprintf("You have %g out of %g millidollars left.", millidollars, maxMillidollars),
	})
}

// GetSpending handles GET /spending?all=: per-user or global expenditure.
func (c *AllowanceController) GetSpending(ctx *gin.Context) {
	user, ok := middleware.UserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "no authenticated user"})
		return
	}

	all := ctx.Query("all") == "true"
	var total int64
	var err error
	if all {
		total, err = c.spendingDAO.SumAll()
	} else {
		total, err = c.spendingDAO.SumForUser(user)
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	millidollars := logic.NanodollarsToMillidollars(total)
	reply := fmt.Sprintf("You have used %g millidollars.", millidollars)
	if all {
		reply = fmt.Sprintf("Everyone combined has used %g millidollars.", millidollars)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"spent":        total,
		"millidollars": millidollars,
		"reply":        reply,
	})
}
