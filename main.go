package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Pulau-Komodo/chatbot/config"
	"github.com/Pulau-Komodo/chatbot/controller"
	"github.com/Pulau-Komodo/chatbot/dao"
	"github.com/Pulau-Komodo/chatbot/logic"
	"github.com/Pulau-Komodo/chatbot/middleware"
	"github.com/Pulau-Komodo/chatbot/models"
	"github.com/Pulau-Komodo/chatbot/pkg"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: chatbot <config.yaml>")
		os.Exit(1)
	}
	if err := config.LoadConfig(os.Args[1]); err != nil {
		logger.Error("failed to load config", "path", os.Args[1], "error", err)
		os.Exit(1)
	}
	cfg := &config.GlobalConfig

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(
		&models.Allowance{},
		&models.Conversation{},
		&models.SpendingRecord{},
		&models.UserSettings{},
	); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	chatClient := pkg.NewChatClient(cfg.Chat.APIKey, cfg.Chat.APIURL)
	tokenizer := &pkg.CharTokenizer{}

	// DAOs
	allowanceDAO := dao.NewAllowanceDAO(db)
	convoDAO := dao.NewConversationDAO(db)
	spendingDAO := dao.NewSpendingDAO(db)
	settingsDAO := dao.NewUserSettingsDAO(db)

	// Logics
	ledger := logic.NewLedger(allowanceDAO, cfg.Allowance.Daily, cfg.Allowance.AccrualDays)
	// The transport includes raw mention tokens in trigger bodies; both the
	// plain and the nickname form have to be recognized.
	mentions := []string{
		fmt.Sprintf("<@%s>", os.Getenv("BOT_USER_ID")),
		fmt.Sprintf("<@!%s>", os.Getenv("BOT_USER_ID")),
	}
	resolver := logic.NewResolver(convoDAO, settingsDAO, cfg, mentions, cfg.Chat.MaxContextTurns)
	admission := logic.NewAdmission(
		ledger, resolver, convoDAO, spendingDAO, settingsDAO,
		chatClient, tokenizer, cfg, cfg.CustomKeyMap(), logger,
	)
	settingsLogic := logic.NewSettingsLogic(settingsDAO, cfg)
	userLogic := logic.NewUserLogic(cfg)

	// Controllers
	triggerCtrl := controller.NewTriggerController(admission, ledger)
	allowanceCtrl := controller.NewAllowanceController(ledger, spendingDAO)
	settingsCtrl := controller.NewSettingsController(settingsLogic, cfg)
	convoCtrl := controller.NewConversationController(convoDAO)
	userCtrl := controller.NewUserController(userLogic)

	r := gin.Default()
	auth := middleware.Auth(cfg.Auth.Secret)
	r.POST("/user/login", userCtrl.Login)
	r.POST("/triggers", auth, triggerCtrl.HandleTrigger)
	r.POST("/exchanges", auth, triggerCtrl.CommitExchange)
	r.POST("/oneoffs/:name", auth, triggerCtrl.HandleOneOff)
	r.GET("/allowance", auth, allowanceCtrl.GetAllowance)
	r.GET("/spending", auth, allowanceCtrl.GetSpending)
	r.PUT("/settings/model", auth, settingsCtrl.SetModel)
	r.PUT("/settings/personality", auth, settingsCtrl.SetPersonality)
	r.PUT("/settings/sampling", auth, settingsCtrl.SetSampling)
	r.GET("/conversations/:id", auth, convoCtrl.GetConversation)
	r.DELETE("/conversations/:id/parent", auth, convoCtrl.Sever)
	r.GET("/models", settingsCtrl.GetModels)
	r.GET("/personalities", settingsCtrl.GetPersonalities)
	r.GET("/oneoffs", settingsCtrl.GetOneOffs)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("starting server", "port", cfg.Server.Port)
	if err := r.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
