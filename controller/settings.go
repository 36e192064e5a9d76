package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pulau-Komodo/chatbot/config"
	"github.com/Pulau-Komodo/chatbot/logic"
	"github.com/Pulau-Komodo/chatbot/middleware"
)

// SettingsController handles per-user override endpoints and config
// catalogue reads used by the transport for command registration.
type SettingsController struct {
	settingsLogic *logic.SettingsLogic
	cfg           *config.Config
}

func NewSettingsController(settingsLogic *logic.SettingsLogic, cfg *config.Config) *SettingsController {
	return &SettingsController{settingsLogic: settingsLogic, cfg: cfg}
}

// SetModel handles PUT /settings/model. An absent model clears the
// override.
func (c *SettingsController) SetModel(ctx *gin.Context) {
	type Request struct {
		Model *string `json:"model"`
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

	reply, err := c.settingsLogic.SetModel(user, req.Model)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reply": reply})
}

// SetPersonality handles PUT /settings/personality. Either a preset name,
// or a custom system message for users holding a prototyping role. Both
// absent clears the setting.
func (c *SettingsController) SetPersonality(ctx *gin.Context) {
	type Request struct {
		Personality string   `json:"personality"`
		Custom      string   `json:"custom"`
		Roles       []uint64 `json:"roles"`
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

	reply, err := c.settingsLogic.SetPersonality(user, req.Roles, req.Personality, req.Custom)
	if err != nil {
		if errors.Is(err, logic.ErrNotPermitted) {
			ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reply": reply})
}

// SetSampling handles PUT /settings/sampling: temperature and max token
// overrides.
func (c *SettingsController) SetSampling(ctx *gin.Context) {
	type Request struct {
		Temperature *float32 `json:"temperature"`
		MaxTokens   *uint32  `json:"max_tokens"`
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

	if err := c.settingsLogic.SetSampling(user, req.Temperature, req.MaxTokens); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reply": "Settings updated."})
}

// GetModels handles GET /models.
func (c *SettingsController) GetModels(ctx *gin.Context) {
	type ModelInfo struct {
		Name            string `json:"name"`
		FriendlyName    string `json:"friendly_name"`
		CostDescription string `json:"cost_description"`
		Default         bool   `json:"default"`
	}
	infos := make([]ModelInfo, 0, len(c.cfg.Models))
	for i := range c.cfg.Models {
		model := &c.cfg.Models[i]
		infos = append(infos, ModelInfo{
			Name:            model.Name,
			FriendlyName:    model.FriendlyName,
			CostDescription: model.CostDescription(),
			Default:         i == 0,
		})
	}
	ctx.JSON(http.StatusOK, infos)
}

// GetPersonalities handles GET /personalities.
func (c *SettingsController) GetPersonalities(ctx *gin.Context) {
	type PersonalityInfo struct {
		Name    string `json:"name"`
		Emoji   string `json:"emoji"`
		Default bool   `json:"default"`
	}
	infos := make([]PersonalityInfo, 0, len(c.cfg.Personalities))
	for i := range c.cfg.Personalities {
		personality := &c.cfg.Personalities[i]
		infos = append(infos, PersonalityInfo{
			Name:    personality.Name,
			Emoji:   personality.Emoji,
			Default: i == 0,
		})
	}
	ctx.JSON(http.StatusOK, infos)
}

// GetOneOffs handles GET /oneoffs: the configured one-off command specs.
func (c *SettingsController) GetOneOffs(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.cfg.OneOffs)
}
