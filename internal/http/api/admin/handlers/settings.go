package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	internalsettings "github.com/larkspur-kitchen/rewards/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingsHandler reads and writes runtime tunables.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// settingRequest defines the request body for Update.
type settingRequest struct {
	Value json.RawMessage `json:"value"`
}

// List returns every known tunable with its stored value, null when unset.
func (h *SettingsHandler) List(c *gin.Context) {
	keys := make([]string, 0, len(internalsettings.Known))
	for key := range internalsettings.Known {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if raw, ok := internalsettings.DBConfigValue(key); ok {
			values[key] = raw
			continue
		}
		values[key] = json.RawMessage("null")
	}
	c.JSON(http.StatusOK, gin.H{"settings": values, "updated_at": internalsettings.DBConfigUpdatedAt()})
}

// Update stores one tunable and refreshes the in-memory snapshot.
func (h *SettingsHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if _, ok := internalsettings.Known[key]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown setting"})
		return
	}
	var body settingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}
	if errSave := internalsettings.Save(c.Request.Context(), h.db, key, body.Value); errSave != nil {
		log.WithError(errSave).WithField("key", key).Error("save setting failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save setting failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": body.Value})
}
