package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larkspur-kitchen/rewards/internal/http/api/render"
	"github.com/larkspur-kitchen/rewards/internal/ledger"
)

// streamKeepAlive is the interval of SSE comment frames on an idle stream.
const streamKeepAlive = 25 * time.Second

// ProfileHandler serves the caller's loyalty profile and ledger.
type ProfileHandler struct {
	store *ledger.Store
	feed  *ledger.Feed
}

// NewProfileHandler constructs a ProfileHandler. feed may be nil, which disables streaming.
func NewProfileHandler(store *ledger.Store, feed *ledger.Feed) *ProfileHandler {
	return &ProfileHandler{store: store, feed: feed}
}

// Get returns the current profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	profile, errGet := h.store.Get(c.Request.Context(), userID)
	if errGet != nil {
		render.Error(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": ledger.ProfileView(profile)})
}

// History returns one page of the caller's ledger.
func (h *ProfileHandler) History(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	page, pageSize := parsePaging(c)
	entries, total, errList := h.store.History(c.Request.Context(), userID, page, pageSize)
	if errList != nil {
		render.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": render.Entries(entries), "total": total})
}

// Stream pushes the profile as server-sent events whenever it changes.
func (h *ProfileHandler) Stream(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile stream unavailable"})
		return
	}

	updates, cancel := h.feed.Subscribe(userID)
	defer cancel()

	ctx := c.Request.Context()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	if profile, errGet := h.store.Get(ctx, userID); errGet == nil {
		c.SSEvent("profile", ledger.ProfileView(profile))
		c.Writer.Flush()
	}

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case profile, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("profile", ledger.ProfileView(profile))
			return true
		case <-ticker.C:
			_, errWrite := io.WriteString(w, ": keep-alive\n\n")
			return errWrite == nil
		}
	})
}
