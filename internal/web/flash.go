package web

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

const flashCookie = "track75_flash"

// Flash kinds, used as CSS classes.
const (
	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (h *Handler) setFlash(c *gin.Context, kind, message string) {
	raw, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	c.SetCookie(flashCookie, string(raw), 60, "/", "", h.secureCookies, true)
}

// popFlash returns the pending flash, if any, and clears it.
func (h *Handler) popFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", h.secureCookies, true)
	var f Flash
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil
	}
	return &f
}
