package mailsink

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// ListMessages returns every captured message, newest first.
func (h *Handler) ListMessages(c *gin.Context) {
	messages := h.store.List()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(messages),
		"messages": messages,
	})
}

func (h *Handler) GetMessage(c *gin.Context) {
	m, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetRaw serves the message exactly as received, for piping into a mail client.
func (h *Handler) GetRaw(c *gin.Context) {
	m, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	c.Data(http.StatusOK, "message/rfc822", []byte(m.Raw))
}

func (h *Handler) Clear(c *gin.Context) {
	n := h.store.Clear()
	log.Info().Int("deleted", n).Msg("Cleared captured messages")
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"captured":  h.store.Len(),
		"timestamp": time.Now(),
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/messages", handler.ListMessages)
		v1.GET("/messages/:id", handler.GetMessage)
		v1.GET("/messages/:id/raw", handler.GetRaw)
		v1.DELETE("/messages", handler.Clear)
	}
	router.GET("/health", handler.HealthCheck)

	return router
}
