package handler

import (
	"log"
	"net/http"

	"github.com/cresciperdi/intranet-api/internal/middleware"
	"github.com/cresciperdi/intranet-api/internal/websocket"
	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
)

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	hub        *websocket.Hub
	manager    *websocket.Manager
	verifier   middleware.TokenVerifier
	profiles   middleware.ProfileLoader
	upgrader   gorillaws.Upgrader
	sendBuffer int
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins синхронизирован с настройками CORS.
func NewWSHandler(
	hub *websocket.Hub,
	manager *websocket.Manager,
	verifier middleware.TokenVerifier,
	profiles middleware.ProfileLoader,
	allowedOrigins []string,
	sendBuffer int,
) *WSHandler {
	return &WSHandler{
		hub:        hub,
		manager:    manager,
		verifier:   verifier,
		profiles:   profiles,
		sendBuffer: sendBuffer,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Пустой Origin - не браузерный клиент
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		log.Printf("[WSHandler] Rejected unauthorized origin: %s", origin)
		return false
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение
// GET /ws?token=...
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// НЕ логируем токен
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token parameter"})
		return
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	profile, err := h.profiles.GetProfile(c.Request.Context(), identity.UserID)
	if err != nil {
		log.Printf("[WSHandler] Профиль %s недоступен: %v", identity.UserID, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Profile not found or inactive"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade сам пишет ответ клиенту
		log.Printf("[WSHandler] Error upgrading connection for %s: %v", profile.ID, err)
		return
	}

	client := websocket.NewClient(h.hub, conn, profile.ID.String(), h.sendBuffer)
	client.StartPumps(h.manager.HandleMessage)
}
