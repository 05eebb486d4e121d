package stream

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"santiye/internal/docstore"
	"santiye/internal/pkg/jwt"
	"santiye/internal/pkg/response"
)

type Handler struct {
	gateway *Gateway
	jwt     *jwt.Service
}

func NewHandler(gateway *Gateway, jwt *jwt.Service) *Handler {
	return &Handler{gateway: gateway, jwt: jwt}
}

// RegisterRoutes registers the WebSocket endpoint on the public router.
// Browsers cannot set an Authorization header on a WebSocket dial, so
// the token travels as a query parameter.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stream", h.Connect)
}

func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "token query parameter is required")
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logUpgradeError(err)
		return
	}

	auth := docstore.AuthContext{UserID: claims.UserID, Role: claims.Role}
	h.gateway.ServeWS(conn, auth)
}
