package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
)

// AuthHandler exposes what the service knows about the bearer token's holder.
// Accounts and sign-in live with the identity provider.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

//
// GET /v1/auth/me
//

func (h *AuthHandler) Me(c *gin.Context) {
	actor := auth.GetActor(c)
	c.JSON(http.StatusOK, MeResponse{
		UserID:  actor.UserID,
		Email:   auth.GetUserEmail(c),
		Role:    string(actor.Role),
		IsStaff: actor.Role.IsStaff(),
	})
}
