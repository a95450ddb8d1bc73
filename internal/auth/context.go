package auth

import "github.com/gin-gonic/gin"

const (
	userIDKey    = "userID"
	userEmailKey = "userEmail"
	userRoleKey  = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// GetUserEmail returns the authenticated user's email or empty string.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(userEmailKey)
}

// GetActor returns the authenticated caller. The zero Actor means unauthenticated.
func GetActor(c *gin.Context) Actor {
	return Actor{
		UserID: c.GetString(userIDKey),
		Role:   Role(c.GetString(userRoleKey)),
	}
}
