package middleware

import (
	"strings"

	"tripmingle/internal/models"
	"tripmingle/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthRequired validates the bearer token and puts user_id and user_type on
// the request context.
func AuthRequired(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, "Authorization header required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.UnauthorizedResponse(c, "Bearer token required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secretKey)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid token")
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid user ID in token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("user_type", claims.UserType)

		c.Next()
	}
}

// ClientRequired ensures the authenticated user is a client.
func ClientRequired() gin.HandlerFunc {
	return requireUserType(string(models.UserTypeClient), "Client access required")
}

// PartnerRequired ensures the authenticated user is a partner.
func PartnerRequired() gin.HandlerFunc {
	return requireUserType(string(models.UserTypePartner), "Partner access required")
}

func requireUserType(userType, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user_type")
		if !exists {
			utils.UnauthorizedResponse(c, "User type not found")
			c.Abort()
			return
		}

		actual, ok := value.(string)
		if !ok || actual != userType {
			utils.ForbiddenResponse(c, message)
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserID extracts the authenticated user's ID from the request context.
func GetUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, false
	}

	userID, ok := value.(primitive.ObjectID)
	return userID, ok
}
