package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/learnhub/purchase-service/internal/models"
)

// TokenTTL bounds how long an issued token (and its Redis copy) lives.
const TokenTTL = time.Hour

// GenerateToken issues an HS256 token carrying the user id and role.
func GenerateToken(userID int64, role models.Role, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"iat":     now.Unix(),
		"exp":     now.Add(TokenTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}
