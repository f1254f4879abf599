package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ValidateJWT validates a JWT token and returns the claims.
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateWorkspaceToken creates a JWT bound to one workspace. The host
// obtains it once at connect time and presents it on every request.
func GenerateWorkspaceToken(workspaceID, jwtSecret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"workspaceId": workspaceID,
		"tokenId":     GenerateULID(),
		"iat":         time.Now().UTC().Unix(),
		"exp":         time.Now().UTC().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// WorkspaceFromClaims extracts the workspace ID claim.
func WorkspaceFromClaims(claims jwt.MapClaims) string {
	if id, ok := claims["workspaceId"].(string); ok {
		return id
	}
	return ""
}
