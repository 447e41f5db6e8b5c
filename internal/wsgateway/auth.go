package wsgateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AnonymousUser is the user ID given to connections when no secret is set
const AnonymousUser = "anonymous"

var errNoToken = errors.New("no token supplied")

// AuthManager validates HMAC-signed JWTs presented by gateway clients
type AuthManager struct {
	jwtSecret []byte
}

// NewAuthManager creates a new auth manager. An empty secret accepts every
// connection as AnonymousUser.
func NewAuthManager(jwtSecret string) *AuthManager {
	return &AuthManager{jwtSecret: []byte(jwtSecret)}
}

// Enabled reports whether tokens are checked
func (a *AuthManager) Enabled() bool {
	return len(a.jwtSecret) > 0
}

// Authenticate returns the user ID for a connection request. The token is
// read from the Authorization header, falling back to the token query
// parameter since browsers cannot set headers on WebSocket upgrades.
func (a *AuthManager) Authenticate(r *http.Request) (string, error) {
	if !a.Enabled() {
		return AnonymousUser, nil
	}

	token, err := extractToken(r)
	if err != nil {
		return "", err
	}
	return a.ValidateToken(token)
}

// ValidateToken validates a JWT and returns its user_id claim, or the
// subject when user_id is absent
func (a *AuthManager) ValidateToken(tokenString string) (string, error) {
	if !a.Enabled() {
		return AnonymousUser, nil
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("user_id not found in token")
}

func extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		switch {
		case len(parts) == 2 && strings.EqualFold(parts[0], "bearer"):
			return parts[1], nil
		case len(parts) == 1:
			return parts[0], nil
		default:
			return "", fmt.Errorf("invalid authorization header format")
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errNoToken
}
