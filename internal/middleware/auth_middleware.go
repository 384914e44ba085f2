package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userIDKey    = "userID"
	userEmailKey = "userEmail"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// ErrAuthDisabled is returned by RejectingVerifier.
var ErrAuthDisabled = errors.New("token verification is not configured")

// RejectingVerifier rejects every token. It stands in when no Firebase project is configured.
type RejectingVerifier struct{}

func (RejectingVerifier) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return nil, ErrAuthDisabled
}

// AuthMiddleware provides Gin middleware for Firebase token authentication.
type AuthMiddleware struct {
	verifier TokenVerifier
	log      *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. A nil verifier rejects every token.
func NewAuthMiddleware(verifier TokenVerifier, log *zap.Logger) *AuthMiddleware {
	if verifier == nil {
		verifier = RejectingVerifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthMiddleware{verifier: verifier, log: log}
}

// Attach verifies a bearer token when one is present and stores the caller's uid and
// email in the context. It never aborts: callers without a valid token continue anonymously.
func (m *AuthMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		token, err := m.verifier.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			m.log.Debug("ID token rejected", zap.Error(err), zap.String("request_id", RequestID(c)))
			c.Next()
			return
		}

		c.Set(userIDKey, token.UID)
		if email, ok := token.Claims["email"].(string); ok {
			c.Set(userEmailKey, email)
		}
		c.Next()
	}
}

// Require aborts with 401 unless Attach stored a uid.
func (m *AuthMiddleware) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"status": "UNAUTHENTICATED", "message": "User must be authenticated"},
			})
			return
		}
		c.Next()
	}
}

// UserID returns the verified uid of the caller, or "".
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// UserEmail returns the email claim of the verified token, or "".
func UserEmail(c *gin.Context) string {
	return c.GetString(userEmailKey)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
