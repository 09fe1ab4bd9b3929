package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaintrace/provenance-api/internal/auth"
	"github.com/chaintrace/provenance-api/internal/domain"
	"github.com/chaintrace/provenance-api/internal/logger"
)

const (
	// WalletKey is the gin context key holding the authenticated wallet address
	WalletKey = "auth_wallet"
)

// BearerToken extracts the token from an Authorization header.
// It returns ErrCredentialMissing when the header is absent or not a Bearer scheme.
func BearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", auth.ErrCredentialMissing
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", auth.ErrCredentialMissing
	}

	return parts[1], nil
}

// Auth returns a gin middleware that requires a valid Bearer credential.
// The authenticated wallet address is stored in the gin context under WalletKey.
// When no sealing secret is configured every request is rejected.
func Auth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var credential *auth.Credential
			credential, err = verifier.Validate(token)
			if err == nil {
				c.Set(WalletKey, credential.Wallet)
				c.Next()
				return
			}
		}

		logger.Warn("Authentication failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "unauthorized",
				"message": "Authentication failed",
				"details": err.Error(),
			},
		})
	}
}

// AuthenticatedWallet returns the wallet address stored by Auth.
func AuthenticatedWallet(c *gin.Context) (domain.WalletAddress, bool) {
	value, ok := c.Get(WalletKey)
	if !ok {
		return "", false
	}

	wallet, ok := value.(domain.WalletAddress)
	return wallet, ok
}
