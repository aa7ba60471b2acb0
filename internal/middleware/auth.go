package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "walletlens/internal/errors"
)

// Subscription tiers carried in the tier claim.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// Context keys set by AuthMiddleware.
const (
	userIDKey = "userID"
	tierKey   = "tier"
)

const tokenIssuer = "walletlens-api"

// JWTClaims represents the claims in the JWT. Tokens are issued by the
// account service; this API only verifies them.
type JWTClaims struct {
	Tier string `json:"tier"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an HS256 access token for userID.
func GenerateAccessToken(secret, userID, tier string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		Tier: tier,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken verifies tokenString and returns its claims.
func ParseAccessToken(secret, tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// AuthMiddleware verifies the bearer token and sets the user ID and tier in
// the context. A token without a tier claim is treated as free.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Authorization header is required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid authorization header format"))
			return
		}

		claims, err := ParseAccessToken(secret, parts[1])
		if err != nil {
			abortWithError(c, apperrors.ErrInvalidToken)
			return
		}

		tier := claims.Tier
		if tier == "" {
			tier = TierFree
		}

		c.Set(userIDKey, claims.Subject)
		c.Set(tierKey, tier)
		c.Next()
	}
}

// RequireTier rejects requests whose tier is not one of tiers with
// UPGRADE_REQUIRED. It must run after AuthMiddleware.
func RequireTier(tiers ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tier := c.GetString(tierKey)
		for _, allowed := range tiers {
			if tier == allowed {
				c.Next()
				return
			}
		}
		abortWithError(c, apperrors.ErrUpgradeRequired)
	}
}

func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
