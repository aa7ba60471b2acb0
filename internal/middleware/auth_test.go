package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(userIDKey), "tier": c.GetString(tierKey)})
	})
	r.POST("/premium", AuthMiddleware(testSecret), RequireTier(TierPremium), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func doAuthRequest(r *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func mustToken(t *testing.T, secret, userID, tier string, ttl time.Duration) string {
	t.Helper()
	token, err := GenerateAccessToken(secret, userID, tier, ttl)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	r := setupAuthRouter()

	t.Run("valid token sets user and tier", func(t *testing.T) {
		rec := doAuthRequest(r, http.MethodGet, "/me", "Bearer "+mustToken(t, testSecret, "user-42", TierPremium, time.Hour))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := parseBody(t, rec)
		if body["user_id"] != "user-42" || body["tier"] != TierPremium {
			t.Errorf("unexpected context values: %v", body)
		}
	})

	t.Run("missing tier defaults to free", func(t *testing.T) {
		rec := doAuthRequest(r, http.MethodGet, "/me", "Bearer "+mustToken(t, testSecret, "user-1", "", time.Hour))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if tier := parseBody(t, rec)["tier"]; tier != TierFree {
			t.Errorf("expected free tier, got %v", tier)
		}
	})

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"wrong scheme", "Token abc", "UNAUTHORIZED"},
		{"garbage token", "Bearer not.a.jwt", "INVALID_TOKEN"},
		{"wrong secret", "Bearer " + mustToken(t, "other-secret", "user-1", TierPremium, time.Hour), "INVALID_TOKEN"},
		{"expired", "Bearer " + mustToken(t, testSecret, "user-1", TierPremium, -time.Minute), "INVALID_TOKEN"},
		{"no subject", "Bearer " + mustToken(t, testSecret, "", TierPremium, time.Hour), "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAuthRequest(r, http.MethodGet, "/me", tt.header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			errObj, _ := parseBody(t, rec)["error"].(map[string]interface{})
			if errObj["code"] != tt.wantCode {
				t.Errorf("error code = %v, want %s", errObj["code"], tt.wantCode)
			}
		})
	}

	t.Run("rejects foreign issuer", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
			Tier: TierPremium,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		rec := doAuthRequest(r, http.MethodGet, "/me", "Bearer "+signed)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects non-hmac signing", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		rec := doAuthRequest(r, http.MethodGet, "/me", "Bearer "+signed)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRequireTier(t *testing.T) {
	r := setupAuthRouter()

	t.Run("premium allowed", func(t *testing.T) {
		rec := doAuthRequest(r, http.MethodPost, "/premium", "Bearer "+mustToken(t, testSecret, "u", TierPremium, time.Hour))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("free blocked", func(t *testing.T) {
		rec := doAuthRequest(r, http.MethodPost, "/premium", "Bearer "+mustToken(t, testSecret, "u", TierFree, time.Hour))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		errObj, _ := parseBody(t, rec)["error"].(map[string]interface{})
		if errObj["code"] != "UPGRADE_REQUIRED" {
			t.Errorf("expected UPGRADE_REQUIRED, got %v", errObj["code"])
		}
	})
}
