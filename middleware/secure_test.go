package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tripnest/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func secureTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/guarded", RequireSecureTransport(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func setEnv(t *testing.T, env string) {
	t.Helper()
	prev := config.AppConfig.Env
	config.AppConfig.Env = env
	t.Cleanup(func() { config.AppConfig.Env = prev })
}

func TestSecureTransportAllowsPlaintextInDevelopment(t *testing.T) {
	setEnv(t, "development")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	secureTestRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecureTransportRefusesPlaintextInProduction(t *testing.T) {
	setEnv(t, "production")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	secureTestRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUpgradeRequired, w.Code)
}

func TestSecureTransportAcceptsForwardedHTTPS(t *testing.T) {
	setEnv(t, "production")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	secureTestRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
