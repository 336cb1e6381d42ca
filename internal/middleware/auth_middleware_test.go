package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tripmingle/internal/models"
	"tripmingle/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func authedRequest(t *testing.T, userType string) *http.Request {
	t.Helper()

	pair, err := utils.GenerateTokenPair(primitive.NewObjectID(), userType, testSecret)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	return req
}

func protectedRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	chain := append([]gin.HandlerFunc{}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok || userID.IsZero() {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	router.GET("/protected", chain...)
	return router
}

func TestAuthRequired(t *testing.T) {
	router := protectedRouter(AuthRequired(testSecret))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, string(models.UserTypeClient)))
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}
}

func TestAuthRequiredRejectsMissingHeader(t *testing.T) {
	router := protectedRouter(AuthRequired(testSecret))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", w.Code)
	}
}

func TestAuthRequiredRejectsWrongSecret(t *testing.T) {
	router := protectedRouter(AuthRequired("other-secret"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, string(models.UserTypeClient)))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", w.Code)
	}
}

func TestAuthRequiredRejectsMalformedHeader(t *testing.T) {
	router := protectedRouter(AuthRequired(testSecret))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("malformed header: status = %d, want 401", w.Code)
	}
}

func TestClientRequired(t *testing.T) {
	router := protectedRouter(AuthRequired(testSecret), ClientRequired())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, string(models.UserTypeClient)))
	if w.Code != http.StatusOK {
		t.Errorf("client: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, string(models.UserTypePartner)))
	if w.Code != http.StatusForbidden {
		t.Errorf("partner on client route: status = %d, want 403", w.Code)
	}
}

func TestPartnerRequired(t *testing.T) {
	router := protectedRouter(AuthRequired(testSecret), PartnerRequired())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, string(models.UserTypePartner)))
	if w.Code != http.StatusOK {
		t.Errorf("partner: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, string(models.UserTypeClient)))
	if w.Code != http.StatusForbidden {
		t.Errorf("client on partner route: status = %d, want 403", w.Code)
	}
}
