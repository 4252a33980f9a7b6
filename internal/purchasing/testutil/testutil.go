// Package testutil provides database, router and request helpers for
// purchasing tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bitfantasy/procure/internal/config"
	"github.com/bitfantasy/procure/internal/database"
	"github.com/bitfantasy/procure/internal/middleware"
	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const JWTSecret = "procure-test-secret"

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// SetupTestDB opens a migrated SQLite database in a per-test temp directory.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "procure_test.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// GenerateTestToken creates a valid access token
func GenerateTestToken(userID, name string) string {
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "procure",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			ID:        fmt.Sprintf("test-jti-%d", now.UnixNano()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for the default test user
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Buyer")
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON envelope
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// Data returns the envelope's data object
func Data(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := ParseResponse(w)["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data object: %s", w.Body.String())
	}
	return data
}

// SeedVendor inserts a vendor
func SeedVendor(t *testing.T, db *gorm.DB, id, name string) *entity.Vendor {
	t.Helper()
	v := &entity.Vendor{
		ID:            id,
		Name:          name,
		ContactPerson: "Contact " + name,
		Email:         "sales@" + id + ".example.com",
	}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("Failed to seed vendor: %v", err)
	}
	return v
}

// SeedProduct inserts a product with the given price and tax rate
func SeedProduct(t *testing.T, db *gorm.DB, id, name, unitPrice, taxRate string) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:            id,
		Name:          name,
		SKU:           "SKU-" + id,
		UnitPrice:     decimal.RequireFromString(unitPrice),
		TaxRate:       decimal.RequireFromString(taxRate),
		UnitOfMeasure: "pcs",
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}

// Backdate moves a purchase order's created_at into the past
func Backdate(t *testing.T, db *gorm.DB, poID string, createdAt time.Time) {
	t.Helper()
	err := db.Model(&entity.PurchaseOrder{}).Where("id = ?", poID).
		UpdateColumn("created_at", createdAt.UTC()).Error
	if err != nil {
		t.Fatalf("Failed to backdate purchase order: %v", err)
	}
}
