package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/procure/internal/middleware"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/bitfantasy/procure/internal/purchasing/service"
	"github.com/bitfantasy/procure/internal/purchasing/sse"
	"github.com/bitfantasy/procure/internal/purchasing/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// memoryStore 内存对象存储
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type testEnv struct {
	db     *gorm.DB
	svc    *service.Services
	store  *memoryStore
	router *gin.Engine
	token  string
	now    time.Time
}

// setupPurchasingTest wires repositories, services and routes on a fresh SQLite database
func setupPurchasingTest(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos, err := repository.NewRepositories(db)
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}

	env := &testEnv{
		db:    db,
		store: newMemoryStore(),
		token: testutil.DefaultTestToken(),
		now:   time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
	}
	hub := sse.NewHub(nil)
	env.svc = service.NewServices(repos, service.Dependencies{
		Logger:    zap.NewNop(),
		Objects:   env.store,
		Publisher: hub,
	}, service.Options{
		DefaultTaxRate: decimal.NewFromInt(18),
		Auth:           service.AuthOptions{Secret: testutil.JWTSecret, Issuer: "procure"},
	})
	env.svc.SetClock(func() time.Time { return env.now })

	env.router = testutil.SetupRouter()
	api := env.router.Group("/api/v1")
	NewHandlers(env.svc, hub, zap.NewNop()).RegisterRoutes(api, middleware.JWTAuth(testutil.JWTSecret))
	return env
}
