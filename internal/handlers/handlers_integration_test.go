package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"storeadmin/internal/database"
	"storeadmin/internal/handlers"
	"storeadmin/internal/middleware"
	"storeadmin/internal/models"
	"storeadmin/internal/repositories"
	"storeadmin/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv bundles the Fiber app with the repositories needed to seed
// and inspect state directly.
type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	users    repositories.UserRepository
	roles    repositories.RoleRepository
	products repositories.ProductRepository
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and
// the same route layout as main.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	userRepo := repositories.NewGORMUserRepository(db)
	roleRepo := repositories.NewGORMRoleRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	txManager := database.NewTxManager(db)
	authService := services.NewAuthService(userRepo, jwtSecret)
	userService := services.NewUserService(txManager, userRepo, roleRepo)
	roleService := services.NewRoleService(txManager, roleRepo)
	productService := services.NewProductService(txManager, productRepo)
	orderService := services.NewOrderService(txManager, orderRepo, productRepo, userRepo, nil) // nil for RabbitMQ client

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, roleService)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)

	app := fiber.New()

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)

	admin := protected.Group("", middleware.AdminRequired())
	productHandler.RegisterAdminRoutes(admin)
	userHandler.RegisterRoutes(admin)

	return &testEnv{
		app:      app,
		db:       db,
		users:    userRepo,
		roles:    roleRepo,
		products: productRepo,
	}
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		// Array responses are decoded by the callers that expect them.
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// registerAndLogin creates a user through the public auth routes and
// returns its id and bearer token.
func (e *testEnv) registerAndLogin(t *testing.T, username string) (string, string) {
	t.Helper()

	resp, body := e.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := body["user"].(map[string]interface{})
	userID := user["id"].(string)

	resp, body = e.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return userID, body["token"].(string)
}

func TestAuthRequiredOnProtectedRoutes(t *testing.T) {
	env := setupApp(t)

	resp, _ := env.request(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.request(t, http.MethodGet, "/api/v1/orders", "not a bearer", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRequiredOnProductMutations(t *testing.T) {
	env := setupApp(t)
	userID, token := env.registerAndLogin(t, "shopper")

	// A plain user cannot create products.
	resp, _ := env.request(t, http.MethodPost, "/api/v1/products", token, map[string]interface{}{
		"name": "Laptop", "price": 1200.0, "quantity": 10,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Grant the admin role directly and log in again for a fresh token.
	admin := &models.Role{Name: "admin"}
	require.NoError(t, env.roles.Create(context.Background(), admin))
	user, err := env.users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	user.RoleID = &admin.ID
	require.NoError(t, env.users.Update(context.Background(), user))

	resp, body := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"username": "shopper", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adminToken := body["token"].(string)

	resp, _ = env.request(t, http.MethodPost, "/api/v1/products", adminToken, map[string]interface{}{
		"name": "Laptop", "price": 1200.0, "quantity": 10,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestOrderEndpoints(t *testing.T) {
	env := setupApp(t)
	userID, token := env.registerAndLogin(t, "buyer")

	product := &models.Product{Name: "Test Laptop", Description: "For testing purposes", Price: 1000.00, Quantity: 5}
	require.NoError(t, env.products.Create(context.Background(), product))

	// Create an order through the API.
	resp, body := env.request(t, http.MethodPost, "/api/v1/orders", token, map[string]interface{}{
		"user_id": userID,
		"items": []map[string]interface{}{
			{"product_id": product.ID, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := body["id"].(string)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, 2000.0, body["total_amount"])

	stored, err := env.products.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Quantity)

	// Requesting more than is available is a reported conflict.
	resp, body = env.request(t, http.MethodPost, "/api/v1/orders", token, map[string]interface{}{
		"user_id": userID,
		"items": []map[string]interface{}{
			{"product_id": product.ID, "quantity": 50},
		},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "insufficient stock")

	// Replace the item set through the API.
	resp, body = env.request(t, http.MethodPut, "/api/v1/orders/"+orderID, token, map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": product.ID, "quantity": 1},
		},
		"status": "processing",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, 1000.0, body["total_amount"])

	stored, err = env.products.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Quantity)

	// Soft delete hides the order.
	resp, _ = env.request(t, http.MethodDelete, "/api/v1/orders/"+orderID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.request(t, http.MethodGet, "/api/v1/orders/"+orderID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Restore brings it back.
	resp, body = env.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/restore", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, orderID, body["id"])

	// Restoring a live order is a bad request.
	resp, _ = env.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/restore", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Hard delete removes it for good.
	resp, _ = env.request(t, http.MethodDelete, "/api/v1/orders/"+orderID+"/hard", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.request(t, http.MethodPost, "/api/v1/orders/"+orderID+"/restore", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateOrderValidation(t *testing.T) {
	env := setupApp(t)
	_, token := env.registerAndLogin(t, "validator")

	// Missing items.
	resp, _ := env.request(t, http.MethodPost, "/api/v1/orders", token, map[string]interface{}{
		"user_id": "11111111-1111-1111-1111-111111111111",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
