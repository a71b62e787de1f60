package http

import (
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcruz-intermega/factu365-sub000/pkg/jwt"
)

const testSecret = "secreto-de-pruebas"

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Get("/quien", AuthMiddleware(testSecret), func(c *fiber.Ctx) error {
		return c.SendString(GetCompanyID(c) + "|" + GetRole(c))
	})
	app.Get("/solo-admin", AuthMiddleware(testSecret), RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func authGet(t *testing.T, app *fiber.App, path, header string) *nethttp.Response {
	t.Helper()
	req := httptest.NewRequest(nethttp.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthMiddleware_SinToken(t *testing.T) {
	resp := authGet(t, newAuthApp(), "/quien", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_FormatoInvalido(t *testing.T) {
	resp := authGet(t, newAuthApp(), "/quien", "Basic abc123")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_TokenValido(t *testing.T) {
	token, err := jwt.Generate(testSecret, "u-1", "emp-1", "contable", "factu365", 5)
	require.NoError(t, err)

	resp := authGet(t, newAuthApp(), "/quien", "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "emp-1|contable", string(body), "los claims llegan al handler vía Locals")
}

func TestAuthMiddleware_FirmaIncorrecta(t *testing.T) {
	token, err := jwt.Generate("otro-secreto", "u-1", "emp-1", "admin", "factu365", 5)
	require.NoError(t, err)

	resp := authGet(t, newAuthApp(), "/quien", "Bearer "+token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_TokenExpirado(t *testing.T) {
	token, err := jwt.Generate(testSecret, "u-1", "emp-1", "admin", "factu365", -5)
	require.NoError(t, err)

	resp := authGet(t, newAuthApp(), "/quien", "Bearer "+token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRole_Autorizado(t *testing.T) {
	token, err := jwt.Generate(testSecret, "u-1", "emp-1", "admin", "factu365", 5)
	require.NoError(t, err)

	resp := authGet(t, newAuthApp(), "/solo-admin", "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRole_RolInsuficiente(t *testing.T) {
	token, err := jwt.Generate(testSecret, "u-1", "emp-1", "operador", "factu365", 5)
	require.NoError(t, err)

	resp := authGet(t, newAuthApp(), "/solo-admin", "Bearer "+token)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRole_TokenSinRol(t *testing.T) {
	token, err := jwt.Generate(testSecret, "u-1", "emp-1", "", "factu365", 5)
	require.NoError(t, err)

	resp := authGet(t, newAuthApp(), "/solo-admin", "Bearer "+token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "sin claim de rol no hay autorización posible")
}
