package middleware_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"storefront/internal/middleware"
	"storefront/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	app := fiber.New()
	app.Use(middleware.RequestLogger(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error {
		assert.Empty(t, middleware.UserID(c))
		assert.Nil(t, middleware.CurrentUser(c))
		return c.SendString("ok")
	})
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/as-user", func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, "u-1")
		return c.SendStatus(fiber.StatusNoContent)
	})

	for _, path := range []string{"/ok", "/missing", "/boom", "/as-user"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	want := []struct {
		path   string
		status int64
		level  zapcore.Level
	}{
		{"/ok", 200, zapcore.InfoLevel},
		{"/missing", 404, zapcore.WarnLevel},
		{"/boom", 500, zapcore.ErrorLevel},
		{"/as-user", 204, zapcore.InfoLevel},
	}
	for i, w := range want {
		fields := entries[i].ContextMap()
		assert.Equal(t, w.path, fields["path"])
		assert.Equal(t, w.status, fields["status"])
		assert.Equal(t, w.level, entries[i].Level)
	}
	assert.Equal(t, "u-1", entries[3].ContextMap()["user_id"])
	assert.NotContains(t, entries[0].ContextMap(), "user_id")
}

func TestAdminRequired(t *testing.T) {
	app := fiber.New()
	withUser := func(user *models.User) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if user != nil {
				c.Locals(middleware.LocalUserID, user.ID)
				c.Locals(middleware.LocalUser, user)
			}
			return c.Next()
		}
	}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }
	app.Get("/anon", withUser(nil), middleware.AdminRequired(), ok)
	app.Get("/customer", withUser(&models.User{ID: "u-1"}), middleware.AdminRequired(), ok)
	app.Get("/admin", withUser(&models.User{ID: "u-2", IsAdmin: true}), middleware.AdminRequired(), ok)

	for path, want := range map[string]int{
		"/anon":     fiber.StatusUnauthorized,
		"/customer": fiber.StatusForbidden,
		"/admin":    fiber.StatusNoContent,
	} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}
