package helpers

import (
	"strings"

	"github.com/labstack/echo/v4"
)

type ctxKey string

const (
	keyClientKey ctxKey = "client_key"
	keyOperation ctxKey = "operation"
)

func SetClientKey(c echo.Context, key string) { c.Set(string(keyClientKey), key) }
func GetClientKeyRaw(c echo.Context) (string, bool) {
	v, ok := c.Get(string(keyClientKey)).(string)
	return v, ok && v != ""
}

// ClientKey identifies the caller for rate limiting: a value stored earlier in
// the request, else the real client IP.
func ClientKey(c echo.Context) string {
	if k, ok := GetClientKeyRaw(c); ok {
		return k
	}
	ip := strings.TrimSpace(c.RealIP())
	if ip == "" {
		ip = "unknown"
	}
	SetClientKey(c, ip)
	return ip
}

func SetOperation(c echo.Context, op string) { c.Set(string(keyOperation), op) }
func GetOperation(c echo.Context) string {
	v, _ := c.Get(string(keyOperation)).(string)
	return v
}
