package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

const (
	HeaderTenantKey = "X-Tenant-Key"
	HeaderAdminKey  = "X-Admin-Key"

	tenantContextKey = "fulfillment.tenant_id"
	driverContextKey = "fulfillment.driver_id"
)

// ErrInvalidDriverToken is returned by Parse for a malformed, unsigned or forged token.
var ErrInvalidDriverToken = errors.New("invalid driver token")

// TenantDirectory resolves the tenant that owns an API key.
type TenantDirectory interface {
	GetByAPIKeyHash(ctx context.Context, hash string) (*tenant.Tenant, error)
}

// DriverTokens signs driver ids. A token is "<driver id>.<hex HMAC-SHA256 of
// the id>"; issuing them to drivers happens outside this service.
type DriverTokens struct {
	secret []byte
}

// NewDriverTokens signs with secret. With an empty secret every token is rejected.
func NewDriverTokens(secret string) DriverTokens {
	return DriverTokens{secret: []byte(secret)}
}

// Issue returns the token for driverID.
//
// Example:
//
//	tokens := NewDriverTokens(os.Getenv("DRIVER_TOKEN_SECRET"))
//	req.Header.Set("Authorization", "Bearer "+tokens.Issue(driverID))
func (t DriverTokens) Issue(driverID kernel.UUID) string {
	id := driverID.String()
	return id + "." + t.sign(id)
}

// Parse returns the driver a token was issued to.
func (t DriverTokens) Parse(token string) (kernel.UUID, error) {
	if len(t.secret) == 0 {
		return kernel.UUID{}, ErrInvalidDriverToken
	}
	id, signature, ok := strings.Cut(token, ".")
	if !ok {
		return kernel.UUID{}, ErrInvalidDriverToken
	}
	if !hmac.Equal([]byte(signature), []byte(t.sign(id))) {
		return kernel.UUID{}, ErrInvalidDriverToken
	}
	driverID, err := kernel.UUIDFromString(id)
	if err != nil {
		return kernel.UUID{}, ErrInvalidDriverToken
	}
	return driverID, nil
}

func (t DriverTokens) sign(id string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// TenantAuth admits requests carrying a known tenant API key.
func TenantAuth(tenants TenantDirectory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderTenantKey)
			if key == "" {
				return newError(http.StatusUnauthorized, "missing "+HeaderTenantKey+" header")
			}

			t, err := tenants.GetByAPIKeyHash(c.Request().Context(), tenant.HashAPIKey(key))
			if errors.Is(err, errs.ErrObjectNotFound) {
				return newError(http.StatusUnauthorized, "unknown tenant key")
			}
			if err != nil {
				return err
			}

			c.Set(tenantContextKey, t.ID())
			return next(c)
		}
	}
}

// DriverAuth admits requests with a valid driver bearer token.
func DriverAuth(tokens DriverTokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || token == "" {
				return newError(http.StatusUnauthorized, "missing bearer token")
			}

			driverID, err := tokens.Parse(token)
			if err != nil {
				return newError(http.StatusUnauthorized, err.Error())
			}

			c.Set(driverContextKey, driverID)
			return next(c)
		}
	}
}

// AdminAuth admits operators presenting key. An empty key closes the
// operator routes.
func AdminAuth(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				return newError(http.StatusForbidden, "operator access is not configured")
			}
			presented := c.Request().Header.Get(HeaderAdminKey)
			if presented == "" {
				return newError(http.StatusUnauthorized, "missing "+HeaderAdminKey+" header")
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				return newError(http.StatusForbidden, "invalid operator key")
			}
			return next(c)
		}
	}
}

func tenantID(c echo.Context) kernel.UUID {
	id, _ := c.Get(tenantContextKey).(kernel.UUID)
	return id
}

func driverID(c echo.Context) kernel.UUID {
	id, _ := c.Get(driverContextKey).(kernel.UUID)
	return id
}
