// Package tenant holds the per-tenant integration settings: API credential,
// callback endpoint and the payload schema.
package tenant

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// ErrTenantIsNotConstructed is returned by Validate for a Tenant built without
// NewTenant or RestoreTenant.
var ErrTenantIsNotConstructed = errors.New("Tenant must be created via NewTenant constructor")

// Settings is the operator-managed configuration of a tenant. APIKey and
// CallbackAPIKey are plain secrets; only the hash of APIKey is stored.
type Settings struct {
	Name           string
	APIKey         string
	CallbackURL    string
	CallbackAPIKey string
	// Schema is nil until the operator configures one.
	Schema *schema.Schema
}

// Tenant is a client business integrating through its own ERP.
type Tenant struct {
	id             kernel.UUID
	name           string
	apiKeyHash     string
	callbackURL    string
	callbackAPIKey string
	schema         *schema.Schema
	guard          guard.ConstructorGuard
}

// NewTenant registers a tenant.
//
// Parameters:
//   - id: identifier of the tenant
//   - settings: a name and API key are required; CallbackURL must be an absolute
//     http(s) URL when set; Schema may be nil until the operator maps payloads
//
// Example:
//
//	s, err := schema.ParseSchema(
//	    map[string]string{"external_id": "order_ref", "address": "shipping.address"},
//	    map[string]string{"external_id": "order_ref", "status": "state"},
//	)
//	if err != nil {
//	    return err
//	}
//	tn, err := tenant.NewTenant(kernel.NewUUID(), tenant.Settings{
//	    Name:           "Melody Perfumes",
//	    APIKey:         apiKey,
//	    CallbackURL:    "https://erp.melody.jo/hooks",
//	    CallbackAPIKey: callbackKey,
//	    Schema:         &s,
//	})
func NewTenant(id kernel.UUID, settings Settings) (*Tenant, error) {
	t := &Tenant{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(t.setID(id), t.apply(settings)); err != nil {
		return nil, err
	}
	if t.apiKeyHash == "" {
		return nil, errs.NewValueIsRequiredError("api_key")
	}

	return t, nil
}

// RestoreTenant rebuilds a tenant from storage, where only the key hash is kept.
func RestoreTenant(
	id kernel.UUID,
	name, apiKeyHash, callbackURL, callbackAPIKey string,
	s *schema.Schema,
) (*Tenant, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return &Tenant{
		id:             id,
		name:           name,
		apiKeyHash:     apiKeyHash,
		callbackURL:    callbackURL,
		callbackAPIKey: callbackAPIKey,
		schema:         s,
		guard:          guard.NewConstructorGuard(),
	}, nil
}

// HashAPIKey is the stored and looked-up form of a tenant API key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Validate reports ErrTenantIsNotConstructed for a nil or zero-value tenant.
func (t *Tenant) Validate() error {
	if t == nil {
		return ErrTenantIsNotConstructed
	}
	return t.guard.Validate(ErrTenantIsNotConstructed)
}

func (t *Tenant) ID() kernel.UUID {
	return t.id
}

func (t *Tenant) Name() string {
	return t.name
}

// APIKeyHash returns the hex SHA-256 of the tenant API key, see HashAPIKey.
func (t *Tenant) APIKeyHash() string {
	return t.apiKeyHash
}

// CallbackURL returns the default callback endpoint, "" when none is configured.
func (t *Tenant) CallbackURL() string {
	return t.callbackURL
}

// CallbackAPIKey returns the secret sent as bearer token and used to sign callbacks.
func (t *Tenant) CallbackAPIKey() string {
	return t.callbackAPIKey
}

// Schema returns the configured schema or nil.
func (t *Tenant) Schema() *schema.Schema {
	return t.schema
}

// InboundSchema is the schema used to read submissions. Tenants without one
// submit in the default shape.
func (t *Tenant) InboundSchema() schema.Schema {
	if t.schema == nil {
		return schema.DefaultSchema()
	}
	return *t.schema
}

// MatchesAPIKey compares key against the stored hash in constant time.
func (t *Tenant) MatchesAPIKey(key string) bool {
	return subtle.ConstantTimeCompare([]byte(HashAPIKey(key)), []byte(t.apiKeyHash)) == 1
}

// CallbackTarget resolves where a callback goes. A per-request override wins.
// Without a URL or a schema the callback cannot be sent at all.
func (t *Tenant) CallbackTarget(requestOverride string) (string, schema.Schema, error) {
	target := t.callbackURL
	if requestOverride != "" {
		target = requestOverride
	}
	if target == "" {
		return "", schema.Schema{}, errs.NewConfigurationError(t.id.String(), "callback_url")
	}
	if t.schema == nil {
		return "", schema.Schema{}, errs.NewConfigurationError(t.id.String(), "schema")
	}
	return target, *t.schema, nil
}

// Configure replaces the settings. An empty APIKey keeps the current key.
func (t *Tenant) Configure(settings Settings) error {
	return t.apply(settings)
}

func (t *Tenant) apply(s Settings) error {
	var errList []error
	if s.Name == "" {
		errList = append(errList, errs.NewValueIsRequiredError("name"))
	}
	if s.CallbackURL != "" {
		if err := delivery.ValidateCallbackURL(s.CallbackURL); err != nil {
			errList = append(errList, err)
		}
	}
	if err := errors.Join(errList...); err != nil {
		return err
	}

	t.name = s.Name
	if s.APIKey != "" {
		t.apiKeyHash = HashAPIKey(s.APIKey)
	}
	t.callbackURL = s.CallbackURL
	t.callbackAPIKey = s.CallbackAPIKey
	t.schema = s.Schema
	return nil
}

func (t *Tenant) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	t.id = id
	return nil
}
