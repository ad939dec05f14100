package commands

import (
	"errors"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/pkg/guard"
)

// ErrConfigureTenantCommandIsNotConstructed is returned by Validate on a zero-value command.
var ErrConfigureTenantCommandIsNotConstructed = errors.New(
	"ConfigureTenantCommand must be created via NewConfigureTenantCommand constructor",
)

// SchemaMaps is the wire form of a tenant schema: canonical field to dot path
// for submissions and canonical field to flat key for callbacks.
type SchemaMaps struct {
	Inbound  map[string]string
	Outbound map[string]string
}

// ConfigureTenantCommand creates a tenant or replaces its settings. A nil schema
// leaves the tenant unconfigured for callbacks.
type ConfigureTenantCommand struct { //nolint:recvcheck //using for validation
	tenantID kernel.UUID
	settings tenant.Settings

	guard guard.ConstructorGuard
}

// NewConfigureTenantCommand parses the schema maps when given. Schema problems are
// reported under the "schema." field prefix.
//
// Example:
//
//	cmd, err := NewConfigureTenantCommand(tenantID, "Melody", apiKey,
//	    "https://erp.melody.example/hooks", callbackKey,
//	    &SchemaMaps{
//	        Inbound:  map[string]string{"external_id": "order.ref", "address": "ship_to.line1"},
//	        Outbound: map[string]string{"external_id": "order_ref", "status": "state"},
//	    })
func NewConfigureTenantCommand(
	tenantID kernel.UUID,
	name, apiKey, callbackURL, callbackAPIKey string,
	maps *SchemaMaps,
) (ConfigureTenantCommand, error) {
	settings := tenant.Settings{
		Name:           name,
		APIKey:         apiKey,
		CallbackURL:    callbackURL,
		CallbackAPIKey: callbackAPIKey,
	}

	var schemaErr error
	if maps != nil {
		s, err := schema.ParseSchema(maps.Inbound, maps.Outbound)
		if err != nil {
			schemaErr = prefixFields("schema", err)
		} else {
			settings.Schema = &s
		}
	}

	if err := errors.Join(requireID("tenant_id", tenantID), schemaErr); err != nil {
		return ConfigureTenantCommand{}, err
	}

	return ConfigureTenantCommand{
		tenantID: tenantID,
		settings: settings,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c ConfigureTenantCommand) Validate() error {
	return c.guard.Validate(ErrConfigureTenantCommandIsNotConstructed)
}

// TenantID returns the tenant being created or replaced.
func (c ConfigureTenantCommand) TenantID() kernel.UUID {
	return c.tenantID
}

// Settings returns the full replacement settings.
func (c ConfigureTenantCommand) Settings() tenant.Settings {
	return c.settings
}
