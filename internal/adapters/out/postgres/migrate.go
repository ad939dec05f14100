package postgres

import (
	"fmt"

	"fulfillment/internal/adapters/out/postgres/callbackrepo"
	"fulfillment/internal/adapters/out/postgres/deliveryrepo"
	"fulfillment/internal/adapters/out/postgres/tenantrepo"
	"fulfillment/internal/adapters/out/postgres/triprepo"

	"gorm.io/gorm"
)

// Tables lists every table in dependency order, for truncation in tests.
var Tables = []string{"callbacks", "trips", "destinations", "delivery_requests", "tenants"}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&tenantrepo.TenantDTO{},
		&deliveryrepo.DeliveryRequestDTO{},
		&deliveryrepo.DestinationDTO{},
		&triprepo.TripDTO{},
		&callbackrepo.CallbackDTO{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
