// Package tenantrepo persists tenant settings. Only the hash of the tenant API
// key is stored.
package tenantrepo

import (
	"encoding/json"
	"fmt"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/core/domain/model/tenant"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TenantDTO is one row of tenants. Schema is NULL until an operator configures one.
type TenantDTO struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name           string         `gorm:"type:varchar(255);not null"`
	APIKeyHash     string         `gorm:"type:char(64);not null;uniqueIndex"`
	CallbackURL    string         `gorm:"type:text"`
	CallbackAPIKey string         `gorm:"type:text"`
	Schema         datatypes.JSON `gorm:"type:jsonb"`
}

func (TenantDTO) TableName() string {
	return "tenants"
}

// SchemaDTO is the stored form of a tenant schema.
type SchemaDTO struct {
	Inbound  map[string]string `json:"inbound"`
	Outbound map[string]string `json:"outbound"`
}

func fromDomain(t *tenant.Tenant) (TenantDTO, error) {
	dto := TenantDTO{
		ID:             t.ID().Bytes(),
		Name:           t.Name(),
		APIKeyHash:     t.APIKeyHash(),
		CallbackURL:    t.CallbackURL(),
		CallbackAPIKey: t.CallbackAPIKey(),
	}

	if s := t.Schema(); s != nil {
		raw, err := json.Marshal(SchemaDTO{Inbound: s.InboundMap(), Outbound: s.OutboundMap()})
		if err != nil {
			return TenantDTO{}, fmt.Errorf("encode tenant schema: %w", err)
		}
		dto.Schema = raw
	}

	return dto, nil
}

func toDomain(dto TenantDTO) (*tenant.Tenant, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	var s *schema.Schema
	if len(dto.Schema) > 0 && string(dto.Schema) != "null" {
		var stored SchemaDTO
		if err := json.Unmarshal(dto.Schema, &stored); err != nil {
			return nil, fmt.Errorf("decode tenant schema: %w", err)
		}
		parsed, err := schema.ParseSchema(stored.Inbound, stored.Outbound)
		if err != nil {
			return nil, err
		}
		s = &parsed
	}

	return tenant.RestoreTenant(id, dto.Name, dto.APIKeyHash, dto.CallbackURL, dto.CallbackAPIKey, s)
}
