package tenantrepo_test

import (
	"context"
	"testing"

	postgres_adapter "fulfillment/internal/adapters/out/postgres"
	"fulfillment/internal/adapters/out/postgres/pgtest"
	"fulfillment/internal/adapters/out/postgres/tenantrepo"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/schema"
	"fulfillment/internal/core/domain/model/tenant"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

type TenantRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *tenantrepo.GormTenantRepository
}

func (suite *TenantRepositoryIntegrationTestSuite) SetupSuite() {
	container, db, err := pgtest.Start(context.Background())
	suite.container = container
	suite.Require().NoError(err)
	suite.db = db
	suite.Require().NoError(postgres_adapter.Migrate(db))
}

func (suite *TenantRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(pgtest.Truncate(suite.db, postgres_adapter.Tables...))
	suite.repository = tenantrepo.NewGormTenantRepository(suite.db)
}

func (suite *TenantRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *TenantRepositoryIntegrationTestSuite) TestAdd_Get_WithSchema() {
	ctx := context.Background()
	s, err := schema.ParseSchema(
		map[string]string{"external_id": "order.id", "address": "shipping.address.line1"},
		map[string]string{"external_id": "order_id", "status": "state"},
	)
	suite.Require().NoError(err)
	tn, err := tenant.NewTenant(kernel.NewUUID(), tenant.Settings{
		Name:           "Melody Perfumes",
		APIKey:         "melody-key",
		CallbackURL:    "https://erp.melody.jo/hooks",
		CallbackAPIKey: "cb-secret",
		Schema:         &s,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Add(ctx, tn))

	loaded, err := suite.repository.GetByAPIKeyHash(ctx, tenant.HashAPIKey("melody-key"))
	suite.Require().NoError(err)
	suite.True(loaded.ID().IsEqual(tn.ID()))
	suite.Equal("Melody Perfumes", loaded.Name())
	suite.True(loaded.MatchesAPIKey("melody-key"))
	suite.Require().NotNil(loaded.Schema())
	suite.Equal(s.InboundMap(), loaded.Schema().InboundMap())
	suite.Equal(s.OutboundMap(), loaded.Schema().OutboundMap())
}

func (suite *TenantRepositoryIntegrationTestSuite) TestAdd_Get_WithoutSchema() {
	ctx := context.Background()
	tn, err := tenant.NewTenant(kernel.NewUUID(), tenant.Settings{Name: "Zain Books", APIKey: "zain-key"})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Add(ctx, tn))

	loaded, err := suite.repository.Get(ctx, tn.ID())
	suite.Require().NoError(err)
	suite.Nil(loaded.Schema())
	_, _, err = loaded.CallbackTarget("")
	suite.Require().ErrorIs(err, errs.ErrConfiguration)
}

func (suite *TenantRepositoryIntegrationTestSuite) TestUpdate_ReplacesSettings() {
	ctx := context.Background()
	tn, err := tenant.NewTenant(kernel.NewUUID(), tenant.Settings{Name: "Zain Books", APIKey: "zain-key"})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Add(ctx, tn))

	suite.Require().NoError(tn.Configure(tenant.Settings{
		Name:        "Zain Books Ltd",
		CallbackURL: "https://zain.example/callbacks",
	}))
	suite.Require().NoError(suite.repository.Update(ctx, tn))

	loaded, err := suite.repository.Get(ctx, tn.ID())
	suite.Require().NoError(err)
	suite.Equal("Zain Books Ltd", loaded.Name())
	suite.Equal("https://zain.example/callbacks", loaded.CallbackURL())
	suite.True(loaded.MatchesAPIKey("zain-key"))
}

func (suite *TenantRepositoryIntegrationTestSuite) TestLookups_NotFound() {
	ctx := context.Background()

	_, err := suite.repository.Get(ctx, kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)

	_, err = suite.repository.GetByAPIKeyHash(ctx, tenant.HashAPIKey("unknown"))
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func TestTenantRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(TenantRepositoryIntegrationTestSuite))
}
