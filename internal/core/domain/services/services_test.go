package services_test

import (
	"testing"
	"time"

	"fulfillment/internal/core/domain/model/delivery"
	"fulfillment/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

func newRequest(t *testing.T, externalIDs ...string) *delivery.DeliveryRequest {
	t.Helper()
	coords, err := kernel.NewCoordinates(31.9539, 35.9106)
	require.NoError(t, err)

	var destinations []*delivery.Destination
	for _, id := range externalIDs {
		d, err := delivery.NewDestination(kernel.NewUUID(), delivery.DestinationData{
			ExternalID:  id,
			Address:     "Rainbow St 12, Amman",
			Coordinates: coords,
		})
		require.NoError(t, err)
		destinations = append(destinations, d)
	}

	r, err := delivery.NewDeliveryRequest(kernel.NewUUID(), kernel.NewUUID(), delivery.Details{}, destinations, now)
	require.NoError(t, err)
	return r
}
