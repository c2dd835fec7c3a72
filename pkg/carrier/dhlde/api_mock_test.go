package dhlde

import (
	"context"
	"testing"

	"github.com/ordaro/shipping/pkg/carrier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockAPIClient_DefaultPieceOrdering(t *testing.T) {
	req := domesticRequest()
	req.Packages = []carrier.Package{
		{ID: "PKG-1", WeightKG: 1},
		{ID: "PKG-2", WeightKG: 2},
		{ID: "PKG-3", WeightKG: 3},
	}
	order, err := buildShipmentOrder(req, testAccount, buildAt())
	require.NoError(t, err)

	mock := NewMockAPIClient()
	resp, err := mock.CreateShipmentDD(context.Background(), &Version{MajorRelease: "1", MinorRelease: "0"}, []ShipmentOrder{*order})
	require.NoError(t, err)
	require.Len(t, resp.CreationStates, 1)

	pieces := resp.CreationStates[0].PieceNumbers
	require.Len(t, pieces, 3)

	// Fixed-width numbers derived from one base: last submitted package first.
	assert.Greater(t, pieces[0], pieces[1])
	assert.Greater(t, pieces[1], pieces[2])
}
