package dhlde

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetVersion       func(ctx context.Context) (*Version, error)
	OnCreateShipmentDD func(ctx context.Context, version *Version, orders []ShipmentOrder) (*CreateShipmentResponse, error)

	// VersionCalls counts GetVersion invocations, for asserting that the
	// negotiated version is cached.
	VersionCalls int
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// GetVersion returns a mock API version.
func (m *MockAPIClient) GetVersion(ctx context.Context) (*Version, error) {
	m.VersionCalls++

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Description: "Simulated API error"}
	}

	if m.OnGetVersion != nil {
		return m.OnGetVersion(ctx)
	}

	return &Version{MajorRelease: "1", MinorRelease: "0"}, nil
}

// CreateShipmentDD books mock shipments. Piece numbers are returned in
// reverse order relative to the submitted packages, matching the real API.
func (m *MockAPIClient) CreateShipmentDD(ctx context.Context, version *Version, orders []ShipmentOrder) (*CreateShipmentResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Description: "Simulated API error"}
	}

	if m.OnCreateShipmentDD != nil {
		return m.OnCreateShipmentDD(ctx, version, orders)
	}

	states := make([]CreationState, len(orders))
	for i, order := range orders {
		base := time.Now().UnixNano()
		shipmentNumber := fmt.Sprintf("0034043416%010d", base%10000000000)

		items := order.Shipment.ShipmentDetails.Items
		pieces := make([]string, len(items))
		for j := range items {
			// last submitted package first
			pieces[j] = fmt.Sprintf("JJD%014d", (base+int64(len(items)-1-j))%100000000000000)
		}

		states[i] = CreationState{
			SequenceNumber: order.SequenceNumber,
			StatusCode:     "0",
			ShipmentNumber: shipmentNumber,
			PieceNumbers:   pieces,
			LabelURL:       fmt.Sprintf("https://cig.dhl.de/labels/%s.pdf", uuid.New().String()[:8]),
		}
	}

	return &CreateShipmentResponse{
		StatusCode:     "0",
		CreationStates: states,
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
