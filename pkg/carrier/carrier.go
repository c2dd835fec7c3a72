// Package carrier provides an abstraction layer for shipping-label carriers.
package carrier

import (
	"context"
)

// Carrier defines the interface that all label-issuing carriers must implement.
type Carrier interface {
	// Name returns the carrier identifier (e.g., "dhl_de").
	Name() string

	// CreateLabel books a shipment with the carrier and returns the assigned
	// tracking numbers together with the location of the label document.
	CreateLabel(ctx context.Context, req *CreateLabelRequest) (*CreateLabelResponse, error)

	// TestCredentials verifies the configured account against the carrier API
	// without creating a shipment.
	TestCredentials(ctx context.Context) error
}
