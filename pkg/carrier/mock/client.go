// Package mock provides a mock carrier implementation for testing.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/ordaro/shipping/pkg/carrier"
)

// Client is a mock carrier for testing.
type Client struct {
	name string

	// OnCreateLabel overrides the default booking behavior.
	OnCreateLabel func(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.CreateLabelResponse, error)

	// OnTestCredentials overrides the default credential check.
	OnTestCredentials func(ctx context.Context) error
}

// New creates a new mock carrier.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// CreateLabel books a mock shipment with one piece number per package.
func (c *Client) CreateLabel(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.CreateLabelResponse, error) {
	if c.OnCreateLabel != nil {
		return c.OnCreateLabel(ctx, req)
	}

	tracking := fmt.Sprintf("%s-%d", c.name, time.Now().UnixNano())
	pieces := make([]string, len(req.Packages))
	for i := range req.Packages {
		pieces[i] = fmt.Sprintf("%s-piece-%d", tracking, i+1)
	}

	return &carrier.CreateLabelResponse{
		TrackingNumber:       tracking,
		PieceTrackingNumbers: pieces,
		LabelURL:             fmt.Sprintf("https://labels.example.com/%s.pdf", tracking),
	}, nil
}

// TestCredentials always succeeds unless overridden.
func (c *Client) TestCredentials(ctx context.Context) error {
	if c.OnTestCredentials != nil {
		return c.OnTestCredentials(ctx)
	}
	return nil
}

var _ carrier.Carrier = (*Client)(nil)
