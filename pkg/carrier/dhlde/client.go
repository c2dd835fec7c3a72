// Package dhlde provides integration with the DHL business customer
// shipping API (Geschäftskundenversand) for German contract customers.
package dhlde

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ordaro/shipping/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "dhl_de"

// Config holds DHL DE configuration.
type Config struct {
	Account carrier.Account
	UseMock bool
}

// Client is the DHL DE carrier client.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer

	// The API version is negotiated once per client and echoed into every
	// booking request.
	versionMu sync.Mutex
	version   *Version
}

// New creates a new DHL DE client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewSOAPAPIClient(SOAPAPIClientConfig{
			Username:     cfg.Account.Username,
			Password:     cfg.Account.Password,
			APIUser:      cfg.Account.APIUser,
			APISignature: cfg.Account.APISignature,
			Production:   cfg.Account.Environment == carrier.EnvProduction,
			Timeout:      30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new DHL DE client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// negotiatedVersion returns the cached API version, performing the version
// call on first use.
func (c *Client) negotiatedVersion(ctx context.Context) (*Version, error) {
	c.versionMu.Lock()
	defer c.versionMu.Unlock()

	if c.version != nil {
		return c.version, nil
	}

	version, err := c.apiClient.GetVersion(ctx)
	if err != nil {
		return nil, c.mapAPIError(err)
	}
	c.version = version
	return version, nil
}

// TestCredentials verifies the configured account by performing the version
// call only.
func (c *Client) TestCredentials(ctx context.Context) error {
	_, err := c.apiClient.GetVersion(ctx)
	if err != nil {
		c.logger.Warn("DHL DE credential check failed", zap.Error(err))
		return c.mapAPIError(err)
	}
	return nil
}

// CreateLabel books the shipment with DHL and returns the assigned tracking
// numbers and label location.
func (c *Client) CreateLabel(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.CreateLabelResponse, error) {
	c.logger.Info("Creating DHL DE shipment",
		zap.String("sequence_number", req.SequenceNumber),
		zap.String("product", ProductName(req.ProductCode)),
		zap.Int("package_count", len(req.Packages)),
		zap.Bool("international", req.International),
	)

	order, err := buildShipmentOrder(req, c.config.Account, time.Now())
	if err != nil {
		return nil, err
	}

	version, err := c.negotiatedVersion(ctx)
	if err != nil {
		return nil, err
	}

	apiResp, err := c.apiClient.CreateShipmentDD(ctx, version, []ShipmentOrder{*order})
	if err != nil {
		c.logger.Error("DHL DE API error", zap.Error(err))
		return nil, c.mapAPIError(err)
	}

	state, err := c.creationStateFor(apiResp, req.SequenceNumber)
	if err != nil {
		return nil, err
	}

	if state.StatusCode != "0" {
		msg := strings.Join(state.StatusMessages, "\n")
		if msg == "" {
			msg = strings.Join(apiResp.StatusMessages, "\n")
		}
		return nil, carrier.NewError(carrierName, carrier.KindRemote, msg)
	}

	if len(state.PieceNumbers) != len(req.Packages) {
		return nil, carrier.NewError(carrierName, carrier.KindTransport,
			"carrier returned inconsistent piece list").
			WithCause(carrier.ErrPieceCountMismatch)
	}

	// The API returns piece numbers in reverse order relative to the
	// submitted packages; restore request order.
	pieces := make([]string, len(state.PieceNumbers))
	for i, p := range state.PieceNumbers {
		pieces[len(pieces)-1-i] = p
	}

	return &carrier.CreateLabelResponse{
		TrackingNumber:       state.ShipmentNumber,
		PieceTrackingNumbers: pieces,
		LabelURL:             state.LabelURL,
	}, nil
}

// creationStateFor picks the creation state matching the submitted sequence
// number, tolerating responses that omit it for single-order requests.
func (c *Client) creationStateFor(resp *CreateShipmentResponse, sequenceNumber string) (*CreationState, error) {
	for i := range resp.CreationStates {
		if resp.CreationStates[i].SequenceNumber == sequenceNumber {
			return &resp.CreationStates[i], nil
		}
	}
	if len(resp.CreationStates) == 1 {
		return &resp.CreationStates[0], nil
	}
	return nil, carrier.NewError(carrierName, carrier.KindTransport,
		"no creation state for sequence number "+sequenceNumber)
}

// mapAPIError translates API-layer errors into the carrier error taxonomy.
// Credential rejections surface with a fixed message; everything else is a
// transport-level fault unless the API produced a SOAP fault.
func (c *Client) mapAPIError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatus == http.StatusUnauthorized {
			return carrier.NewError(carrierName, carrier.KindAuth, "invalid credentials").
				WithCause(carrier.ErrInvalidCredentials).
				WithStatusCode(apiErr.HTTPStatus)
		}
		return carrier.NewError(carrierName, carrier.KindRemote, apiErr.Description).
			WithStatusCode(apiErr.HTTPStatus).
			WithCause(apiErr)
	}
	return carrier.NewError(carrierName, carrier.KindTransport, "carrier unreachable").
		WithCause(err)
}

var _ carrier.Carrier = (*Client)(nil)
