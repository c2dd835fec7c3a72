// Package labels drives the shipping-label issuance workflow: it gathers
// host records into a carrier request, books the shipment, commits tracking
// numbers, and persists the fetched label document.
package labels

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ordaro/shipping/internal/store"
	"github.com/ordaro/shipping/internal/telemetry"
	"github.com/ordaro/shipping/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the outcome state of one label issuance.
type State string

const (
	// StateLabeled means booking, tracking commit, and label fetch all succeeded.
	StateLabeled State = "labeled"
	// StateLabelFetchFailed means the booking succeeded and tracking numbers
	// are committed, but the label document could not be fetched.
	StateLabelFetchFailed State = "label_fetch_failed"
)

// Outcome reports the result of a label issuance.
type Outcome struct {
	ShipmentID           string
	Carrier              string
	TrackingNumber       string
	PieceTrackingNumbers []string
	AttachmentName       string
	State                State
}

// Service orchestrates label issuance against the host record store and the
// registered carriers.
type Service struct {
	shipments   store.ShipmentStore
	attachments store.AttachmentStore
	registry    *carrier.Registry
	downloader  *http.Client
	logger      *otelzap.Logger
	metrics     *telemetry.Metrics
}

// New creates a label issuance service.
func New(shipments store.ShipmentStore, attachments store.AttachmentStore,
	registry *carrier.Registry, logger *otelzap.Logger, metrics *telemetry.Metrics) *Service {
	return &Service{
		shipments:   shipments,
		attachments: attachments,
		registry:    registry,
		downloader:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		metrics:     metrics,
	}
}

// IssueLabel runs one complete label issuance cycle for a shipment.
//
// On a label fetch failure the tracking numbers are already committed and
// stay committed; the returned outcome is then non-nil with state
// label_fetch_failed alongside the download error.
func (s *Service) IssueLabel(ctx context.Context, shipmentID string) (*Outcome, error) {
	start := time.Now()
	outcome, err := s.issueLabel(ctx, shipmentID)

	carrierName := "unknown"
	if outcome != nil {
		carrierName = outcome.Carrier
	}
	status := "ok"
	if err != nil {
		status = string(carrier.ErrKind(err))
		if status == "" {
			status = "error"
		}
	}
	if s.metrics != nil {
		if err != nil {
			s.metrics.RecordError(carrierName, status)
		}
		s.metrics.RecordRequest("create_label", carrierName, status, time.Since(start).Seconds())
	}

	return outcome, err
}

func (s *Service) issueLabel(ctx context.Context, shipmentID string) (*Outcome, error) {
	shipment, err := s.shipments.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	if err := s.checkPreconditions(shipment); err != nil {
		return nil, err
	}

	crr, err := s.registry.Get(shipment.Carrier)
	if err != nil {
		return nil, carrier.NewError(shipment.Carrier, carrier.KindValidation,
			"shipment is assigned to an unconfigured carrier").
			WithCause(carrier.ErrWrongCarrier)
	}

	resp, err := crr.CreateLabel(ctx, buildRequest(shipment))
	if err != nil {
		return nil, err
	}

	// One piece number per package, or nothing is committed.
	if len(resp.PieceTrackingNumbers) != len(shipment.Packages) {
		return nil, carrier.NewError(crr.Name(), carrier.KindTransport,
			"carrier returned inconsistent piece list").
			WithCause(carrier.ErrPieceCountMismatch)
	}

	s.logger.Info("Shipment booked",
		zap.String("shipment_id", shipment.ID),
		zap.String("carrier", crr.Name()),
		zap.String("tracking_number", resp.TrackingNumber),
	)

	// Commit point: from here on the shipment counts as labeled even if the
	// document fetch below fails.
	if err := s.shipments.SetShipmentTracking(ctx, shipment.ID, resp.TrackingNumber); err != nil {
		return nil, fmt.Errorf("committing tracking number: %w", err)
	}
	for i, pkg := range shipment.Packages {
		if err := s.shipments.SetPackageTracking(ctx, shipment.ID, pkg.ID, resp.PieceTrackingNumbers[i]); err != nil {
			return nil, fmt.Errorf("committing package tracking number: %w", err)
		}
	}

	outcome := &Outcome{
		ShipmentID:           shipment.ID,
		Carrier:              crr.Name(),
		TrackingNumber:       resp.TrackingNumber,
		PieceTrackingNumbers: resp.PieceTrackingNumbers,
	}

	attachmentName := resp.TrackingNumber + ".pdf"
	label, err := s.fetchLabel(ctx, resp.LabelURL)
	if err != nil {
		outcome.State = StateLabelFetchFailed
		return outcome, carrier.NewError(crr.Name(), carrier.KindDownload,
			"error downloading label from "+resp.LabelURL).
			WithCause(err)
	}

	if s.metrics != nil {
		s.metrics.RecordLabel(len(label))
	}

	if err := s.attachments.AddAttachment(ctx, &store.Attachment{
		ShipmentID: shipment.ID,
		Name:       attachmentName,
		Data:       label,
	}); err != nil {
		outcome.State = StateLabelFetchFailed
		return outcome, carrier.NewError(crr.Name(), carrier.KindDownload,
			"error persisting label document").
			WithCause(err)
	}

	outcome.AttachmentName = attachmentName
	outcome.State = StateLabeled
	return outcome, nil
}

// IssueLabels labels multiple shipments in parallel, each with its own
// request/response cycle.
func (s *Service) IssueLabels(ctx context.Context, shipmentIDs []string) ([]*Outcome, []error) {
	outcomes := make([]*Outcome, 0, len(shipmentIDs))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range shipmentIDs {
		id := id
		g.Go(func() error {
			outcome, err := s.IssueLabel(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", id, err))
			}
			if outcome != nil {
				outcomes = append(outcomes, outcome)
			}
			return nil
		})
	}
	g.Wait()
	return outcomes, errs
}

// checkPreconditions gates the transition out of the unlabeled state.
func (s *Service) checkPreconditions(shipment *store.Shipment) error {
	if !shipment.State.Shippable() {
		return carrier.NewError(shipment.Carrier, carrier.KindValidation,
			"shipment "+shipment.ID+" is in state "+string(shipment.State)).
			WithCause(carrier.ErrNotShippable)
	}
	if shipment.TrackingNumber != "" {
		return carrier.NewError(shipment.Carrier, carrier.KindValidation,
			"shipment "+shipment.ID+" already has tracking number "+shipment.TrackingNumber).
			WithCause(carrier.ErrAlreadyLabeled)
	}
	if len(shipment.Packages) == 0 {
		return carrier.NewError(shipment.Carrier, carrier.KindValidation,
			"no packages on shipment "+shipment.ID).
			WithCause(carrier.ErrNoPackages)
	}
	return nil
}

// buildRequest assembles the carrier-neutral request from host records.
func buildRequest(shipment *store.Shipment) *carrier.CreateLabelRequest {
	// The customer code appears on the label; the internal identifier is the
	// fallback when no code is maintained.
	reference := shipment.Customer.Code
	if reference == "" {
		reference = shipment.Customer.ID
	}

	receiverName := ""
	if shipment.Delivery != nil {
		receiverName = shipment.Delivery.Name
	}
	if receiverName == "" {
		receiverName = shipment.Customer.Name
	}

	packages := make([]carrier.Package, len(shipment.Packages))
	for i, pkg := range shipment.Packages {
		packages[i] = carrier.Package{ID: pkg.ID, WeightKG: pkg.WeightKG}
	}

	return &carrier.CreateLabelRequest{
		SequenceNumber:    shipment.ID,
		ProductCode:       shipment.Profile.ProductCode,
		CustomerReference: reference,
		ShipperCompany:    shipment.CompanyName,
		Shipper:           shipment.ShipFrom,
		ShipperContact:    shipment.ShipFromContact,
		ReceiverName:      receiverName,
		Receiver:          shipment.Delivery,
		ReceiverContact:   shipment.DeliveryContact,
		Packages:          packages,
		International:     shipment.International,
		ExportType:        shipment.Profile.ExportType,
		ExportTypeDesc:    shipment.Profile.ExportTypeDescription,
		TermsOfTrade:      shipment.Profile.TermsOfTrade,
		Lines:             shipment.Lines,
		InvoiceDate:       shipment.InvoiceDate,
		SaleDate:          shipment.SaleDate,
		CustomsCurrency:   shipment.CompanyCurrency,
	}
}

// fetchLabel retrieves the label document over a plain GET.
func (s *Service) fetchLabel(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.downloader.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
