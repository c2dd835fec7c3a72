package labels_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ordaro/shipping/internal/labels"
	"github.com/ordaro/shipping/internal/store"
	"github.com/ordaro/shipping/pkg/carrier"
	"github.com/ordaro/shipping/pkg/carrier/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func testShipment() *store.Shipment {
	return &store.Shipment{
		ID:          "SHP-1",
		State:       store.StatePacked,
		Carrier:     "dhl_de",
		Customer:    store.Customer{ID: "7", Code: "CUST-42", Name: "Max Mustermann"},
		CompanyName: "Ordaro GmbH",
		ShipFrom: &carrier.Address{
			Name:        "Warehouse",
			Street:      "Musterstr. 1",
			City:        "Berlin",
			PostalCode:  "10115",
			CountryCode: "DE",
		},
		Delivery: &carrier.Address{
			Name:        "Max Mustermann",
			Street:      "Beispielweg 2",
			City:        "Hamburg",
			PostalCode:  "20095",
			CountryCode: "DE",
		},
		Profile:  store.ShippingProfile{ProductCode: "EPN"},
		Packages: []store.Package{{ID: "PKG-1", WeightKG: 1.5}},
	}
}

type fixture struct {
	store    *store.Memory
	registry *carrier.Registry
	service  *labels.Service
	carrier  *mock.Client
	calls    atomic.Int32
}

func newFixture(t *testing.T, labelURL string) *fixture {
	t.Helper()

	f := &fixture{
		store:    store.NewMemory(),
		registry: carrier.NewRegistry(),
		carrier:  mock.New("dhl_de"),
	}

	f.carrier.OnCreateLabel = func(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.CreateLabelResponse, error) {
		f.calls.Add(1)
		pieces := make([]string, len(req.Packages))
		for i := range req.Packages {
			pieces[i] = "JJD-" + req.Packages[i].ID
		}
		return &carrier.CreateLabelResponse{
			TrackingNumber:       "00340434161094042557",
			PieceTrackingNumbers: pieces,
			LabelURL:             labelURL,
		}, nil
	}
	f.registry.Register(f.carrier)

	f.service = labels.New(f.store, f.store, f.registry, otelzap.New(zap.NewNop()), nil)
	return f
}

func labelServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIssueLabel_Success(t *testing.T) {
	labelPDF := []byte("%PDF-1.4 test label")
	server := labelServer(t, labelPDF)

	f := newFixture(t, server.URL)
	f.store.PutShipment(testShipment())

	outcome, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.NoError(t, err)

	assert.Equal(t, labels.StateLabeled, outcome.State)
	assert.Equal(t, "00340434161094042557", outcome.TrackingNumber)
	assert.Equal(t, []string{"JJD-PKG-1"}, outcome.PieceTrackingNumbers)
	assert.Equal(t, "00340434161094042557.pdf", outcome.AttachmentName)

	shipment, err := f.store.GetShipment(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, "00340434161094042557", shipment.TrackingNumber)
	assert.Equal(t, "JJD-PKG-1", shipment.Packages[0].TrackingNumber)

	att, err := f.store.GetAttachment(context.Background(), "SHP-1", "00340434161094042557.pdf")
	require.NoError(t, err)
	assert.Equal(t, labelPDF, att.Data)
}

func TestIssueLabel_MultiPackage(t *testing.T) {
	server := labelServer(t, []byte("%PDF"))

	f := newFixture(t, server.URL)
	shipment := testShipment()
	shipment.Packages = []store.Package{
		{ID: "PKG-1", WeightKG: 1},
		{ID: "PKG-2", WeightKG: 2},
	}
	f.store.PutShipment(shipment)

	outcome, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"JJD-PKG-1", "JJD-PKG-2"}, outcome.PieceTrackingNumbers)

	got, err := f.store.GetShipment(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, "JJD-PKG-1", got.Packages[0].TrackingNumber)
	assert.Equal(t, "JJD-PKG-2", got.Packages[1].TrackingNumber)
}

func TestIssueLabel_NotFound(t *testing.T) {
	f := newFixture(t, "http://unused")

	_, err := f.service.IssueLabel(context.Background(), "SHP-404")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.EqualValues(t, 0, f.calls.Load())
}

func TestIssueLabel_NotShippable(t *testing.T) {
	f := newFixture(t, "http://unused")
	shipment := testShipment()
	shipment.State = store.StateWaiting
	f.store.PutShipment(shipment)

	_, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrNotShippable))
	assert.EqualValues(t, 0, f.calls.Load())
}

func TestIssueLabel_AlreadyLabeled(t *testing.T) {
	f := newFixture(t, "http://unused")
	shipment := testShipment()
	shipment.TrackingNumber = "00340434160000000001"
	f.store.PutShipment(shipment)

	_, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrAlreadyLabeled))
	assert.EqualValues(t, 0, f.calls.Load())
}

func TestIssueLabel_NoPackages(t *testing.T) {
	f := newFixture(t, "http://unused")
	shipment := testShipment()
	shipment.Packages = nil
	f.store.PutShipment(shipment)

	_, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrNoPackages))
	assert.EqualValues(t, 0, f.calls.Load())
}

func TestIssueLabel_UnconfiguredCarrier(t *testing.T) {
	f := newFixture(t, "http://unused")
	shipment := testShipment()
	shipment.Carrier = "ups"
	f.store.PutShipment(shipment)

	_, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrWrongCarrier))
	assert.Equal(t, carrier.KindValidation, carrier.ErrKind(err))
}

func TestIssueLabel_CarrierFault_NoTrackingCommitted(t *testing.T) {
	f := newFixture(t, "http://unused")
	f.carrier.OnCreateLabel = func(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.CreateLabelResponse, error) {
		return nil, carrier.NewError("dhl_de", carrier.KindRemote, "Invalid postal code")
	}
	f.store.PutShipment(testShipment())

	outcome, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, carrier.KindRemote, carrier.ErrKind(err))

	shipment, err := f.store.GetShipment(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Empty(t, shipment.TrackingNumber)
	assert.Empty(t, shipment.Packages[0].TrackingNumber)
	assert.Equal(t, 0, f.store.AttachmentCount())
}

func TestIssueLabel_PieceCountMismatch_NoTrackingCommitted(t *testing.T) {
	f := newFixture(t, "http://unused")
	f.carrier.OnCreateLabel = func(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.CreateLabelResponse, error) {
		return &carrier.CreateLabelResponse{
			TrackingNumber:       "00340434161094042557",
			PieceTrackingNumbers: []string{"JJD-ONLY"},
			LabelURL:             "http://unused",
		}, nil
	}

	shipment := testShipment()
	shipment.Packages = []store.Package{
		{ID: "PKG-1", WeightKG: 1},
		{ID: "PKG-2", WeightKG: 2},
	}
	f.store.PutShipment(shipment)

	outcome, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.True(t, errors.Is(err, carrier.ErrPieceCountMismatch))
	assert.Equal(t, carrier.KindTransport, carrier.ErrKind(err))

	got, err := f.store.GetShipment(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Empty(t, got.TrackingNumber)
	assert.Empty(t, got.Packages[0].TrackingNumber)
	assert.Empty(t, got.Packages[1].TrackingNumber)
	assert.Equal(t, 0, f.store.AttachmentCount())
}

func TestIssueLabel_DownloadFailure_TrackingStaysCommitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := newFixture(t, server.URL)
	f.store.PutShipment(testShipment())

	outcome, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.Error(t, err)
	assert.Equal(t, carrier.KindDownload, carrier.ErrKind(err))

	// The booking is committed; only the document is missing.
	require.NotNil(t, outcome)
	assert.Equal(t, labels.StateLabelFetchFailed, outcome.State)
	assert.Equal(t, "00340434161094042557", outcome.TrackingNumber)
	assert.Empty(t, outcome.AttachmentName)

	shipment, err := f.store.GetShipment(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, "00340434161094042557", shipment.TrackingNumber)
	assert.Equal(t, 0, f.store.AttachmentCount())
}

func TestIssueLabel_CustomerReferenceFallback(t *testing.T) {
	server := labelServer(t, []byte("%PDF"))

	f := newFixture(t, server.URL)
	var gotReference string
	inner := f.carrier.OnCreateLabel
	f.carrier.OnCreateLabel = func(ctx context.Context, req *carrier.CreateLabelRequest) (*carrier.CreateLabelResponse, error) {
		gotReference = req.CustomerReference
		return inner(ctx, req)
	}

	shipment := testShipment()
	shipment.Customer.Code = ""
	f.store.PutShipment(shipment)

	_, err := f.service.IssueLabel(context.Background(), "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, "7", gotReference)
}

func TestIssueLabels_Parallel(t *testing.T) {
	server := labelServer(t, []byte("%PDF"))

	f := newFixture(t, server.URL)
	for _, id := range []string{"SHP-1", "SHP-2"} {
		shipment := testShipment()
		shipment.ID = id
		f.store.PutShipment(shipment)
	}
	broken := testShipment()
	broken.ID = "SHP-3"
	broken.State = store.StateDraft
	f.store.PutShipment(broken)

	outcomes, errs := f.service.IssueLabels(context.Background(), []string{"SHP-1", "SHP-2", "SHP-3"})

	assert.Len(t, outcomes, 2)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], carrier.ErrNotShippable))
}
