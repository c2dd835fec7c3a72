// Package store holds the host application records the labeling workflow
// reads and the narrow write surface it is allowed to touch: shipment and
// package tracking numbers plus one attachment per successful labeling.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ordaro/shipping/pkg/carrier"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ShipmentState is the fulfilment state of an outbound shipment.
type ShipmentState string

const (
	StateDraft   ShipmentState = "draft"
	StateWaiting ShipmentState = "waiting"
	StatePacked  ShipmentState = "packed"
	StateDone    ShipmentState = "done"
)

// Shippable reports whether a label may be requested in this state.
func (s ShipmentState) Shippable() bool {
	return s == StatePacked || s == StateDone
}

// Customer identifies the ordering party.
type Customer struct {
	ID   string
	Code string
	Name string
}

// ShippingProfile carries the carrier-specific attributes of a shipment.
// It is owned by the shipment aggregate rather than merged into it, so the
// host record type stays carrier-neutral.
type ShippingProfile struct {
	ProductCode           string
	ExportType            string
	ExportTypeDescription string
	TermsOfTrade          string
}

// Package is one physical package of a shipment. Its tracking number is
// assigned only after a successful carrier call.
type Package struct {
	ID             string
	WeightKG       float64
	TrackingNumber string
}

// Shipment is an outbound shipment record.
type Shipment struct {
	ID             string
	State          ShipmentState
	Carrier        string // carrier cost method, e.g. "dhl_de"
	TrackingNumber string
	International  bool

	Customer        Customer
	CompanyName     string
	CompanyCurrency string

	ShipFrom        *carrier.Address
	ShipFromContact carrier.Contact
	Delivery        *carrier.Address
	DeliveryContact carrier.Contact

	Profile  ShippingProfile
	Packages []Package
	Lines    []carrier.Line

	InvoiceDate *time.Time
	SaleDate    *time.Time
}

// Attachment is a document persisted against a shipment record.
type Attachment struct {
	ShipmentID string
	Name       string
	Data       []byte
	CreatedAt  time.Time
}

// ShipmentStore is the read side of the host record store plus the tracking
// number writes.
type ShipmentStore interface {
	GetShipment(ctx context.Context, id string) (*Shipment, error)
	SetShipmentTracking(ctx context.Context, id, trackingNumber string) error
	SetPackageTracking(ctx context.Context, shipmentID, packageID, trackingNumber string) error
}

// AttachmentStore persists label documents.
type AttachmentStore interface {
	AddAttachment(ctx context.Context, att *Attachment) error
	GetAttachment(ctx context.Context, shipmentID, name string) (*Attachment, error)
}
