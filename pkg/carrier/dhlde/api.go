package dhlde

import (
	"context"
)

// APIClient defines the interface for the DHL business customer shipping API.
// This abstraction allows for mock implementations during testing and the
// real SOAP implementation in production.
type APIClient interface {
	// GetVersion negotiates the API version. The returned value must be
	// echoed into every CreateShipmentDD request envelope.
	GetVersion(ctx context.Context) (*Version, error)

	// CreateShipmentDD books shipments and returns label data per order.
	CreateShipmentDD(ctx context.Context, version *Version, orders []ShipmentOrder) (*CreateShipmentResponse, error)
}

// ============================================================================
// API Request/Response Types (match the DHL DD SOAP API structure)
// ============================================================================

// Version is the negotiated API version.
type Version struct {
	MajorRelease string
	MinorRelease string
	Build        string
}

// ShipmentOrder is one shipment booking within a CreateShipmentDD request.
type ShipmentOrder struct {
	SequenceNumber string
	Shipment       Shipment
}

// Shipment is the shipment element of a ShipmentOrder.
type Shipment struct {
	ShipmentDetails ShipmentDetails
	Shipper         Shipper
	Receiver        Receiver
	ExportDocument  *ExportDocument // only for cross-border shipments
}

// ShipmentDetails carries account, product, and package data.
type ShipmentDetails struct {
	ProductCode       string
	ShipmentDate      string // ISO-8601 calendar date
	EKP               string // first 10 characters of the account number
	Attendance        Attendance
	CustomerReference string // appears on the label
	Items             []ShipmentItem
	Service           *ShipmentService
}

// Attendance carries the partner sub-account.
type Attendance struct {
	PartnerID string // last 2 characters of the account number
}

// ShipmentItem is one physical package.
type ShipmentItem struct {
	WeightInKG  float64
	PackageType string // "PK"
}

// ShipmentService holds optional service flags.
type ShipmentService struct {
	// Multipack marks a shipment split across multiple packages.
	// Only valid for the domestic parcel product.
	Multipack bool
}

// Shipper is the sending party.
type Shipper struct {
	CompanyName   string
	Address       NativeAddress
	Communication *Communication
}

// Receiver is the receiving party. The API models it as a person.
type Receiver struct {
	FirstName     string
	LastName      string
	Address       NativeAddress
	Communication *Communication
}

// NativeAddress is the carrier's address representation.
type NativeAddress struct {
	CareOfName string
	StreetName string
	City       string
	Zip        Zip
	Origin     *CountryType
}

// Zip encodes the postal code; exactly one variant is set, chosen by
// destination country.
type Zip struct {
	Germany string
	England string
	Other   string
}

// CountryType carries country and subdivision data. The API calls the
// element country although it models a subdivision.
type CountryType struct {
	Country        string
	CountryISOCode string
	State          string // truncated to 9 characters
}

// Communication carries only the channels actually present on the contact.
type Communication struct {
	Phone   string
	Email   string
	Fax     string
	Mobile  string
	Website string
}

// ExportDocument is the customs declaration for cross-border shipments.
type ExportDocument struct {
	InvoiceType           string // "commercial"
	InvoiceDate           string // ISO-8601 calendar date
	ExportType            string
	ExportTypeDescription string
	TermsOfTrade          string // 3-letter incoterm
	Amount                int
	Description           string
	CountryCodeOrigin     string
	CustomsValue          float64
	CustomsCurrency       string // ISO currency code
	Position              ExportDocPosition
}

// ExportDocPosition aggregates the shipment into a single customs position.
// Multiple positions are only allowed for Weltpaket.
type ExportDocPosition struct {
	Description       string
	CountryCodeOrigin string
	Amount            int
	NetWeightInKG     float64
	GrossWeightInKG   float64
	CustomsValue      float64
	CustomsCurrency   string
}

// CreateShipmentResponse is the parsed CreateShipmentDD response.
type CreateShipmentResponse struct {
	StatusCode     string
	StatusMessages []string
	CreationStates []CreationState
}

// CreationState is the per-order result of a CreateShipmentDD call.
type CreationState struct {
	SequenceNumber string
	StatusCode     string
	StatusMessages []string
	ShipmentNumber string
	// PieceNumbers holds the license plate of each package. The API returns
	// them in reverse order relative to the submitted packages.
	PieceNumbers []string
	LabelURL     string
}

// APIError represents an error surfaced by the DHL API.
type APIError struct {
	Code        string
	Description string
	HTTPStatus  int
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Description
}
