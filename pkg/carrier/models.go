package carrier

import (
	"time"
)

// Environment selects the carrier API endpoint.
type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

// Account holds the credentials and contract data of one carrier account.
// It is operator-maintained and read-only at request time.
type Account struct {
	Username      string // developer/portal user for the transport-level auth
	Password      string // application token (production) or portal password (sandbox)
	APIUser       string // per-call header credential
	APISignature  string // per-call header credential
	AccountNumber string // contract account number; prefix/suffix carry sub-fields
	Environment   Environment
	Products      []string // allowed service codes for this account
}

// AllowsProduct reports whether the account's product catalog contains code.
// An empty catalog allows everything.
func (a Account) AllowsProduct(code string) bool {
	if len(a.Products) == 0 {
		return true
	}
	for _, p := range a.Products {
		if p == code {
			return true
		}
	}
	return false
}

// Address represents a generic postal address.
type Address struct {
	Name        string
	Street      string
	StreetExtra string
	City        string
	PostalCode  string
	CountryCode string // ISO 3166-1 alpha-2, e.g., "DE", "GB"
	CountryName string
	Subdivision string // state/province name, optional
}

// Contact represents the optional communication channels of a party.
// Absent channels are omitted from carrier requests, never sent empty.
type Contact struct {
	Phone   string
	Email   string
	Fax     string
	Mobile  string
	Website string
}

// Empty reports whether no channel is set.
func (c Contact) Empty() bool {
	return c.Phone == "" && c.Email == "" && c.Fax == "" &&
		c.Mobile == "" && c.Website == ""
}

// Package represents one physical package of a shipment.
type Package struct {
	ID       string
	WeightKG float64
}

// Line represents one outgoing item of the shipment, used to derive the
// customs declaration for cross-border shipments.
type Line struct {
	ProductName      string
	Quantity         float64
	UnitCustomsValue float64
}

// CreateLabelRequest carries everything a carrier needs to book a shipment.
// It is built per call and discarded with the response.
type CreateLabelRequest struct {
	SequenceNumber    string // echoed back by the carrier, usually the shipment ID
	ProductCode       string
	ShipDate          time.Time
	CustomerReference string

	ShipperCompany string
	Shipper        *Address
	ShipperContact Contact

	ReceiverName    string
	Receiver        *Address
	ReceiverContact Contact

	Packages []Package

	// Customs data, only consulted for international shipments.
	International   bool
	ExportType      string // carrier export reason code
	ExportTypeDesc  string
	TermsOfTrade    string // 3-letter incoterm
	Lines           []Line
	InvoiceDate     *time.Time
	SaleDate        *time.Time
	CustomsCurrency string // ISO currency code
}

// CreateLabelResponse is the carrier's answer to a successful booking.
type CreateLabelResponse struct {
	TrackingNumber string
	// PieceTrackingNumbers are in request order, one per package.
	PieceTrackingNumbers []string
	LabelURL             string
}
