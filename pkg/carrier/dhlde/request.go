package dhlde

import (
	"strings"
	"time"

	"github.com/ordaro/shipping/pkg/carrier"
)

// maxStateLen is the carrier's maximum length for the subdivision field.
const maxStateLen = 9

// buildNativeAddress converts a generic postal address into the carrier's
// address representation. Pure function, no I/O.
func buildNativeAddress(addr *carrier.Address) NativeAddress {
	native := NativeAddress{
		CareOfName: addr.Name,
		City:       addr.City,
	}

	// Non-empty street parts joined into one street name.
	parts := make([]string, 0, 2)
	for _, s := range []string{addr.Street, addr.StreetExtra} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	native.StreetName = strings.Join(parts, "\n")

	if addr.PostalCode != "" {
		switch addr.CountryCode {
		case "DE":
			native.Zip.Germany = addr.PostalCode
		case "GB":
			native.Zip.England = addr.PostalCode
		default:
			native.Zip.Other = addr.PostalCode
		}
	}

	if addr.Subdivision != "" {
		state := addr.Subdivision
		if r := []rune(state); len(r) > maxStateLen {
			state = string(r[:maxStateLen])
		}
		native.Origin = &CountryType{
			Country:        addr.CountryName,
			CountryISOCode: addr.CountryCode,
			State:          state,
		}
	}

	return native
}

// buildCommunication converts a contact into the carrier's communication
// block. Only channels actually present are carried; a contact with no
// channels yields nil so that nothing is sent.
func buildCommunication(c carrier.Contact) *Communication {
	if c.Empty() {
		return nil
	}
	return &Communication{
		Phone:   c.Phone,
		Email:   c.Email,
		Fax:     c.Fax,
		Mobile:  c.Mobile,
		Website: c.Website,
	}
}

// splitReceiverName splits a receiver name into first and last name on the
// first space. A single-word name gets "-" as last name; the API requires
// both fields.
func splitReceiverName(name string) (string, string) {
	if i := strings.Index(name, " "); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, "-"
}

// exportInvoiceDate resolves the customs invoice date with the fallback
// chain invoice date, then sale date, then today.
func exportInvoiceDate(req *carrier.CreateLabelRequest, now time.Time) time.Time {
	if req.InvoiceDate != nil {
		return *req.InvoiceDate
	}
	if req.SaleDate != nil {
		return *req.SaleDate
	}
	return now
}

// buildExportDocument assembles the customs declaration for a cross-border
// shipment. The whole shipment is aggregated into a single position.
func buildExportDocument(req *carrier.CreateLabelRequest, now time.Time) *ExportDocument {
	var customsValue float64
	names := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		customsValue += line.UnitCustomsValue * line.Quantity
		names = append(names, line.ProductName)
	}
	description := strings.Join(names, ",")

	var packageWeight float64
	for _, pkg := range req.Packages {
		packageWeight += pkg.WeightKG
	}

	countryOrigin := ""
	if req.Shipper != nil {
		countryOrigin = req.Shipper.CountryCode
	}

	return &ExportDocument{
		InvoiceType:           "commercial",
		InvoiceDate:           exportInvoiceDate(req, now).Format("2006-01-02"),
		ExportType:            req.ExportType,
		ExportTypeDescription: req.ExportTypeDesc,
		TermsOfTrade:          req.TermsOfTrade,
		Amount:                1,
		Description:           description,
		CountryCodeOrigin:     countryOrigin,
		CustomsValue:          customsValue,
		CustomsCurrency:       req.CustomsCurrency,
		Position: ExportDocPosition{
			Description:       description,
			CountryCodeOrigin: countryOrigin,
			Amount:            1,
			NetWeightInKG:     packageWeight,
			GrossWeightInKG:   packageWeight,
			CustomsValue:      customsValue,
			CustomsCurrency:   req.CustomsCurrency,
		},
	}
}

// buildShipmentOrder assembles a full booking order from the generic request
// and the carrier account. It fails when the request cannot be built.
func buildShipmentOrder(req *carrier.CreateLabelRequest, acct carrier.Account, now time.Time) (*ShipmentOrder, error) {
	if len(req.Packages) == 0 {
		return nil, carrier.NewError(carrierName, carrier.KindValidation, "no packages on shipment").
			WithCause(carrier.ErrNoPackages)
	}
	if req.Shipper == nil {
		return nil, carrier.NewError(carrierName, carrier.KindValidation, "shipper address is missing").
			WithCause(carrier.ErrMissingShipperAddress)
	}
	if req.Receiver == nil {
		return nil, carrier.NewError(carrierName, carrier.KindValidation, "receiver address is missing")
	}
	if len(acct.AccountNumber) < 12 {
		return nil, carrier.NewError(carrierName, carrier.KindValidation, "account number is too short")
	}
	if !ValidProduct(req.ProductCode) {
		return nil, carrier.NewError(carrierName, carrier.KindValidation, "unknown product code "+req.ProductCode)
	}
	if !acct.AllowsProduct(req.ProductCode) {
		return nil, carrier.NewError(carrierName, carrier.KindValidation, "product "+req.ProductCode+" not in account catalog").
			WithCause(carrier.ErrProductNotAllowed)
	}

	shipDate := req.ShipDate
	if shipDate.IsZero() {
		shipDate = now
	}

	details := ShipmentDetails{
		ProductCode:  req.ProductCode,
		ShipmentDate: shipDate.Format("2006-01-02"),
		// The account number carries the contract identifier in its first 10
		// characters and the partner sub-account in its last 2.
		EKP:               acct.AccountNumber[:10],
		Attendance:        Attendance{PartnerID: acct.AccountNumber[len(acct.AccountNumber)-2:]},
		CustomerReference: req.CustomerReference,
	}

	for _, pkg := range req.Packages {
		details.Items = append(details.Items, ShipmentItem{
			WeightInKG:  pkg.WeightKG,
			PackageType: "PK",
		})
	}

	// Multipack is a DHL Paket service; it must not be set for other products.
	if len(req.Packages) > 1 && req.ProductCode == ProductPaket {
		details.Service = &ShipmentService{Multipack: true}
	}

	receiverName := req.ReceiverName
	if receiverName == "" && req.Receiver != nil {
		receiverName = req.Receiver.Name
	}
	firstName, lastName := splitReceiverName(receiverName)

	shipment := Shipment{
		ShipmentDetails: details,
		Shipper: Shipper{
			CompanyName:   req.ShipperCompany,
			Address:       buildNativeAddress(req.Shipper),
			Communication: buildCommunication(req.ShipperContact),
		},
		Receiver: Receiver{
			FirstName:     firstName,
			LastName:      lastName,
			Address:       buildNativeAddress(req.Receiver),
			Communication: buildCommunication(req.ReceiverContact),
		},
	}

	if req.International {
		if req.ExportType != "" && !ValidExportType(req.ExportType) {
			return nil, carrier.NewError(carrierName, carrier.KindValidation, "unknown export type "+req.ExportType)
		}
		if req.TermsOfTrade != "" && !ValidIncoterm(req.TermsOfTrade) {
			return nil, carrier.NewError(carrierName, carrier.KindValidation, "unknown incoterm "+req.TermsOfTrade)
		}
		shipment.ExportDocument = buildExportDocument(req, now)
	}

	return &ShipmentOrder{
		SequenceNumber: req.SequenceNumber,
		Shipment:       shipment,
	}, nil
}
