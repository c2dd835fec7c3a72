package dhlde

// Product codes of the DHL business customer shipping API.
const (
	ProductWeltpaket    = "BPI"      // Weltpaket
	ProductEuropaket    = "EPI"      // DHL Europaket
	ProductPaket        = "EPN"      // DHL Paket (domestic parcel)
	ProductEuroplus     = "EUP"      // Europlus
	ProductExpressIdent = "EXI (td)" // Express Ident
	ProductExpressPaket = "EXP (td)" // DHL Express Paket
	ProductOfficepack   = "OFP (td)" // DHL Officepack
	ProductRegionalAT   = "RPN"      // Regional Paket AT
)

// productNames maps product codes to their display names.
var productNames = map[string]string{
	ProductWeltpaket:    "Weltpaket",
	ProductEuropaket:    "DHL Europaket",
	ProductPaket:        "DHL Paket",
	ProductEuroplus:     "Europlus",
	ProductExpressIdent: "Express Ident",
	ProductExpressPaket: "DHL Express Paket",
	ProductOfficepack:   "DHL Officepack",
	ProductRegionalAT:   "Regional Paket AT",
}

// ProductName returns the display name for a product code, falling back to
// the code itself.
func ProductName(code string) string {
	if name, ok := productNames[code]; ok {
		return name
	}
	return code
}

// ValidProduct reports whether code is a known product code.
func ValidProduct(code string) bool {
	_, ok := productNames[code]
	return ok
}

// Export reason codes. Mandatory only for Weltpaket (BPI); the description
// field of the export document must stay within 40 characters.
const (
	ExportTypeOther       = "0"
	ExportTypeGift        = "1"
	ExportTypeSample      = "2"
	ExportTypeDocuments   = "3"
	ExportTypeGoodsReturn = "4"
)

// ValidExportType reports whether code is a known export reason code.
func ValidExportType(code string) bool {
	switch code {
	case ExportTypeOther, ExportTypeGift, ExportTypeSample,
		ExportTypeDocuments, ExportTypeGoodsReturn:
		return true
	}
	return false
}

// Incoterm codes accepted in the TermsOfTrade field. Field length must be 3.
var incoterms = map[string]string{
	"DDP": "Delivery Duty Paid",
	"DXV": "Delivery Duty Paid (excl. VAT)",
	"DDU": "Delivery Duty Unpaid",
	"DDX": "Delivery Duty Paid (excl. Duties, taxes and VAT)",
	"CIP": "Carriage and Insurance Paid To",
}

// ValidIncoterm reports whether code is an accepted incoterm.
func ValidIncoterm(code string) bool {
	_, ok := incoterms[code]
	return ok
}
