package invoice

// Shape identifies which of the accepted result layouts was received
type Shape string

const (
	ShapeRaw    Shape = "raw"    // plain text, displayed verbatim
	ShapeUI     Shape = "ui"     // camelCase keys: invoiceMetadata, vendorDetails, lineItems, totals
	ShapeAPI    Shape = "api"    // snake_case keys: invoice_metadata, vendor_details, line_items, ...
	ShapeFields Shape = "fields" // flat array of key/value pairs
	ShapeEmpty  Shape = "empty"
)

// Extraction is the canonical form of an extraction result.
// Exactly one of Raw, Invoice or Groups carries the content, depending on Shape.
type Extraction struct {
	Shape   Shape
	Raw     string
	Invoice *Invoice
	Groups  []Group
	// Extra holds top-level keys the canonical model does not know about
	Extra map[string]any
	// Source is the value as received, used for export
	Source any
}

// Invoice holds the structured fields of an extracted invoice.
// Empty strings mean no data.
type Invoice struct {
	Metadata  Metadata
	Vendor    Party
	Client    Party
	Shipping  Shipping
	LineItems []LineItem
	Tax       TaxDetails
	Payment   PaymentSummary
	QRCode    QRCode
}

// Metadata describes the invoice document itself
type Metadata struct {
	Type          string
	Number        string
	Date          string
	DueDate       string
	PlaceOfSupply string
	IRN           string
	AckNumber     string
	AckDate       string
}

// Party is a vendor or client
type Party struct {
	Name    string
	GSTIN   string
	PAN     string
	Email   string
	Phone   string
	Website string
	Address Address
	Bank    BankDetails
}

// Address is a postal address
type Address struct {
	Street  string
	City    string
	State   string
	Pincode string
	Country string
}

// BankDetails are the vendor's payment coordinates
type BankDetails struct {
	BankName      string
	AccountNumber string
	IFSC          string
	Branch        string
}

// Shipping describes dispatch information
type Shipping struct {
	Mode           string
	TrackingNumber string
	Date           string
	Destination    string
}

// LineItem is a single billed line
type LineItem struct {
	Number       string
	HSNSAC       string
	Description  string
	Quantity     string
	Unit         string
	Rate         string
	Discount     string
	TaxableValue string
	CGSTRate     string
	CGSTAmount   string
	SGSTRate     string
	SGSTAmount   string
	IGSTRate     string
	IGSTAmount   string
	TotalTax     string
	Total        string
}

// TaxDetails summarises GST components
type TaxDetails struct {
	CGSTRate       string
	CGSTAmount     string
	SGSTRate       string
	SGSTAmount     string
	IGSTRate       string
	IGSTAmount     string
	TotalTaxAmount string
}

// PaymentSummary holds the totals block
type PaymentSummary struct {
	Currency          string
	Subtotal          string
	Discount          string
	RoundOff          string
	TaxableValueTotal string
	TotalTax          string
	Total             string
	TotalInWords      string
	AmountDue         string
	PaymentTerms      string
	PaymentStatus     string
}

// QRCode records whether the invoice carried a QR code and what it decoded to
type QRCode struct {
	Present string
	Data    string
}

// Field is a single key/value pair from a flat result
type Field struct {
	Name  string
	Value string
}

// Group is a bucket of fields regrouped from a flat result
type Group struct {
	Bucket Bucket
	Fields []Field
}

// Currency returns the invoice currency, defaulting to INR
func (i *Invoice) Currency() string {
	if i == nil || i.Payment.Currency == "" {
		return "INR"
	}
	return i.Payment.Currency
}
