package invoice

import (
	"strconv"
	"strings"
)

// uiKeys are top-level keys of the camelCase UI shape
var uiKeys = []string{
	"invoiceMetadata", "vendorDetails", "clientDetails", "buyerDetails",
	"shippingDetails", "lineItems", "taxDetails", "totals", "qrCode", "bankDetails",
}

// apiKeys are top-level keys of the snake_case API shape
var apiKeys = []string{
	"invoice_metadata", "invoice_details", "vendor_details", "client_details", "buyer_details",
	"shipping_details", "line_items", "tax_details", "payment_summary", "qr_code", "bank_details",
}

// Normalize maps any accepted result layout onto an Extraction.
// It never fails: unrecognised input ends up in Extra or Raw.
func Normalize(data any) *Extraction {
	ext := normalize(data)
	ext.Source = data
	return ext
}

func normalize(data any) *Extraction {
	switch v := data.(type) {
	case nil:
		return &Extraction{Shape: ShapeEmpty}
	case string:
		if strings.TrimSpace(v) == "" {
			return &Extraction{Shape: ShapeEmpty}
		}
		return &Extraction{Shape: ShapeRaw, Raw: v}
	case []any:
		if groups, ok := regroup(v); ok {
			return &Extraction{Shape: ShapeFields, Groups: groups}
		}
		if len(v) == 1 {
			if m, ok := v[0].(map[string]any); ok {
				return normalizeObject(m)
			}
		}
		return &Extraction{Shape: ShapeAPI, Invoice: &Invoice{}, Extra: map[string]any{"items": v}}
	case map[string]any:
		return normalizeObject(v)
	default:
		return &Extraction{Shape: ShapeRaw, Raw: scalar(v)}
	}
}

func normalizeObject(m map[string]any) *Extraction {
	if len(m) == 0 {
		return &Extraction{Shape: ShapeEmpty}
	}

	// Service responses that carry text instead of structured data
	if raw, ok := m["raw_result"].(string); ok {
		return &Extraction{Shape: ShapeRaw, Raw: raw}
	}
	if len(m) == 1 {
		for _, key := range []string{"result", "message", "data", "extraction"} {
			inner, ok := m[key]
			if !ok {
				continue
			}
			if s, isString := inner.(string); isString && (key == "result" || key == "message") {
				return &Extraction{Shape: ShapeRaw, Raw: s}
			}
			switch inner.(type) {
			case map[string]any, []any:
				return normalize(inner)
			}
		}
	}

	shape := ShapeAPI
	for _, key := range uiKeys {
		if _, ok := m[key]; ok {
			shape = ShapeUI
			break
		}
	}

	return &Extraction{
		Shape:   shape,
		Invoice: buildInvoice(m),
		Extra:   extraKeys(m),
	}
}

func buildInvoice(m map[string]any) *Invoice {
	inv := &Invoice{
		Metadata: Metadata{
			Type: pick(m, "invoiceMetadata.type", "invoiceMetadata.invoiceType",
				"invoice_metadata.invoice_type", "invoice_metadata.type", "invoice_details.invoice_type"),
			Number: pick(m, "invoiceMetadata.number", "invoiceMetadata.invoiceNumber",
				"invoice_metadata.invoice_number", "invoice_details.invoice_number"),
			Date: pick(m, "invoiceMetadata.date", "invoiceMetadata.invoiceDate",
				"invoice_metadata.invoice_date", "invoice_details.invoice_date"),
			DueDate: pick(m, "invoiceMetadata.dueDate",
				"invoice_metadata.due_date", "invoice_details.due_date"),
			PlaceOfSupply: pick(m, "invoiceMetadata.placeOfSupply",
				"invoice_metadata.place_of_supply", "invoice_details.place_of_supply"),
			IRN: pick(m, "invoiceMetadata.irn", "invoiceMetadata.irnNumber",
				"invoice_metadata.irn_number", "invoice_metadata.irn"),
			AckNumber: pick(m, "invoiceMetadata.ackNumber", "invoice_metadata.ack_number"),
			AckDate:   pick(m, "invoiceMetadata.ackDate", "invoice_metadata.ack_date"),
		},
		Vendor: buildParty(m, []string{"vendorDetails"}, []string{"vendor_details"}),
		Client: buildParty(m, []string{"clientDetails", "buyerDetails"}, []string{"client_details", "buyer_details"}),
		Shipping: Shipping{
			Mode:           pick(m, "shippingDetails.dispatchMode", "shipping_details.dispatch_mode"),
			TrackingNumber: pick(m, "shippingDetails.trackingNumber", "shipping_details.tracking_number"),
			Date:           pick(m, "shippingDetails.dispatchDate", "shipping_details.dispatch_date"),
			Destination: pick(m, "shippingDetails.destination",
				"shipping_details.destination", "shipping_details.dispatch_destination"),
		},
		Tax: TaxDetails{
			CGSTRate:       pick(m, "taxDetails.cgstRate", "tax_details.cgst_rate"),
			CGSTAmount:     pick(m, "taxDetails.cgstAmount", "tax_details.cgst_amount"),
			SGSTRate:       pick(m, "taxDetails.sgstRate", "tax_details.sgst_rate"),
			SGSTAmount:     pick(m, "taxDetails.sgstAmount", "tax_details.sgst_amount"),
			IGSTRate:       pick(m, "taxDetails.igstRate", "tax_details.igst_rate"),
			IGSTAmount:     pick(m, "taxDetails.igstAmount", "tax_details.igst_amount"),
			TotalTaxAmount: pick(m, "taxDetails.totalTaxAmount", "taxDetails.totalTax", "tax_details.total_tax_amount"),
		},
		Payment: PaymentSummary{
			Currency: pick(m, "totals.currency", "payment_summary.currency", "currency"),
			Subtotal: pick(m, "totals.subtotal", "payment_summary.subtotal"),
			Discount: pick(m, "totals.discount", "payment_summary.discount"),
			RoundOff: pick(m, "totals.roundOff", "payment_summary.roundoff", "payment_summary.round_off"),
			TaxableValueTotal: pick(m, "totals.taxableValue", "totals.taxableValueTotal",
				"payment_summary.taxable_value_total"),
			TotalTax: pick(m, "totals.taxTotal", "totals.totalTax",
				"payment_summary.total_tax", "tax_details.total_tax_amount"),
			Total: pick(m, "totals.grandTotal", "totals.total",
				"payment_summary.total_invoice_value", "payment_summary.total"),
			TotalInWords: pick(m, "totals.amountInWords",
				"payment_summary.total_invoice_value_in_words"),
			AmountDue:     pick(m, "totals.amountDue", "payment_summary.amount_due"),
			PaymentTerms:  pick(m, "totals.paymentTerms", "payment_summary.payment_terms"),
			PaymentStatus: pick(m, "totals.paymentStatus", "payment_summary.payment_status"),
		},
		QRCode: QRCode{
			Present: pick(m, "qrCode.present", "qrCode.hasQrCode", "qr_code.present"),
			Data:    pick(m, "qrCode.data", "qr_code.data", "qr_code.decoded_data", "qrCode", "qr_code"),
		},
	}

	// Bank details may sit under the vendor or at the top level
	if inv.Vendor.Bank == (BankDetails{}) {
		inv.Vendor.Bank = buildBank(m, "bankDetails", "bank_details")
	}

	for _, key := range []string{"lineItems", "line_items"} {
		items, ok := m[key].([]any)
		if !ok {
			continue
		}
		for i, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			inv.LineItems = append(inv.LineItems, buildLineItem(item, i))
		}
		break
	}
	return inv
}

func buildParty(m map[string]any, camel, snake []string) Party {
	var p Party
	for _, prefix := range camel {
		if _, ok := m[prefix]; !ok {
			continue
		}
		p = Party{
			Name:    pick(m, prefix+".name", prefix+".companyName"),
			GSTIN:   pick(m, prefix+".gstin", prefix+".gstNumber"),
			PAN:     pick(m, prefix+".pan"),
			Email:   pick(m, prefix+".email"),
			Phone:   pick(m, prefix+".phone", prefix+".contact"),
			Website: pick(m, prefix+".website"),
			Address: Address{
				Street:  pick(m, prefix+".address.street", prefix+".address.line1", prefix+".address"),
				City:    pick(m, prefix+".address.city"),
				State:   pick(m, prefix+".address.state"),
				Pincode: pick(m, prefix+".address.pincode", prefix+".address.postalCode"),
				Country: pick(m, prefix+".address.country"),
			},
			Bank: buildBank(m, prefix+".bankDetails"),
		}
		return p
	}
	for _, prefix := range snake {
		if _, ok := m[prefix]; !ok {
			continue
		}
		p = Party{
			Name:    pick(m, prefix+".name", prefix+".company_name"),
			GSTIN:   pick(m, prefix+".gstin", prefix+".gst_number"),
			PAN:     pick(m, prefix+".pan"),
			Email:   pick(m, prefix+".email"),
			Phone:   pick(m, prefix+".phone", prefix+".contact"),
			Website: pick(m, prefix+".website"),
			Address: Address{
				Street:  pick(m, prefix+".address.street", prefix+".address.street_address", prefix+".address"),
				City:    pick(m, prefix+".address.city"),
				State:   pick(m, prefix+".address.state"),
				Pincode: pick(m, prefix+".address.pincode", prefix+".address.postal_code"),
				Country: pick(m, prefix+".address.country"),
			},
			Bank: buildBank(m, prefix+".bank_details"),
		}
		return p
	}
	return p
}

func buildBank(m map[string]any, prefixes ...string) BankDetails {
	for _, prefix := range prefixes {
		b := BankDetails{
			BankName:      pick(m, prefix+".bankName", prefix+".bank_name"),
			AccountNumber: pick(m, prefix+".accountNumber", prefix+".account_number"),
			IFSC:          pick(m, prefix+".ifscCode", prefix+".ifsc", prefix+".ifsc_code"),
			Branch:        pick(m, prefix+".branch", prefix+".bank_branch"),
		}
		if b != (BankDetails{}) {
			return b
		}
	}
	return BankDetails{}
}

func buildLineItem(item map[string]any, index int) LineItem {
	li := LineItem{
		Number:       pick(item, "itemNumber", "item_number", "sno", "s_no"),
		HSNSAC:       pick(item, "hsnSac", "hsnSacCode", "hsn_sac_code", "hsn_sac", "hsn"),
		Description:  pick(item, "description", "name"),
		Quantity:     pick(item, "quantity", "qty"),
		Unit:         pick(item, "unit", "uom"),
		Rate:         pick(item, "rate", "unitPrice", "unit_price"),
		Discount:     pick(item, "discount", "discountPercentage", "discount_percentage"),
		TaxableValue: pick(item, "taxableValue", "taxable_value"),
		CGSTRate:     pick(item, "cgstRate", "cgst_percentage", "cgst_rate", "CGST_percentage"),
		CGSTAmount:   pick(item, "cgstAmount", "cgst_value", "cgst_amount", "CGST_value"),
		SGSTRate:     pick(item, "sgstRate", "sgst_percentage", "sgst_rate", "SGST_percentage"),
		SGSTAmount:   pick(item, "sgstAmount", "sgst_value", "sgst_amount", "SGST_value"),
		IGSTRate:     pick(item, "igstRate", "igst_percentage", "igst_rate", "IGST_percentage"),
		IGSTAmount:   pick(item, "igstAmount", "igst_value", "igst_amount", "IGST_value"),
		TotalTax:     pick(item, "totalTax", "taxAmount", "total_tax", "tax_amount"),
		Total:        pick(item, "total", "amount", "itemTotal", "item_total"),
	}
	if li.Number == "" {
		li.Number = strconv.Itoa(index + 1)
	}
	return li
}

func extraKeys(m map[string]any) map[string]any {
	known := make(map[string]bool, len(uiKeys)+len(apiKeys)+1)
	for _, k := range uiKeys {
		known[k] = true
	}
	for _, k := range apiKeys {
		known[k] = true
	}
	known["currency"] = true

	extra := make(map[string]any)
	for k, v := range m {
		if known[k] || isEmpty(v) {
			continue
		}
		extra[k] = v
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

// pick returns the first non-empty scalar found at any of the dotted paths
func pick(m map[string]any, paths ...string) string {
	for _, path := range paths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		if s := scalar(v); s != "" {
			return s
		}
	}
	return ""
}

func lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// scalar renders a leaf value as text; null, empty strings and containers yield ""
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	default:
		return ""
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return scalar(t) == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}
