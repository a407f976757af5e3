package view

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/zombor/invoice-extractor/internal/invoice"
)

const notAvailable = "N/A"

var bucketTitles = map[invoice.Bucket]string{
	invoice.BucketInvoice:   "Invoice Details",
	invoice.BucketVendor:    "Vendor Details",
	invoice.BucketBuyer:     "Buyer Details",
	invoice.BucketLineItems: "Line Items",
	invoice.BucketTax:       "Tax Details",
	invoice.BucketBank:      "Bank Details",
	invoice.BucketOther:     "Other Details",
}

// field is a candidate table row. Required rows show N/A when empty;
// optional rows are omitted.
type field struct {
	label    string
	value    string
	required bool
}

func table(fields ...field) Table {
	t := Table{}
	for _, f := range fields {
		switch {
		case f.value != "":
			t.Rows = append(t.Rows, Row{Label: f.label, Value: f.value})
		case f.required:
			t.Rows = append(t.Rows, Row{Label: f.label, Value: notAvailable})
		}
	}
	return t
}

// Build converts an extraction into the results view
func Build(ext *invoice.Extraction) []Node {
	if ext == nil {
		return []Node{Leaf{Text: "No data extracted"}}
	}

	switch ext.Shape {
	case invoice.ShapeRaw:
		return []Node{Section{
			Title:    "Extracted Text",
			Children: []Node{Leaf{Text: ext.Raw, Preformatted: true}},
		}}
	case invoice.ShapeFields:
		if len(ext.Groups) == 0 {
			return []Node{Leaf{Text: "No data extracted"}}
		}
		nodes := make([]Node, 0, len(ext.Groups))
		for _, g := range ext.Groups {
			t := Table{}
			for _, f := range g.Fields {
				t.Rows = append(t.Rows, Row{Label: f.Name, Value: f.Value})
			}
			nodes = append(nodes, Section{Title: bucketTitles[g.Bucket], Children: []Node{t}})
		}
		return nodes
	case invoice.ShapeEmpty:
		return []Node{Leaf{Text: "No data extracted"}}
	}

	var nodes []Node
	if ext.Invoice != nil && !reflect.ValueOf(*ext.Invoice).IsZero() {
		nodes = append(nodes, invoiceSections(ext.Invoice)...)
	}
	if len(ext.Extra) > 0 {
		nodes = append(nodes, Tree("Additional Details", ext.Extra))
	}
	if len(nodes) == 0 {
		return []Node{Leaf{Text: "No data extracted"}}
	}
	return nodes
}

func invoiceSections(inv *invoice.Invoice) []Node {
	cur := inv.Currency()
	money := func(v string) string {
		if v == "" {
			return ""
		}
		return invoice.FormatCurrency(v, cur)
	}
	date := func(v string) string {
		if v == "" {
			return ""
		}
		return invoice.FormatDate(v)
	}
	m := inv.Metadata

	nodes := []Node{
		Section{Title: "Invoice Details", Children: []Node{table(
			field{"Invoice Type", m.Type, true},
			field{"Invoice Number", m.Number, true},
			field{"Invoice Date", date(m.Date), true},
			field{"Due Date", date(m.DueDate), false},
			field{"Place of Supply", m.PlaceOfSupply, false},
			field{"IRN", m.IRN, false},
			field{"Ack Number", m.AckNumber, false},
			field{"Ack Date", date(m.AckDate), false},
		)}},
		partySection("Vendor Details", inv.Vendor),
		partySection("Buyer Details", inv.Client),
	}

	s := inv.Shipping
	if s != (invoice.Shipping{}) {
		nodes = append(nodes, Section{Title: "Shipping Details", Children: []Node{table(
			field{"Dispatch Mode", s.Mode, false},
			field{"Tracking Number", s.TrackingNumber, false},
			field{"Dispatch Date", date(s.Date), false},
			field{"Destination", s.Destination, false},
		)}})
	}

	items := List{}
	for i, li := range inv.LineItems {
		items.Items = append(items.Items, Section{
			Title:       fmt.Sprintf("Item %d", i+1),
			Collapsible: true,
			Children: []Node{table(
				field{"Description", li.Description, true},
				field{"HSN/SAC", li.HSNSAC, false},
				field{"Quantity", li.Quantity, false},
				field{"Unit", li.Unit, false},
				field{"Rate", money(li.Rate), false},
				field{"Discount", li.Discount, false},
				field{"Taxable Value", money(li.TaxableValue), false},
				field{"CGST Rate", li.CGSTRate, false},
				field{"CGST Amount", money(li.CGSTAmount), false},
				field{"SGST Rate", li.SGSTRate, false},
				field{"SGST Amount", money(li.SGSTAmount), false},
				field{"IGST Rate", li.IGSTRate, false},
				field{"IGST Amount", money(li.IGSTAmount), false},
				field{"Total Tax", money(li.TotalTax), false},
				field{"Total", money(li.Total), false},
			)},
		})
	}
	lineItems := Section{Title: "Line Items"}
	if len(items.Items) == 0 {
		lineItems.Children = []Node{Leaf{Text: "No line items found"}}
	} else {
		lineItems.Children = []Node{items}
	}
	nodes = append(nodes, lineItems)

	t := inv.Tax
	if t != (invoice.TaxDetails{}) {
		nodes = append(nodes, Section{Title: "Tax Details", Children: []Node{table(
			field{"CGST Rate", t.CGSTRate, false},
			field{"CGST Amount", money(t.CGSTAmount), false},
			field{"SGST Rate", t.SGSTRate, false},
			field{"SGST Amount", money(t.SGSTAmount), false},
			field{"IGST Rate", t.IGSTRate, false},
			field{"IGST Amount", money(t.IGSTAmount), false},
			field{"Total Tax Amount", money(t.TotalTaxAmount), false},
		)}})
	}

	p := inv.Payment
	nodes = append(nodes, Section{Title: "Payment Summary", Children: []Node{table(
		field{"Subtotal", money(p.Subtotal), false},
		field{"Discount", money(p.Discount), false},
		field{"Round Off", money(p.RoundOff), false},
		field{"Taxable Value", money(p.TaxableValueTotal), false},
		field{"Total Tax", money(p.TotalTax), false},
		field{"Total Amount", invoice.FormatCurrency(p.Total, cur), true},
		field{"Amount in Words", p.TotalInWords, false},
		field{"Amount Due", money(p.AmountDue), false},
		field{"Payment Terms", p.PaymentTerms, false},
		field{"Payment Status", p.PaymentStatus, false},
	)}})

	if inv.QRCode != (invoice.QRCode{}) {
		nodes = append(nodes, Section{Title: "QR Code", Children: []Node{table(
			field{"Present", inv.QRCode.Present, false},
			field{"Data", inv.QRCode.Data, false},
		)}})
	}
	return nodes
}

func partySection(title string, p invoice.Party) Section {
	s := Section{Title: title, Children: []Node{table(
		field{"Name", p.Name, true},
		field{"GSTIN", p.GSTIN, true},
		field{"PAN", p.PAN, false},
		field{"Email", p.Email, false},
		field{"Phone", p.Phone, false},
		field{"Website", p.Website, false},
		field{"Address", joinAddress(p.Address), false},
	)}}
	if p.Bank != (invoice.BankDetails{}) {
		s.Children = append(s.Children, Section{Title: "Bank Details", Collapsible: true, Children: []Node{table(
			field{"Bank Name", p.Bank.BankName, false},
			field{"Account Number", p.Bank.AccountNumber, false},
			field{"IFSC", p.Bank.IFSC, false},
			field{"Branch", p.Bank.Branch, false},
		)}})
	}
	return s
}

func joinAddress(a invoice.Address) string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.State, a.Pincode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Tree renders an arbitrary decoded JSON value. Objects become sections with
// a table of their scalar fields followed by nested sections; arrays become
// lists of "Item N" sections. Keys are visited in sorted order.
func Tree(title string, v any) Node {
	switch t := v.(type) {
	case map[string]any:
		s := Section{Title: title, Collapsible: true}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		rows := Table{}
		var nested []Node
		for _, k := range keys {
			switch child := t[k].(type) {
			case map[string]any:
				if len(child) > 0 {
					nested = append(nested, Tree(FieldLabel(k), child))
				}
			case []any:
				if len(child) > 0 {
					nested = append(nested, Tree(FieldLabel(k), child))
				}
			default:
				if text := leafText(child); text != "" {
					rows.Rows = append(rows.Rows, Row{Label: FieldLabel(k), Value: text})
				}
			}
		}
		if len(rows.Rows) > 0 {
			s.Children = append(s.Children, rows)
		}
		s.Children = append(s.Children, nested...)
		return s
	case []any:
		list := List{}
		for i, item := range t {
			name := fmt.Sprintf("Item %d", i+1)
			switch item.(type) {
			case map[string]any, []any:
				child := Tree(name, item)
				list.Items = append(list.Items, child)
			default:
				list.Items = append(list.Items, Section{
					Title:    name,
					Children: []Node{Leaf{Text: leafText(item)}},
				})
			}
		}
		return Section{Title: title, Collapsible: true, Children: []Node{list}}
	default:
		return Section{Title: title, Children: []Node{Leaf{Text: leafText(v)}}}
	}
}

func leafText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// FieldLabel turns a snake_case or camelCase key into a display label
func FieldLabel(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()

	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
