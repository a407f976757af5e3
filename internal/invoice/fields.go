package invoice

import "strings"

// Bucket is a semantic group for fields of a flat result
type Bucket string

const (
	BucketInvoice   Bucket = "invoice"
	BucketVendor    Bucket = "vendor"
	BucketBuyer     Bucket = "buyer"
	BucketLineItems Bucket = "line_items"
	BucketTax       Bucket = "tax"
	BucketBank      Bucket = "bank"
	BucketOther     Bucket = "other"
)

// bucketOrder is the display order of regrouped sections
var bucketOrder = []Bucket{
	BucketInvoice, BucketVendor, BucketBuyer, BucketLineItems, BucketTax, BucketBank, BucketOther,
}

// bucketRules are checked in order; the first matching substring wins.
// Bank is checked before vendor so vendor_bank_name lands in bank, and
// parties before tax so vendor_gstin stays with the vendor.
var bucketRules = []struct {
	bucket Bucket
	needle []string
}{
	{BucketBank, []string{"bank", "account", "ifsc", "branch", "swift"}},
	{BucketVendor, []string{"vendor", "seller", "supplier"}},
	{BucketBuyer, []string{"buyer", "client", "customer", "bill_to", "ship_to", "consignee"}},
	{BucketTax, []string{"tax", "gst", "cess", "vat"}},
	{BucketLineItems, []string{"item", "hsn", "sac", "description", "quantity", "qty", "rate", "unit"}},
	{BucketInvoice, []string{"invoice", "date", "number", "irn", "ack", "place", "due"}},
}

var (
	nameKeys  = []string{"field", "key", "name", "label", "field_name"}
	valueKeys = []string{"value", "val", "extracted_value"}
)

// Classify returns the bucket a field name belongs to
func Classify(name string) Bucket {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	for _, rule := range bucketRules {
		for _, needle := range rule.needle {
			if strings.Contains(n, needle) {
				return rule.bucket
			}
		}
	}
	return BucketOther
}

// regroup turns an array of key/value pairs into ordered buckets.
// It reports false when the array is not made of pairs, including
// arrays of named records where no element carries a value key.
func regroup(items []any) ([]Group, bool) {
	if len(items) == 0 {
		return nil, false
	}

	byBucket := make(map[Bucket][]Field)
	paired := false
	for _, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		name := firstScalar(obj, nameKeys)
		if name == "" {
			return nil, false
		}
		var value string
		for _, key := range valueKeys {
			if v, ok := obj[key]; ok {
				paired = true
				value = scalar(v)
				break
			}
		}
		if value == "" {
			continue
		}
		b := Classify(name)
		byBucket[b] = append(byBucket[b], Field{Name: name, Value: value})
	}
	if !paired {
		return nil, false
	}

	groups := make([]Group, 0, len(byBucket))
	for _, b := range bucketOrder {
		if fields := byBucket[b]; len(fields) > 0 {
			groups = append(groups, Group{Bucket: b, Fields: fields})
		}
	}
	return groups, true
}

func firstScalar(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if s := scalar(obj[key]); s != "" {
			return s
		}
	}
	return ""
}
