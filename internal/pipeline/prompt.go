package pipeline

// ExtractionPrompt is sent with every process request. The extraction
// service relies on this exact wording and schema, so it is not configurable.
const ExtractionPrompt = `You are an expert invoice data extraction system. Extract every field from the attached invoice document by following these steps exactly.

Step 1: Identify the document type (Tax Invoice, Proforma Invoice, Bill of Supply, Credit Note, Debit Note or Commercial Invoice) and record it as invoice_type.
Step 2: Extract the invoice metadata: invoice number, invoice date, due date, place of supply, IRN number, acknowledgement number and acknowledgement date. Write all dates as YYYY-MM-DD.
Step 3: Extract the vendor (seller) details: legal name, GSTIN, PAN, full address split into street, city, state, pincode and country, email, phone and website.
Step 4: Extract the vendor bank details printed on the invoice: bank name, account number, IFSC code and branch.
Step 5: Extract the client (buyer / bill-to) details with the same fields as the vendor.
Step 6: Extract shipping and dispatch details when present: dispatch mode, tracking or docket number, dispatch date and destination.
Step 7: Extract every line item in the order printed. For each item record the serial number, HSN/SAC code, description, quantity, unit, rate, discount percentage, taxable value, CGST, SGST and IGST rates and amounts, total tax and item total. Do not merge or skip rows.
Step 8: Extract the tax summary: CGST, SGST and IGST rates and amounts, and the total tax amount.
Step 9: Extract the payment summary: currency code, subtotal, discount, round off, total taxable value, total tax, total invoice value, total invoice value in words, amount due, payment terms and payment status.
Step 10: Record whether a QR code is present and its decoded content if readable. Then verify that line item totals add up to the invoice total and correct any transcription errors.

Rules:
- Return ONLY valid JSON matching the schema below, with no commentary and no markdown fences.
- Use null for any field that is not present on the document. Never invent values.
- Write amounts as plain numbers without currency symbols or thousands separators.
- Percentages are plain numbers, for example 9 for 9%.

Schema:
{
  "invoice_metadata": {
    "invoice_type": "string",
    "invoice_number": "string",
    "invoice_date": "YYYY-MM-DD",
    "due_date": "YYYY-MM-DD",
    "place_of_supply": "string",
    "irn_number": "string",
    "ack_number": "string",
    "ack_date": "YYYY-MM-DD"
  },
  "vendor_details": {
    "name": "string",
    "gstin": "string",
    "pan": "string",
    "address": {
      "street": "string",
      "city": "string",
      "state": "string",
      "pincode": "string",
      "country": "string"
    },
    "email": "string",
    "phone": "string",
    "website": "string",
    "bank_details": {
      "bank_name": "string",
      "account_number": "string",
      "ifsc_code": "string",
      "branch": "string"
    }
  },
  "client_details": {
    "name": "string",
    "gstin": "string",
    "pan": "string",
    "address": {
      "street": "string",
      "city": "string",
      "state": "string",
      "pincode": "string",
      "country": "string"
    },
    "email": "string",
    "phone": "string"
  },
  "shipping_details": {
    "dispatch_mode": "string",
    "tracking_number": "string",
    "dispatch_date": "YYYY-MM-DD",
    "destination": "string"
  },
  "line_items": [
    {
      "item_number": "number",
      "hsn_sac_code": "string",
      "description": "string",
      "quantity": "number",
      "unit": "string",
      "rate": "number",
      "discount_percentage": "number",
      "taxable_value": "number",
      "cgst_rate": "number",
      "cgst_amount": "number",
      "sgst_rate": "number",
      "sgst_amount": "number",
      "igst_rate": "number",
      "igst_amount": "number",
      "total_tax": "number",
      "item_total": "number"
    }
  ],
  "tax_details": {
    "cgst_rate": "number",
    "cgst_amount": "number",
    "sgst_rate": "number",
    "sgst_amount": "number",
    "igst_rate": "number",
    "igst_amount": "number",
    "total_tax_amount": "number"
  },
  "payment_summary": {
    "currency": "string",
    "subtotal": "number",
    "discount": "number",
    "round_off": "number",
    "taxable_value_total": "number",
    "total_tax": "number",
    "total_invoice_value": "number",
    "total_invoice_value_in_words": "string",
    "amount_due": "number",
    "payment_terms": "string",
    "payment_status": "string"
  },
  "qr_code": {
    "present": "boolean",
    "data": "string"
  }
}`
