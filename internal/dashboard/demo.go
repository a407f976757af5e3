package dashboard

// Demo data shown when the dashboard endpoints are unavailable

var DemoStats = Stats{
	TotalInvoices:      1247,
	ProcessedThisMonth: 156,
	TotalAmount:        24567890,
	PendingReview:      12,
	SuccessRate:        98.5,
	AvgProcessingTime:  2.3,
}

var demoMonthlySeries = []MonthlyPoint{
	{Month: "Jul", Invoices: 98, Amount: 1850000},
	{Month: "Aug", Invoices: 112, Amount: 2120000},
	{Month: "Sep", Invoices: 105, Amount: 1980000},
	{Month: "Oct", Invoices: 134, Amount: 2560000},
	{Month: "Nov", Invoices: 128, Amount: 2410000},
	{Month: "Dec", Invoices: 156, Amount: 2980000},
	{Month: "Jan", Invoices: 142, Amount: 2730000},
	{Month: "Feb", Invoices: 139, Amount: 2650000},
	{Month: "Mar", Invoices: 161, Amount: 3120000},
	{Month: "Apr", Invoices: 148, Amount: 2870000},
	{Month: "May", Invoices: 153, Amount: 2940000},
	{Month: "Jun", Invoices: 167, Amount: 3250000},
}

var DemoTypes = []TypeShare{
	{Type: "Tax Invoice", Count: 856, Percentage: 68.6},
	{Type: "Proforma Invoice", Count: 187, Percentage: 15.0},
	{Type: "Credit Note", Count: 112, Percentage: 9.0},
	{Type: "Debit Note", Count: 54, Percentage: 4.3},
	{Type: "Bill of Supply", Count: 38, Percentage: 3.1},
}

var demoRecentInvoices = []RecentInvoice{
	{ID: "demo-1", InvoiceNumber: "INV-2024-0156", Vendor: "Tata Consultancy Services", Amount: 245000, Currency: "INR", Date: "2024-06-28", Status: "completed"},
	{ID: "demo-2", InvoiceNumber: "INV-2024-0155", Vendor: "Infosys Limited", Amount: 189500, Currency: "INR", Date: "2024-06-27", Status: "completed"},
	{ID: "demo-3", InvoiceNumber: "INV-2024-0154", Vendor: "Reliance Industries", Amount: 1250000, Currency: "INR", Date: "2024-06-26", Status: "pending"},
	{ID: "demo-4", InvoiceNumber: "INV-2024-0153", Vendor: "Wipro Technologies", Amount: 67800, Currency: "INR", Date: "2024-06-25", Status: "completed"},
	{ID: "demo-5", InvoiceNumber: "INV-2024-0152", Vendor: "HCL Technologies", Amount: 342000, Currency: "INR", Date: "2024-06-24", Status: "failed"},
	{ID: "demo-6", InvoiceNumber: "INV-2024-0151", Vendor: "Larsen & Toubro", Amount: 15600000, Currency: "INR", Date: "2024-06-22", Status: "completed"},
	{ID: "demo-7", InvoiceNumber: "INV-2024-0150", Vendor: "Mahindra Logistics", Amount: 48250, Currency: "INR", Date: "2024-06-21", Status: "completed"},
	{ID: "demo-8", InvoiceNumber: "INV-2024-0149", Vendor: "Bharti Airtel", Amount: 23999, Currency: "INR", Date: "2024-06-20", Status: "completed"},
	{ID: "demo-9", InvoiceNumber: "INV-2024-0148", Vendor: "Asian Paints", Amount: 98700, Currency: "INR", Date: "2024-06-19", Status: "pending"},
	{ID: "demo-10", InvoiceNumber: "INV-2024-0147", Vendor: "Godrej Industries", Amount: 412300, Currency: "INR", Date: "2024-06-18", Status: "completed"},
}

var DemoProfile = Profile{
	Name:    "Demo User",
	Email:   "demo@example.com",
	Company: "Demo Company Pvt Ltd",
	Role:    "Finance Manager",
}

// demoMonthly returns the last n months of the demo series
func demoMonthly(n int) []MonthlyPoint {
	n = min(n, len(demoMonthlySeries))
	return append([]MonthlyPoint(nil), demoMonthlySeries[len(demoMonthlySeries)-n:]...)
}

func demoRecent(n int) []RecentInvoice {
	n = min(n, len(demoRecentInvoices))
	return append([]RecentInvoice(nil), demoRecentInvoices[:n]...)
}
