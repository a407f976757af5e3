package invoice

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FormatCurrency", func() {
	DescribeTable("INR amounts",
		func(amount any, expected string) {
			Expect(FormatCurrency(amount, "INR")).To(Equal(expected))
		},
		Entry("crores", 15000000.0, "₹1.5Cr"),
		Entry("exactly one crore", 10000000, "₹1.0Cr"),
		Entry("lakhs", 150000.0, "₹1.5L"),
		Entry("thousands", 5000.0, "₹5,000"),
		Entry("just under a lakh", 99999.0, "₹99,999"),
		Entry("decimals", 1234.5, "₹1,234.5"),
		Entry("string amount with separators", "2,500.00", "₹2,500"),
		Entry("rupee-prefixed string", "₹ 750", "₹750"),
		Entry("zero", 0, "₹0"),
		Entry("nil", nil, "₹0"),
		Entry("non-numeric", "abc", "₹0"),
	)

	It("should default to INR when the code is empty", func() {
		Expect(FormatCurrency(0, "")).To(Equal("₹0"))
		Expect(FormatCurrency(150000.0, "")).To(Equal("₹1.5L"))
	})

	It("should accept lowercase codes", func() {
		Expect(FormatCurrency(5000.0, "inr")).To(Equal("₹5,000"))
	})

	DescribeTable("supported foreign currencies",
		func(amount any, code, expected string) {
			Expect(FormatCurrency(amount, code)).To(Equal(expected))
		},
		Entry("dollars", 5000.0, "USD", "$5,000.00"),
		Entry("euros", 1234.5, "EUR", "€1,234.50"),
		Entry("won without decimals", 1500.0, "KRW", "₩1,500"),
		Entry("negative amounts", -12.5, "USD", "-$12.50"),
	)

	It("should fall back to the code for unsupported currencies", func() {
		Expect(FormatCurrency(12.5, "NOTACODE")).To(Equal("NOTACODE 12.5"))
	})

	It("should render non-numeric foreign amounts as ₹0", func() {
		Expect(FormatCurrency(nil, "USD")).To(Equal("₹0"))
	})
})

var _ = Describe("groupIndian", func() {
	It("should use lakh grouping above five digits", func() {
		Expect(groupIndian(12345678)).To(Equal("1,23,45,678"))
	})

	It("should keep negatives", func() {
		Expect(groupIndian(-5000)).To(Equal("-5,000"))
	})
})

var _ = Describe("FormatDate", func() {
	DescribeTable("dates",
		func(input, expected string) {
			Expect(FormatDate(input)).To(Equal(expected))
		},
		Entry("ISO", "2024-01-15", "15 Jan 2024"),
		Entry("day first", "15/01/2024", "15 Jan 2024"),
		Entry("named month", "15-Jan-2024", "15 Jan 2024"),
		Entry("RFC3339", "2024-01-15T10:00:00Z", "15 Jan 2024"),
		Entry("unparseable", "sometime soon", "sometime soon"),
		Entry("empty", "", "N/A"),
		Entry("whitespace", "   ", "N/A"),
	)
})
