package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validate", func() {
	DescribeTable("dashboard profile",
		func(contentType string, size int64, ok bool) {
			err := Validate(SelectedFile{Name: "doc", Size: size, ContentType: contentType}, DashboardProfile)
			if ok {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(MatchError(ErrValidation))
			}
		},
		Entry("pdf", "application/pdf", int64(1024), true),
		Entry("png", "image/png", int64(1024), true),
		Entry("jpg", "image/jpg", int64(1024), true),
		Entry("jpeg with parameters", "IMAGE/JPEG; charset=binary", int64(1024), true),
		Entry("gif", "image/gif", int64(1024), false),
		Entry("exactly the limit", "application/pdf", int64(MaxFileSize), true),
		Entry("over the limit", "application/pdf", int64(MaxFileSize+1), false),
	)

	It("should only accept PDFs on the direct profile", func() {
		Expect(Validate(SelectedFile{Name: "a.png", Size: 10, ContentType: "image/png"}, DirectProfile)).
			To(MatchError("Invalid file type. Please upload a PDF file."))
		Expect(Validate(SelectedFile{Name: "a.pdf", Size: 10, ContentType: "application/pdf"}, DirectProfile)).
			To(Succeed())
	})

	It("should describe the size limit", func() {
		err := Validate(SelectedFile{Name: "big.pdf", Size: 11 << 20, ContentType: "application/pdf"}, DashboardProfile)
		Expect(err).To(MatchError("File is too large (11 MiB). Maximum size is 10 MiB."))
	})

	It("should reject an empty selection", func() {
		Expect(Validate(SelectedFile{}, DashboardProfile)).To(MatchError(ErrValidation))
	})

	It("should count the bytes when the declared size is wrong", func() {
		f := SelectedFile{Name: "a.pdf", Size: 1, ContentType: "application/pdf", Data: make([]byte, MaxFileSize+1)}
		Expect(Validate(f, DashboardProfile)).To(MatchError(ErrValidation))
	})
})

var _ = Describe("ContentTypeFor", func() {
	DescribeTable("extensions",
		func(name, expected string) {
			Expect(ContentTypeFor(name)).To(Equal(expected))
		},
		Entry("pdf", "scan.PDF", "application/pdf"),
		Entry("png", "scan.png", "image/png"),
		Entry("jpeg", "scan.jpeg", "image/jpeg"),
		Entry("unknown", "scan.tiff", "application/octet-stream"),
	)
})

var _ = Describe("SanitizeFilename", func() {
	DescribeTable("names",
		func(name, expected string) {
			Expect(SanitizeFilename(name)).To(Equal(expected))
		},
		Entry("plain", "invoice.pdf", "invoice.pdf"),
		Entry("special characters", "inv#01 (copy)!.pdf", "inv01 copy.pdf"),
		Entry("directories", "../../etc/bill.pdf", "bill.pdf"),
		Entry("only symbols", "@@@.pdf", "invoice.pdf"),
		Entry("empty", "", "invoice"),
	)
})

var _ = Describe("LookupProfile", func() {
	It("should find profiles by name", func() {
		p, err := LookupProfile("Direct")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.UploadPath).To(Equal("/invoice_upload"))
	})

	It("should reject unknown names", func() {
		_, err := LookupProfile("legacy")
		Expect(err).To(HaveOccurred())
	})
})
