package backend

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	return img
}

var _ = Describe("renderPages", func() {
	When("the document is a PNG", func() {
		It("should pass it through unchanged", func() {
			var buf bytes.Buffer
			Expect(png.Encode(&buf, testImage())).To(Succeed())

			pages, err := renderPages(buf.Bytes(), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(1))
			Expect(pages[0]).To(Equal(buf.Bytes()))
		})
	})

	When("the document is a JPEG", func() {
		It("should re-encode it as PNG", func() {
			var buf bytes.Buffer
			Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())

			pages, err := renderPages(buf.Bytes(), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(1))
			_, format, err := image.Decode(bytes.NewReader(pages[0]))
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the document is empty", func() {
		It("should return an error", func() {
			_, err := renderPages(nil, "application/pdf")
			Expect(err).To(HaveOccurred())
		})
	})

	When("the bytes are not an image", func() {
		It("should report an unsupported format", func() {
			_, err := renderPages([]byte("hello world"), "")
			Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		})
	})
})

var _ = Describe("detectContentType", func() {
	DescribeTable("sniffing",
		func(data []byte, declared, want string) {
			Expect(detectContentType(data, declared)).To(Equal(want))
		},
		Entry("pdf magic", []byte("%PDF-1.7\n"), "", "application/pdf"),
		Entry("heic brand", append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...), "", "image/heic"),
		Entry("unknown falls back to declared", []byte("abc"), "image/gif", "image/gif"),
		Entry("unknown with nothing declared", []byte("abc"), "", "image/jpeg"),
	)
})

var _ = Describe("isHEICFormat", func() {
	It("should recognise HEIF brands", func() {
		Expect(isHEICFormat(append([]byte{0, 0, 0, 24}, []byte("ftypmif1")...))).To(BeTrue())
	})

	It("should reject short data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})

	It("should reject other ftyp brands", func() {
		Expect(isHEICFormat(append([]byte{0, 0, 0, 24}, []byte("ftypmp42")...))).To(BeFalse())
	})
})
