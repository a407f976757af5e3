package backend

import (
	"context"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage *LocalStorage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Put", func() {
		var (
			key string
			got string
			err error
		)

		BeforeEach(func() {
			key = "invoices/uploads/t_id_invoice.pdf"
		})

		JustBeforeEach(func() {
			got, err = storage.Put("invoices", key, []byte("%PDF"))
		})

		It("should write the object under the bucket directory", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(key))
			Expect(filepath.Join(tmpDir, "invoices", "invoices", "uploads", "t_id_invoice.pdf")).To(BeAnExistingFile())
		})

		When("the key escapes the bucket", func() {
			BeforeEach(func() {
				key = "../../etc/passwd"
			})

			It("should reject it", func() {
				Expect(err).To(MatchError(ErrInvalidKey))
			})
		})
	})

	Describe("Get", func() {
		When("the object exists", func() {
			BeforeEach(func() {
				_, err := storage.Put("b", "k.pdf", []byte("content"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return its content", func() {
				data, err := storage.Get("b", "k.pdf")
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte("content")))
			})
		})

		When("the object does not exist", func() {
			It("should return an error", func() {
				_, err := storage.Get("b", "missing.pdf")
				Expect(err).To(HaveOccurred())
			})
		})

		When("the bucket name contains a separator", func() {
			It("should reject it", func() {
				_, err := storage.Get("a/b", "k.pdf")
				Expect(err).To(MatchError(ErrInvalidKey))
			})
		})
	})

	Describe("Delete", func() {
		It("should remove the object", func() {
			_, err := storage.Put("b", "k.pdf", []byte("content"))
			Expect(err).NotTo(HaveOccurred())
			Expect(storage.Delete("b", "k.pdf")).To(Succeed())
			Expect(filepath.Join(tmpDir, "b", "k.pdf")).NotTo(BeAnExistingFile())
		})
	})
})

var _ = Describe("HTTPFetcher", func() {
	var server *ghttp.Server

	BeforeEach(func() {
		server = ghttp.NewServer()
	})

	AfterEach(func() {
		server.Close()
	})

	It("should return the body of a successful download", func() {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodGet, "/signed/doc.pdf"),
			ghttp.RespondWith(http.StatusOK, "%PDF-1.4"),
		))

		data, err := NewHTTPFetcher().Fetch(context.Background(), server.URL()+"/signed/doc.pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("%PDF-1.4"))
	})

	It("should fail on a non-2xx status", func() {
		server.AppendHandlers(ghttp.RespondWith(http.StatusForbidden, "expired"))

		_, err := NewHTTPFetcher().Fetch(context.Background(), server.URL()+"/signed/doc.pdf")
		Expect(err).To(MatchError(ContainSubstring("status 403")))
	})
})
