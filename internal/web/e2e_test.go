package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/invoice-extractor/internal/apiclient"
	"github.com/zombor/invoice-extractor/internal/dashboard"
	"github.com/zombor/invoice-extractor/internal/export"
	"github.com/zombor/invoice-extractor/internal/pipeline"
	"github.com/zombor/invoice-extractor/internal/poll"
)

var _ = Describe("Upload to export", func() {
	var (
		api        *ghttp.Server
		ui         *httptest.Server
		controller *pipeline.Controller
		client     *http.Client
		ctx        context.Context
		cancel     context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		api = ghttp.NewServer()

		remote := apiclient.New(api.URL(), apiclient.WithTokenSource(apiclient.StaticToken("tok")))
		profile := pipeline.DashboardProfile
		controller = pipeline.NewController(pipeline.NewService(remote, profile, "invoices", "key"), pipeline.ControllerConfig{
			Profile:         profile,
			Poll:            poll.Config{Interval: time.Millisecond},
			CompletionDelay: time.Millisecond,
		})
		server := NewServer(controller, export.NewExporter(remote, profile.RemoteExport), dashboard.NewLoader(remote, 0, 0), BasicAuth{})

		ui = httptest.NewServer(server)

		client = &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}}
	})

	AfterEach(func() {
		controller.Close()
		cancel()
		ui.Close()
		api.Close()
	})

	It("should upload, poll, render and fall back to a local export", func() {
		api.AppendHandlers(
			ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/upload"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer tok"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"s3_bucket": "invoices", "s3_key": "k.pdf"}),
			),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/process"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"processingId": "p-7"}),
			),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/invoices/process/p-7/status"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"status": "processing", "progress": 60}),
			),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/invoices/process/p-7/status"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"status": "completed", "extractionId": "ext-7"}),
			),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/extractions/ext-7"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"invoice_metadata": map[string]any{"invoice_number": "INV-77"},
					"vendor_details":   map[string]any{"name": "Northwind Supplies"},
				}),
			),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/extractions/ext-7/export"),
				ghttp.RespondWithJSONEncoded(http.StatusInternalServerError, map[string]any{"error": map[string]string{"message": "export unavailable"}}),
			),
		)

		body, contentType := multipartUpload("invoice.pdf", "application/pdf", []byte("%PDF-1.4 test"))
		resp, err := client.Post(ui.URL+"/upload", contentType, body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))

		session, err := controller.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.State).To(Equal(pipeline.StateReady))

		resp, err = client.Get(ui.URL + "/status")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.Header.Get("Location")).To(Equal("/results"))

		resp, err = client.Get(ui.URL + "/results")
		Expect(err).NotTo(HaveOccurred())
		page, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(page)).To(ContainSubstring("INV-77"))
		Expect(string(page)).To(ContainSubstring("Northwind Supplies"))

		resp, err = client.Get(ui.URL + "/results/export?format=csv")
		Expect(err).NotTo(HaveOccurred())
		csv, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("extraction-ext-7.csv"))
		Expect(string(csv)).To(ContainSubstring(`"vendor_details.name","Northwind Supplies"`))

		Expect(api.ReceivedRequests()).To(HaveLen(6))
	})
})
