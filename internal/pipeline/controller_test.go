package pipeline

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/invoice-extractor/internal/apiclient"
	"github.com/zombor/invoice-extractor/internal/invoice"
	"github.com/zombor/invoice-extractor/internal/poll"
)

const statusPath = "/invoices/process/p-1/status"

var _ = Describe("Controller", func() {
	var (
		server      *ghttp.Server
		profile     Profile
		controller  *Controller
		navigations int32
		navigated   []Session
		navMu       sync.Mutex
		ctx         context.Context
		cancel      context.CancelFunc
	)

	uploadOK := func(path string) http.HandlerFunc {
		return ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, path),
			ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"s3_bucket": "b", "s3_key": "k"}),
		)
	}
	processOK := ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodPost, "/process"),
		ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"processingId": "p-1"}),
	)
	pending := ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodGet, statusPath),
		ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"status": "pending", "progress": 50}),
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		profile = DashboardProfile
		atomic.StoreInt32(&navigations, 0)
		navigated = nil
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	})

	JustBeforeEach(func() {
		service := NewService(apiclient.New(server.URL()), profile, "b", "key")
		controller = NewController(service, ControllerConfig{
			Profile:         profile,
			Poll:            poll.Config{Interval: time.Millisecond},
			CompletionDelay: 5 * time.Millisecond,
			NewID:           func() string { return "synthetic-id" },
			OnNavigate: func(s Session) {
				atomic.AddInt32(&navigations, 1)
				navMu.Lock()
				navigated = append(navigated, s)
				navMu.Unlock()
			},
		})
	})

	AfterEach(func() {
		controller.Close()
		cancel()
		server.Close()
	})

	When("the status completes after five pending responses", func() {
		BeforeEach(func() {
			server.AppendHandlers(uploadOK("/upload"), processOK)
			for range 5 {
				server.AppendHandlers(pending)
			}
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, statusPath),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"status": "completed", "extractionId": "ext-1"}),
				),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/extractions/ext-1"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
						"invoice_metadata": map[string]string{"invoice_type": "Tax Invoice"},
					}),
				),
			)
		})

		It("should navigate to the results exactly once", func() {
			Expect(controller.Submit(pdfFile())).To(Succeed())
			s, err := controller.Wait(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.State).To(Equal(StateReady))
			Expect(s.ExtractionID).To(Equal("ext-1"))
			Expect(s.Progress).To(Equal(100))
			Expect(s.Extraction.Invoice.Metadata.Type).To(Equal("Tax Invoice"))
			Expect(atomic.LoadInt32(&navigations)).To(BeEquivalentTo(1))
			Expect(server.ReceivedRequests()).To(HaveLen(9))

			Consistently(func() int32 { return atomic.LoadInt32(&navigations) }, 50*time.Millisecond).
				Should(BeEquivalentTo(1))
		})
	})

	When("the completed status has no extraction id", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				uploadOK("/upload"),
				processOK,
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"status": "completed"}),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/extractions/synthetic-id"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"line_items": []any{}}),
				),
			)
		})

		It("should synthesise one", func() {
			Expect(controller.Submit(pdfFile())).To(Succeed())
			s, _ := controller.Wait(ctx)
			Expect(s.State).To(Equal(StateReady))
			Expect(s.ExtractionID).To(Equal("synthetic-id"))
		})
	})

	When("the status never completes", func() {
		var statusCalls int32

		BeforeEach(func() {
			atomic.StoreInt32(&statusCalls, 0)
			server.AppendHandlers(uploadOK("/upload"), processOK)
			server.RouteToHandler(http.MethodGet, statusPath, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&statusCalls, 1)
				pending(w, r)
			})
		})

		It("should time out and reset the session", func() {
			Expect(controller.Submit(pdfFile())).To(Succeed())
			s, _ := controller.Wait(ctx)

			Expect(s.State).To(Equal(StateFailed))
			Expect(s.Message).To(Equal(MsgTimeout))
			Expect(s.Upload).To(BeNil())
			Expect(s.Handle).To(BeNil())
			Expect(s.Result).To(BeNil())
			Expect(atomic.LoadInt32(&statusCalls)).To(BeEquivalentTo(poll.DefaultMaxAttempts))
			Expect(atomic.LoadInt32(&navigations)).To(BeZero())
		})
	})

	When("the status reports a failure", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				uploadOK("/upload"),
				processOK,
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"status": "failed", "error": "Document is not an invoice"}),
			)
		})

		It("should surface the service message", func() {
			Expect(controller.Submit(pdfFile())).To(Succeed())
			s, _ := controller.Wait(ctx)
			Expect(s.State).To(Equal(StateFailed))
			Expect(s.Message).To(Equal("Document is not an invoice"))
		})
	})

	When("status checks keep erroring", func() {
		BeforeEach(func() {
			server.AppendHandlers(uploadOK("/upload"), processOK)
			server.RouteToHandler(http.MethodGet, statusPath, ghttp.RespondWith(http.StatusBadGateway, "upstream down"))
		})

		It("should give up with the status message", func() {
			Expect(controller.Submit(pdfFile())).To(Succeed())
			s, _ := controller.Wait(ctx)
			Expect(s.State).To(Equal(StateFailed))
			Expect(s.Message).To(Equal(MsgStatusUnavailable))
		})
	})

	When("the upload fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusInternalServerError, map[string]any{
				"error": map[string]string{"message": "storage unavailable"},
			}))
		})

		It("should reset and keep only the message", func() {
			Expect(controller.Submit(pdfFile())).To(Succeed())
			s, _ := controller.Wait(ctx)
			Expect(s.State).To(Equal(StateFailed))
			Expect(s.Message).To(Equal("Upload failed: storage unavailable"))
			Expect(s.File).To(BeNil())
			Expect(s.InProgress()).To(BeFalse())
		})
	})

	When("the file is rejected", func() {
		It("should not call the API or touch the session", func() {
			err := controller.Submit(SelectedFile{Name: "a.gif", Size: 10, ContentType: "image/gif"})
			Expect(err).To(MatchError(ErrValidation))
			Expect(server.ReceivedRequests()).To(BeEmpty())
			Expect(controller.Snapshot().State).To(Equal(StateIdle))
		})
	})

	When("the profile is sync", func() {
		BeforeEach(func() {
			profile = DirectProfile
			server.AppendHandlers(
				uploadOK("/invoice_upload"),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/invoice_process"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"result": "plain text invoice"}),
				),
			)
		})

		It("should complete without polling", func() {
			Expect(controller.Submit(pdfFile())).To(Succeed())
			s, _ := controller.Wait(ctx)
			Expect(s.State).To(Equal(StateReady))
			Expect(s.ExtractionID).To(BeEmpty())
			Expect(s.Extraction.Shape).To(Equal(invoice.ShapeRaw))
			Expect(s.Filename()).To(Equal("invoice.pdf"))
			Expect(server.ReceivedRequests()).To(HaveLen(2))
			Expect(atomic.LoadInt32(&navigations)).To(BeEquivalentTo(1))
		})
	})

	When("a new file is submitted while polling", func() {
		BeforeEach(func() {
			server.AllowUnhandledRequests = true
			server.RouteToHandler(http.MethodPost, "/upload", uploadOK("/upload"))
			server.RouteToHandler(http.MethodPost, "/process", processOK)
			server.RouteToHandler(http.MethodGet, statusPath, pending)
		})

		It("should supersede the first cycle", func() {
			Expect(controller.Submit(pdfFile())).To(Succeed())
			Eventually(func() State { return controller.Snapshot().State }).Should(Equal(StatePolling))

			second := pdfFile()
			second.Name = "second.pdf"
			Expect(controller.Submit(second)).To(Succeed())

			Eventually(func() State { return controller.Snapshot().State }).Should(Equal(StatePolling))
			Expect(controller.Snapshot().Filename()).To(Equal("second.pdf"))

			controller.Reset()
			s := controller.Snapshot()
			Expect(s.State).To(Equal(StateIdle))
			Expect(s.File).To(BeNil())
		})
	})

	When("the controller is closed", func() {
		It("should refuse new submissions", func() {
			controller.Close()
			Expect(controller.Submit(pdfFile())).To(MatchError(ErrClosed))
		})
	})
})
