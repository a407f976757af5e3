package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockExtractor struct {
	text     string
	err      error
	requests []Request
}

func (m *mockExtractor) Extract(ctx context.Context, req Request) (string, error) {
	m.requests = append(m.requests, req)
	return m.text, m.err
}

func (m *mockExtractor) Close() error {
	return nil
}

type mockFetcher struct {
	data []byte
	err  error
	urls []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.urls = append(m.urls, url)
	return m.data, m.err
}

var _ = Describe("Server", func() {
	var (
		extractor *mockExtractor
		fetcher   *mockFetcher
		storage   *LocalStorage
		server    *Server
		recorder  *httptest.ResponseRecorder
		method    string
		path      string
		body      any
	)

	BeforeEach(func() {
		extractor = &mockExtractor{text: `{"invoice_number": "INV-9"}`}
		fetcher = &mockFetcher{}
		var err error
		storage, err = NewLocalStorage(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(extractor, storage, "local-invoices",
			WithFetcher(fetcher),
			WithIDGenerator(func() string { return "file-1" }),
			WithClock(func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }),
		)
		method = http.MethodPost
		body = nil
	})

	JustBeforeEach(func() {
		var reader *bytes.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(data)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		recorder = httptest.NewRecorder()
		server.ServeHTTP(recorder, req)
	})

	decoded := func() map[string]any {
		var out map[string]any
		Expect(json.Unmarshal(recorder.Body.Bytes(), &out)).To(Succeed())
		return out
	}

	Describe("GET /", func() {
		BeforeEach(func() {
			method = http.MethodGet
			path = "/"
		})

		It("should report the service is running", func() {
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(decoded()).To(HaveKeyWithValue("message", "PDF Processing Service is running"))
		})

		It("should set CORS headers", func() {
			Expect(recorder.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("OPTIONS preflight", func() {
		BeforeEach(func() {
			method = http.MethodOptions
			path = "/invoice_process"
		})

		It("should answer without a body", func() {
			Expect(recorder.Code).To(Equal(http.StatusNoContent))
			Expect(recorder.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
		})
	})

	Describe("POST /invoice_upload", func() {
		BeforeEach(func() {
			path = "/invoice_upload"
			body = map[string]string{
				"file_content": base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
				"filename":     "march invoice.pdf",
				"content_type": "application/pdf",
			}
		})

		It("should store the file and describe where", func() {
			Expect(recorder.Code).To(Equal(http.StatusOK))
			out := decoded()
			Expect(out).To(HaveKeyWithValue("s3_bucket", "local-invoices"))
			Expect(out).To(HaveKeyWithValue("s3_key", "invoices/uploads/20240301T093000Z_file-1_march invoice.pdf"))
			Expect(out).To(HaveKeyWithValue("uploadId", "file-1"))

			data, err := storage.Get("local-invoices", "invoices/uploads/20240301T093000Z_file-1_march invoice.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("%PDF-1.4"))
		})

		When("file_content is not base64", func() {
			BeforeEach(func() {
				body = map[string]string{"file_content": "!!!"}
			})

			It("should return a 400", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(decoded()["error"]).To(HavePrefix("Invalid base64 for file_content"))
			})
		})
	})

	Describe("POST /invoice_process", func() {
		BeforeEach(func() {
			path = "/invoice_process"
		})

		When("file_content is inline", func() {
			BeforeEach(func() {
				temperature := 0.2
				body = map[string]any{
					"api_key":       "key-1",
					"file_content":  base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
					"custom_prompt": "extract",
					"model_name":    "gemini-1.5-pro",
					"temperature":   temperature,
					"top_k":         3,
				}
			})

			It("should return the parsed model output", func() {
				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(decoded()).To(HaveKeyWithValue("invoice_number", "INV-9"))
			})

			It("should forward the generation settings", func() {
				Expect(extractor.requests).To(HaveLen(1))
				req := extractor.requests[0]
				Expect(req.APIKey).To(Equal("key-1"))
				Expect(req.Prompt).To(Equal("extract"))
				Expect(req.Model).To(Equal("gemini-1.5-pro"))
				Expect(req.Temperature).To(BeNumerically("~", 0.2, 0.0001))
				Expect(*req.TopK).To(Equal(int32(3)))
				Expect(req.TopP).To(BeNil())
				Expect(req.JSON).To(BeTrue())
				Expect(string(req.Document)).To(Equal("%PDF-1.4"))
			})
		})

		When("the document is referenced by bucket and key", func() {
			BeforeEach(func() {
				_, err := storage.Put("local-invoices", "invoices/uploads/a.pdf", []byte("%PDF-stored"))
				Expect(err).NotTo(HaveOccurred())
				body = map[string]any{"s3_bucket": "local-invoices", "s3_key": "invoices/uploads/a.pdf"}
			})

			It("should read it from storage", func() {
				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(string(extractor.requests[0].Document)).To(Equal("%PDF-stored"))
			})
		})

		When("the document is referenced by file id", func() {
			BeforeEach(func() {
				_, err := storage.Put("local-invoices", "invoices/uploads/ts_f-7_file.pdf", []byte("%PDF-by-id"))
				Expect(err).NotTo(HaveOccurred())
				body = map[string]any{"s3_bucket": "local-invoices", "file_id": "f-7", "upload_timestamp": "ts"}
			})

			It("should rebuild the upload key", func() {
				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(string(extractor.requests[0].Document)).To(Equal("%PDF-by-id"))
			})
		})

		When("the document is referenced by URL", func() {
			BeforeEach(func() {
				fetcher.data = []byte("%PDF-remote")
				body = map[string]any{"s3_url": "https://example.test/signed"}
			})

			It("should download it", func() {
				Expect(fetcher.urls).To(Equal([]string{"https://example.test/signed"}))
				Expect(string(extractor.requests[0].Document)).To(Equal("%PDF-remote"))
			})

			When("the download fails", func() {
				BeforeEach(func() {
					fetcher.err = errors.New("status 403")
				})

				It("should return a 400 naming the URL input", func() {
					Expect(recorder.Code).To(Equal(http.StatusBadRequest))
					Expect(decoded()).To(HaveKeyWithValue("error", "Failed to download from S3 URL: status 403"))
					Expect(extractor.requests).To(BeEmpty())
				})
			})
		})

		When("the stored object is missing", func() {
			BeforeEach(func() {
				body = map[string]any{"s3_bucket": "local-invoices", "s3_key": "nope.pdf"}
			})

			It("should return a 400", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(decoded()["error"]).To(HavePrefix("Failed to download from S3: "))
			})
		})

		When("no input is given", func() {
			BeforeEach(func() {
				body = map[string]any{"api_key": "k"}
			})

			It("should list the accepted inputs", func() {
				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(decoded()).To(HaveKeyWithValue("error",
					"Missing file input. Provide one of: file_content (base64), s3_url, s3_bucket+s3_key, or file_id+s3_bucket"))
			})
		})

		When("the model output is not JSON", func() {
			BeforeEach(func() {
				extractor.text = "sorry, unreadable"
				body = map[string]any{"file_content": base64.StdEncoding.EncodeToString([]byte("%PDF"))}
			})

			It("should return the parse failure with the raw text", func() {
				Expect(recorder.Code).To(Equal(http.StatusOK))
				out := decoded()
				Expect(out).To(HaveKeyWithValue("error", "Failed to parse JSON response"))
				Expect(out).To(HaveKeyWithValue("raw_result", "sorry, unreadable"))
				Expect(out["parsing_attempts"]).To(HaveLen(2))
			})
		})

		When("a text format is requested", func() {
			BeforeEach(func() {
				extractor.text = "plain text"
				body = map[string]any{
					"file_content":  base64.StdEncoding.EncodeToString([]byte("%PDF")),
					"output_format": "text",
				}
			})

			It("should wrap the output in result", func() {
				Expect(decoded()).To(Equal(map[string]any{"result": "plain text"}))
				Expect(extractor.requests[0].JSON).To(BeFalse())
			})
		})

		When("the extractor fails", func() {
			BeforeEach(func() {
				extractor.err = errors.New("quota exceeded")
				body = map[string]any{"file_content": base64.StdEncoding.EncodeToString([]byte("%PDF"))}
			})

			It("should return a 500", func() {
				Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
				Expect(decoded()).To(HaveKeyWithValue("error", "An internal server error occurred: quota exceeded"))
				Expect(recorder.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			})
		})
	})
})
