package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/api"
	"github.com/papercomputeco/vakki/pkg/client"
	"github.com/papercomputeco/vakki/pkg/transcript"
)

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		c        *client.Client
		lastBody []byte
		lastURL  string
		handler  http.HandlerFunc
	)

	BeforeEach(func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			lastURL = r.URL.String()
			lastBody, _ = io.ReadAll(r.Body)
			handler(w, r)
		}))

		var err error
		c, err = client.New(server.URL)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	It("rejects a target without scheme or host", func() {
		_, err := client.New("localhost")
		Expect(err).To(HaveOccurred())
	})

	Describe("Answer", func() {
		It("posts the query and decodes the result", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/v1/answer"))
				writeJSON(w, http.StatusOK, map[string]any{
					"session_id":   "s-1",
					"answer":       "Bail is the rule.",
					"similarity":   0.81,
					"faithfulness": 0.74,
					"sources":      []any{},
				})
			}

			resp, err := c.Answer(context.Background(), "what is bail?", "s-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.SessionID).To(Equal("s-1"))
			Expect(resp.Result).NotTo(BeNil())
			Expect(resp.Answer).To(Equal("Bail is the rule."))
			Expect(resp.Similarity).To(BeNumerically("~", 0.81, 1e-9))

			var req api.AnswerRequest
			Expect(json.Unmarshal(lastBody, &req)).To(Succeed())
			Expect(req.Query).To(Equal("what is bail?"))
			Expect(req.SessionID).To(Equal("s-1"))
		})

		It("surfaces the API error message", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "query is required"})
			}

			_, err := c.Answer(context.Background(), "", "")
			Expect(err).To(HaveOccurred())

			var se *client.StatusError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(se.Message).To(Equal("query is required"))
		})
	})

	Describe("Search", func() {
		It("sends query and top_k parameters", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, api.SearchOutput{Query: "arrest", Count: 0})
			}

			out, err := c.Search(context.Background(), "arrest", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Query).To(Equal("arrest"))
			Expect(lastURL).To(Equal("/v1/search?query=arrest&top_k=3"))
		})

		It("omits top_k when not positive", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, api.SearchOutput{Query: "arrest"})
			}

			_, err := c.Search(context.Background(), "arrest", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(lastURL).To(Equal("/v1/search?query=arrest"))
		})
	})

	It("summarizes with a session fallback", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, api.SummarizeResponse{Summary: "short"})
		}

		summary, err := c.Summarize(context.Background(), "", "s-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(Equal("short"))

		var req api.SummarizeRequest
		Expect(json.Unmarshal(lastBody, &req)).To(Succeed())
		Expect(req.SessionID).To(Equal("s-2"))
		Expect(req.Answer).To(BeEmpty())
	})

	It("downloads a transcript as raw bytes", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/sessions/s-3/transcript"))
			Expect(r.URL.Query().Get("format")).To(Equal("markdown"))
			w.Header().Set("Content-Type", "text/markdown")
			_, _ = w.Write([]byte("**You:** hi\n"))
		}

		body, err := c.Transcript(context.Background(), "s-3", transcript.Markdown)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("**You:** hi\n"))
	})

	It("treats 204 as success when deleting a session", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Method).To(Equal(http.MethodDelete))
			w.WriteHeader(http.StatusNoContent)
		}

		Expect(c.DeleteSession(context.Background(), "s-4")).To(Succeed())
	})

	It("falls back to the raw body for non JSON errors", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down\n"))
		}

		_, err := c.Draft(context.Background(), "bail application")
		Expect(err).To(MatchError(ContainSubstring("upstream down")))
	})
})
