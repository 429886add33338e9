package askcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/api"
	askcmder "github.com/papercomputeco/vakki/cmd/vakki/ask"
	"github.com/papercomputeco/vakki/pkg/pipeline"
)

var _ = Describe("NewAskCmd", func() {
	It("requires a question", func() {
		cmd := askcmder.NewAskCmd()
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(HaveOccurred())
	})

	It("prints the answer, scores and session from the API", func() {
		var got api.AnswerRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(api.AnswerResponse{
				SessionID: "sess-42",
				Result: &pipeline.Result{
					Answer:       "Bail is the rule, jail the exception.",
					Similarity:   0.8123,
					Faithfulness: 0.6,
				},
			})
		}))
		DeferCleanup(server.Close)

		var out bytes.Buffer
		cmd := askcmder.NewAskCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"what", "is", "bail?", "--api-target", server.URL, "--session", "sess-42", "--raw"})
		Expect(cmd.Execute()).To(Succeed())

		Expect(got.Query).To(Equal("what is bail?"))
		Expect(got.SessionID).To(Equal("sess-42"))

		text := ansi.Strip(out.String())
		Expect(text).To(ContainSubstring("Bail is the rule, jail the exception."))
		Expect(text).To(ContainSubstring("similarity: 0.8123"))
		Expect(text).To(ContainSubstring("faithfulness: 0.6000"))
		Expect(text).To(ContainSubstring("session: sess-42"))
	})

	It("reports API errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "retrieval failed"})
		}))
		DeferCleanup(server.Close)

		cmd := askcmder.NewAskCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"anything", "--api-target", server.URL})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("retrieval failed")))
	})
})
