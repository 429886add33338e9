package summarizecmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/api"
	summarizecmder "github.com/papercomputeco/vakki/cmd/vakki/summarize"
)

var _ = Describe("NewSummarizeCmd", func() {
	var (
		server *httptest.Server
		got    api.SummarizeRequest
	)

	BeforeEach(func() {
		got = api.SummarizeRequest{}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(api.SummarizeResponse{Summary: "the gist"})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	run := func(stdin string, args ...string) (string, error) {
		var out bytes.Buffer
		cmd := summarizecmder.NewSummarizeCmd()
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--api-target", server.URL))
		err := cmd.Execute()
		return out.String(), err
	}

	It("summarizes argument text", func() {
		out, err := run("", "a", "long", "answer")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("the gist\n"))
		Expect(got.Answer).To(Equal("a long answer"))
	})

	It("reads text from stdin with -", func() {
		_, err := run("piped answer\n", "-")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Answer).To(Equal("piped answer"))
	})

	It("falls back to the session's last answer", func() {
		_, err := run("", "--session", "sess-9")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Answer).To(BeEmpty())
		Expect(got.SessionID).To(Equal("sess-9"))
	})

	It("refuses when there is nothing to summarize", func() {
		_, err := run("")
		Expect(err).To(MatchError(ContainSubstring("nothing to summarize")))
	})
})
