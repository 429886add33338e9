package chatcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/api"
	chatcmder "github.com/papercomputeco/vakki/cmd/vakki/chat"
	"github.com/papercomputeco/vakki/pkg/pipeline"
)

// fakeAPI records what the chat loop sends.
type fakeAPI struct {
	mu       sync.Mutex
	sessions []string
	deleted  []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/answer":
		var req api.AnswerRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.sessions = append(f.sessions, req.SessionID)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.AnswerResponse{
			SessionID: "sess-1",
			Result:    &pipeline.Result{Answer: "answer to " + req.Query, Similarity: 0.9, Faithfulness: 0.8},
		})

	case r.Method == http.MethodPost && r.URL.Path == "/v1/summarize":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.SummarizeResponse{Summary: "in short"})

	case r.Method == http.MethodGet && r.URL.Path == "/v1/sessions/sess-1/transcript":
		if r.URL.Query().Get("format") == "json" {
			_, _ = w.Write([]byte(`{"session_id":"sess-1","turns":[]}`))
			return
		}
		_, _ = w.Write([]byte("**You:** q\n"))

	case r.Method == http.MethodDelete && r.URL.Path == "/v1/sessions/sess-1":
		f.deleted = append(f.deleted, "sess-1")
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

var _ = Describe("NewChatCmd", func() {
	var (
		fake   *fakeAPI
		server *httptest.Server
		dir    string
	)

	BeforeEach(func() {
		fake = &fakeAPI{}
		server = httptest.NewServer(fake)

		var err error
		dir, err = os.MkdirTemp("", "vakki-chat-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
		_ = os.RemoveAll(dir)
	})

	runChat := func(input string, extraArgs ...string) string {
		var out bytes.Buffer
		cmd := chatcmder.NewChatCmd()
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--api-target", server.URL}, extraArgs...))
		Expect(cmd.Execute()).To(Succeed())
		return ansi.Strip(out.String())
	}

	It("keeps the session returned by the server across questions", func() {
		out := runChat("first question\nsecond question\n/exit\n")

		Expect(out).To(ContainSubstring("answer to first question"))
		Expect(out).To(ContainSubstring("answer to second question"))
		Expect(fake.sessions).To(Equal([]string{"", "sess-1"}))
	})

	It("resumes a session given by flag", func() {
		runChat("hello\n", "--session", "sess-1")
		Expect(fake.sessions).To(Equal([]string{"sess-1"}))
	})

	It("exports the transcript in the format of the file extension", func() {
		md := filepath.Join(dir, "notes.md")
		js := filepath.Join(dir, "notes.json")

		runChat("q\n/export " + md + "\n/export " + js + "\n/exit\n")

		Expect(os.ReadFile(md)).To(Equal([]byte("**You:** q\n")))
		Expect(os.ReadFile(js)).To(ContainSubstring(`"session_id":"sess-1"`))
	})

	It("refuses to export before anything was asked", func() {
		path := filepath.Join(dir, "empty.md")
		out := runChat("/export " + path + "\n/exit\n")

		Expect(out).To(ContainSubstring("nothing to export yet"))
		Expect(path).NotTo(BeAnExistingFile())
	})

	It("summarizes the last answer and starts over on /new", func() {
		out := runChat("q\n/summarize\n/new\nagain\n/exit\n")

		Expect(out).To(ContainSubstring("in short"))
		Expect(fake.deleted).To(Equal([]string{"sess-1"}))
		Expect(fake.sessions).To(Equal([]string{"", ""}))
	})

	It("reports unknown commands without quitting", func() {
		out := runChat("/bogus\nq\n")

		Expect(out).To(ContainSubstring("unknown command /bogus"))
		Expect(out).To(ContainSubstring("answer to q"))
	})
})
