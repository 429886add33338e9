package draftcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/api"
	draftcmder "github.com/papercomputeco/vakki/cmd/vakki/draft"
)

var _ = Describe("NewDraftCmd", func() {
	var (
		server *httptest.Server
		got    api.DraftRequest
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(api.DraftResponse{Draft: "IN THE COURT OF ..."})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("prints the draft", func() {
		var out bytes.Buffer
		cmd := draftcmder.NewDraftCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"bail", "application", "--api-target", server.URL})
		Expect(cmd.Execute()).To(Succeed())

		Expect(got.Instruction).To(Equal("bail application"))
		Expect(out.String()).To(Equal("IN THE COURT OF ...\n"))
	})

	It("writes the draft to a file", func() {
		dir, err := os.MkdirTemp("", "vakki-draft-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(dir) })

		path := filepath.Join(dir, "notice.md")
		cmd := draftcmder.NewDraftCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"legal notice", "--output", path, "--api-target", server.URL})
		Expect(cmd.Execute()).To(Succeed())

		Expect(os.ReadFile(path)).To(Equal([]byte("IN THE COURT OF ...\n")))
	})

	It("requires an instruction", func() {
		cmd := draftcmder.NewDraftCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
