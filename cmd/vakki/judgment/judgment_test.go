package judgmentcmder_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	judgmentcmder "github.com/papercomputeco/vakki/cmd/vakki/judgment"
	"github.com/papercomputeco/vakki/pkg/judgment"
)

const header = `IN THE SUPREME COURT OF INDIA
PETITIONER:
STATE OF KERALA

	Vs.

RESPONDENT:
JOSEPH

DATE OF JUDGMENT: 02/11/2001

BENCH:
R.C. LAHOTI, J.
`

var _ = Describe("NewJudgmentCmd", func() {
	run := func(stdin string, args ...string) (string, error) {
		var out bytes.Buffer
		cmd := judgmentcmder.NewJudgmentCmd()
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	It("prints metadata from a file", func() {
		dir, err := os.MkdirTemp("", "vakki-judgment-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(dir) })

		path := filepath.Join(dir, "kerala.txt")
		Expect(os.WriteFile(path, []byte(header), 0o644)).To(Succeed())

		out, err := run("", path)
		Expect(err).NotTo(HaveOccurred())

		text := ansi.Strip(out)
		Expect(text).To(ContainSubstring("Supreme Court of India"))
		Expect(text).To(ContainSubstring("02/11/2001"))
		Expect(text).To(ContainSubstring("STATE OF KERALA vs JOSEPH"))
		Expect(text).To(ContainSubstring("Citations:    Not Found"))
	})

	It("reads stdin and prints JSON", func() {
		out, err := run(header, "-", "--json")
		Expect(err).NotTo(HaveOccurred())

		var m judgment.Metadata
		Expect(json.Unmarshal([]byte(out), &m)).To(Succeed())
		Expect(m.JudgmentYear).To(Equal("2001"))
		Expect(m.Judges).To(Equal("R.C. LAHOTI, J."))
	})

	It("fails on a missing file", func() {
		_, err := run("", "/does/not/exist.txt")
		Expect(err).To(MatchError(ContainSubstring("reading judgment")))
	})
})
