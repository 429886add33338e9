package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolve", func() {
	var (
		origHome    string
		origXDG     string
		origDataDir string
		origCwd     string
		homeDir     string
		cwdDir      string
	)

	BeforeEach(func() {
		origHome = os.Getenv("HOME")
		origXDG = os.Getenv("XDG_DATA_HOME")
		origDataDir = os.Getenv("VAKKI_DATA_DIR")
		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		homeDir, err = os.MkdirTemp("", "vakki-home-*")
		Expect(err).NotTo(HaveOccurred())
		cwdDir, err = os.MkdirTemp("", "vakki-cwd-*")
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Setenv("HOME", homeDir)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())
		Expect(os.Setenv("VAKKI_DATA_DIR", "")).To(Succeed())
		Expect(os.Chdir(cwdDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Setenv("HOME", origHome)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", origXDG)).To(Succeed())
		Expect(os.Setenv("VAKKI_DATA_DIR", origDataDir)).To(Succeed())
		Expect(os.Chdir(origCwd)).To(Succeed())
		_ = os.RemoveAll(homeDir)
		_ = os.RemoveAll(cwdDir)
	})

	It("returns the override untouched", func() {
		path, err := Resolve("/tmp/custom.db", "", VectorsDB)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("prefers VAKKI_DATA_DIR over candidates", func() {
		Expect(os.Setenv("VAKKI_DATA_DIR", "/srv/vakki")).To(Succeed())

		path, err := Resolve("", "", AuditDB)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join("/srv/vakki", AuditDB)))
	})

	It("finds an existing database under ~/.vakki", func() {
		dbPath := filepath.Join(homeDir, ".vakki", VectorsDB)
		Expect(os.MkdirAll(filepath.Dir(dbPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		path, err := Resolve("", "", VectorsDB)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(dbPath))
	})

	It("falls back to the resolved dotdir", func() {
		path, err := Resolve("", "/etc/vakki", AuditDB)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join("/etc/vakki", AuditDB)))
	})

	It("errors when nothing resolves", func() {
		_, err := Resolve("", "", AuditDB)
		Expect(err).To(HaveOccurred())
	})
})
