package servecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/pkg/config"
	"github.com/papercomputeco/vakki/pkg/eventstream/nop"
	"github.com/papercomputeco/vakki/pkg/logger"
	"github.com/papercomputeco/vakki/pkg/storage/inmemory"
	"github.com/papercomputeco/vakki/pkg/storage/sqlite"
)

var _ = Describe("NewServeCmd", func() {
	It("registers the serve flags from the registry", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))

		for _, key := range serveFlagKeys {
			name := config.ServeFlags[key].Name
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().Lookup("log-format").DefValue).To(Equal("pretty"))
		Expect(cmd.Flags().Lookup("log-file")).NotTo(BeNil())
	})

	It("defaults the listen flag from the config defaults", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":8081"))
	})
})

var _ = Describe("serveCommander", func() {
	var cmder *serveCommander

	BeforeEach(func() {
		cmder = &serveCommander{
			cfg:    config.NewDefaultConfig(),
			logger: logger.Nop(),
		}
	})

	Describe("newLogger", func() {
		It("rejects an unknown format", func() {
			cmder.logFormat = "xml"
			_, _, err := cmder.newLogger(io.Discard)
			Expect(err).To(MatchError(ContainSubstring("unknown log format")))
		})

		It("writes the console format only without a log file", func() {
			var console bytes.Buffer
			cmder.logFormat = "text"

			l, closeLog, err := cmder.newLogger(&console)
			Expect(err).NotTo(HaveOccurred())
			defer closeLog()

			l.Info("starting API server", "listen", ":8081")
			Expect(console.String()).To(ContainSubstring("listen=:8081"))
		})

		It("tees console output and JSON into the log file", func() {
			var console bytes.Buffer
			cmder.logFormat = "text"
			cmder.debug = true
			cmder.logFile = filepath.Join(GinkgoT().TempDir(), "logs", "serve.log")

			l, closeLog, err := cmder.newLogger(&console)
			Expect(err).NotTo(HaveOccurred())
			l.Debug("search request", "k", 5)
			closeLog()

			Expect(console.String()).To(ContainSubstring("search request"))

			data, err := os.ReadFile(cmder.logFile)
			Expect(err).NotTo(HaveOccurred())
			var rec map[string]any
			Expect(json.Unmarshal(bytes.TrimSpace(data), &rec)).To(Succeed())
			Expect(rec["msg"]).To(Equal("search request"))
			Expect(rec["k"]).To(BeNumerically("==", 5))
			Expect(rec).To(HaveKey("source"))
		})
	})

	Describe("newAuditStore", func() {
		It("builds an in-memory store", func() {
			cmder.cfg.Audit.Provider = "memory"

			store, err := cmder.newAuditStore(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(store).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		})

		It("places the SQLite store in the resolved dotdir", func() {
			dir, err := os.MkdirTemp("", "vakki-serve-*")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() { _ = os.RemoveAll(dir) })

			cmder.cfg.Audit.Provider = "sqlite"
			cmder.cfg.Audit.Target = filepath.Join(dir, "audit.db")

			store, err := cmder.newAuditStore(context.Background())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() { _ = store.Close() })

			Expect(store).To(BeAssignableToTypeOf(&sqlite.SQLiteDriver{}))
			Expect(filepath.Join(dir, "audit.db")).To(BeAnExistingFile())
		})

		It("requires a connection string for postgres", func() {
			cmder.cfg.Audit.Provider = "postgres"

			_, err := cmder.newAuditStore(context.Background())
			Expect(err).To(MatchError(ContainSubstring("audit.target")))
		})

		It("rejects unknown providers", func() {
			cmder.cfg.Audit.Provider = "mongo"

			_, err := cmder.newAuditStore(context.Background())
			Expect(err).To(MatchError(ContainSubstring("unsupported audit provider")))
		})
	})

	Describe("newPublisher", func() {
		It("defaults to the nop publisher", func() {
			p, err := cmder.newPublisher()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("rejects unknown providers", func() {
			cmder.cfg.Events.Provider = "nats"

			_, err := cmder.newPublisher()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("newSessionManager", func() {
		It("creates sessions with bounded history", func() {
			sessions, err := cmder.newSessionManager()
			Expect(err).NotTo(HaveOccurred())

			s, created, err := sessions.GetOrCreate("")
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(s.History).NotTo(BeNil())
		})
	})
})
