package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/pkg/logger"
)

func decodeLines(data []byte) []map[string]any {
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		Expect(json.Unmarshal([]byte(line), &rec)).To(Succeed())
		records = append(records, rec)
	}
	return records
}

var _ = Describe("Logger", func() {
	Describe("ParseFormat", func() {
		DescribeTable("accepts known formats",
			func(in string, expected logger.Format) {
				f, err := logger.ParseFormat(in)
				Expect(err).NotTo(HaveOccurred())
				Expect(f).To(Equal(expected))
			},
			Entry("empty defaults to pretty", "", logger.FormatPretty),
			Entry("pretty", "pretty", logger.FormatPretty),
			Entry("text", "text", logger.FormatText),
			Entry("json, any case", " JSON ", logger.FormatJSON),
		)

		It("rejects unknown formats", func() {
			_, err := logger.ParseFormat("xml")
			Expect(err).To(MatchError(ContainSubstring(`unknown log format "xml"`)))
		})
	})

	Describe("New", func() {
		It("creates a text logger by default", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("answered", "session_id", "abc")

			Expect(buf.String()).To(ContainSubstring("msg=answered"))
			Expect(buf.String()).To(ContainSubstring("session_id=abc"))
		})

		It("filters debug unless enabled", func() {
			var buf bytes.Buffer
			logger.New(logger.WithWriter(&buf)).Debug("hidden")
			Expect(buf.String()).To(BeEmpty())

			logger.New(logger.WithWriter(&buf), logger.WithDebug(true)).Debug("search request")
			Expect(buf.String()).To(ContainSubstring("search request"))
		})

		It("creates a JSON logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatJSON))
			l.Info("pipeline stage failed", "stage", "retrieve", "top_k", 5)

			records := decodeLines(buf.Bytes())
			Expect(records).To(HaveLen(1))
			Expect(records[0]["msg"]).To(Equal("pipeline stage failed"))
			Expect(records[0]["stage"]).To(Equal("retrieve"))
			Expect(records[0]["top_k"]).To(BeNumerically("==", 5))
		})

		It("creates a pretty logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatPretty))
			l.Info("starting API server")

			Expect(buf.String()).To(ContainSubstring("starting API server"))
		})

		It("adds source locations when asked", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatJSON), logger.WithSource(true))
			l.Info("located")

			records := decodeLines(buf.Bytes())
			Expect(records[0]).To(HaveKey(slog.SourceKey))
		})

		It("binds fields to child loggers", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithFormat(logger.FormatJSON))
			l.With("component", "api").WithGroup("request").Info("processed", "method", "POST")

			records := decodeLines(buf.Bytes())
			Expect(records[0]["component"]).To(Equal("api"))
			group, ok := records[0]["request"].(map[string]any)
			Expect(ok).To(BeTrue(), "expected 'request' group in JSON output")
			Expect(group["method"]).To(Equal("POST"))
		})
	})

	Describe("Nop", func() {
		It("discards everything", func() {
			l := logger.Nop()
			Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
			Expect(func() {
				l.With("key", "value").WithGroup("group").Error("msg")
			}).NotTo(Panic())
		})
	})

	Describe("OpenFile", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("appends JSON records, creating parent directories", func() {
			path := filepath.Join(dir, "logs", "vakki.log")

			l, closer, err := logger.OpenFile(path)
			Expect(err).NotTo(HaveOccurred())
			l.Info("first")
			Expect(closer.Close()).To(Succeed())

			l, closer, err = logger.OpenFile(path)
			Expect(err).NotTo(HaveOccurred())
			l.Info("second")
			Expect(closer.Close()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			records := decodeLines(data)
			Expect(records).To(HaveLen(2))
			Expect(records[0]["msg"]).To(Equal("first"))
			Expect(records[1]["msg"]).To(Equal("second"))
		})

		It("stays JSON whatever format is passed", func() {
			path := filepath.Join(dir, "vakki.log")

			l, closer, err := logger.OpenFile(path, logger.WithFormat(logger.FormatPretty), logger.WithDebug(true))
			Expect(err).NotTo(HaveOccurred())
			l.Debug("embedding cache miss")
			Expect(closer.Close()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(decodeLines(data)[0]["msg"]).To(Equal("embedding cache miss"))
		})

		It("requires a path", func() {
			_, _, err := logger.OpenFile("")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Multi", func() {
		It("tees every record to each logger", func() {
			var console, file bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&console)),
				logger.New(logger.WithWriter(&file), logger.WithFormat(logger.FormatJSON)),
			)

			multi.Info("answered", "session_id", "abc")

			Expect(console.String()).To(ContainSubstring("answered"))
			Expect(decodeLines(file.Bytes())[0]["session_id"]).To(Equal("abc"))
		})

		It("applies each logger's own level", func() {
			var console, file bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&console)),
				logger.New(logger.WithWriter(&file), logger.WithFormat(logger.FormatJSON), logger.WithDebug(true)),
			)

			multi.Debug("search request")

			Expect(console.String()).To(BeEmpty())
			Expect(file.String()).To(ContainSubstring("search request"))
		})

		It("carries With and WithGroup to every logger", func() {
			var a, b bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&a), logger.WithFormat(logger.FormatJSON)),
				logger.New(logger.WithWriter(&b), logger.WithFormat(logger.FormatJSON)),
			)

			multi.With("component", "worker").WithGroup("job").Info("audited", "record_id", "r1")

			for _, buf := range []*bytes.Buffer{&a, &b} {
				rec := decodeLines(buf.Bytes())[0]
				Expect(rec["component"]).To(Equal("worker"))
				Expect(rec["job"]).To(HaveKeyWithValue("record_id", "r1"))
			}
		})

		It("skips nil loggers", func() {
			var buf bytes.Buffer
			multi := logger.Multi(nil, logger.New(logger.WithWriter(&buf)))
			multi.Info("kept")
			Expect(buf.String()).To(ContainSubstring("kept"))
		})
	})
})
