package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/pkg/logger"
	"github.com/papercomputeco/vakki/pkg/pipeline"
	"github.com/papercomputeco/vakki/pkg/retrieval"
	"github.com/papercomputeco/vakki/pkg/session"
	testutils "github.com/papercomputeco/vakki/pkg/utils/test"
	"github.com/papercomputeco/vakki/pkg/vector"
)

var _ = Describe("handleSearchEndpoint", func() {
	var (
		server       *Server
		vectorDriver *testutils.MockVectorDriver
	)

	newServer := func(index retrieval.Index) *Server {
		pipe, err := pipeline.New(
			testutils.NewMockIndex(),
			testutils.NewMockGenerator("ok"),
			testutils.NewMockEmbedder(),
			pipeline.Config{},
			logger.Nop(),
		)
		Expect(err).NotTo(HaveOccurred())

		s, err := NewServer(Config{
			ListenAddr: ":0",
			Pipeline:   pipe,
			Sessions:   session.NewManager(logger.Nop()),
			Index:      index,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	get := func(s *Server, path string) (*http.Response, []byte) {
		req, err := http.NewRequest(http.MethodGet, path, nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := s.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, body
	}

	BeforeEach(func() {
		vectorDriver = testutils.NewMockVectorDriver()
		vectorDriver.Results = []vector.QueryResult{
			{Document: vector.Document{ID: "a", Content: "Section 379. Punishment for theft.", Source: "ipc.pdf", Page: "45"}, Score: 0.9},
			{Document: vector.Document{ID: "b", Content: "Section 380. Theft in dwelling house.", Source: "ipc.pdf", Page: "46"}, Score: 0.8},
			{Document: vector.Document{ID: "c", Content: "Section 381. Theft by clerk.", Source: "ipc.pdf", Page: "46"}, Score: 0.7},
		}

		index, err := retrieval.NewVectorIndex(testutils.NewMockEmbedder(), vectorDriver, 2, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		server = newServer(index)
	})

	Context("when search is not configured", func() {
		It("returns 503", func() {
			resp, body := get(newServer(nil), "/v1/search?query=test")
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))

			var errResp ErrorResponse
			Expect(json.Unmarshal(body, &errResp)).To(Succeed())
			Expect(errResp.Error).To(Equal("search is not configured"))
		})
	})

	Context("when query parameter is missing", func() {
		It("returns 400", func() {
			resp, body := get(server, "/v1/search")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			var errResp ErrorResponse
			Expect(json.Unmarshal(body, &errResp)).To(Succeed())
			Expect(errResp.Error).To(Equal("query parameter is required"))
		})
	})

	Context("when top_k is invalid", func() {
		It("rejects non-positive values", func() {
			resp, _ := get(server, "/v1/search?query=theft&top_k=0")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			resp, _ = get(server, "/v1/search?query=theft&top_k=-3")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("when searching", func() {
		It("uses the index default k when top_k is absent", func() {
			resp, body := get(server, "/v1/search?query=theft")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(vectorDriver.LastTopK).To(Equal(2))

			var out SearchOutput
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Query).To(Equal("theft"))
			Expect(out.Count).To(Equal(2))
		})

		It("forwards top_k to the vector driver", func() {
			resp, body := get(server, "/v1/search?query=theft&top_k=3")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(vectorDriver.LastTopK).To(Equal(3))

			var out SearchOutput
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Count).To(Equal(3))
			Expect(out.Results[2].Content).To(Equal("Section 381. Theft by clerk."))
			Expect(out.Results[2].Page).To(Equal("46"))
		})

		It("returns an empty list rather than null", func() {
			vectorDriver.Results = nil

			resp, body := get(server, "/v1/search?query=nothing")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(string(body)).To(ContainSubstring(`"results":[]`))
		})
	})

	Context("when the vector store fails", func() {
		It("returns 502 with the error", func() {
			vectorDriver.QueryErr = errors.New("connection refused")

			resp, body := get(server, "/v1/search?query=theft")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))

			var errResp ErrorResponse
			Expect(json.Unmarshal(body, &errResp)).To(Succeed())
			Expect(errResp.Error).To(ContainSubstring("connection refused"))
		})
	})
})
