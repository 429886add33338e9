package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/pkg/llm"
	"github.com/papercomputeco/vakki/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI Provider", func() {
	var (
		server   *httptest.Server
		received map[string]any
		reply    string
	)

	BeforeEach(func() {
		received = nil
		reply = `{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"model": "gpt-4",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Theft is punishable."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(HaveSuffix("/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(reply))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an API key", func() {
		_, err := openai.New(openai.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("reports its configured name", func() {
		p, err := openai.New(openai.Config{Name: "groq", APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name()).To(Equal("groq"))
	})

	It("sends the system prompt as the first message and parses the reply", func() {
		p, err := openai.New(openai.Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
		Expect(err).NotTo(HaveOccurred())

		temperature := 0.5
		resp, err := p.Chat(context.Background(), &llm.ChatRequest{
			Model:       "gpt-4",
			System:      "You are a legal assistant.",
			Messages:    []llm.Message{llm.NewTextMessage(llm.RoleUser, "What is theft?")},
			Temperature: &temperature,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(received["model"]).To(Equal("gpt-4"))
		Expect(received["temperature"]).To(BeNumerically("~", 0.5, 0.001))
		messages := received["messages"].([]any)
		Expect(messages).To(HaveLen(2))
		Expect(messages[0].(map[string]any)["role"]).To(Equal("system"))
		Expect(messages[1].(map[string]any)["content"]).To(Equal("What is theft?"))

		Expect(resp.Message.GetText()).To(Equal("Theft is punishable."))
		Expect(resp.StopReason).To(Equal("stop"))
		Expect(resp.Usage.TotalTokens).To(Equal(15))
	})

	It("errors when there are no choices", func() {
		reply = `{"id": "x", "object": "chat.completion", "model": "gpt-4", "choices": []}`
		p, err := openai.New(openai.Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
		Expect(err).NotTo(HaveOccurred())

		_, err = p.Chat(context.Background(), &llm.ChatRequest{Model: "gpt-4"})
		Expect(err).To(HaveOccurred())
	})
})
