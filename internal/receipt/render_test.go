package receipt

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/ticketverify/internal/ticket"
)

var _ = Describe("RenderV1", func() {
	var engine *Engine

	BeforeEach(func() {
		engine = NewEngine(nil)
	})

	render := func(text string, opts ticket.Options) (map[string]any, []byte) {
		data, err := RenderV1(engine.Run(text, opts), testVersion)
		Expect(err).NotTo(HaveOccurred())

		var doc map[string]any
		Expect(json.Unmarshal(data, &doc)).To(Succeed())
		return doc, data
	}

	It("renders a complete ok document", func() {
		doc, data := render("CAFE DE LA PLACE\nTOTAL 4,00 €\n", ticket.DefaultOptions())

		Expect(doc["schema"]).To(Equal("ticketverify.v1"))
		Expect(doc["engine"]).To(Equal(map[string]any{"name": "ticketverify", "version": "0.0.0-test", "build": "git:test"}))

		result := doc["result"].(map[string]any)
		Expect(result["status"]).To(Equal("ok"))
		Expect(result["confidence"]).To(BeNumerically("~", 0.80))

		fields := result["fields"].(map[string]any)
		Expect(fields).To(HaveKey("merchant"))
		Expect(fields).NotTo(HaveKey("datetime"))

		total := fields["total"].(map[string]any)
		Expect(total["value"]).To(BeNumerically("~", 4.0))
		Expect(total["currency"]).To(Equal("EUR"))
		Expect(total["source"]).To(Equal("regex:TOTAL"))

		Expect(result).NotTo(HaveKey("items"))
		Expect(result).NotTo(HaveKey("warnings"))
		Expect(doc).NotTo(HaveKey("error"))

		Expect(ValidateV1(data)).To(Succeed())
	})

	It("writes a single line", func() {
		_, data := render("CAFE DE LA PLACE\nTOTAL 4,00 €\n", ticket.DefaultOptions())
		Expect(string(data)).NotTo(ContainSubstring("\n"))
	})

	It("omits absent fields and keeps warnings on reject", func() {
		doc, data := render("12 RUE DE PARIS\n", ticket.DefaultOptions())

		result := doc["result"].(map[string]any)
		Expect(result["status"]).To(Equal("reject"))
		Expect(result["fields"]).To(BeEmpty())
		Expect(result["warnings"]).To(ConsistOf(map[string]any{
			"code":     "TOTAL_NOT_FOUND",
			"message":  "No total amount found.",
			"severity": "medium",
		}))

		Expect(ValidateV1(data)).To(Succeed())
	})

	It("renders an empty applied list for whitespace input", func() {
		out := &ticket.EngineOutput{Schema: "ticketverify.v1", Status: ticket.StatusReject, Input: ticket.InputMeta{Locale: "auto", Domain: "auto"}}
		data, err := RenderV1(out, testVersion)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"applied":[]`))
		Expect(ValidateV1(data)).To(Succeed())
	})

	It("includes the hash when requested", func() {
		opts := ticket.DefaultOptions()
		opts.Hash = true
		doc, data := render("TOTAL 1,00", opts)

		Expect(doc["input"]).To(HaveKeyWithValue("hash", MatchRegexp(`^sha256:[0-9a-f]{64}$`)))
		Expect(ValidateV1(data)).To(Succeed())
	})

	It("renders items when a parser produced some", func() {
		t := ticket.NewParsedTicket()
		t.Items = append(t.Items, ticket.NewItem("ESPRESSO"))
		out := &ticket.EngineOutput{
			Schema: "ticketverify.v1",
			Status: ticket.StatusReject,
			Input:  ticket.InputMeta{Locale: "auto", Domain: "auto"},
			Ticket: t,
		}

		data, err := RenderV1(out, testVersion)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"label":"ESPRESSO"`))
		Expect(ValidateV1(data)).To(Succeed())
	})

	It("reports the error message on error status", func() {
		out := &ticket.EngineOutput{
			Schema:       "ticketverify.v1",
			Status:       ticket.StatusError,
			Input:        ticket.InputMeta{Locale: "auto", Domain: "auto"},
			ErrorMessage: "pipeline fault: boom",
		}

		data, err := RenderV1(out, testVersion)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"error":{"message":"pipeline fault: boom"}`))
		Expect(ValidateV1(data)).To(Succeed())
	})
})

var _ = Describe("ValidateV1", func() {
	It("rejects a document with an unknown status", func() {
		doc := `{"schema":"ticketverify.v1","engine":{"name":"x","version":"1","build":"b"},` +
			`"input":{"locale":"auto","domain":"auto","chars":0,"lines":0},` +
			`"result":{"status":"maybe","confidence":0.5,"fields":{},"signals":{"has_tva":false,"has_siret":false,"has_card_keywords":false}},` +
			`"raw":{"normalized_text_preview":"","normalization":{"applied":[]}},` +
			`"timing_ms":{"total":0,"parse":0,"score":0}}`
		Expect(ValidateV1([]byte(doc))).To(MatchError(ContainSubstring("does not match v1 schema")))
	})

	It("rejects malformed JSON", func() {
		Expect(ValidateV1([]byte("{"))).To(HaveOccurred())
	})
})

var _ = Describe("ErrorEnvelope", func() {
	It("renders ok false with code and message", func() {
		data := NewErrorEnvelope(CodeInputEmpty, "input is empty", "").Bytes()
		Expect(string(data)).To(Equal(`{"ok":false,"error":{"code":"INPUT_EMPTY","message":"input is empty"}}`))
	})

	It("keeps the detail", func() {
		data := NewErrorEnvelope(CodeArgsInvalid, "invalid arguments", "unknown flag --foo").Bytes()
		Expect(string(data)).To(ContainSubstring(`"detail":"unknown flag --foo"`))
	})

	It("replaces invalid UTF-8 in the detail", func() {
		env := NewErrorEnvelope(CodeInputUnreadable, "input is unreadable", "bad \xff byte")
		Expect(env.Error.Detail).To(Equal("bad ? byte"))
	})
})
