package receipt

import (
	"io"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/ticketverify/internal/scanning"
	"github.com/zombor/ticketverify/internal/ticket"
)

var _ = Describe("Engine", func() {
	var (
		engine *Engine
		text   string
		opts   ticket.Options
		out    *ticket.EngineOutput
	)

	BeforeEach(func() {
		engine = NewEngine(nil)
		opts = ticket.DefaultOptions()
	})

	JustBeforeEach(func() {
		out = engine.Run(text, opts)
	})

	When("both total and merchant are found", func() {
		BeforeEach(func() {
			text = "CAFE DE LA PLACE\nTOTAL 4,00 €\n"
		})

		It("returns ok with fixed confidence", func() {
			Expect(out.Status).To(Equal(ticket.StatusOK))
			Expect(out.Confidence).To(Equal(0.80))
		})

		It("fills the merchant", func() {
			Expect(*out.Ticket.Merchant.Value).To(Equal("CAFE DE LA PLACE"))
		})

		It("fills the total in EUR", func() {
			Expect(out.Ticket.Total.Value.Value).To(BeNumerically("~", 4.0, 1e-9))
			Expect(out.Ticket.Total.Value.Currency).To(Equal("EUR"))
		})

		It("records the normalization steps and preview", func() {
			Expect(out.NormalizationApplied).To(Equal([]string{"drop_cr", "trim", "collapse_spaces", "nbsp_to_space"}))
			Expect(out.NormalizedTextPreview).To(Equal("CAFE DE LA PLACE\nTOTAL 4,00 €"))
		})

		It("adds no warning", func() {
			Expect(out.Ticket.Warnings).To(BeEmpty())
		})

		It("tags the schema", func() {
			Expect(out.Schema).To(Equal("ticketverify.v1"))
		})
	})

	When("only the total is found", func() {
		BeforeEach(func() {
			text = "12 RUE DE PARIS\nTOTAL 4,00 €\n"
		})

		It("returns partial", func() {
			Expect(out.Status).To(Equal(ticket.StatusPartial))
			Expect(out.Confidence).To(Equal(0.65))
			Expect(out.Ticket.Merchant.Present()).To(BeFalse())
		})
	})

	When("the total is missing", func() {
		BeforeEach(func() {
			text = "CAFE DE LA PLACE\nESPRESSO 2,00\nMERCI"
		})

		It("rejects with low confidence", func() {
			Expect(out.Status).To(Equal(ticket.StatusReject))
			Expect(out.Confidence).To(Equal(0.15))
		})

		It("still reports the merchant", func() {
			Expect(*out.Ticket.Merchant.Value).To(Equal("CAFE DE LA PLACE"))
		})

		It("warns that the total was not found", func() {
			Expect(out.Ticket.Total.Present()).To(BeFalse())
			Expect(out.Ticket.Warnings).To(ConsistOf(ticket.Warning{
				Code:     "TOTAL_NOT_FOUND",
				Message:  "No total amount found.",
				Severity: ticket.SeverityMedium,
			}))
		})
	})

	DescribeTable("whitespace-only input",
		func(input string) {
			spy := &spyParser{}
			e := NewEngineWithDeps(nil, []scanning.Parser{spy}, &stepClock{now: time.Unix(0, 0), step: time.Millisecond})
			o := e.Run(input, ticket.DefaultOptions())

			Expect(o.Status).To(Equal(ticket.StatusReject))
			Expect(o.Confidence).To(BeZero())
			Expect(o.NormalizedTextPreview).To(BeEmpty())
			Expect(o.NormalizationApplied).To(Equal([]string{"input_whitespace_only"}))
			Expect(o.Ticket.Warnings).To(BeEmpty())
			Expect(o.Timing.Total).To(BeZero())
			Expect(spy.calls).To(BeZero())
		},
		Entry("empty", ""),
		Entry("spaces", "   "),
		Entry("newlines and tabs", "\n\t\r\n"),
		Entry("non-breaking space", "\u00a0\u00a0"),
	)

	When("running on a real cafe receipt", func() {
		BeforeEach(func() {
			text = loadFixture("receipt_real_001.txt")
		})

		It("finds total, merchant and every signal", func() {
			Expect(out.Status).To(Equal(ticket.StatusOK))
			Expect(*out.Ticket.Merchant.Value).To(Equal("CAFE LE MARIGNAN"))
			Expect(out.Ticket.Total.Value.Value).To(BeNumerically("~", 31.70, 1e-9))
			Expect(out.Ticket.Signals).To(Equal(ticket.Signals{HasTVA: true, HasSIRET: true, HasCardKeywords: true}))
		})

		It("counts input lines", func() {
			Expect(out.Input.Lines).To(Equal(17))
			Expect(out.Input.Chars).To(Equal(len(text)))
		})
	})

	Describe("input metadata", func() {
		BeforeEach(func() {
			text = "A\nB\nC\nD\n"
			opts.Locale = ticket.LocaleFrFR
			opts.Domain = ticket.DomainCafe
			opts.MaxLines = 2
			opts.Hash = true
		})

		It("echoes the hints", func() {
			Expect(out.Input.Locale).To(Equal("fr_FR"))
			Expect(out.Input.Domain).To(Equal("cafe"))
		})

		It("caps the line count", func() {
			Expect(out.Input.Lines).To(Equal(2))
		})

		It("hashes the content", func() {
			Expect(out.Input.Hash).To(MatchRegexp(`^sha256:[0-9a-f]{64}$`))
		})
	})

	When("options are left zero", func() {
		BeforeEach(func() {
			text = "TOTAL 1,00"
			opts = ticket.Options{}
		})

		It("applies the defaults", func() {
			Expect(out.Schema).To(Equal("ticketverify.v1"))
			Expect(out.Input.Locale).To(Equal("auto"))
			Expect(out.Input.Domain).To(Equal("auto"))
		})
	})

	When("max lines is negative", func() {
		BeforeEach(func() {
			text = "CAFE DE LA PLACE\nTOTAL 4,00 €\n"
			opts.MaxLines = -1
		})

		It("falls back to the default cap", func() {
			Expect(out.Input.Lines).To(Equal(2))
		})

		It("renders a valid document", func() {
			data, err := RenderV1(out, testVersion)
			Expect(err).NotTo(HaveOccurred())
			Expect(ValidateV1(data)).To(Succeed())
		})
	})

	When("no clock is given", func() {
		BeforeEach(func() {
			engine = NewEngineWithDeps(nil, scanning.DefaultParsers(), nil)
			text = "CAFE DE LA PLACE\nTOTAL 4,00 €\n"
		})

		It("uses the wall clock", func() {
			Expect(out.Status).To(Equal(ticket.StatusOK))
			Expect(out.Timing.Total).To(BeNumerically(">=", 0))
		})
	})

	When("the normalized text is long", func() {
		BeforeEach(func() {
			text = "TOTAL 1,00\n" + strings.Repeat("É", 600)
		})

		It("truncates the preview with an ellipsis", func() {
			Expect([]rune(out.NormalizedTextPreview)).To(HaveLen(403))
			Expect(out.NormalizedTextPreview).To(HaveSuffix("..."))
		})
	})

	Describe("timing", func() {
		BeforeEach(func() {
			engine = NewEngineWithDeps(nil, scanning.DefaultParsers(), &stepClock{now: time.Unix(0, 0), step: 7 * time.Millisecond})
			text = "TOTAL 1,00"
		})

		It("reports the same value for total and parse", func() {
			Expect(out.Timing.Total).To(Equal(int64(7)))
			Expect(out.Timing.Parse).To(Equal(int64(7)))
			Expect(out.Timing.Score).To(BeZero())
		})
	})

	When("a parser panics", func() {
		BeforeEach(func() {
			boom := scanning.ParserFunc(func(string, *ticket.ParsedTicket) { panic("boom") })
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			engine = NewEngineWithDeps(logger, []scanning.Parser{scanning.ParserFunc(scanning.ParseTotal), boom}, &stepClock{now: time.Unix(0, 0)})
			text = "CAFE DE LA PLACE\nTOTAL 4,00 €\n"
		})

		It("returns error status with a message", func() {
			Expect(out.Status).To(Equal(ticket.StatusError))
			Expect(out.Confidence).To(BeZero())
			Expect(out.ErrorMessage).To(ContainSubstring("boom"))
		})

		It("drops partial fields", func() {
			Expect(out.Ticket.Total.Present()).To(BeFalse())
			Expect(out.Ticket.Merchant.Present()).To(BeFalse())
		})
	})
})

var _ = Describe("countLines", func() {
	It("counts a trailing unterminated line", func() {
		Expect(countLines("a\nb", 10)).To(Equal(2))
	})

	It("does not count an empty tail", func() {
		Expect(countLines("a\nb\n", 10)).To(Equal(2))
	})

	It("stops at the limit", func() {
		Expect(countLines("a\nb\nc\nd", 3)).To(Equal(3))
	})

	It("returns zero for empty text", func() {
		Expect(countLines("", 10)).To(BeZero())
	})
})
