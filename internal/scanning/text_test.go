package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = DescribeTable("TruncateLines",
	func(text string, limit int, expected string, truncated bool) {
		got, cut := TruncateLines(text, limit)
		Expect(got).To(Equal(expected))
		Expect(cut).To(Equal(truncated))
	},
	Entry("under the limit", "a\nb\n", 5, "a\nb\n", false),
	Entry("exactly at the limit", "a\nb\n", 2, "a\nb\n", false),
	Entry("over the limit", "a\nb\nc", 2, "a\nb\n", true),
	Entry("unterminated tail", "a\nb", 1, "a\n", true),
	Entry("receipt cut after the header", "CAFE DE LA PLACE\nTOTAL 4,00\n", 1, "CAFE DE LA PLACE\n", true),
)
