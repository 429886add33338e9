package vector_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vakki/pkg/vector"
)

var _ = Describe("MetadataString", func() {
	DescribeTable("renders payload values as page labels",
		func(in any, expected string) {
			Expect(vector.MetadataString(in)).To(Equal(expected))
		},
		Entry("nil", nil, ""),
		Entry("string", "iv", "iv"),
		Entry("whole float64", float64(12), "12"),
		Entry("fractional float64", 12.5, "12.5"),
		Entry("float32", float32(7), "7"),
		Entry("int", 45, "45"),
		Entry("int64", int64(46), "46"),
		Entry("other", true, "true"),
	)
})
