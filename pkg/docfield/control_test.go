package docfield

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareTextSymmetry(t *testing.T) {
	values := []float64{-3, -0.5, 0, 1, 1.5, 2, 10, 100}
	c := LookupCulture("en-US")

	for _, a := range values {
		for _, b := range values {
			as := strconv.FormatFloat(a, 'f', -1, 64)
			bs := strconv.FormatFloat(b, 'f', -1, 64)

			lt, ok := CompareText(as, "<", bs, c, true)
			assert.True(t, ok)
			gt, _ := CompareText(bs, ">", as, c, true)
			assert.Equal(t, lt, gt, "%s < %s", as, bs)

			eq, _ := CompareText(as, "=", bs, c, true)
			eqSwapped, _ := CompareText(bs, "=", as, c, true)
			assert.Equal(t, eq, eqSwapped, "%s = %s", as, bs)

			ne, _ := CompareText(as, "<>", bs, c, true)
			assert.Equal(t, !eq, ne, "%s <> %s", as, bs)

			assert.Equal(t, a < b, lt)
			assert.Equal(t, a == b, eq)
		}
	}
}

func TestCompareText(t *testing.T) {
	c := LookupCulture("en-US")
	tests := []struct {
		left, op, right string
		want            bool
	}{
		{"9", "<", "10", true},
		{"apple", "<", "banana", true},
		{"b", ">=", "b", true},
		{"1.0", "=", "1", true},
		{"abc", "=", "a*", true},
		{"a*", "=", "abc", true},
		{"abc", "<>", "a?d", true},
		{"abc", "=", "ABC", false},
	}
	for _, tt := range tests {
		got, ok := CompareText(tt.left, tt.op, tt.right, c, true)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "%s %s %s", tt.left, tt.op, tt.right)
	}

	_, ok := CompareText("1", "=>", "2", c, true)
	assert.False(t, ok)
}

func TestMatchWildcard(t *testing.T) {
	for _, s := range []string{"", "a", "abc", "über", "a b c"} {
		assert.True(t, MatchWildcard(s, "*"), "%q", s)
	}
	assert.False(t, MatchWildcard("", "?"))
	assert.True(t, MatchWildcard("abc", "a?c"))
	assert.False(t, MatchWildcard("abc", "a?d"))
	assert.True(t, MatchWildcard("über", "?ber"))
	assert.True(t, MatchWildcard("report-2024.docx", "report*.docx"))
	assert.False(t, MatchWildcard("report.pdf", "report*.docx"))
	assert.True(t, MatchWildcard("aaa", "a*a*a"))
	assert.False(t, MatchWildcard("ab", "a*c"))
}

func TestSplitComparison(t *testing.T) {
	tests := []struct {
		args      string
		left, op  string
		right     string
		restCount int
		ok        bool
	}{
		{`a = b "x" "y"`, "a", "=", "b", 2, true},
		{`a=b "x"`, "a", "=", "b", 1, true},
		{`a= b`, "a", "=", "b", 0, true},
		{`a =b`, "a", "=", "b", 0, true},
		{`a<=b`, "a", "<=", "b", 0, true},
		{`{REF x}>=3`, "{REF x}", ">=", "3", 0, true},
		{`a ! b "x"`, "a", "!", "b", 1, true},
		{`a =< b "x" "y"`, "a", "=<", "b", 2, true},
		{`a=<b`, "a", "=<", "b", 0, true},
		{`a`, "", "", "", 0, false},
		{`a b`, "", "", "", 0, false},
		{`a "=" b`, "", "", "", 0, false},
	}
	for _, tt := range tests {
		left, op, right, rest, ok := splitComparison(tokenizeArgs(tt.args))
		assert.Equal(t, tt.ok, ok, tt.args)
		if !ok {
			continue
		}
		assert.Equal(t, tt.left, left.Text, tt.args)
		assert.Equal(t, tt.op, op, tt.args)
		assert.Equal(t, tt.right, right.Text, tt.args)
		assert.Len(t, rest, tt.restCount, tt.args)
	}
}
