package docfield

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

// script drives a Middleware with the events a document walk would produce.
type script struct {
	t   *testing.T
	ctx context.Context
	mw  *Middleware
}

func newPipeline(t *testing.T, mode Mode, opts ...Option) (*script, *callRecorder, *EvalContext) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Mode = mode
	ec := newTestContext(t, append([]Option{WithConfig(cfg)}, opts...)...)
	rec := &callRecorder{}
	mw := NewMiddleware(rec, NewEvaluator(ec))
	require.Equal(t, mode, mw.Mode())
	return &script{t: t, ctx: context.Background(), mw: mw}, rec, ec
}

func (s *script) must(err error) {
	s.t.Helper()
	require.NoError(s.t, err)
}

func (s *script) run(props *wordml.RunProperties, body func()) {
	s.t.Helper()
	s.must(s.mw.BeginRun(s.ctx, props))
	body()
	s.must(s.mw.EndRun(s.ctx))
}

func (s *script) text(props *wordml.RunProperties, text string) {
	s.t.Helper()
	s.run(props, func() { s.must(s.mw.Text(s.ctx, text)) })
}

func (s *script) begin(props *wordml.RunProperties) {
	s.run(props, func() { s.must(s.mw.BeginField(s.ctx, FieldBegin{})) })
}

func (s *script) code(props *wordml.RunProperties, text string) {
	s.run(props, func() { s.must(s.mw.FieldCode(s.ctx, text)) })
}

func (s *script) separate(props *wordml.RunProperties) {
	s.run(props, func() { s.must(s.mw.FieldSeparator(s.ctx)) })
}

func (s *script) end(props *wordml.RunProperties) {
	s.run(props, func() { s.must(s.mw.EndField(s.ctx)) })
}

// field writes a complete complex field whose cached result is one run.
func (s *script) field(props *wordml.RunProperties, instruction, cached string) {
	s.begin(props)
	s.code(props, instruction)
	s.separate(props)
	if cached != "" {
		s.text(nil, cached)
	}
	s.end(props)
}

func (s *script) paragraph(props *wordml.ParagraphProperties, body func()) {
	s.must(s.mw.BeginParagraph(s.ctx, props))
	body()
	s.must(s.mw.EndParagraph(s.ctx))
}

func mergeResolver() Option {
	return WithResolvers(NewMapResolver(ResolveMergeField, map[string]interface{}{
		"Name":    "Ada",
		"Country": "DE",
	}))
}

func TestMiddlewareEvaluateSynthesizesResult(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate, mergeResolver())

	s.paragraph(nil, func() {
		s.text(nil, "Hello ")
		s.field(bold, " MERGEFIELD Name ", "«Name»")
		s.text(italic, "!")
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun()", "Text(Hello )", "EndRun",
		"BeginRun(b)", "Text(Ada)", "EndRun",
		"BeginRun(i)", "Text(!)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareCacheForwardsCachedResult(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeCache, mergeResolver())

	s.paragraph(nil, func() {
		s.field(bold, "MERGEFIELD Name", "«Name»")
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun()", "Text(«Name»)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareCacheEvaluatesSet(t *testing.T) {
	s, rec, ec := newPipeline(t, ModeCache)

	s.paragraph(nil, func() {
		s.field(nil, `SET greeting "hi there"`, "hi there")
		s.field(nil, "REF greeting", "old")
	})

	assert.Equal(t, "old", rec.text())
	buf, ok := ec.Bookmark("greeting")
	require.True(t, ok)
	assert.Equal(t, "hi there", buf.ToPlainText())
}

func TestMiddlewareCacheSuppressesNestedResults(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeCache)

	s.paragraph(nil, func() {
		s.begin(nil)
		s.code(nil, "REF outer")
		s.separate(nil)
		s.text(nil, "a")
		s.field(nil, "REF inner", "b")
		s.text(nil, "c")
		s.end(nil)
	})

	assert.Equal(t, "ac", rec.text())
}

func TestMiddlewareSetThenRefInEvaluateMode(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.paragraph(nil, func() {
		s.field(nil, `SET who "World"`, "World")
		s.field(bold, "REF who", "stale")
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(b)", "Text(World)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareIfKeepsBranchFormatting(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.paragraph(nil, func() {
		s.begin(nil)
		s.code(nil, `IF 1 = 1 "`)
		s.code(bold, "yes")
		s.code(nil, `" "`)
		s.code(italic, "no")
		s.code(nil, `" `)
		s.separate(nil)
		s.text(nil, "cached")
		s.end(nil)
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(b)", "Text(yes)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareIfFalseBranch(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.paragraph(nil, func() {
		s.begin(nil)
		s.code(nil, `IF 1 = 2 "yes" "`)
		s.code(italic, "no way")
		s.code(nil, `"`)
		s.end(nil)
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(i)", "Text(no way)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareIfAgreesWithEval(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
	}{
		{"glued operator", `IF 1=1 "a" "b"`},
		{"glued right operand", `IF 1 =2 "a" "b"`},
		{"unknown operator", `IF 1 ! 1 "yes" "no"`},
		{"reversed operator", `IF 1 =< 1 "yes" "no"`},
		{"formatted branch", `IF 1 = 1 "yes" "no" \* Upper`},
		{"numeric picture", `IF 2 > 1 "5" "6" \# "0.00"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec, ec := newPipeline(t, ModeEvaluate)
			s.paragraph(nil, func() {
				s.field(nil, tt.instruction, "cached")
			})
			want := evalText(t, NewEvaluator(ec), tt.instruction)
			assert.NotEqual(t, IfErrorText, want)
			assert.Equal(t, want, rec.text())
		})
	}
}

func TestMiddlewareIfSwitchFormatsBranch(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.paragraph(nil, func() {
		s.begin(nil)
		s.code(nil, `IF 1 = 1 "`)
		s.code(bold, "yes")
		s.code(nil, `" "no" \* Upper`)
		s.separate(nil)
		s.text(nil, "cached")
		s.end(nil)
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(b)", "Text(YES)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareIfMergeFormatKeepsRuns(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.paragraph(nil, func() {
		s.begin(nil)
		s.code(nil, `IF 1 = 1 "`)
		s.code(bold, "big")
		s.code(italic, " deal")
		s.code(nil, `" "no" \* MERGEFORMAT`)
		s.end(nil)
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(b)", "Text(big)", "EndRun",
		"BeginRun(i)", "Text( deal)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareIfWithoutBranchesShowsError(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.paragraph(nil, func() {
		s.field(bold, `IF 1 = 1`, "")
	})

	assert.Equal(t, IfErrorText, rec.text())
}

func TestMiddlewareNestedFieldInjectedIntoIf(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate, mergeResolver())

	s.paragraph(nil, func() {
		s.begin(nil)
		s.code(nil, "IF ")
		s.field(nil, "MERGEFIELD Country", "XX")
		s.code(nil, ` = "DE" "Inland" "Ausland"`)
		s.separate(nil)
		s.text(nil, "cached")
		s.end(nil)
	})

	assert.Equal(t, "Inland", rec.text())
}

func TestMiddlewareNestedFieldInjectedIntoBranch(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate, mergeResolver())

	s.paragraph(nil, func() {
		s.begin(nil)
		s.code(nil, `IF 1 = 1 "Dear `)
		s.field(nil, "MERGEFIELD Name", "«Name»")
		s.code(nil, `" "Hi"`)
		s.end(nil)
	})

	assert.Equal(t, "Dear Ada", rec.text())
}

func TestMiddlewareNestedFieldInOtherParent(t *testing.T) {
	s, rec, ec := newPipeline(t, ModeEvaluate, mergeResolver())
	ec.SetBookmarkText("col", "Name")

	s.paragraph(nil, func() {
		s.begin(bold)
		s.code(bold, "MERGEFIELD ")
		s.field(nil, `SET unused "x"`, "")
		s.field(nil, "REF col", "")
		s.code(bold, ` \* Upper`)
		s.separate(bold)
		s.end(bold)
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(b)", "Text(ADA)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareMergeFormatSplitsAcrossRuns(t *testing.T) {
	s, rec, ec := newPipeline(t, ModeEvaluate)
	ec.SetBookmarkText("x", "abcdef")

	s.paragraph(nil, func() {
		s.begin(nil)
		s.code(nil, `REF x \* MERGEFORMAT`)
		s.separate(nil)
		s.text(bold, "wx")
		s.text(italic, "yz")
		s.end(nil)
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(b)", "Text(abc)", "EndRun",
		"BeginRun(i)", "Text(def)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareCharFormatUsesFirstRun(t *testing.T) {
	s, rec, ec := newPipeline(t, ModeEvaluate)
	ec.SetBookmarkText("x", "new")

	s.paragraph(nil, func() {
		s.begin(italic)
		s.code(italic, `REF x \* CHARFORMAT`)
		s.separate(italic)
		s.text(bold, "o")
		s.text(nil, "ld")
		s.end(italic)
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(b)", "Text(new)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareRefHyperlink(t *testing.T) {
	s, rec, ec := newPipeline(t, ModeEvaluate)
	ec.SetBookmarkText("intro", "Introduction")

	s.paragraph(nil, func() {
		s.field(nil, `REF intro \h`, "x")
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginHyperlink(#intro)", "BeginRun()", "Text(Introduction)", "EndRun", "EndHyperlink",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareRefReplaysBookmarkFormatting(t *testing.T) {
	s, rec, ec := newPipeline(t, ModeEvaluate)
	buf := NewNodeBuffer()
	buf.BeginRun(bold)
	buf.AddText("Big")
	buf.EndRun()
	buf.BeginRun(italic)
	buf.AddText("Slanted")
	buf.EndRun()
	ec.SetBookmark("mark", buf)

	s.paragraph(nil, func() {
		s.field(nil, "REF mark", "stale")
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(b)", "Text(Big)", "EndRun",
		"BeginRun(i)", "Text(Slanted)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareUnsupportedFieldKeepsCache(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.paragraph(nil, func() {
		s.field(nil, `TOC \o "1-3"`, "Contents")
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun()", "Text(Contents)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareSkipIfOutputsNothing(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.paragraph(nil, func() {
		s.field(nil, `SKIPIF 1 = 1`, "cached")
	})

	assert.Equal(t, []string{"BeginParagraph", "EndParagraph"}, rec.calls)
}

func TestMiddlewareSimpleField(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate, mergeResolver())

	s.paragraph(nil, func() {
		s.must(s.mw.BeginField(s.ctx, FieldBegin{Simple: true, Instruction: "MERGEFIELD Name \\* Upper"}))
		s.text(nil, "«Name»")
		s.must(s.mw.EndField(s.ctx))
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun()", "Text(ADA)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareRunCultureApplies(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)
	german := &wordml.RunProperties{Lang: &wordml.Lang{Val: "de-DE"}}

	s.paragraph(nil, func() {
		s.field(german, "= 10 / 4", "")
		s.field(nil, "= 10 / 4", "")
	})

	assert.Equal(t, "2,52.5", rec.text())
}

func TestMiddlewareEmptyRunsAreDropped(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.paragraph(nil, func() {
		s.run(bold, func() {})
		s.must(s.mw.BeginHyperlink(s.ctx, Hyperlink{Target: "http://example.com"}))
		s.text(nil, "site")
		s.must(s.mw.EndHyperlink(s.ctx))
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginHyperlink(http://example.com#)", "BeginRun()", "Text(site)", "EndRun", "EndHyperlink",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareFieldInsideRunSplitsIt(t *testing.T) {
	s, rec, ec := newPipeline(t, ModeEvaluate)
	ec.SetBookmarkText("b", "mid")

	// fldChar and text share one run
	s.paragraph(nil, func() {
		s.run(bold, func() {
			s.must(s.mw.Text(s.ctx, "pre "))
			s.must(s.mw.BeginField(s.ctx, FieldBegin{}))
			s.must(s.mw.FieldCode(s.ctx, `REF b \* Upper`))
			s.must(s.mw.FieldSeparator(s.ctx))
			s.must(s.mw.EndField(s.ctx))
			s.must(s.mw.Text(s.ctx, " post"))
		})
	})

	assert.Equal(t, []string{
		"BeginParagraph",
		"BeginRun(b)", "Text(pre )", "EndRun",
		"BeginRun(b)", "Text(MID)", "EndRun",
		"BeginRun(b)", "Text( post)", "EndRun",
		"EndParagraph",
	}, rec.calls)
}

func TestMiddlewareUnbalancedEventsAreTolerated(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)

	s.must(s.mw.EndField(s.ctx))
	s.must(s.mw.FieldSeparator(s.ctx))
	s.must(s.mw.EndRun(s.ctx))
	s.must(s.mw.EndHyperlink(s.ctx))
	assert.Empty(t, rec.calls)
}

func TestMiddlewareSequencesFollowHeadings(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)
	heading := &wordml.ParagraphProperties{Style: &wordml.Style{Val: "Heading1"}}

	s.paragraph(heading, func() { s.text(nil, "One") })
	s.paragraph(nil, func() { s.field(nil, `SEQ Figure \s 1`, "") })
	s.paragraph(nil, func() { s.field(nil, `SEQ Figure \s 1`, "") })
	s.paragraph(heading, func() { s.text(nil, "Two") })
	s.paragraph(nil, func() { s.field(nil, `SEQ Figure \s 1`, "") })

	assert.Equal(t, "One12Two1", rec.text())
}

func TestMiddlewareTableFormula(t *testing.T) {
	s, rec, _ := newPipeline(t, ModeEvaluate)
	cell := func(text string) *wordml.TableCell {
		return &wordml.TableCell{Elements: []wordml.BodyElement{
			&wordml.Paragraph{Content: []wordml.ParagraphContent{
				&wordml.Run{Content: []wordml.RunContent{&wordml.Text{Content: text}}},
			}},
		}}
	}
	table := &wordml.Table{Rows: []*wordml.TableRow{
		{Cells: []*wordml.TableCell{cell("2")}},
		{Cells: []*wordml.TableCell{cell("3.5")}},
		{Cells: []*wordml.TableCell{cell("")}},
	}}

	s.must(s.mw.BeginTable(s.ctx, table))
	for i := range table.Rows {
		s.must(s.mw.BeginTableRow(s.ctx))
		s.must(s.mw.BeginTableCell(s.ctx))
		s.paragraph(nil, func() {
			if i == 2 {
				s.field(nil, "= SUM(ABOVE)", "0")
			} else {
				s.text(nil, table.Rows[i].Cells[0].GetText())
			}
		})
		s.must(s.mw.EndTableCell(s.ctx))
		s.must(s.mw.EndTableRow(s.ctx))
	}
	s.must(s.mw.EndTable(s.ctx))

	assert.Equal(t, "23.55.5", rec.text())
	assert.Equal(t, "BeginTable", rec.calls[0])
	assert.Equal(t, "EndTable", rec.calls[len(rec.calls)-1])
}
