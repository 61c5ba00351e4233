package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/walk"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

const wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

func render(t *testing.T, body string, targets map[string]string) string {
	t.Helper()
	doc, err := wordml.ParseDocumentString(`<w:document ` + wNS + `><w:body>` + body + `</w:body></w:document>`)
	require.NoError(t, err)

	r := NewRenderer()
	require.NoError(t, walk.Walk(context.Background(), doc, r, walk.WithHyperlinkTargets(targets)))
	return r.Markdown()
}

func TestRenderer(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plain paragraphs",
			body: `<w:p><w:r><w:t>One</w:t></w:r></w:p><w:p/><w:p><w:r><w:t>Two</w:t></w:r></w:p>`,
			want: "One\n\nTwo\n",
		},
		{
			name: "heading",
			body: `<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Scope</w:t></w:r></w:p>`,
			want: "## Scope\n",
		},
		{
			name: "emphasis keeps spaces outside",
			body: `<w:p><w:r><w:t xml:space="preserve">a </w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">bold </w:t></w:r><w:r><w:t>c</w:t></w:r></w:p>`,
			want: "a **bold** c\n",
		},
		{
			name: "adjacent runs share delimiters",
			body: `<w:p><w:r><w:rPr><w:i/></w:rPr><w:t>ab</w:t></w:r><w:r><w:rPr><w:i/></w:rPr><w:t>cd</w:t></w:r></w:p>`,
			want: "*abcd*\n",
		},
		{
			name: "bold italic strike",
			body: `<w:p><w:r><w:rPr><w:b/><w:i/><w:strike/></w:rPr><w:t>all</w:t></w:r></w:p>`,
			want: "~~***all***~~\n",
		},
		{
			name: "escaping",
			body: `<w:p><w:r><w:t>2*3 [x] a_b</w:t></w:r></w:p>`,
			want: "2\\*3 \\[x\\] a\\_b\n",
		},
		{
			name: "external and internal links",
			body: `<w:p><w:hyperlink r:id="rId1"><w:r><w:t>site</w:t></w:r></w:hyperlink><w:r><w:t xml:space="preserve"> and </w:t></w:r><w:hyperlink w:anchor="top"><w:r><w:t>up</w:t></w:r></w:hyperlink></w:p>`,
			want: "[site](https://example.com) and [up](#top)\n",
		},
		{
			name: "line break",
			body: `<w:p><w:r><w:t>a</w:t><w:br/><w:t>b</w:t><w:br/></w:r></w:p>`,
			want: "a\\\nb\n",
		},
		{
			name: "deleted text is dropped",
			body: `<w:p><w:r><w:t>kept</w:t></w:r><w:del w:id="1"><w:r><w:delText>gone</w:delText></w:r></w:del></w:p>`,
			want: "kept\n",
		},
		{
			name: "table",
			body: `<w:tbl>
				<w:tr><w:tc><w:p><w:r><w:t>Item</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Qty</w:t></w:r></w:p></w:tc></w:tr>
				<w:tr><w:tc><w:p><w:r><w:t>a|b</w:t></w:r></w:p><w:p><w:r><w:t>more</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>2</w:t></w:r></w:p></w:tc></w:tr>
			</w:tbl>`,
			want: "| Item | Qty |\n| --- | --- |\n| a\\|b<br>more | 2 |\n",
		},
	}

	targets := map[string]string{"rId1": "https://example.com"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.body, targets))
		})
	}
}

func TestRendererBehindMiddleware(t *testing.T) {
	doc, err := wordml.ParseDocumentString(`<w:document ` + wNS + `><w:body><w:p>
		<w:r><w:t xml:space="preserve">Hello </w:t></w:r>
		<w:r><w:fldChar w:fldCharType="begin"/></w:r>
		<w:r><w:rPr><w:b/></w:rPr><w:instrText xml:space="preserve"> MERGEFIELD Name </w:instrText></w:r>
		<w:r><w:fldChar w:fldCharType="separate"/></w:r>
		<w:r><w:t>«Name»</w:t></w:r>
		<w:r><w:fldChar w:fldCharType="end"/></w:r>
	</w:p></w:body></w:document>`)
	require.NoError(t, err)

	ec := docfield.NewEvalContext(
		docfield.WithLogger(docfield.NopLogger()),
		docfield.WithResolvers(docfield.NewMapResolver(docfield.ResolveMergeField, map[string]interface{}{"Name": "Ada"})),
	)
	r := NewRenderer()
	mw := docfield.NewMiddleware(r, docfield.NewEvaluator(ec))
	require.NoError(t, walk.Walk(context.Background(), doc, mw))

	assert.Equal(t, "Hello **Ada**\n", r.Markdown())
}

func TestRendererEmpty(t *testing.T) {
	assert.Equal(t, "", NewRenderer().Markdown())
}
