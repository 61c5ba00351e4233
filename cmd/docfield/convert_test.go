package main

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
)

const wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

func writeDocx(t *testing.T, parts map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "letter.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func letter(t *testing.T) string {
	return writeDocx(t, map[string]string{
		"word/document.xml": `<w:document ` + wNS + `><w:body>
			<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Invoice</w:t></w:r></w:p>
			<w:p>
				<w:r><w:t xml:space="preserve">Dear </w:t></w:r>
				<w:r><w:fldChar w:fldCharType="begin"/></w:r>
				<w:r><w:rPr><w:b/></w:rPr><w:instrText xml:space="preserve"> MERGEFIELD Name </w:instrText></w:r>
				<w:r><w:fldChar w:fldCharType="separate"/></w:r>
				<w:r><w:t>«Name»</w:t></w:r>
				<w:r><w:fldChar w:fldCharType="end"/></w:r>
				<w:r><w:t xml:space="preserve">, see </w:t></w:r>
				<w:hyperlink r:id="rId9"><w:r><w:t>terms</w:t></w:r></w:hyperlink>
			</w:p>
			<w:p><w:fldSimple w:instr=" DOCPROPERTY Title "><w:r><w:t>old title</w:t></w:r></w:fldSimple></w:p>
		</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
			<Relationship Id="rId9" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/terms" TargetMode="External"/>
		</Relationships>`,
		"docProps/core.xml": `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Q3 report</dc:title></cp:coreProperties>`,
	})
}

func TestConvertFile(t *testing.T) {
	path := letter(t)

	tests := []struct {
		name string
		mode docfield.Mode
		want string
	}{
		{
			name: "evaluate",
			mode: docfield.ModeEvaluate,
			want: "# Invoice\n\nDear **Ada**, see [terms](https://example.com/terms)\n\nQ3 report\n",
		},
		{
			name: "cache",
			mode: docfield.ModeCache,
			want: "# Invoice\n\nDear «Name», see [terms](https://example.com/terms)\n\nold title\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp(t, "log_level: off\nmode: "+string(tt.mode)+"\nmerge:\n  Name: Ada\n")
			md, err := convertFile(context.Background(), a, path, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, md)
		})
	}
}

func TestConvertMissingFile(t *testing.T) {
	a := testApp(t, "log_level: off\n")
	_, err := convertFile(context.Background(), a, filepath.Join(t.TempDir(), "nope.docx"), nil)
	assert.Error(t, err)
}

func TestWriteMarkdownPlain(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeMarkdown(&out, "# Title\n", false))
	assert.Equal(t, "# Title\n", out.String())
}
