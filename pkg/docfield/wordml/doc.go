// Package wordml provides the subset of WordprocessingML that the field engine walks.
//
// The package reads a DOCX package (a ZIP archive of XML parts) into a small, ordered
// model. Only the elements that matter for field evaluation and plain rendering are kept:
// paragraphs, runs, hyperlinks, simple fields, field characters, instruction text,
// bookmarks and tables. Everything else is skipped while decoding.
//
// # Structure Organization
//
//   - types.go: Core interfaces (BodyElement, ParagraphContent, RunContent) and small value types
//   - run.go: Run elements, RunProperties and the run content variants
//   - paragraph.go: Paragraph, ParagraphProperties, Hyperlink, SimpleField and bookmarks
//   - document.go: Document, Body, Table and the streaming decoder
//   - package.go: DOCX package access (document part, core/custom properties, doc-variables, relationships)
//
// # Key Concepts
//
// Run: A contiguous sequence of content with consistent formatting. Field characters
// (begin/separate/end) and instruction text live inside runs, so a complex field is spread
// over several runs and possibly several paragraphs.
//
// SimpleField: A w:fldSimple element carrying its instruction as an attribute and its cached
// result as child content.
//
// Example of reading a document:
//
//	pkg, err := wordml.OpenFile("letter.docx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pkg.Close()
//
//	doc, err := pkg.Document()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(doc.Body.Elements))
package wordml
