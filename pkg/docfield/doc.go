// Package docfield evaluates Microsoft Word field codes (DOCX) and renders
// their results while a document is walked.
//
// A field is a small instruction embedded in a document, such as
// { REF Total \# "#,##0.00" } or { IF { MERGEFIELD Country } = "DE" "Inland" "Ausland" }.
// Word stores both the instruction and the last computed result. docfield
// either forwards the stored result (cache mode) or re-evaluates the
// instruction against an EvalContext and synthesizes a new result
// (evaluate mode).
//
// # Quick Start
//
// Evaluating a single instruction:
//
//	ec := docfield.NewEvalContext(
//	    docfield.WithResolvers(docfield.NewMapResolver(docfield.ResolveMergeField, map[string]interface{}{
//	        "Name": "Ada",
//	    })),
//	)
//	ev := docfield.NewEvaluator(ec)
//
//	res, err := ev.Eval(ctx, docfield.NewFieldInstruction(`MERGEFIELD Name \* Upper`))
//	if err != nil {
//	    log.Fatal(err) // a resolver failed
//	}
//	fmt.Println(res.DisplayText("MERGEFIELD")) // ADA
//
// Walking a document goes through the walk package, which drives a
// Middleware in front of any Visitor:
//
//	pkg, _ := wordml.OpenFile("letter.docx")
//	doc, _ := pkg.Document()
//	_ = walk.Prepopulate(ctx, ec, pkg, doc)
//	mw := docfield.NewMiddleware(renderer, docfield.NewEvaluator(ec))
//	err := walk.Walk(ctx, doc, mw)
//
// # Supported Fields
//
//	IF, COMPARE, SKIPIF, NEXTIF      - comparisons, wildcards with * and ?
//	=                                - formulas, table references (A1, ABOVE, LEFT)
//	DATE, TIME                       - current time from the context clock
//	CREATEDATE, SAVEDATE, PRINTDATE  - document timestamps
//	SET, REF, ASK                    - bookmarks
//	DOCVARIABLE, DOCPROPERTY         - document variables and properties
//	MERGEFIELD                       - mail merge data from the resolver chain
//	SEQ                              - numbered sequences
//
// Unknown field types keep their cached result unless
// Config.ErrorOnUnsupported is set.
//
// # Format Switches
//
//	\* Upper, \* Caps, \* Roman, \* CardText ...  - text transforms
//	\# "#,##0.00"                                 - numeric picture
//	\@ "dd MMMM yyyy"                             - date picture
//
// # Errors
//
// A field that cannot be resolved never fails the walk; it renders Word's
// fixed error text, for example "Error! Reference source not found.".
// Errors returned by Eval or by the Middleware mean a pluggable resolver
// failed or the context was cancelled. Use IsResolverError to tell them apart.
package docfield
