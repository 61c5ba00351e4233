package docfield

import (
	"context"
	"strings"
	"time"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/formula"
)

// RefRequest carries a REF field's bookmark and switches to a RefResolver.
type RefRequest struct {
	Bookmark string
	// Separator is the \d argument
	Separator string
	Footnote  bool // \f
	Hyperlink bool // \h
	// ParagraphNumber, RelativeNumber and FullContext are \n, \r and \w
	ParagraphNumber  bool
	RelativeNumber   bool
	FullContext      bool
	RelativePosition bool // \p
	// SuppressNonNumeric is \t; the engine applies it to the returned text
	SuppressNonNumeric bool
}

// RefResult is the answer of a RefResolver
type RefResult struct {
	Text  string
	Found bool
}

// RefResolver resolves REF fields, typically with knowledge of paragraph numbering.
type RefResolver interface {
	ResolveRef(ctx context.Context, req RefRequest, ec *EvalContext) (RefResult, error)
}

// RefResolverFunc adapts a function to RefResolver
type RefResolverFunc func(ctx context.Context, req RefRequest, ec *EvalContext) (RefResult, error)

func (f RefResolverFunc) ResolveRef(ctx context.Context, req RefRequest, ec *EvalContext) (RefResult, error) {
	return f(ctx, req, ec)
}

// DocVariableSource supplies formatted doc-variable content.
type DocVariableSource interface {
	DocVariableBuffer(ctx context.Context, name string) (*NodeBuffer, bool, error)
}

// Prompter answers ASK fields. ok=false means the user gave no answer.
type Prompter interface {
	Prompt(ctx context.Context, bookmark, prompt, defaultResponse string) (response string, ok bool, err error)
}

// PrompterFunc adapts a function to Prompter
type PrompterFunc func(ctx context.Context, bookmark, prompt, defaultResponse string) (string, bool, error)

func (f PrompterFunc) Prompt(ctx context.Context, bookmark, prompt, defaultResponse string) (string, bool, error) {
	return f(ctx, bookmark, prompt, defaultResponse)
}

// Option configures an EvalContext
type Option func(*EvalContext)

// WithConfig replaces the configuration. A nil config keeps the global one.
func WithConfig(config *Config) Option {
	return func(ec *EvalContext) {
		if config != nil {
			ec.config = config
		}
	}
}

// WithClock sets the time source used by DATE, TIME and PRINTDATE. A nil clock keeps time.Now.
func WithClock(clock func() time.Time) Option {
	return func(ec *EvalContext) {
		if clock != nil {
			ec.clock = clock
		}
	}
}

// WithResolvers appends external value resolvers after the context-local one
func WithResolvers(resolvers ...ValueResolver) Option {
	return func(ec *EvalContext) { ec.resolvers = append(ec.resolvers, resolvers...) }
}

func WithRefResolver(r RefResolver) Option {
	return func(ec *EvalContext) { ec.refResolver = r }
}

// WithTableResolver replaces the built-in resolver that reads the table being walked
func WithTableResolver(r formula.TableResolver) Option {
	return func(ec *EvalContext) { ec.tableResolver = r }
}

func WithDocVariableSource(s DocVariableSource) Option {
	return func(ec *EvalContext) { ec.docVariableSource = s }
}

func WithPrompter(p Prompter) Option {
	return func(ec *EvalContext) { ec.prompter = p }
}

// WithFunctions sets the registry available to = formulas
func WithFunctions(r *formula.Registry) Option {
	return func(ec *EvalContext) { ec.functions = r }
}

func WithLogger(l *Logger) Option {
	return func(ec *EvalContext) { ec.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(ec *EvalContext) { ec.metrics = m }
}

// EvalContext is the mutable state of one document conversion. It is not
// safe for concurrent use; one walk owns it.
type EvalContext struct {
	config  *Config
	logger  *Logger
	metrics *Metrics
	clock   func() time.Time

	resolvers         ResolverChain
	refResolver       RefResolver
	tableResolver     formula.TableResolver
	docVariableSource DocVariableSource
	prompter          Prompter
	functions         *formula.Registry

	bookmarks         map[string]*NodeBuffer
	bookmarkPositions map[string]int
	docVariables      map[string]*NodeBuffer
	properties        map[string]FieldValue
	mergeAliases      map[string]string
	sequences         *Sequences
	numberedItems     map[string]int
	footnoteRefs      []string
	pendingHyperlink  *Hyperlink

	defaultCulture *Culture
	cultures       []*Culture

	created *time.Time
	saved   *time.Time
	printed *time.Time

	outlineLevel int
	headingMarks [10]int
	docOrder     int

	tables []*tableCursor
}

// NewEvalContext creates a context from the global configuration and opts.
func NewEvalContext(opts ...Option) *EvalContext {
	ec := &EvalContext{
		config:            GetGlobalConfig(),
		clock:             time.Now,
		bookmarks:         make(map[string]*NodeBuffer),
		bookmarkPositions: make(map[string]int),
		docVariables:      make(map[string]*NodeBuffer),
		properties:        make(map[string]FieldValue),
		mergeAliases:      make(map[string]string),
		sequences:         NewSequences(),
		numberedItems:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(ec)
	}
	if ec.logger == nil {
		ec.logger = GetLogger()
	}
	if ec.functions == nil {
		ec.functions = formula.DefaultRegistry()
	}
	ec.defaultCulture = LookupCulture(ec.config.Culture)
	return ec
}

// Config returns the active configuration
func (ec *EvalContext) Config() *Config { return ec.config }

// Logger returns the context logger
func (ec *EvalContext) Logger() *Logger { return ec.logger }

// Now reads the clock
func (ec *EvalContext) Now() time.Time { return ec.clock() }

// Sequences returns the SEQ counters
func (ec *EvalContext) Sequences() *Sequences { return ec.sequences }

// resolve tries the context-local state, then the external resolvers.
func (ec *EvalContext) resolve(ctx context.Context, name string, kind ResolveKind) (FieldValue, bool, error) {
	chain := append(ResolverChain{contextResolver{}}, ec.resolvers...)
	v, ok, err := chain.Resolve(ctx, name, kind, ec)
	if err != nil {
		ec.logger.WithField("name", name).Error("value resolver failed: %v", err)
	}
	return v, ok, err
}

// Resolve looks up name through the resolver chain
func (ec *EvalContext) Resolve(ctx context.Context, name string, kind ResolveKind) (FieldValue, bool, error) {
	return ec.resolve(ctx, name, kind)
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SetBookmark stores the content of a bookmark at the current document position
func (ec *EvalContext) SetBookmark(name string, buf *NodeBuffer) {
	ec.bookmarks[nameKey(name)] = buf
	ec.bookmarkPositions[nameKey(name)] = ec.docOrder
}

// SetBookmarkText stores plain bookmark text
func (ec *EvalContext) SetBookmarkText(name, text string) {
	ec.SetBookmark(name, NodeBufferFromText(text, nil))
}

// SetBookmarkPosition records the paragraph order at which a bookmark starts
func (ec *EvalContext) SetBookmarkPosition(name string, order int) {
	ec.bookmarkPositions[nameKey(name)] = order
}

func (ec *EvalContext) Bookmark(name string) (*NodeBuffer, bool) {
	buf, ok := ec.bookmarks[nameKey(name)]
	return buf, ok
}

func (ec *EvalContext) bookmarkPosition(name string) (int, bool) {
	pos, ok := ec.bookmarkPositions[nameKey(name)]
	return pos, ok
}

// SetDocVariable stores a plain doc-variable
func (ec *EvalContext) SetDocVariable(name, value string) {
	ec.docVariables[nameKey(name)] = NodeBufferFromText(value, nil)
}

func (ec *EvalContext) setDocVariableBuffer(name string, buf *NodeBuffer) {
	ec.docVariables[nameKey(name)] = buf
}

func (ec *EvalContext) DocVariable(name string) (*NodeBuffer, bool) {
	buf, ok := ec.docVariables[nameKey(name)]
	return buf, ok
}

// SetProperty stores a document property
func (ec *EvalContext) SetProperty(name string, v FieldValue) {
	ec.properties[nameKey(name)] = v
}

func (ec *EvalContext) Property(name string) (FieldValue, bool) {
	v, ok := ec.properties[nameKey(name)]
	return v, ok
}

// SetMergeAlias maps a MERGEFIELD name to the data source column used with \m
func (ec *EvalContext) SetMergeAlias(field, column string) {
	ec.mergeAliases[nameKey(field)] = column
}

func (ec *EvalContext) MergeAlias(field string) (string, bool) {
	column, ok := ec.mergeAliases[nameKey(field)]
	return column, ok
}

// NumberedItem returns the last SEQ value recorded for label
func (ec *EvalContext) NumberedItem(label string) (int, bool) {
	v, ok := ec.numberedItems[nameKey(label)]
	return v, ok
}

func (ec *EvalContext) setNumberedItem(label string, v int) {
	ec.numberedItems[nameKey(label)] = v
}

// SetTimestamps stores the document's created, saved and printed times; nil leaves a value unset.
func (ec *EvalContext) SetTimestamps(created, saved, printed *time.Time) {
	if created != nil {
		ec.created = created
	}
	if saved != nil {
		ec.saved = saved
	}
	if printed != nil {
		ec.printed = printed
	}
}

// FootnoteRefs returns the bookmarks referenced by REF \f in order
func (ec *EvalContext) FootnoteRefs() []string {
	return ec.footnoteRefs
}

// TakePendingHyperlink returns and clears the hyperlink requested by REF \h.
func (ec *EvalContext) TakePendingHyperlink() (Hyperlink, bool) {
	if ec.pendingHyperlink == nil {
		return Hyperlink{}, false
	}
	link := *ec.pendingHyperlink
	ec.pendingHyperlink = nil
	return link, true
}

// Culture returns the innermost pushed culture, or the document default.
func (ec *EvalContext) Culture() *Culture {
	if n := len(ec.cultures); n > 0 {
		return ec.cultures[n-1]
	}
	return ec.defaultCulture
}

// PushCulture enters a scope with the culture for tag; an empty tag keeps the current one.
// Every push must be paired with PopCulture.
func (ec *EvalContext) PushCulture(tag string) {
	c := ec.Culture()
	if tag != "" {
		c = LookupCulture(tag)
	}
	ec.cultures = append(ec.cultures, c)
}

func (ec *EvalContext) PopCulture() {
	if n := len(ec.cultures); n > 0 {
		ec.cultures = ec.cultures[:n-1]
	}
}

// ListSeparator returns the formula list separator: the configured
// override, else the culture's, else ','.
func (ec *EvalContext) ListSeparator() rune {
	if s := ec.config.ListSeparator; s != "" {
		return []rune(s)[0]
	}
	if s := ec.Culture().ListSeparator; s != "" {
		return []rune(s)[0]
	}
	return ','
}

// EnterParagraph advances the document order. A heading level above zero
// updates the outline level and the heading marks used by SEQ \s.
func (ec *EvalContext) EnterParagraph(headingLevel int) {
	ec.docOrder++
	if headingLevel <= 0 || headingLevel > 9 {
		return
	}
	ec.outlineLevel = headingLevel
	for n := headingLevel; n <= 9; n++ {
		ec.headingMarks[n]++
	}
}

// OutlineLevel returns the level of the last heading, 0 before any heading
func (ec *EvalContext) OutlineLevel() int { return ec.outlineLevel }

// DocumentOrder returns the number of paragraphs entered so far
func (ec *EvalContext) DocumentOrder() int { return ec.docOrder }

func (ec *EvalContext) headingMark(level int) int {
	if level < 1 || level > 9 {
		return 0
	}
	return ec.headingMarks[level]
}
