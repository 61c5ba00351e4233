package docfield

import (
	"context"
	"strings"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

// ReplayNode is one recorded render call.
type ReplayNode interface {
	replayNode()
}

type (
	TextNode           struct{ Text string }
	DeletedTextNode    struct{ Text string }
	BreakNode          struct{}
	TabNode            struct{}
	CarriageReturnNode struct{}
	NoBreakHyphenNode  struct{}
)

// RunNode is a run scope with cloned properties.
type RunNode struct {
	Properties *wordml.RunProperties
	Children   []ReplayNode
}

// HyperlinkNode is a hyperlink scope.
type HyperlinkNode struct {
	Link     Hyperlink
	Children []ReplayNode
}

func (TextNode) replayNode()           {}
func (DeletedTextNode) replayNode()    {}
func (BreakNode) replayNode()          {}
func (TabNode) replayNode()            {}
func (CarriageReturnNode) replayNode() {}
func (NoBreakHyphenNode) replayNode()  {}
func (*RunNode) replayNode()           {}
func (*HyperlinkNode) replayNode()     {}

// NodeBuffer records render calls for exact replay later. It is append-only;
// replaying does not change it.
type NodeBuffer struct {
	nodes []ReplayNode
	open  []ReplayNode
	// PreserveSpace is set when the text needs xml:space="preserve" semantics
	PreserveSpace bool
}

// NewNodeBuffer creates an empty buffer
func NewNodeBuffer() *NodeBuffer {
	return &NodeBuffer{}
}

// NodeBufferFromText creates a buffer holding one run with text.
func NodeBufferFromText(text string, props *wordml.RunProperties) *NodeBuffer {
	b := NewNodeBuffer()
	b.BeginRun(props)
	b.AddText(text)
	b.EndRun()
	b.PreserveSpace = needsPreserveSpace(text)
	return b
}

func needsPreserveSpace(text string) bool {
	if text == "" {
		return false
	}
	if strings.TrimSpace(text) != text {
		return true
	}
	return strings.ContainsAny(text, "\t\r\n") || strings.Contains(text, "  ")
}

// Nodes returns the recorded top-level nodes.
func (b *NodeBuffer) Nodes() []ReplayNode {
	return b.nodes
}

// IsEmpty reports whether nothing was recorded.
func (b *NodeBuffer) IsEmpty() bool {
	return b == nil || len(b.nodes) == 0
}

func (b *NodeBuffer) add(n ReplayNode) {
	if len(b.open) == 0 {
		b.nodes = append(b.nodes, n)
		return
	}
	switch parent := b.open[len(b.open)-1].(type) {
	case *RunNode:
		parent.Children = append(parent.Children, n)
	case *HyperlinkNode:
		parent.Children = append(parent.Children, n)
	}
}

func (b *NodeBuffer) AddText(text string)        { b.add(TextNode{Text: text}) }
func (b *NodeBuffer) AddDeletedText(text string) { b.add(DeletedTextNode{Text: text}) }
func (b *NodeBuffer) AddBreak()                  { b.add(BreakNode{}) }
func (b *NodeBuffer) AddTab()                    { b.add(TabNode{}) }
func (b *NodeBuffer) AddCarriageReturn()         { b.add(CarriageReturnNode{}) }
func (b *NodeBuffer) AddNoBreakHyphen()          { b.add(NoBreakHyphenNode{}) }

// BeginRun opens a run scope; props are cloned.
func (b *NodeBuffer) BeginRun(props *wordml.RunProperties) {
	n := &RunNode{Properties: props.Clone()}
	b.add(n)
	b.open = append(b.open, n)
}

// EndRun closes the innermost scope if it is a run.
func (b *NodeBuffer) EndRun() {
	if len(b.open) > 0 {
		if _, ok := b.open[len(b.open)-1].(*RunNode); ok {
			b.open = b.open[:len(b.open)-1]
		}
	}
}

// BeginHyperlink opens a hyperlink scope.
func (b *NodeBuffer) BeginHyperlink(link Hyperlink) {
	n := &HyperlinkNode{Link: link}
	b.add(n)
	b.open = append(b.open, n)
}

// EndHyperlink closes the innermost scope if it is a hyperlink.
func (b *NodeBuffer) EndHyperlink() {
	if len(b.open) > 0 {
		if _, ok := b.open[len(b.open)-1].(*HyperlinkNode); ok {
			b.open = b.open[:len(b.open)-1]
		}
	}
}

// Replay reproduces the recorded calls on v.
func (b *NodeBuffer) Replay(ctx context.Context, v Visitor) error {
	if b == nil {
		return nil
	}
	return replayNodes(ctx, v, b.nodes)
}

func replayNodes(ctx context.Context, v Visitor, nodes []ReplayNode) error {
	for _, n := range nodes {
		if err := replayNode(ctx, v, n); err != nil {
			return err
		}
	}
	return nil
}

func replayNode(ctx context.Context, v Visitor, n ReplayNode) error {
	switch x := n.(type) {
	case TextNode:
		return v.Text(ctx, x.Text)
	case DeletedTextNode:
		return v.DeletedText(ctx, x.Text)
	case BreakNode:
		return v.Break(ctx)
	case TabNode:
		return v.Tab(ctx)
	case CarriageReturnNode:
		return v.CarriageReturn(ctx)
	case NoBreakHyphenNode:
		return v.NoBreakHyphen(ctx)
	case *RunNode:
		return WithRun(ctx, v, x.Properties, func() error {
			return replayNodes(ctx, v, x.Children)
		})
	case *HyperlinkNode:
		return WithHyperlink(ctx, v, x.Link, func() error {
			return replayNodes(ctx, v, x.Children)
		})
	}
	return nil
}

// ToPlainText concatenates the leaves: breaks and carriage returns become
// "\n", tabs "\t" and no-break hyphens "-". Deleted text is included.
func (b *NodeBuffer) ToPlainText() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	writePlain(&sb, b.nodes)
	return sb.String()
}

func writePlain(sb *strings.Builder, nodes []ReplayNode) {
	for _, n := range nodes {
		switch x := n.(type) {
		case TextNode:
			sb.WriteString(x.Text)
		case DeletedTextNode:
			sb.WriteString(x.Text)
		case BreakNode, CarriageReturnNode:
			sb.WriteByte('\n')
		case TabNode:
			sb.WriteByte('\t')
		case NoBreakHyphenNode:
			sb.WriteByte('-')
		case *RunNode:
			writePlain(sb, x.Children)
		case *HyperlinkNode:
			writePlain(sb, x.Children)
		}
	}
}

// FirstRunProperties returns the properties of the first top-level run, or
// of the first run inside the first hyperlink.
func (b *NodeBuffer) FirstRunProperties() (*wordml.RunProperties, bool) {
	if b == nil {
		return nil, false
	}
	for _, n := range b.nodes {
		switch x := n.(type) {
		case *RunNode:
			return x.Properties, true
		case *HyperlinkNode:
			for _, c := range x.Children {
				if r, ok := c.(*RunNode); ok {
					return r.Properties, true
				}
			}
		}
	}
	return nil, false
}

// RunSegment is the text and formatting of one recorded run.
type RunSegment struct {
	Text       string
	Properties *wordml.RunProperties
}

// RunSegments returns one segment per top-level run. It fails when the
// buffer holds a hyperlink.
func (b *NodeBuffer) RunSegments() ([]RunSegment, bool) {
	if b == nil {
		return nil, false
	}
	var segments []RunSegment
	for _, n := range b.nodes {
		switch x := n.(type) {
		case *HyperlinkNode:
			return nil, false
		case *RunNode:
			var sb strings.Builder
			writePlain(&sb, x.Children)
			segments = append(segments, RunSegment{Text: sb.String(), Properties: x.Properties})
		default:
			var sb strings.Builder
			writePlain(&sb, []ReplayNode{x})
			segments = append(segments, RunSegment{Text: sb.String()})
		}
	}
	return segments, len(segments) > 0
}

// Recorder returns a Visitor that appends every call it receives to b.
// Paragraph, table and field events are dropped.
func (b *NodeBuffer) Recorder() Visitor {
	return &bufferRecorder{buf: b}
}

type bufferRecorder struct {
	NopVisitor
	buf *NodeBuffer
}

func (r *bufferRecorder) BeginRun(_ context.Context, props *wordml.RunProperties) error {
	r.buf.BeginRun(props)
	return nil
}
func (r *bufferRecorder) EndRun(context.Context) error { r.buf.EndRun(); return nil }
func (r *bufferRecorder) Text(_ context.Context, text string) error {
	r.buf.AddText(text)
	return nil
}
func (r *bufferRecorder) DeletedText(_ context.Context, text string) error {
	r.buf.AddDeletedText(text)
	return nil
}
func (r *bufferRecorder) Break(context.Context) error          { r.buf.AddBreak(); return nil }
func (r *bufferRecorder) Tab(context.Context) error            { r.buf.AddTab(); return nil }
func (r *bufferRecorder) CarriageReturn(context.Context) error { r.buf.AddCarriageReturn(); return nil }
func (r *bufferRecorder) NoBreakHyphen(context.Context) error  { r.buf.AddNoBreakHyphen(); return nil }
func (r *bufferRecorder) BeginHyperlink(_ context.Context, link Hyperlink) error {
	r.buf.BeginHyperlink(link)
	return nil
}
func (r *bufferRecorder) EndHyperlink(context.Context) error { r.buf.EndHyperlink(); return nil }
