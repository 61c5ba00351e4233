package docfield

import (
	"strings"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

// frameState is where a field occurrence is in its lifecycle.
type frameState int

const (
	// stateInstruction accumulates instruction text
	stateInstruction frameState = iota
	// stateCapturingTrueBranch routes IF text and content into the true branch
	stateCapturingTrueBranch
	// stateCapturingFalseBranch routes IF text and content into the false branch
	stateCapturingFalseBranch
	// stateResult is reached at the separator, or at once for simple fields
	stateResult
)

func (s frameState) String() string {
	switch s {
	case stateInstruction:
		return "Instruction"
	case stateCapturingTrueBranch:
		return "CapturingTrueBranch"
	case stateCapturingFalseBranch:
		return "CapturingFalseBranch"
	default:
		return "Result"
	}
}

type frameEvent int

const (
	// eventConditionToken starts a token that belongs to the IF condition or its switches
	eventConditionToken frameEvent = iota
	eventTrueBranch
	eventFalseBranch
	eventSeparator
)

// transition is the whole transition table of a field frame. Result is
// terminal; the separator moves every other state to Result.
func transition(s frameState, ev frameEvent) frameState {
	if s == stateResult || ev == eventSeparator {
		return stateResult
	}
	switch ev {
	case eventTrueBranch:
		return stateCapturingTrueBranch
	case eventFalseBranch:
		return stateCapturingFalseBranch
	default:
		return stateInstruction
	}
}

// fieldFrame is the middleware state of one field occurrence.
type fieldFrame struct {
	parent    *fieldFrame
	state     frameState
	simple    bool
	suppress  bool
	evaluated bool
	// useCache forwards the document's cached result instead of synthesized text
	useCache bool
	// deferred fields are evaluated at their end, reusing the recorded result runs
	deferred bool

	instruction strings.Builder
	codeProps   *wordml.RunProperties
	result      runRecorder

	ifc       *ifCapture
	ifChecked bool
}

func newFieldFrame(parent *fieldFrame, simple bool) *fieldFrame {
	return &fieldFrame{
		parent: parent,
		simple: simple,
		result: runRecorder{buf: NewNodeBuffer()},
	}
}

func (f *fieldFrame) inResult() bool {
	return f.state == stateResult
}

func (f *fieldFrame) closeRuns() {
	f.result.closeRun()
	if f.ifc != nil {
		f.ifc.closeRuns()
	}
}

// runRecorder appends content to a buffer, opening a run with the walked
// run's properties on first use and closing it when that run ends.
type runRecorder struct {
	buf  *NodeBuffer
	open bool
}

func (r *runRecorder) ensureRun(props *wordml.RunProperties) {
	if !r.open {
		r.buf.BeginRun(props)
		r.open = true
	}
}

func (r *runRecorder) text(props *wordml.RunProperties, s string) {
	if s == "" {
		return
	}
	r.ensureRun(props)
	r.buf.AddText(s)
}

func (r *runRecorder) leaf(props *wordml.RunProperties, add func(*NodeBuffer)) {
	r.ensureRun(props)
	add(r.buf)
}

func (r *runRecorder) closeRun() {
	if r.open {
		r.buf.EndRun()
		r.open = false
	}
}

// ifCapture splits a complex IF instruction into tokens as it streams in.
// Each token gets its own buffer with the formatting of the runs carrying it.
// Which tokens are the branches is settled when the instruction is complete,
// from the same split evalIf uses.
type ifCapture struct {
	text   strings.Builder
	tokens []*runRecorder

	// token is the index of the current or last token; the IF keyword is 0
	token   int
	inToken bool
	inQuote bool
	// stopped is set at the first switch; later tokens are not recorded
	stopped bool
	// trueToken is where the condition ended while streaming, 0 until known
	trueToken int

	pending strings.Builder
}

func newIfCapture() *ifCapture {
	return &ifCapture{token: -1}
}

// recorder returns the buffer of the current token, nil once stopped.
func (c *ifCapture) recorder() *runRecorder {
	if c.token < 0 || c.token >= len(c.tokens) {
		return nil
	}
	return c.tokens[c.token]
}

// branch returns the buffer of token i.
func (c *ifCapture) branch(i int) (*NodeBuffer, bool) {
	if i <= 0 || i >= len(c.tokens) {
		return nil, false
	}
	return c.tokens[i].buf, true
}

func (c *ifCapture) closeRuns() {
	for _, r := range c.tokens {
		r.closeRun()
	}
}

// feed consumes instruction text for frame f. props are those of the run
// carrying the text.
func (c *ifCapture) feed(f *fieldFrame, text string, props *wordml.RunProperties) {
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if !c.inToken && !isSpaceByte(ch) {
			if ch == '\\' {
				c.stopped = true
			}
			c.startToken(f, props)
		}
		c.text.WriteByte(ch)

		switch {
		case c.inQuote && ch == '\\' && i+1 < len(text) && text[i+1] == '"':
			i++
			c.text.WriteByte('"')
			c.pending.WriteByte('"')
		case ch == '"':
			c.inQuote = !c.inQuote
		case !c.inQuote && isSpaceByte(ch):
			if c.inToken {
				c.endToken(props)
			}
		default:
			c.pending.WriteByte(ch)
		}
	}
	c.flush(props)
}

// inject places the value of a nested field at the current position.
func (c *ifCapture) inject(f *fieldFrame, value string, props *wordml.RunProperties) {
	if !c.inToken {
		c.startToken(f, props)
	}
	if c.inQuote {
		c.text.WriteString(strings.ReplaceAll(value, `"`, `\"`))
	} else {
		c.text.WriteString(quoteToken(value))
	}
	c.pending.WriteString(value)
	c.flush(props)
}

func (c *ifCapture) startToken(f *fieldFrame, props *wordml.RunProperties) {
	c.flush(props)
	c.inToken = true
	c.token++

	ev := eventConditionToken
	switch {
	case c.stopped:
	case c.trueToken == 0:
		n, ok := comparisonLength(ifPositional(c.text.String()))
		if ok && c.token == n+1 {
			c.trueToken = c.token
			ev = eventTrueBranch
		}
	case c.token == c.trueToken+1:
		ev = eventFalseBranch
	}
	if !c.stopped {
		c.tokens = append(c.tokens, &runRecorder{buf: NewNodeBuffer()})
	}
	f.state = transition(f.state, ev)
}

func (c *ifCapture) endToken(props *wordml.RunProperties) {
	c.flush(props)
	c.inToken = false
}

func (c *ifCapture) flush(props *wordml.RunProperties) {
	if c.pending.Len() == 0 {
		return
	}
	if rec := c.recorder(); rec != nil {
		rec.text(props, c.pending.String())
	}
	c.pending.Reset()
}

// insideQuotes reports whether the end of s lies inside a quoted run.
func insideQuotes(s string) bool {
	in := false
	for i := 0; i < len(s); i++ {
		switch {
		case in && s[i] == '\\' && i+1 < len(s) && s[i+1] == '"':
			i++
		case s[i] == '"':
			in = !in
		}
	}
	return in
}
