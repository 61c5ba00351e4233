package docfield

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

func TestNodeBufferReplay(t *testing.T) {
	buf := NewNodeBuffer()
	buf.BeginRun(bold)
	buf.AddText("Hello")
	buf.AddTab()
	buf.EndRun()
	buf.BeginHyperlink(Hyperlink{Anchor: "top"})
	buf.BeginRun(nil)
	buf.AddText("link")
	buf.AddBreak()
	buf.EndRun()
	buf.EndHyperlink()
	buf.AddNoBreakHyphen()
	buf.AddCarriageReturn()
	buf.AddDeletedText("gone")

	rec := &callRecorder{}
	require.NoError(t, buf.Replay(context.Background(), rec))
	assert.Equal(t, []string{
		"BeginRun(b)", "Text(Hello)", "Tab", "EndRun",
		"BeginHyperlink(#top)", "BeginRun()", "Text(link)", "Break", "EndRun", "EndHyperlink",
		"NoBreakHyphen", "CarriageReturn", "DeletedText(gone)",
	}, rec.calls)
	assert.Equal(t, "Hello\tlink\n-\ngone", buf.ToPlainText())

	// replay does not consume the buffer
	again := &callRecorder{}
	require.NoError(t, buf.Replay(context.Background(), again))
	assert.Equal(t, rec.calls, again.calls)
}

func TestNodeBufferClonesProperties(t *testing.T) {
	props := &wordml.RunProperties{Bold: &wordml.Toggle{}}
	buf := NewNodeBuffer()
	buf.BeginRun(props)
	buf.AddText("x")
	buf.EndRun()

	props.Italic = &wordml.Toggle{}
	first, ok := buf.FirstRunProperties()
	require.True(t, ok)
	assert.True(t, first.IsBold())
	assert.False(t, first.IsItalic())
}

func TestNodeBufferRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		buf := NewNodeBuffer()
		var want []string
		var plain strings.Builder
		depth := 0
		inLink := false
		var scopes []string

		for step := 0; step < 30; step++ {
			switch op := rng.Intn(9); {
			case op == 0 && depth < 3:
				buf.BeginRun(italic)
				want = append(want, "BeginRun(i)")
				scopes = append(scopes, "run")
				depth++
			case op == 1 && !inLink && depth == 0:
				buf.BeginHyperlink(Hyperlink{Target: "http://x"})
				want = append(want, "BeginHyperlink(http://x#)")
				scopes = append(scopes, "link")
				inLink = true
				depth++
			case op == 2 && len(scopes) > 0:
				last := scopes[len(scopes)-1]
				scopes = scopes[:len(scopes)-1]
				depth--
				if last == "run" {
					buf.EndRun()
					want = append(want, "EndRun")
				} else {
					buf.EndHyperlink()
					want = append(want, "EndHyperlink")
					inLink = false
				}
			case op == 3:
				buf.AddTab()
				want = append(want, "Tab")
				plain.WriteByte('\t')
			case op == 4:
				buf.AddBreak()
				want = append(want, "Break")
				plain.WriteByte('\n')
			case op == 5:
				buf.AddNoBreakHyphen()
				want = append(want, "NoBreakHyphen")
				plain.WriteByte('-')
			default:
				s := fmt.Sprintf("t%d", step)
				buf.AddText(s)
				want = append(want, "Text("+s+")")
				plain.WriteString(s)
			}
		}
		for j := len(scopes) - 1; j >= 0; j-- {
			if scopes[j] == "run" {
				buf.EndRun()
				want = append(want, "EndRun")
			} else {
				buf.EndHyperlink()
				want = append(want, "EndHyperlink")
			}
		}

		rec := &callRecorder{}
		require.NoError(t, buf.Replay(context.Background(), rec))
		assert.Equal(t, want, rec.calls, "sequence %d", i)
		assert.Equal(t, plain.String(), buf.ToPlainText(), "sequence %d", i)
	}
}

func TestNodeBufferRecorder(t *testing.T) {
	src := NewNodeBuffer()
	src.BeginRun(bold)
	src.AddText("copy")
	src.EndRun()

	dst := NewNodeBuffer()
	require.NoError(t, src.Replay(context.Background(), dst.Recorder()))
	assert.Equal(t, "copy", dst.ToPlainText())
	props, ok := dst.FirstRunProperties()
	require.True(t, ok)
	assert.True(t, props.IsBold())
}

func TestNodeBufferRunSegments(t *testing.T) {
	buf := NewNodeBuffer()
	buf.BeginRun(bold)
	buf.AddText("ab")
	buf.EndRun()
	buf.BeginRun(italic)
	buf.AddText("cd")
	buf.AddTab()
	buf.EndRun()

	segments, ok := buf.RunSegments()
	require.True(t, ok)
	require.Len(t, segments, 2)
	assert.Equal(t, "ab", segments[0].Text)
	assert.True(t, segments[0].Properties.IsBold())
	assert.Equal(t, "cd\t", segments[1].Text)

	buf.BeginHyperlink(Hyperlink{Anchor: "a"})
	buf.EndHyperlink()
	_, ok = buf.RunSegments()
	assert.False(t, ok)
}

func TestNodeBufferFromText(t *testing.T) {
	assert.False(t, NodeBufferFromText("plain", nil).PreserveSpace)
	assert.True(t, NodeBufferFromText(" leading", nil).PreserveSpace)
	assert.True(t, NodeBufferFromText("two  spaces", nil).PreserveSpace)
	assert.True(t, NewNodeBuffer().IsEmpty())

	var nilBuf *NodeBuffer
	assert.True(t, nilBuf.IsEmpty())
	assert.NoError(t, nilBuf.Replay(context.Background(), &callRecorder{}))
}
