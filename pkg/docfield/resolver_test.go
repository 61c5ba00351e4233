package docfield

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKindAccepts(t *testing.T) {
	assert.True(t, ResolveAny.Accepts(ResolveMergeField))
	assert.True(t, ResolveMergeField.Accepts(ResolveAny))
	assert.True(t, ResolveDocVariable.Accepts(ResolveDocVariable))
	assert.False(t, ResolveDocVariable.Accepts(ResolveMergeField))

	k, err := ParseResolveKind(" Property ")
	require.NoError(t, err)
	assert.Equal(t, ResolveDocumentProperty, k)
	_, err = ParseResolveKind("bookmark")
	assert.Error(t, err)
}

func TestResolverChainOrder(t *testing.T) {
	first := NewMapResolver(ResolveMergeField, map[string]interface{}{"City": "London"})
	second := NewMapResolver(ResolveAny, map[string]interface{}{"city": "Paris", "Zip": 75001})
	chain := ResolverChain{first, second}
	ctx := context.Background()

	v, ok, err := chain.Resolve(ctx, "CITY", ResolveMergeField, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "London", v.String())

	// first only answers merge fields
	v, ok, err = chain.Resolve(ctx, "city", ResolveDocVariable, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Paris", v.String())

	n, ok := mustResolve(t, chain, "zip").Number()
	require.True(t, ok)
	assert.Equal(t, 75001.0, n)

	_, ok, err = chain.Resolve(ctx, "country", ResolveAny, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func mustResolve(t *testing.T, c ResolverChain, name string) FieldValue {
	t.Helper()
	v, ok, err := c.Resolve(context.Background(), name, ResolveAny, nil)
	require.NoError(t, err)
	require.True(t, ok, name)
	return v
}

func TestResolverChainWrapsFailures(t *testing.T) {
	cause := errors.New("timeout")
	broken := ValueResolverFunc(func(context.Context, string, ResolveKind, *EvalContext) (FieldValue, bool, error) {
		return FieldValue{}, false, cause
	})
	after := NewMapResolver(ResolveAny, map[string]interface{}{"x": 1})

	_, _, err := ResolverChain{broken, after}.Resolve(context.Background(), "x", ResolveAny, nil)
	require.Error(t, err)
	assert.True(t, IsResolverError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "docfield.ValueResolverFunc failed for 'x'")
}

func TestContextStateShadowsResolvers(t *testing.T) {
	ext := NewMapResolver(ResolveAny, map[string]interface{}{"Region": "APAC", "Owner": "Grace"})
	ec := newTestContext(t, WithResolvers(ext))
	ec.SetBookmarkText("Region", "EMEA")
	ctx := context.Background()

	v, ok, err := ec.Resolve(ctx, "region", ResolveAny)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EMEA", v.String())

	v, ok, err = ec.Resolve(ctx, "owner", ResolveAny)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Grace", v.String())
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	ec := newTestContext(t, WithClock(nil), WithConfig(nil))
	assert.NotPanics(t, func() { ec.Now() })
	assert.Equal(t, fixedNow, ec.Now())
	assert.Equal(t, "3/5/2024", evalText(t, NewEvaluator(ec), `DATE`))

	bare := NewEvalContext(WithClock(nil))
	assert.False(t, bare.Now().IsZero())
}

func TestMetricsCountEvaluations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	ev := NewEvaluator(newTestContext(t, WithMetrics(m)))
	evalText(t, ev, `= 1 + 1`)
	evalText(t, ev, `= 2 * 3`)
	evalText(t, ev, `REF missing`)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations().WithLabelValues("=", "resolved")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Evaluations()), "one series per field type and status")

	_, err = NewMetrics(reg)
	assert.Error(t, err, "collectors register once per registry")

	var none *Metrics
	assert.Nil(t, none.Evaluations())
	none.observe("REF", "resolved", 0)
}
