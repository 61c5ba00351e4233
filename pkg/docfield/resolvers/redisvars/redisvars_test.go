package redisvars_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/resolvers/redisvars"
)

func setup(t *testing.T, opts ...redisvars.Option) (*miniredis.Miniredis, *redisvars.Resolver) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	r := redisvars.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = r.Close() })
	return mr, r
}

func newEvaluator(opts ...docfield.Option) *docfield.Evaluator {
	base := []docfield.Option{
		docfield.WithConfig(docfield.DefaultConfig()),
		docfield.WithLogger(docfield.NopLogger()),
	}
	return docfield.NewEvaluator(docfield.NewEvalContext(append(base, opts...)...))
}

func TestResolveValue(t *testing.T) {
	_, r := setup(t)
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "Region", "EMEA"))
	require.NoError(t, r.Set(ctx, "owner", "Ada"))

	v, ok, err := r.ResolveValue(ctx, "Region", docfield.ResolveDocVariable, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EMEA", v.String())

	v, ok, err = r.ResolveValue(ctx, "Owner", docfield.ResolveDocVariable, nil)
	require.NoError(t, err)
	require.True(t, ok, "falls back to the lower-cased name")
	assert.Equal(t, "Ada", v.String())

	_, ok, err = r.ResolveValue(ctx, "Missing", docfield.ResolveDocVariable, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = r.ResolveValue(ctx, "Region", docfield.ResolveMergeField, nil)
	require.NoError(t, err)
	assert.False(t, ok, "merge fields are not answered by default")
}

func TestCustomKeyAndKind(t *testing.T) {
	_, r := setup(t, redisvars.WithKey("tenant:42"), redisvars.WithKind(docfield.ResolveMergeField))
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "Name", "Grace"))
	assert.Equal(t, "redis:tenant:42", r.Name())

	ev := newEvaluator(docfield.WithResolvers(r))
	res, err := ev.Eval(ctx, docfield.NewFieldInstruction(`MERGEFIELD Name \* Upper`))
	require.NoError(t, err)
	assert.Equal(t, "GRACE", res.Text)
}

func TestDocVariableField(t *testing.T) {
	_, r := setup(t)
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "Region", "emea"))

	t.Run("as resolver", func(t *testing.T) {
		ev := newEvaluator(docfield.WithResolvers(r))
		res, err := ev.Eval(ctx, docfield.NewFieldInstruction(`DOCVARIABLE Region \* Upper`))
		require.NoError(t, err)
		assert.Equal(t, "EMEA", res.Text)
	})

	t.Run("as source", func(t *testing.T) {
		ev := newEvaluator(docfield.WithDocVariableSource(r))
		res, err := ev.Eval(ctx, docfield.NewFieldInstruction(`DOCVARIABLE Region`))
		require.NoError(t, err)
		assert.Equal(t, "emea", res.Text)

		buf, ok := ev.Context().DocVariable("Region")
		require.True(t, ok)
		assert.Equal(t, "emea", buf.ToPlainText())
	})

	t.Run("miss", func(t *testing.T) {
		ev := newEvaluator(docfield.WithResolvers(r))
		res, err := ev.Eval(ctx, docfield.NewFieldInstruction(`DOCVARIABLE Nope`))
		require.NoError(t, err)
		assert.Equal(t, docfield.DocVariableErrorText, res.Text)
	})
}

func TestServerFailureIsResolverError(t *testing.T) {
	mr, r := setup(t)
	mr.Close()

	ev := newEvaluator(docfield.WithResolvers(r))
	_, err := ev.Eval(context.Background(), docfield.NewFieldInstruction(`DOCVARIABLE Region`))
	require.Error(t, err)
	assert.True(t, docfield.IsResolverError(err))
	assert.Contains(t, err.Error(), "redis:docfield:vars")
}
