package formula

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		listSep rune
		decSep  rune
		want    []Token
		wantErr bool
	}{
		{
			name:    "arithmetic",
			text:    "1+2.5",
			listSep: ',',
			decSep:  '.',
			want: []Token{
				{Type: TokenNumber, Value: "1", Pos: 0},
				{Type: TokenOperator, Value: "+", Pos: 1},
				{Type: TokenNumber, Value: "2.5", Pos: 2},
				{Type: TokenEOF, Pos: 5},
			},
		},
		{
			name:    "comma decimal with semicolon lists",
			text:    "SUM(1,5;2)",
			listSep: ';',
			decSep:  ',',
			want: []Token{
				{Type: TokenIdentifier, Value: "SUM", Pos: 0},
				{Type: TokenLeftParen, Value: "(", Pos: 3},
				{Type: TokenNumber, Value: "1.5", Pos: 4},
				{Type: TokenSeparator, Value: ";", Pos: 7},
				{Type: TokenNumber, Value: "2", Pos: 8},
				{Type: TokenRightParen, Value: ")", Pos: 9},
				{Type: TokenEOF, Pos: 10},
			},
		},
		{
			name:    "nested field and two-char operator",
			text:    `{ REF "a}" } <= 3`,
			listSep: ',',
			decSep:  '.',
			want: []Token{
				{Type: TokenField, Value: ` REF "a}" `, Pos: 0},
				{Type: TokenOperator, Value: "<=", Pos: 13},
				{Type: TokenNumber, Value: "3", Pos: 16},
				{Type: TokenEOF, Pos: 17},
			},
		},
		{
			name:    "unbalanced brace",
			text:    "{ REF x",
			listSep: ',',
			decSep:  '.',
			wantErr: true,
		},
		{
			name:    "stray character",
			text:    "1 & 2",
			listSep: ',',
			decSep:  '.',
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.text, tt.listSep, tt.decSep)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSyntax))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStructure(t *testing.T) {
	e := New(Env{})
	tests := []struct {
		text string
		want string
	}{
		{"1+2*3", "BinaryOp(Number(1) + BinaryOp(Number(2) * Number(3)))"},
		{"2^3^2", "BinaryOp(Number(2) ^ BinaryOp(Number(3) ^ Number(2)))"},
		{"-2^2", "BinaryOp(UnaryOp(- Number(2)) ^ Number(2))"},
		{"50%", "UnaryOp(% Number(50))"},
		{"1+2>2", "BinaryOp(BinaryOp(Number(1) + Number(2)) > Number(2))"},
		{"sum(above)", "FunctionCall(SUM, [Direction(ABOVE)])"},
		{"SUM(A1:B2)", "FunctionCall(SUM, [Range(A1:B2)])"},
		{"Price", "Identifier(Price)"},
		{"c3", "Cell(c3)"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			expr, err := e.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	e := New(Env{})
	for _, text := range []string{"", "1+", "(1", "1 2", "SUM(1 2)", "A1:", "*3"} {
		t.Run(text, func(t *testing.T) {
			_, err := e.Parse(text)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestEvaluate(t *testing.T) {
	bookmarks := map[string]float64{"price": 12.5, "qty": 4}
	e := New(Env{
		Identifier: func(_ context.Context, name string) (float64, bool, error) {
			v, ok := bookmarks[strings.ToLower(name)]
			return v, ok, nil
		},
		NestedField: func(_ context.Context, instruction string) (float64, error) {
			if strings.TrimSpace(instruction) == "REF qty" {
				return 4, nil
			}
			return 0, ErrUndefined
		},
	})

	tests := []struct {
		text string
		want float64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"10/4", 2.5},
		{"2^10", 1024},
		{"50%*8", 4},
		{"-3+5", 2},
		{"3>2", 1},
		{"3<>3", 0},
		{"Price*Qty", 50},
		{"Price*{ REF qty }", 50},
		{"SUM(1,2,3)", 6},
		{"AVERAGE(2,4)", 3},
		{"MIN(3,1,2)", 1},
		{"MAX(3,1,2)", 3},
		{"COUNT(1,2,3)", 3},
		{"PRODUCT(2,3,4)", 24},
		{"ABS(-7)", 7},
		{"INT(-7.8)", -7},
		{"MOD(7,3)", 1},
		{"ROUND(2.375,2)", 2.38},
		{"ROUND(-2.5,0)", -3},
		{"SIGN(-4)", -1},
		{"IF(1>2,10,20)", 20},
		{"AND(1,0)", 0},
		{"OR(1,0)", 1},
		{"NOT(0)", 1},
		{"TRUE()", 1},
		{"FALSE()", 0},
		{"DEFINED(Price)", 1},
		{"DEFINED(Missing)", 0},
		{"DEFINED(1/0)", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := e.EvaluateString(context.Background(), tt.text)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	e := New(Env{})
	tests := []struct {
		text string
		want error
	}{
		{"1/0", ErrDivideByZero},
		{"MOD(1,0)", ErrDivideByZero},
		{"Missing+1", ErrUndefined},
		{"NOPE(1)", ErrUndefined},
		{"SUM(ABOVE)", ErrUndefined},
		{"ABS(1,2)", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := e.EvaluateString(context.Background(), tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvaluateTables(t *testing.T) {
	var seen []TableRef
	tables := TableResolverFunc(func(_ context.Context, ref TableRef) ([]float64, error) {
		seen = append(seen, ref)
		if ref.IsDirection() {
			return []float64{1, 2, 3}, nil
		}
		if ref.From == ref.To {
			return []float64{10}, nil
		}
		return []float64{4, 5}, nil
	})
	e := New(Env{Tables: tables})

	got, err := e.EvaluateString(context.Background(), "SUM(ABOVE)")
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)

	got, err = e.EvaluateString(context.Background(), "SUM(A1:B2)+B3")
	require.NoError(t, err)
	assert.Equal(t, 19.0, got)

	require.Len(t, seen, 3)
	assert.Equal(t, "ABOVE", seen[0].String())
	assert.Equal(t, "A1:B2", seen[1].String())
	assert.Equal(t, Cell{Row: 2, Col: 1}, seen[2].From)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "A1", Cell{}.String())
	assert.Equal(t, "Z10", Cell{Row: 9, Col: 25}.String())
	assert.Equal(t, "AA3", Cell{Row: 2, Col: 26}.String())
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry().Clone()
	err := reg.Register(NewSimpleFunction("double", 1, 1, func(args [][]float64) (float64, error) {
		return args[0][0] * 2, nil
	}))
	require.NoError(t, err)

	_, inDefault := DefaultRegistry().Get("DOUBLE")
	assert.False(t, inDefault)

	fn, ok := reg.Get("Double")
	require.True(t, ok)
	assert.Equal(t, "DOUBLE", fn.Name())
	assert.Contains(t, reg.List(), "SUM")

	e := New(Env{Functions: reg})
	got, err := e.EvaluateString(context.Background(), "double(21)")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)

	assert.Error(t, reg.Register(NewSimpleFunction("", 0, 0, nil)))
}

func TestBuiltinsRegisterOnce(t *testing.T) {
	assert.NotPanics(t, func() { DefaultRegistry() })

	reg := NewRegistry()
	registerBuiltins(reg)
	assert.Contains(t, reg.List(), "ROUND")
	assert.Panics(t, func() { registerBuiltins(reg) }, "built-ins may not shadow each other")
}

func TestEvaluateCancelledNestedField(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(Env{
		NestedField: func(ctx context.Context, _ string) (float64, error) {
			return 0, ctx.Err()
		},
	})
	_, err := e.EvaluateString(ctx, "DEFINED({ REF x })")
	assert.ErrorIs(t, err, context.Canceled)
}
