package formula

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Function is a callable formula function. Each argument is the list of
// numbers its expression produced; ranges and directions produce several.
type Function interface {
	// Call executes the function with the given arguments
	Call(args [][]float64) (float64, error)

	// Name returns the function name
	Name() string

	// MinArgs returns the minimum number of arguments required
	MinArgs() int

	// MaxArgs returns the maximum number of arguments allowed (-1 for unlimited)
	MaxArgs() int
}

// Registry manages available functions. Names are case-insensitive.
type Registry struct {
	functions map[string]Function
	mutex     sync.RWMutex
}

// NewRegistry creates an empty function registry
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Function),
	}
}

// Register adds fn, replacing any function of the same name
func (r *Registry) Register(fn Function) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := strings.ToUpper(fn.Name())
	if name == "" {
		return fmt.Errorf("function name cannot be empty")
	}

	r.functions[name] = fn
	return nil
}

// Get retrieves a function by name
func (r *Registry) Get(name string) (Function, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	fn, exists := r.functions[strings.ToUpper(name)]
	return fn, exists
}

// List returns all registered function names, sorted
func (r *Registry) List() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy that can be extended without touching r.
func (r *Registry) Clone() *Registry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	c := NewRegistry()
	for name, fn := range r.functions {
		c.functions[name] = fn
	}
	return c
}

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// DefaultRegistry returns the shared registry of built-in functions.
// Clone it before registering custom functions.
func DefaultRegistry() *Registry {
	registryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

// SimpleFunction provides a basic implementation of Function
type SimpleFunction struct {
	name    string
	minArgs int
	maxArgs int
	handler func(args [][]float64) (float64, error)
}

func NewSimpleFunction(name string, minArgs, maxArgs int, handler func(args [][]float64) (float64, error)) Function {
	return &SimpleFunction{
		name:    strings.ToUpper(name),
		minArgs: minArgs,
		maxArgs: maxArgs,
		handler: handler,
	}
}

func (f *SimpleFunction) Call(args [][]float64) (float64, error) {
	argCount := len(args)
	if argCount < f.minArgs {
		return 0, fmt.Errorf("%w: function %s requires at least %d arguments, got %d", ErrSyntax, f.name, f.minArgs, argCount)
	}
	if f.maxArgs >= 0 && argCount > f.maxArgs {
		return 0, fmt.Errorf("%w: function %s accepts at most %d arguments, got %d", ErrSyntax, f.name, f.maxArgs, argCount)
	}

	return f.handler(args)
}

func (f *SimpleFunction) Name() string {
	return f.name
}

func (f *SimpleFunction) MinArgs() int {
	return f.minArgs
}

func (f *SimpleFunction) MaxArgs() int {
	return f.maxArgs
}

// scalar reduces a multi-valued argument to its first number.
func scalar(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: empty operand", ErrUndefined)
	}
	return values[0], nil
}

func flatten(args [][]float64) []float64 {
	var out []float64
	for _, a := range args {
		out = append(out, a...)
	}
	return out
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func unary(fn func(x float64) float64) func(args [][]float64) (float64, error) {
	return func(args [][]float64) (float64, error) {
		x, err := scalar(args[0])
		if err != nil {
			return 0, err
		}
		return fn(x), nil
	}
}

func binary(fn func(x, y float64) (float64, error)) func(args [][]float64) (float64, error) {
	return func(args [][]float64) (float64, error) {
		x, err := scalar(args[0])
		if err != nil {
			return 0, err
		}
		y, err := scalar(args[1])
		if err != nil {
			return 0, err
		}
		return fn(x, y)
	}
}

// roundHalfAway rounds x to digits decimals, halves away from zero.
func roundHalfAway(x float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(x*scale) / scale
}

// registerBuiltins registers the functions Word formulas support
func registerBuiltins(registry *Registry) {
	fns := []Function{
		NewSimpleFunction("ABS", 1, 1, unary(math.Abs)),
		NewSimpleFunction("INT", 1, 1, unary(math.Trunc)),
		NewSimpleFunction("NOT", 1, 1, unary(func(x float64) float64 { return boolValue(x == 0) })),
		NewSimpleFunction("SIGN", 1, 1, unary(func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return 0
		})),
		NewSimpleFunction("AND", 2, 2, binary(func(x, y float64) (float64, error) {
			return boolValue(x != 0 && y != 0), nil
		})),
		NewSimpleFunction("OR", 2, 2, binary(func(x, y float64) (float64, error) {
			return boolValue(x != 0 || y != 0), nil
		})),
		NewSimpleFunction("MOD", 2, 2, binary(func(x, y float64) (float64, error) {
			if y == 0 {
				return 0, ErrDivideByZero
			}
			return math.Mod(x, y), nil
		})),
		NewSimpleFunction("ROUND", 2, 2, binary(func(x, y float64) (float64, error) {
			return roundHalfAway(x, int(y)), nil
		})),
		NewSimpleFunction("IF", 3, 3, func(args [][]float64) (float64, error) {
			cond, err := scalar(args[0])
			if err != nil {
				return 0, err
			}
			if cond != 0 {
				return scalar(args[1])
			}
			return scalar(args[2])
		}),
		NewSimpleFunction("TRUE", 0, 0, func([][]float64) (float64, error) { return 1, nil }),
		NewSimpleFunction("FALSE", 0, 0, func([][]float64) (float64, error) { return 0, nil }),
		// Evaluation failures of the argument are turned into 0 by the evaluator.
		NewSimpleFunction("DEFINED", 1, 1, func([][]float64) (float64, error) { return 1, nil }),
		NewSimpleFunction("SUM", 1, -1, func(args [][]float64) (float64, error) {
			total := 0.0
			for _, v := range flatten(args) {
				total += v
			}
			return total, nil
		}),
		NewSimpleFunction("PRODUCT", 1, -1, func(args [][]float64) (float64, error) {
			values := flatten(args)
			if len(values) == 0 {
				return 0, nil
			}
			total := 1.0
			for _, v := range values {
				total *= v
			}
			return total, nil
		}),
		NewSimpleFunction("COUNT", 1, -1, func(args [][]float64) (float64, error) {
			return float64(len(flatten(args))), nil
		}),
		NewSimpleFunction("AVERAGE", 1, -1, func(args [][]float64) (float64, error) {
			values := flatten(args)
			if len(values) == 0 {
				return 0, ErrDivideByZero
			}
			total := 0.0
			for _, v := range values {
				total += v
			}
			return total / float64(len(values)), nil
		}),
		NewSimpleFunction("MIN", 1, -1, func(args [][]float64) (float64, error) {
			values := flatten(args)
			if len(values) == 0 {
				return 0, fmt.Errorf("%w: MIN of no values", ErrUndefined)
			}
			m := values[0]
			for _, v := range values[1:] {
				m = math.Min(m, v)
			}
			return m, nil
		}),
		NewSimpleFunction("MAX", 1, -1, func(args [][]float64) (float64, error) {
			values := flatten(args)
			if len(values) == 0 {
				return 0, fmt.Errorf("%w: MAX of no values", ErrUndefined)
			}
			m := values[0]
			for _, v := range values[1:] {
				m = math.Max(m, v)
			}
			return m, nil
		}),
	}

	for _, fn := range fns {
		if _, exists := registry.Get(fn.Name()); exists {
			panic(fmt.Sprintf("formula: built-in %s registered twice", fn.Name()))
		}
		if err := registry.Register(fn); err != nil {
			panic(fmt.Sprintf("formula: registering built-in: %v", err))
		}
	}
}
