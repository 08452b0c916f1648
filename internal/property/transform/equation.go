package transform

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Equation is a bidirectional formula written as "x=f(y)|y=g(x)".
//
// y is the device-native value and x the display value. Read evaluates the
// x leg, Write evaluates the y leg.
type Equation struct {
	source string
	read   *vm.Program
	write  *vm.Program
}

var equationCache sync.Map // source -> *Equation

// ParseEquation compiles both legs of an equation. Compiled equations are
// cached by source text.
func ParseEquation(source string) (*Equation, error) {
	source = strings.TrimSpace(source)
	if cached, ok := equationCache.Load(source); ok {
		return cached.(*Equation), nil
	}

	var readSrc, writeSrc string
	for _, leg := range strings.Split(source, "|") {
		name, body, ok := strings.Cut(strings.TrimSpace(leg), "=")
		if !ok {
			return nil, fmt.Errorf("%w: leg %q has no '='", ErrInvalidEquation, leg)
		}
		switch strings.TrimSpace(name) {
		case "x":
			readSrc = strings.TrimSpace(body)
		case "y":
			writeSrc = strings.TrimSpace(body)
		default:
			return nil, fmt.Errorf("%w: unknown leg %q", ErrInvalidEquation, name)
		}
	}
	if readSrc == "" || writeSrc == "" {
		return nil, fmt.Errorf("%w: %q needs both x= and y= legs", ErrInvalidEquation, source)
	}

	read, err := expr.Compile(readSrc, expr.Env(map[string]any{"y": 0.0}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("%w: compiling x leg: %v", ErrInvalidEquation, err)
	}
	write, err := expr.Compile(writeSrc, expr.Env(map[string]any{"x": 0.0}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("%w: compiling y leg: %v", ErrInvalidEquation, err)
	}

	eq := &Equation{source: source, read: read, write: write}
	actual, _ := equationCache.LoadOrStore(source, eq)
	return actual.(*Equation), nil
}

func (e *Equation) String() string { return e.source }

// Read converts a device value y to its display value x.
func (e *Equation) Read(y float64) (float64, error) {
	return run(e.read, map[string]any{"y": y})
}

// Write converts a display value x to its device value y.
func (e *Equation) Write(x float64) (float64, error) {
	return run(e.write, map[string]any{"x": x})
}

func run(program *vm.Program, env map[string]any) (float64, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEquation, err)
	}
	f, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: result %v is not numeric", ErrInvalidEquation, out)
	}
	return f, nil
}
