package evaluator

import "testing"

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expression string
		want       string
	}{
		{expression: "2+2", want: "4"},
		{expression: "7/2", want: "3.5"},
		{expression: "2*(3+4)", want: "14"},
		{expression: "10-4.5", want: "5.5"},
		{expression: "2^10", want: "1024"},
		{expression: "sqrt(16)", want: "4"},
		{expression: "sin(0)", want: "0"},
		{expression: "cos(0)", want: "1"},
		{expression: "log10(100)", want: "2"},
		{expression: "abs(0-5)", want: "5"},
		{expression: "pi", want: "3.141592653589793"},
	}

	e := New()

	for _, tc := range tests {
		t.Run(tc.expression, func(t *testing.T) {
			got, err := e.Evaluate(tc.expression)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{name: "unbalanced parenthesis", expression: "2+("},
		{name: "empty expression", expression: ""},
		{name: "unknown identifier", expression: "x+1"},
		{name: "division by zero", expression: "1/0"},
		{name: "sqrt of negative", expression: "sqrt(0-1)"},
		{name: "non numeric result", expression: "1 < 2"},
	}

	e := New()

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.Evaluate(tc.expression); err == nil {
				t.Fatalf("expected an error for %q", tc.expression)
			}
		})
	}
}

func TestFormatFloatPrefersPlainNotation(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 4, want: "4"},
		{in: 0, want: "0"},
		{in: 1000000, want: "1000000"},
		{in: 3.5, want: "3.5"},
		{in: 1e21, want: "1e+21"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := formatFloat(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
