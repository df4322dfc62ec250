package payload

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/caffeineduck/goremote/closure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func TestMarshalSnapshotsScope(t *testing.T) {
	a, zero := 0.5, 0
	var vNull any
	items := []string{"x", "y"}
	root := closure.NewRoot()
	require.NoError(t, root.Bind(closure.Vars{"a": &a, "zero": &zero, "v_null": &vNull, "items": &items}))

	p, err := Marshal("function () { return a; }", root, WithMode(ModePromise), WithTarget("browser"))
	require.NoError(t, err)

	assert.Equal(t, ModePromise, p.Mode)
	assert.Equal(t, "browser", p.Target)
	assert.Equal(t, "function () { return a; }", p.Source)
	assert.Equal(t, 0.5, p.Bindings["a"].Float64Value())
	assert.True(t, p.Bindings["zero"].IsNumber(), "zero is a number, not absence")
	assert.True(t, p.Bindings["v_null"].IsNull())
	assert.Equal(t, `["x","y"]`, p.Bindings["items"].JSONString())
	assert.ElementsMatch(t, []string{"a", "zero", "v_null", "items"}, p.Names())
}

func TestMarshalIsDetachedFromLaterMutation(t *testing.T) {
	a := 1
	root := closure.NewRoot()
	require.NoError(t, root.Bind(closure.Vars{"a": &a}))

	p, err := Marshal("function () {}", root)
	require.NoError(t, err)
	a = 2

	assert.Equal(t, 1, p.Bindings["a"].IntValue())
}

func TestMarshalRejectsFunctionValues(t *testing.T) {
	var f any = 1
	root := closure.NewRoot()
	require.NoError(t, root.Bind(closure.Vars{"f": &f}))
	f = func() {}

	_, err := Marshal("function () { return f; }", root)
	var invalid *closure.InvalidVariableError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, "f", invalid.Name)
	assert.Contains(t, err.Error(), "cannot use a function")
}

func TestMarshalRejectsNestedFunctions(t *testing.T) {
	type holder struct {
		Callback func()
	}
	tests := []struct {
		name  string
		value any
	}{
		{"in slice", []any{1, func() {}}},
		{"in map", map[string]any{"cb": func() {}}},
		{"in struct", holder{Callback: func() {}}},
		{"behind pointer", &holder{Callback: func() {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode("v", tt.value)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "cannot use a function")
		})
	}
}

func TestEncodeRejectsOtherUnrepresentableValues(t *testing.T) {
	_, err := Encode("ch", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chan")

	_, err = Encode("c", complex(1, 2))
	require.Error(t, err)
}

func TestEncodeSelfReferenceFails(t *testing.T) {
	type node struct {
		Next *node
	}
	n := &node{}
	n.Next = n
	_, err := Encode("n", n)
	require.Error(t, err)
}

func TestMarshalEmptySource(t *testing.T) {
	_, err := Marshal("   ", closure.NewRoot())
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestMarshalDefaultsToExecute(t *testing.T) {
	p, err := Marshal("function () {}", nil)
	require.NoError(t, err)
	assert.Equal(t, ModeExecute, p.Mode)
	assert.Empty(t, p.Bindings)
}

func TestExprQuotesSource(t *testing.T) {
	fn := Expr(`a = "quoted"; a`)
	assert.Equal(t, `function () { return eval("a = \"quoted\"; a"); }`, string(fn))
}

func TestOutcomeWireForm(t *testing.T) {
	out := Thrown("Error: boom", map[string]ldvalue.Value{"a": ldvalue.Int(1)})
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"thrown","value":null,"error":"Error: boom","bindings":{"a":1}}`, string(data))
}
