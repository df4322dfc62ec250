package executor

import (
	"math"

	"github.com/caffeineduck/goremote/payload"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// normalize turns a settled outcome into the caller's result.
func (c *Context) normalize(out payload.Outcome) (ldvalue.Value, error) {
	switch out.Kind {
	case payload.KindThrown:
		return ldvalue.Null(), &RemoteThrowError{Target: c.cfg.target, Description: out.Error}
	default:
		// an absent value is undefined, which arrives as null
		return out.Value, nil
	}
}

// Truthy applies JavaScript truthiness to a value that crossed the wire.
func Truthy(v ldvalue.Value) bool {
	switch v.Type() {
	case ldvalue.NullType:
		return false
	case ldvalue.BoolType:
		return v.BoolValue()
	case ldvalue.NumberType:
		f := v.Float64Value()
		return f != 0 && !math.IsNaN(f)
	case ldvalue.StringType:
		return v.StringValue() != ""
	default:
		return true
	}
}
