package contract

import (
	"context"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	wrapped := fmt.Errorf("%w: edit transaction already open", ErrProtocolViolation)
	cases := []struct {
		err  error
		want Class
	}{
		{nil, ClassUnknown},
		{wrapped, ClassProtocol},
		{fmt.Errorf("item 7: %w", ErrStaleComputation), ClassStale},
		{ErrHostContractViolation, ClassHost},
		{fmt.Errorf("%w: panic in layout", ErrMeasurementFailed), ClassMeasure},
		{context.Canceled, ClassCancel},
		{fmt.Errorf("something else"), ClassUnknown},
	}
	for i, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("case %d: expected class %q, have %q", i, c.want, got)
		}
	}
}
