package reporting

import "testing"

func TestFindMeasure(t *testing.T) {
	for _, id := range []string{"visit-volume-by-state", "slot-utilization", "diagnosis-review-backlog"} {
		m := FindMeasure(id)
		if m == nil {
			t.Errorf("measure %q not found", id)
			continue
		}
		if m.SQL == "" {
			t.Errorf("measure %q has no SQL", id)
		}
	}
	if FindMeasure("no-such-measure") != nil {
		t.Error("unknown measure should return nil")
	}
}
