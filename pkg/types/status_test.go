package types_test

import (
	"testing"

	"github.com/scrypster/membase/pkg/types"
)

func TestSessionStatusValues(t *testing.T) {
	if types.StatusActive != 1 || types.StatusColdArchived != 2 ||
		types.StatusDeepArchived != 3 || types.StatusDeleted != 4 {
		t.Fatal("session status wire values must stay 1..4")
	}
}

func TestSessionStatusIsValid(t *testing.T) {
	for _, s := range []types.SessionStatus{
		types.StatusActive, types.StatusColdArchived,
		types.StatusDeepArchived, types.StatusDeleted,
	} {
		if !s.IsValid() {
			t.Errorf("expected %v to be valid", s)
		}
	}

	if types.SessionStatus(0).IsValid() || types.SessionStatus(5).IsValid() {
		t.Error("out-of-range statuses should be invalid")
	}
}

func TestForwardOnlyTransitions(t *testing.T) {
	allowed := map[types.SessionStatus][]types.SessionStatus{
		types.StatusActive:       {types.StatusColdArchived, types.StatusDeleted},
		types.StatusColdArchived: {types.StatusDeepArchived, types.StatusDeleted},
		types.StatusDeepArchived: {types.StatusDeleted},
		types.StatusDeleted:      {},
	}

	all := []types.SessionStatus{
		types.StatusActive, types.StatusColdArchived,
		types.StatusDeepArchived, types.StatusDeleted,
	}

	for from, nexts := range allowed {
		want := map[types.SessionStatus]bool{}
		for _, n := range nexts {
			want[n] = true
		}
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != want[to] {
				t.Errorf("%v -> %v: got %v, want %v", from, to, got, want[to])
			}
		}
	}
}

func TestNoSkipBack(t *testing.T) {
	if types.StatusDeepArchived.CanTransitionTo(types.StatusActive) {
		t.Error("deep_archived must not transition back to active")
	}
	if types.StatusColdArchived.CanTransitionTo(types.StatusActive) {
		t.Error("cold_archived must not transition back to active")
	}
}

func TestStatusString(t *testing.T) {
	cases := map[types.SessionStatus]string{
		types.StatusActive:       "active",
		types.StatusColdArchived: "cold_archived",
		types.StatusDeepArchived: "deep_archived",
		types.StatusDeleted:      "deleted",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("String(%d) = %q, want %q", s, s.String(), want)
		}
	}
}
