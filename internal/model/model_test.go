package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCountsOutcomes(t *testing.T) {
	summary := &RunSummary{}

	summary.Record(UnitResult{UnitID: "a", Outcome: OutcomeSatisfied})
	summary.Record(UnitResult{UnitID: "b", Outcome: OutcomeApplied})
	summary.Record(UnitResult{UnitID: "c", Outcome: OutcomeDeclined})
	summary.Record(UnitResult{UnitID: "d", Outcome: OutcomeFailed})
	summary.Record(UnitResult{UnitID: "e", Outcome: OutcomeWouldApply})

	require.Len(t, summary.Results, 5)
	assert.Equal(t, 1, summary.Satisfied)
	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, 1, summary.Declined)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Planned)
}

func TestRecordPreservesOrder(t *testing.T) {
	summary := &RunSummary{}
	ids := []string{"update", "aur_helper", "base_packages", "sshd"}
	for _, id := range ids {
		summary.Record(UnitResult{UnitID: id, Outcome: OutcomeApplied})
	}

	got := make([]string, 0, len(summary.Results))
	for _, res := range summary.Results {
		got = append(got, res.UnitID)
	}
	assert.Equal(t, ids, got)
}

func TestFinalizeStatus(t *testing.T) {
	t.Run("complete when nothing declined", func(t *testing.T) {
		summary := &RunSummary{}
		summary.Record(UnitResult{UnitID: "a", Outcome: OutcomeApplied})
		summary.Finalize(time.Now())
		assert.Equal(t, RunComplete, summary.Status)
	})

	t.Run("user limited when any unit declined", func(t *testing.T) {
		summary := &RunSummary{}
		summary.Record(UnitResult{UnitID: "a", Outcome: OutcomeApplied})
		summary.Record(UnitResult{UnitID: "b", Outcome: OutcomeDeclined})
		summary.Finalize(time.Now())
		assert.Equal(t, RunUserLimited, summary.Status)
	})

	t.Run("partial sticks once set", func(t *testing.T) {
		summary := &RunSummary{Status: RunPartial}
		summary.Record(UnitResult{UnitID: "a", Outcome: OutcomeDeclined})
		summary.Finalize(time.Now())
		assert.Equal(t, RunPartial, summary.Status)
	})
}

func TestUnitResultFailed(t *testing.T) {
	assert.True(t, UnitResult{Outcome: OutcomeFailed}.Failed())
	assert.False(t, UnitResult{Outcome: OutcomeApplied}.Failed())
	assert.False(t, UnitResult{Outcome: OutcomeDeclined}.Failed())
}
