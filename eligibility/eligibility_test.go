package eligibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internflow/document"
	"internflow/policy"
)

func fullyUnlocked() Snapshot {
	return Snapshot{
		CS05Status:           document.StatusApproved,
		AcceptanceStatus:     document.StatusApproved,
		EvaluationStatus:     document.StatusSent,
		ApprovedHours:        300,
		NotificationsEnabled: true,
	}
}

func TestCompute_AllUnlocked(t *testing.T) {
	flags := Compute(fullyUnlocked(), policy.Default())
	assert.True(t, flags.CanAccessLogbook)
	assert.True(t, flags.CanRequestReferral)
	assert.True(t, flags.CanSendEvaluation)
	assert.True(t, flags.CanResendEvaluation)
	assert.Equal(t, RequirementNone, flags.BlockedBy)
}

// A CS05 that is not approved blocks the logbook and referral flags no
// matter what the other documents say.
func TestCompute_CS05Monotonicity(t *testing.T) {
	for _, status := range []document.Status{
		document.StatusDraft, document.StatusSubmitted,
		document.StatusUnderReview, document.StatusRejected, "",
	} {
		snap := fullyUnlocked()
		snap.CS05Status = status
		flags := Compute(snap, policy.Default())
		assert.False(t, flags.CanAccessLogbook, status)
		assert.False(t, flags.CanRequestReferral, status)
		assert.False(t, flags.CanSendEvaluation, status)
		assert.False(t, flags.CanResendEvaluation, status)
		assert.Equal(t, RequirementCS05Approval, flags.BlockedBy, status)
	}

	// Same rule one gate later: an unapproved acceptance letter blocks the
	// evaluation path even with the hours met and notifications on.
	snap := fullyUnlocked()
	snap.AcceptanceStatus = document.StatusPending
	flags := Compute(snap, policy.Default())
	assert.False(t, flags.CanSendEvaluation)
	assert.False(t, flags.CanResendEvaluation)
	assert.Equal(t, RequirementAcceptanceApproval, flags.BlockedBy)
}

func TestCompute_BlockingReasonOrder(t *testing.T) {
	// Everything unmet at once: CS05 is reported first.
	flags := Compute(Snapshot{}, policy.Default())
	assert.Equal(t, RequirementCS05Approval, flags.BlockedBy)

	snap := Snapshot{CS05Status: document.StatusApproved}
	flags = Compute(snap, policy.Default())
	assert.Equal(t, RequirementAcceptanceApproval, flags.BlockedBy)

	snap.AcceptanceStatus = document.StatusApproved
	snap.ApprovedHours = 239.5
	flags = Compute(snap, policy.Default())
	assert.True(t, flags.CanAccessLogbook)
	assert.Equal(t, RequirementApprovedHours, flags.BlockedBy)
}

func TestCompute_EvaluationFlags(t *testing.T) {
	snap := fullyUnlocked()

	snap.ApprovedHours = 239
	flags := Compute(snap, policy.Default())
	assert.False(t, flags.CanSendEvaluation)
	assert.False(t, flags.CanResendEvaluation)

	snap.ApprovedHours = 240
	flags = Compute(snap, policy.Default())
	assert.True(t, flags.CanSendEvaluation)
	assert.True(t, flags.CanResendEvaluation)

	// Resend needs a request that was actually sent.
	snap.EvaluationStatus = document.StatusNotSent
	flags = Compute(snap, policy.Default())
	assert.True(t, flags.CanSendEvaluation)
	assert.False(t, flags.CanResendEvaluation)

	snap.EvaluationStatus = document.StatusCompleted
	flags = Compute(snap, policy.Default())
	assert.True(t, flags.CanResendEvaluation)

	// Notifications switched off disables the evaluation path entirely.
	snap.NotificationsEnabled = false
	flags = Compute(snap, policy.Default())
	assert.False(t, flags.CanSendEvaluation)
	assert.False(t, flags.CanResendEvaluation)
}

type fixedHours float64

func (h fixedHours) ApprovedHours(ctx context.Context, ownerID string) (float64, error) {
	return float64(h), nil
}

func TestComputeAccess_SnapshotFromStore(t *testing.T) {
	store := document.NewMemoryStore()
	ctx := context.Background()

	seed := func(typ document.Type, status document.Status) {
		_, err := store.Create(ctx, document.Record{
			ID:      string(typ),
			Type:    typ,
			OwnerID: "student-1",
			Status:  status,
			History: []document.HistoryEntry{{Status: status}},
		})
		require.NoError(t, err)
	}
	seed(document.TypeCS05, document.StatusApproved)
	seed(document.TypeAcceptanceLetter, document.StatusApproved)
	seed(document.TypeEvaluationRequest, document.StatusSent)

	svc := NewService(store, fixedHours(250), policy.Default())
	flags, err := svc.ComputeAccess(ctx, "student-1")
	require.NoError(t, err)
	assert.True(t, flags.CanAccessLogbook)
	assert.True(t, flags.CanSendEvaluation)
	assert.True(t, flags.CanResendEvaluation)

	// A student with no documents yet is blocked at the first gate.
	flags, err = svc.ComputeAccess(ctx, "student-2")
	require.NoError(t, err)
	assert.False(t, flags.CanAccessLogbook)
	assert.Equal(t, RequirementCS05Approval, flags.BlockedBy)

	_, err = svc.ComputeAccess(ctx, "")
	require.Error(t, err)
}
