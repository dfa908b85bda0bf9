package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
	apperrors "github.com/rdsops/snapshot-reconciler/internal/errors"
)

type nopLogger struct{}

func (nopLogger) Debugf(ctx context.Context, format string, args ...any)            {}
func (nopLogger) Infof(ctx context.Context, format string, args ...any)             {}
func (nopLogger) Warnf(ctx context.Context, format string, args ...any)             {}
func (nopLogger) Errorf(ctx context.Context, err error, format string, args ...any) {}
func (l nopLogger) WithFields(fields map[string]any) ports.Logger                   { return l }

type describeResponse struct {
	record domain.SnapshotRecord
	found  bool
	err    error
}

// stubProvider replays scripted describe responses (repeating the last one
// once the script runs out) and records every call it receives.
type stubProvider struct {
	describes     []describeResponse
	describeCalls int

	createRecord domain.SnapshotRecord
	createErr    error
	createCalls  int
	createdTags  map[string]string
	createdFrom  string

	deleteRecord domain.SnapshotRecord
	deleteErr    error
	deleteCalls  int
}

func (s *stubProvider) Type() string { return "stub" }

func (s *stubProvider) Describe(ctx context.Context, snapshotID string) (domain.SnapshotRecord, bool, error) {
	idx := s.describeCalls
	s.describeCalls++
	if len(s.describes) == 0 {
		return domain.SnapshotRecord{}, false, nil
	}
	if idx >= len(s.describes) {
		idx = len(s.describes) - 1
	}
	resp := s.describes[idx]
	return resp.record, resp.found, resp.err
}

func (s *stubProvider) Create(ctx context.Context, snapshotID, sourceID string, tags map[string]string) (domain.SnapshotRecord, error) {
	s.createCalls++
	s.createdTags = tags
	s.createdFrom = sourceID
	if s.createErr != nil {
		return domain.SnapshotRecord{}, s.createErr
	}
	return s.createRecord, nil
}

func (s *stubProvider) Delete(ctx context.Context, snapshotID string) (domain.SnapshotRecord, error) {
	s.deleteCalls++
	if s.deleteErr != nil {
		return domain.SnapshotRecord{}, s.deleteErr
	}
	return s.deleteRecord, nil
}

func (s *stubProvider) List(ctx context.Context, sourceID string) ([]domain.SnapshotRecord, error) {
	return nil, nil
}

func (s *stubProvider) SourceInstance(ctx context.Context, sourceID string) (domain.InstanceRecord, bool, error) {
	return domain.InstanceRecord{}, false, nil
}

func newTestReconciler(t *testing.T, provider *stubProvider, pollInterval time.Duration) *Reconciler {
	t.Helper()
	r, err := NewReconciler(provider, nopLogger{}, pollInterval)
	require.NoError(t, err)
	return r
}

func snapshot(id, status string) domain.SnapshotRecord {
	return domain.SnapshotRecord{ID: id, Status: status, SourceInstanceID: "db1"}
}

func TestReconcilePresentIsIdempotent(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{record: snapshot("s1", domain.StatusAvailable), found: true},
		},
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	req := domain.ReconcileRequest{
		State:            domain.StatePresent,
		SnapshotID:       "s1",
		SourceInstanceID: "db1",
	}

	for i := 0; i < 2; i++ {
		result, err := r.Reconcile(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.True(t, result.Present)
		assert.Equal(t, domain.StatusAvailable, result.Record.Status)
	}
	assert.Equal(t, 0, provider.createCalls)
	assert.Equal(t, 2, provider.describeCalls)
}

func TestReconcilePresentCreatesWhenAbsent(t *testing.T) {
	provider := &stubProvider{
		describes:    []describeResponse{{found: false}},
		createRecord: snapshot("s1", domain.StatusCreating),
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	result, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:            domain.StatePresent,
		SnapshotID:       "s1",
		SourceInstanceID: "db1",
		Tags:             map[string]string{"env": "prod"},
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.True(t, result.Present)
	assert.Equal(t, domain.StatusCreating, result.Record.Status)
	assert.Equal(t, 1, provider.createCalls)
	assert.Equal(t, "db1", provider.createdFrom)
	assert.Equal(t, map[string]string{"env": "prod"}, provider.createdTags)
}

func TestReconcilePresentWhileDeletingIsConflict(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{record: snapshot("s1", domain.StatusDeleting), found: true},
		},
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	_, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:            domain.StatePresent,
		SnapshotID:       "s1",
		SourceInstanceID: "db1",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeResourceConflict))
	assert.Equal(t, 0, provider.createCalls)
}

func TestReconcilePresentRequiresSourceInstance(t *testing.T) {
	provider := &stubProvider{}
	r := newTestReconciler(t, provider, time.Millisecond)

	_, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:      domain.StatePresent,
		SnapshotID: "s1",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))
	assert.Equal(t, 0, provider.describeCalls)
	assert.Equal(t, 0, provider.createCalls)
}

func TestReconcilePresentCreateFailureIsNotRetried(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{{found: false}},
		createErr: apperrors.New(apperrors.CodeThrottled, "SnapshotQuotaExceeded: quota reached"),
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	_, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:            domain.StatePresent,
		SnapshotID:       "s1",
		SourceInstanceID: "db1",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeThrottled))
	assert.Equal(t, 1, provider.createCalls)
}

func TestReconcileAbsentIsIdempotent(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{{found: false}},
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	result, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:      domain.StateAbsent,
		SnapshotID: "s1",
	})
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.False(t, result.Present)
	assert.Equal(t, 0, provider.deleteCalls)
	assert.Equal(t, 1, provider.describeCalls)
}

func TestReconcileAbsentSkipsDeleteAlreadyInFlight(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{record: snapshot("s1", domain.StatusDeleting), found: true},
		},
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	result, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:      domain.StateAbsent,
		SnapshotID: "s1",
	})
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.Equal(t, 0, provider.deleteCalls)
}

func TestReconcileAbsentDeletes(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{record: snapshot("s1", domain.StatusAvailable), found: true},
		},
		deleteRecord: snapshot("s1", domain.StatusDeleting),
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	result, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:      domain.StateAbsent,
		SnapshotID: "s1",
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, 1, provider.deleteCalls)
	assert.Equal(t, domain.StatusDeleting, result.Record.Status)
}

func TestReconcileAbsentDeleteNotFoundRaceIsSuccess(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{record: snapshot("s1", domain.StatusAvailable), found: true},
		},
		deleteErr: apperrors.New(apperrors.CodeResourceNotFound, `DB snapshot "s1" not found`),
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	result, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:      domain.StateAbsent,
		SnapshotID: "s1",
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.False(t, result.Present)
	assert.Equal(t, 1, provider.deleteCalls)
}

func TestReconcileAbsentDeleteFailurePropagates(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{record: snapshot("s1", domain.StatusAvailable), found: true},
		},
		deleteErr: apperrors.New(apperrors.CodePlatformAPIError, "InvalidDBSnapshotState"),
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	_, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:      domain.StateAbsent,
		SnapshotID: "s1",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodePlatformAPIError))
	assert.Equal(t, 1, provider.deleteCalls)
}

func TestReconcilePresentWaitsUntilAvailable(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{found: false},
			{record: snapshot("s1", domain.StatusCreating), found: true},
			{record: snapshot("s1", domain.StatusCreating), found: true},
			{record: snapshot("s1", domain.StatusAvailable), found: true},
		},
		createRecord: snapshot("s1", domain.StatusCreating),
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	result, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:            domain.StatePresent,
		SnapshotID:       "s1",
		SourceInstanceID: "db1",
		Wait:             true,
		WaitTimeout:      time.Second,
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, domain.StatusAvailable, result.Record.Status)
	assert.Equal(t, 1, provider.createCalls)
	assert.Equal(t, 4, provider.describeCalls)
}

func TestReconcileAbsentWaitsUntilGone(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{record: snapshot("s1", domain.StatusAvailable), found: true},
			{record: snapshot("s1", domain.StatusDeleting), found: true},
			{found: false},
		},
		deleteRecord: snapshot("s1", domain.StatusDeleting),
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	result, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:       domain.StateAbsent,
		SnapshotID:  "s1",
		Wait:        true,
		WaitTimeout: time.Second,
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.False(t, result.Present)
	assert.Equal(t, 1, provider.deleteCalls)
	assert.Equal(t, 3, provider.describeCalls)
}

func TestReconcileWaitTimesOutWithBoundedOvershoot(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{found: false},
			{record: snapshot("s1", domain.StatusCreating), found: true},
		},
		createRecord: snapshot("s1", domain.StatusCreating),
	}
	interval := 50 * time.Millisecond
	timeout := 150 * time.Millisecond
	r := newTestReconciler(t, provider, interval)

	start := time.Now()
	_, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:            domain.StatePresent,
		SnapshotID:       "s1",
		SourceInstanceID: "db1",
		Wait:             true,
		WaitTimeout:      timeout,
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeTimeout))
	assert.Contains(t, err.Error(), "s1")
	assert.Contains(t, err.Error(), domain.StatusCreating)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+2*interval)
	assert.Equal(t, 1, provider.createCalls)
}

func TestReconcileWaitPollErrorFailsHard(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{found: false},
			{err: apperrors.New(apperrors.CodePlatformAPIError, "InternalFailure")},
		},
		createRecord: snapshot("s1", domain.StatusCreating),
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	_, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:            domain.StatePresent,
		SnapshotID:       "s1",
		SourceInstanceID: "db1",
		Wait:             true,
		WaitTimeout:      time.Second,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodePlatformAPIError))
	assert.Equal(t, 2, provider.describeCalls)
}

func TestReconcileWaitSnapshotVanishesDuringCreate(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{found: false},
			{record: snapshot("s1", domain.StatusCreating), found: true},
			{found: false},
		},
		createRecord: snapshot("s1", domain.StatusCreating),
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	_, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:            domain.StatePresent,
		SnapshotID:       "s1",
		SourceInstanceID: "db1",
		Wait:             true,
		WaitTimeout:      time.Second,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeResourceNotFound))
}

func TestReconcileLookupFailurePropagates(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{err: apperrors.New(apperrors.CodePlatformAuth, "AccessDenied")},
		},
	}
	r := newTestReconciler(t, provider, time.Millisecond)

	_, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:      domain.StateAbsent,
		SnapshotID: "s1",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodePlatformAuth))
	assert.Equal(t, 0, provider.deleteCalls)
}

func TestReconcileRejectsInvalidState(t *testing.T) {
	provider := &stubProvider{}
	r := newTestReconciler(t, provider, time.Millisecond)

	_, err := r.Reconcile(context.Background(), domain.ReconcileRequest{
		State:      "paused",
		SnapshotID: "s1",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))
	assert.Equal(t, 0, provider.describeCalls)
}

func TestReconcileWaitCancelledByContext(t *testing.T) {
	provider := &stubProvider{
		describes: []describeResponse{
			{found: false},
			{record: snapshot("s1", domain.StatusCreating), found: true},
		},
		createRecord: snapshot("s1", domain.StatusCreating),
	}
	r := newTestReconciler(t, provider, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.Reconcile(ctx, domain.ReconcileRequest{
		State:            domain.StatePresent,
		SnapshotID:       "s1",
		SourceInstanceID: "db1",
		Wait:             true,
		WaitTimeout:      time.Minute,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeTimeout))
}
