package publish

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/content-pipeline/internal/history"
	"github.com/jonathan/content-pipeline/internal/metrics"
	"github.com/jonathan/content-pipeline/internal/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) Publish(ctx context.Context, desc PlatformDescriptor, content types.FormattedContent) (*RemoteResult, error) {
	args := m.Called(ctx, desc, content)
	res, _ := args.Get(0).(*RemoteResult)
	return res, args.Error(1)
}

// failingStore appends nothing and fails every write.
type failingStore struct {
	history.Store
}

func (failingStore) Append(context.Context, history.Entry) error {
	return &history.PersistenceError{Message: "disk full", Cause: errors.New("ENOSPC")}
}

func (failingStore) CountSuccessToday(context.Context, string) (int, error) { return 0, nil }

func fixedClock() func() time.Time {
	now := time.Date(2026, 5, 6, 14, 0, 0, 0, time.Local)
	return func() time.Time { return now }
}

func testRegistry() *Registry {
	return NewRegistry(nil,
		PlatformDescriptor{Name: "alpha", PublishMethod: MethodWebhook, RateLimit: limit(2), Enabled: true},
		PlatformDescriptor{Name: "beta", PublishMethod: MethodAPI, Enabled: true},
		PlatformDescriptor{Name: "gamma", PublishMethod: MethodAPI, Enabled: false},
		PlatformDescriptor{Name: "file", PublishMethod: MethodLocal, Enabled: true},
	)
}

func openStore(t *testing.T, now func() time.Time) *history.FileStore {
	t.Helper()
	store, err := history.OpenFile(filepath.Join(t.TempDir(), "publish_history.json"), history.WithClock(now))
	require.NoError(t, err)
	return store
}

func TestDispatch_NoCrossPlatformLeakage(t *testing.T) {
	clock := fixedClock()
	store := openStore(t, clock)
	alpha := &mockRemote{}
	alpha.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(c types.FormattedContent) bool {
		return c.Platform == "alpha"
	})).Return(&RemoteResult{Reference: "a-1"}, nil).Once()
	beta := &mockRemote{}

	d := NewDispatcher(testRegistry(), store, t.TempDir(),
		WithRemote("alpha", alpha), WithRemote("beta", beta), WithDispatcherClock(clock))

	contents := []types.FormattedContent{sampleContent("alpha", "A"), sampleContent("beta", "B")}
	report, err := d.Dispatch(context.Background(), contents, []string{"alpha"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalContents)
	assert.Equal(t, 1, report.TotalPlatforms)
	require.Len(t, report.Details, 1)
	assert.Equal(t, "alpha", report.Details[0].Platform)
	assert.Equal(t, 0, report.Details[0].ContentIndex)
	assert.Equal(t, "a-1", report.Details[0].Reference)
	assert.NotEqual(t, "", report.Details[0].ID.String())
	assert.Equal(t, map[string]history.Tally{"alpha": {Success: 1}}, report.PlatformResults)

	alpha.AssertExpectations(t)
	beta.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_RateLimited(t *testing.T) {
	ctx := context.Background()
	clock := fixedClock()
	store := openStore(t, clock)
	require.NoError(t, store.Append(ctx, history.Entry{
		Timestamp:       clock(),
		PlatformResults: map[string]history.Tally{"alpha": {Success: 2}},
	}))

	alpha := &mockRemote{}
	d := NewDispatcher(testRegistry(), store, t.TempDir(), WithRemote("alpha", alpha), WithDispatcherClock(clock))

	report, err := d.Dispatch(ctx, []types.FormattedContent{sampleContent("alpha", "A")}, []string{"alpha"})
	require.NoError(t, err)

	require.Len(t, report.Details, 1)
	assert.False(t, report.Details[0].Success)
	assert.Equal(t, ErrorRateLimited, report.Details[0].ErrorKind)
	assert.Contains(t, report.Details[0].Error, "daily limit of 2")
	alpha.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)

	count, err := store.CountSuccessToday(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDispatch_InBatchSuccessesCountAgainstQuota(t *testing.T) {
	clock := fixedClock()
	alpha := &mockRemote{}
	alpha.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(&RemoteResult{}, nil)

	d := NewDispatcher(testRegistry(), openStore(t, clock), t.TempDir(), WithRemote("alpha", alpha), WithDispatcherClock(clock))

	contents := []types.FormattedContent{
		sampleContent("alpha", "1"), sampleContent("alpha", "2"), sampleContent("alpha", "3"),
	}
	report, err := d.Dispatch(context.Background(), contents, []string{"alpha"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 1, report.FailureCount)
	assert.Equal(t, ErrorRateLimited, report.Details[2].ErrorKind)
	alpha.AssertNumberOfCalls(t, "Publish", 2)
}

func TestDispatch_FailuresDoNotConsumeQuota(t *testing.T) {
	clock := fixedClock()
	alpha := &mockRemote{}
	alpha.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &RemoteError{Platform: "alpha", StatusCode: 500, Message: "boom"}).Twice()
	alpha.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(&RemoteResult{}, nil)

	d := NewDispatcher(testRegistry(), openStore(t, clock), t.TempDir(), WithRemote("alpha", alpha), WithDispatcherClock(clock))

	contents := []types.FormattedContent{
		sampleContent("alpha", "1"), sampleContent("alpha", "2"), sampleContent("alpha", "3"),
	}
	report, err := d.Dispatch(context.Background(), contents, []string{"alpha"})
	require.NoError(t, err)

	assert.Equal(t, ErrorRemoteFailure, report.Details[0].ErrorKind)
	assert.Equal(t, "alpha: remote returned 500: boom", report.Details[0].Error)
	assert.True(t, report.Details[2].Success, "two failures leave the quota untouched")
}

func TestDispatch_DisabledIsSkipped(t *testing.T) {
	clock := fixedClock()
	gamma := &mockRemote{}
	d := NewDispatcher(testRegistry(), openStore(t, clock), t.TempDir(), WithRemote("gamma", gamma), WithDispatcherClock(clock))

	report, err := d.Dispatch(context.Background(), []types.FormattedContent{sampleContent("gamma", "G")}, []string{"gamma"})
	require.NoError(t, err)

	assert.Equal(t, 0, report.FailureCount)
	assert.Equal(t, 1, report.SkippedCount)
	assert.True(t, report.Details[0].Skipped)
	assert.Equal(t, ErrorPlatformDisabled, report.Details[0].ErrorKind)
	gamma.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_UnknownPlatform(t *testing.T) {
	clock := fixedClock()
	d := NewDispatcher(testRegistry(), openStore(t, clock), t.TempDir(), WithDispatcherClock(clock))

	report, err := d.Dispatch(context.Background(), []types.FormattedContent{sampleContent("myspace", "M")}, []string{"myspace"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.FailureCount)
	assert.Equal(t, ErrorUnknownPlatform, report.Details[0].ErrorKind)
}

func TestDispatch_LocalMethod(t *testing.T) {
	clock := fixedClock()
	root := t.TempDir()
	d := NewDispatcher(testRegistry(), openStore(t, clock), root, WithDispatcherClock(clock))

	report, err := d.Dispatch(context.Background(), []types.FormattedContent{sampleContent("file", "Local Post")}, nil)
	require.NoError(t, err)

	require.Len(t, report.Details, 1)
	r := report.Details[0]
	assert.True(t, r.Success)
	assert.Equal(t, MethodLocal, r.Method)
	require.Len(t, r.ArtifactRefs, 2)
	assert.Equal(t, filepath.Join(root, "published", "file", "20260506", "Local Post_140000.json"), r.ArtifactRefs[0])
}

func TestDispatch_NilPlatformsUsesEnabled(t *testing.T) {
	clock := fixedClock()
	beta := &mockRemote{}
	beta.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(&RemoteResult{}, nil)
	d := NewDispatcher(testRegistry(), openStore(t, clock), t.TempDir(), WithRemote("beta", beta), WithDispatcherClock(clock))

	report, err := d.Dispatch(context.Background(), []types.FormattedContent{
		sampleContent("beta", "B"), sampleContent("gamma", "G"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalPlatforms, "alpha, beta and file are enabled")
	assert.Equal(t, 1, report.TotalContents)
	assert.Equal(t, 1, report.SuccessCount)
}

func TestDispatch_RemoteTimeout(t *testing.T) {
	clock := fixedClock()
	slow := &mockRemote{}
	slow.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	d := NewDispatcher(testRegistry(), openStore(t, clock), t.TempDir(),
		WithRemote("beta", slow), WithTimeout(20*time.Millisecond), WithDispatcherClock(clock))

	report, err := d.Dispatch(context.Background(), []types.FormattedContent{sampleContent("beta", "B")}, []string{"beta"})
	require.NoError(t, err)
	assert.Equal(t, ErrorRemoteFailure, report.Details[0].ErrorKind)
}

func TestDispatch_AlwaysAppendsHistory(t *testing.T) {
	ctx := context.Background()
	clock := fixedClock()
	store := openStore(t, clock)
	alpha := &mockRemote{}
	alpha.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	d := NewDispatcher(testRegistry(), store, t.TempDir(), WithRemote("alpha", alpha), WithDispatcherClock(clock))

	_, err := d.Dispatch(ctx, []types.FormattedContent{sampleContent("alpha", "A")}, []string{"alpha"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, nil, []string{"alpha"})
	require.NoError(t, err)

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].FailureCount)
	assert.Equal(t, map[string]history.Tally{"alpha": {Failure: 1}}, entries[0].PlatformResults)
	assert.Equal(t, 0, entries[1].TotalContents)
}

func TestDispatch_CanceledContextStillAppendsHistory(t *testing.T) {
	clock := fixedClock()
	store := openStore(t, clock)
	d := NewDispatcher(testRegistry(), store, t.TempDir(), WithDispatcherClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := d.Dispatch(ctx, []types.FormattedContent{sampleContent("file", "A")}, []string{"file"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)

	entries, err := store.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]history.Tally{"file": {Success: 1}}, entries[0].PlatformResults)

	count, err := store.CountSuccessToday(context.Background(), "file")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDispatch_HistoryFailureReturnsReport(t *testing.T) {
	d := NewDispatcher(testRegistry(), failingStore{}, t.TempDir(), WithDispatcherClock(fixedClock()))

	report, err := d.Dispatch(context.Background(), []types.FormattedContent{sampleContent("file", "F")}, []string{"file"})
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.SuccessCount)

	var pe *history.PersistenceError
	assert.ErrorAs(t, err, &pe)
}

func TestDispatch_RecordsMetrics(t *testing.T) {
	clock := fixedClock()
	rec := metrics.NewRecorder()
	d := NewDispatcher(testRegistry(), openStore(t, clock), t.TempDir(), WithMetrics(rec), WithDispatcherClock(clock))

	_, err := d.Dispatch(context.Background(), []types.FormattedContent{
		sampleContent("file", "F"), sampleContent("gamma", "G"),
	}, []string{"file", "gamma"})
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(rec.Registry(), "content_pipeline_publish_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBatchReport_Merge(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	a := newBatchReport(start)
	a.TotalContents, a.TotalPlatforms = 1, 1
	a.add(PublishAttemptResult{Platform: "x", Success: true})
	a.finish(start.Add(time.Second))

	b := newBatchReport(start.Add(-time.Second))
	b.TotalContents, b.TotalPlatforms = 2, 1
	b.add(PublishAttemptResult{Platform: "y"})
	b.add(PublishAttemptResult{Platform: "y", Skipped: true})
	b.finish(start.Add(3 * time.Second))

	a.Merge(b)
	assert.Equal(t, 3, a.TotalContents)
	assert.Equal(t, 2, a.TotalPlatforms)
	assert.Equal(t, 1, a.SuccessCount)
	assert.Equal(t, 1, a.FailureCount)
	assert.Equal(t, 1, a.SkippedCount)
	assert.Equal(t, history.Tally{Failure: 1, Skipped: 1}, a.PlatformResults["y"])
	assert.Len(t, a.Details, 3)
	assert.Equal(t, 4.0, a.DurationSeconds)
}
