package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishRecordRun(ctx context.Context, job *RecordRunJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) InsertRun(ctx context.Context, rec domain.RunRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func TestRunRecorderPublishes(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishRecordRun", mock.Anything, mock.MatchedBy(func(j *RecordRunJob) bool {
		return j.JobID == "run-1" && j.Record.UserID == 5 && j.MaxRetries == 4
	})).Return(nil).Once()

	r := NewRunRecorder(pub, 4)
	require.NoError(t, r.Record(context.Background(), domain.RunRecord{RunID: "run-1", UserID: 5}))
	pub.AssertExpectations(t)
}

func TestRunRecorderWrapsPublishError(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishRecordRun", mock.Anything, mock.Anything).Return(ErrQueueClosed)

	err := NewRunRecorder(pub, 0).Record(context.Background(), domain.RunRecord{RunID: "run-1"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestRecordRunHandler(t *testing.T) {
	rec := domain.RunRecord{RunID: "run-1", UserID: 5, Status: domain.RunSucceeded}

	sink := &mockSink{}
	sink.On("InsertRun", mock.Anything, rec).Return(nil).Once()
	require.NoError(t, NewRecordRunHandler(sink)(context.Background(), &RecordRunJob{JobID: "run-1", Record: rec}))
	sink.AssertExpectations(t)

	boom := errors.New("insert failed")
	failing := &mockSink{}
	failing.On("InsertRun", mock.Anything, rec).Return(boom)
	assert.ErrorIs(t, NewRecordRunHandler(failing)(context.Background(), &RecordRunJob{Record: rec}), boom)

	assert.NoError(t, NewRecordRunHandler(nil)(context.Background(), &RecordRunJob{Record: rec}))
}
