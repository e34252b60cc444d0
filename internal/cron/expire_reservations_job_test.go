package cron

import (
	"context"
	"errors"
	"testing"
)

type fakeExpirer struct {
	expired int64
	err     error
	calls   int
}

func (f *fakeExpirer) ExpirePending(ctx context.Context) (int64, error) {
	f.calls++
	return f.expired, f.err
}

func TestExpireReservationsJobRun(t *testing.T) {
	expirer := &fakeExpirer{expired: 3}
	job, err := NewExpireReservationsJob(expirer, nil, cronLogger())
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != ExpireReservationsJobName {
		t.Fatalf("unexpected name %q", job.Name())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected one sweep, got %d", expirer.calls)
	}
}

func TestExpireReservationsJobPropagatesError(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	job, err := NewExpireReservationsJob(expirer, nil, cronLogger())
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
