package worker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/ruxgo-build/ruxgo/internal/msg"
)

func TestRunExecutesAllJobsOnSuccess(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var count atomic.Int32
	err := Run(context.Background(), 2, items, func(ctx context.Context, item int) error {
		count.Add(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count.Load() != int32(len(items)) {
		t.Fatalf("expected all %d jobs to run, got %d", len(items), count.Load())
	}
}

func TestRunReturnsFirstError(t *testing.T) {
	items := []int{1, 2, 3}
	boom := errors.New("boom")
	err := Run(context.Background(), 1, items, func(ctx context.Context, item int) error {
		if item == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
}

func TestRunSkipsRemainingAfterFailure(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	boom := errors.New("boom")
	var ran atomic.Int32
	err := Run(context.Background(), 1, items, func(ctx context.Context, item int) error {
		ran.Add(1)
		if item == 1 {
			return boom
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if ran.Load() >= int32(len(items)) {
		t.Fatalf("expected drain-and-abort to skip some jobs, but all %d ran", ran.Load())
	}
}

func TestRunWithProgressIncrementsRegardlessOfOutcome(t *testing.T) {
	items := []int{1, 2, 3}
	err := RunWithProgress(context.Background(), 3, items, nil, func(ctx context.Context, item int) error {
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	pb := msg.NewProgressBar(int64(len(items)), 0, io.Discard)
	err = RunWithProgress(context.Background(), 1, items, pb, func(ctx context.Context, item int) error {
		if item == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
	if pb.Current != int64(len(items)) {
		t.Fatalf("expected progress advanced once per job (%d), got %d", len(items), pb.Current)
	}
}
