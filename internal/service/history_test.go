package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/repository"
)

func TestHistoryService_RecordAndRecent(t *testing.T) {
	repo := repository.NewMockHistoryRepository()
	svc := NewHistoryService(repo, zap.NewNop())

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	ctx := context.Background()
	svc.RecordAnalysis(ctx, 1, "m", "text", &domain.AnalysisResult{E: 0.7, Summary: "s"})
	svc.RecordRefinement(ctx, 1, "m", "orig", "improved")
	svc.RecordRefinement(ctx, 2, "m", "other", "user")

	entries, err := svc.Recent(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Kind != domain.KindRefinement || entries[0].Output != "improved" {
		t.Errorf("entries[0] = %+v, want newest refinement first", entries[0])
	}
	if entries[1].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("entries must get unique IDs")
	}

	res, err := entries[1].Analysis()
	if err != nil {
		t.Fatalf("Analysis() error = %v", err)
	}
	if res.E != 0.7 || res.Summary != "s" {
		t.Errorf("decoded analysis = %+v", res)
	}
}

func TestHistoryService_Disabled(t *testing.T) {
	svc := NewHistoryService(nil, zap.NewNop())
	ctx := context.Background()

	svc.RecordAnalysis(ctx, 1, "m", "t", &domain.AnalysisResult{})
	svc.RecordRefinement(ctx, 1, "m", "a", "b")

	if svc.Enabled() {
		t.Error("Enabled() = true, want false")
	}
	if _, err := svc.Recent(ctx, 1, 5); !errors.Is(err, domain.ErrHistoryDisabled) {
		t.Errorf("Recent() error = %v, want ErrHistoryDisabled", err)
	}

	var nilSvc *HistoryService
	if nilSvc.Enabled() {
		t.Error("nil service must be disabled")
	}
}

func TestHistoryService_SaveErrorIsSwallowed(t *testing.T) {
	repo := repository.NewMockHistoryRepository()
	repo.SaveErr = errors.New("db down")
	svc := NewHistoryService(repo, zap.NewNop())

	svc.RecordRefinement(context.Background(), 1, "m", "a", "b")

	if repo.Count() != 0 {
		t.Errorf("Count() = %d, want 0", repo.Count())
	}
}

func TestHistoryService_Clear(t *testing.T) {
	repo := repository.NewMockHistoryRepository()
	svc := NewHistoryService(repo, zap.NewNop())
	ctx := context.Background()

	svc.RecordRefinement(ctx, 1, "m", "a", "b")
	svc.RecordRefinement(ctx, 1, "m", "c", "d")
	svc.RecordRefinement(ctx, 2, "m", "e", "f")

	n, err := svc.Clear(ctx, 1)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if repo.Count() != 1 {
		t.Errorf("Count() = %d, want 1", repo.Count())
	}
}
