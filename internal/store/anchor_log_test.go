package store

import (
	"testing"
	"time"
)

func TestAnchorLog_AppendAndRecent(t *testing.T) {
	s := newTestStore(t)
	log := s.AnchorLog()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []AnchorEvent{
		{Kind: "anchor_requested", EntityID: "e1", Artwork: "starry-night", CreatedAt: base},
		{Kind: "anchored", EntityID: "e1", Artwork: "starry-night", AnchorID: "a1", CreatedAt: base.Add(time.Second)},
		{Kind: "anchor_requested", EntityID: "e2", Artwork: "mona-lisa", CreatedAt: base.Add(2 * time.Second)},
		{Kind: "anchor_failed", EntityID: "e2", Artwork: "mona-lisa", Error: "no features", CreatedAt: base.Add(3 * time.Second)},
	}
	for i := range events {
		if err := log.Append(&events[i]); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if events[i].ID == 0 {
			t.Error("Append() should set the ID")
		}
	}

	all, err := log.Recent("", 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len(Recent()) = %d, want 4", len(all))
	}
	if all[0].Kind != "anchor_failed" || all[0].Error != "no features" {
		t.Errorf("newest event = %+v", all[0])
	}

	mona, err := log.Recent("mona-lisa", 1)
	if err != nil {
		t.Fatalf("Recent(mona-lisa) error = %v", err)
	}
	if len(mona) != 1 || mona[0].Artwork != "mona-lisa" {
		t.Errorf("Recent(mona-lisa, 1) = %+v", mona)
	}
}

func TestAnchorLog_Stats(t *testing.T) {
	s := newTestStore(t)
	log := s.AnchorLog()

	for _, kind := range []string{"anchor_requested", "anchored", "anchor_requested", "anchor_discarded"} {
		if err := log.Append(&AnchorEvent{Kind: kind, EntityID: "e1", Artwork: "starry-night"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := log.Append(&AnchorEvent{Kind: "anchor_failed", EntityID: "e2", Artwork: "mona-lisa"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	stats, err := log.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := []AnchorStats{
		{Artwork: "mona-lisa", Failed: 1},
		{Artwork: "starry-night", Requested: 2, Anchored: 1, Discarded: 1},
	}
	if len(stats) != len(want) {
		t.Fatalf("len(Stats()) = %d, want %d", len(stats), len(want))
	}
	for i := range want {
		if stats[i] != want[i] {
			t.Errorf("Stats()[%d] = %+v, want %+v", i, stats[i], want[i])
		}
	}
}

func TestAnchorLog_Prune(t *testing.T) {
	s := newTestStore(t)
	log := s.AnchorLog()

	now := time.Now()
	old := &AnchorEvent{Kind: "anchored", EntityID: "e1", CreatedAt: now.Add(-48 * time.Hour)}
	fresh := &AnchorEvent{Kind: "anchored", EntityID: "e2", CreatedAt: now}
	for _, e := range []*AnchorEvent{old, fresh} {
		if err := log.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	n, err := log.Prune(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d, want 1", n)
	}

	left, err := log.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(left) != 1 || left[0].EntityID != "e2" {
		t.Errorf("remaining events = %+v", left)
	}
}
