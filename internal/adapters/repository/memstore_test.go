package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"
)

func fp(v float64) *float64 { return &v }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("p%d", n)
	}
}

func TestMemoryStore_Participants(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithIDGenerator(sequentialIDs()), WithClock(func() time.Time { return fixed }))

	list, err := store.ListParticipants(ctx, "piyade")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty roster, got %d", len(list))
	}

	a, err := store.AddParticipant(ctx, "piyade", "  Ahmet   Yılmaz ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "p1" || a.Name != "Ahmet Yılmaz" {
		t.Errorf("unexpected participant %+v", a)
	}
	if !a.CreatedAt.Equal(fixed) {
		t.Errorf("expected created at %v, got %v", fixed, a.CreatedAt)
	}

	if _, err := store.AddParticipant(ctx, "piyade", "   "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}

	m, _ := store.AddParticipant(ctx, "piyade", "Mehmet")
	_, _ = store.AddParticipant(ctx, "keskin", "Zeki")

	list, _ = store.ListParticipants(ctx, "piyade")
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != m.ID {
		t.Errorf("expected creation order [p1 p2], got %+v", list)
	}

	renamed, err := store.RenameParticipant(ctx, "piyade", m.ID, "Mehmet Kaya")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if renamed.Name != "Mehmet Kaya" {
		t.Errorf("expected renamed participant, got %q", renamed.Name)
	}
	if _, err := store.RenameParticipant(ctx, "keskin", m.ID, "X"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound across modes, got %v", err)
	}

	// Mutating a returned slice must not leak into the store.
	list, _ = store.ListParticipants(ctx, "piyade")
	list[0].Name = "changed"
	again, _ := store.ListParticipants(ctx, "piyade")
	if again[0].Name != "Ahmet Yılmaz" {
		t.Errorf("store returned aliased data")
	}
}

func TestMemoryStore_Measurements(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithIDGenerator(sequentialIDs()))
	a, _ := store.AddParticipant(ctx, "piyade", "Ahmet")
	m, _ := store.AddParticipant(ctx, "piyade", "Mehmet")

	if err := store.SetMeasurement(ctx, "piyade", a.ID, "atis", fp(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SetMeasurement(ctx, "piyade", a.ID, "atis", fp(4.5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SetMeasurement(ctx, "piyade", m.ID, "kuvvet", fp(42)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SetMeasurement(ctx, "piyade", a.ID, "aerobik", fp(600)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := store.ListMeasurements(ctx, "piyade")
	if len(got) != 3 {
		t.Fatalf("expected 3 measurements, got %d", len(got))
	}
	if got[0].ParticipantID != a.ID || got[0].StageID != "aerobik" {
		t.Errorf("expected first measurement ahmet/aerobik, got %+v", got[0])
	}
	if got[1].StageID != "atis" || *got[1].Value != 4.5 {
		t.Errorf("expected upserted atis value 4.5, got %+v", got[1])
	}
	if got[2].ParticipantID != m.ID {
		t.Errorf("expected mehmet last, got %+v", got[2])
	}

	// nil clears the value
	if err := store.SetMeasurement(ctx, "piyade", a.ID, "atis", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = store.ListMeasurements(ctx, "piyade")
	if len(got) != 2 {
		t.Errorf("expected 2 measurements after clearing, got %d", len(got))
	}

	if err := store.SetMeasurement(ctx, "piyade", "ghost", "atis", fp(1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		if err := store.SetMeasurement(ctx, "piyade", a.ID, "atis", fp(bad)); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("expected ErrInvalidValue for %v, got %v", bad, err)
		}
	}

	if err := store.ClearMeasurements(ctx, "piyade", a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = store.ListMeasurements(ctx, "piyade")
	if len(got) != 1 || got[0].ParticipantID != m.ID {
		t.Errorf("expected only mehmet's measurement left, got %+v", got)
	}

	if err := store.RemoveParticipant(ctx, "piyade", m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = store.ListMeasurements(ctx, "piyade")
	if len(got) != 0 {
		t.Errorf("expected removal to cascade, got %+v", got)
	}
	if err := store.RemoveParticipant(ctx, "piyade", m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second removal, got %v", err)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.ListParticipants(ctx, "piyade"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := store.AddParticipant(ctx, "piyade", "Ahmet"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()
	if _, err := store.ListMeasurements(ctx, "piyade"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const writers = 20
	ids := make([]string, writers)
	for i := range ids {
		p, err := store.AddParticipant(ctx, "keskin", fmt.Sprintf("Katılımcı %d", i))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids[i] = p.ID
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = store.SetMeasurement(ctx, "keskin", id, "kuvvet", fp(float64(i*100+j)))
				_, _ = store.ListMeasurements(ctx, "keskin")
			}
		}(i, id)
	}
	wg.Wait()

	got, _ := store.ListMeasurements(ctx, "keskin")
	if len(got) != writers {
		t.Fatalf("expected %d measurements, got %d", writers, len(got))
	}
	for i, m := range got {
		if *m.Value != float64(i*100+49) {
			t.Errorf("expected last write to win for %s, got %v", m.ParticipantID, *m.Value)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Ahmet":              "Ahmet",
		"  Ayşe  Nur   Kaya ": "Ayşe Nur Kaya",
		"\tÇağrı\n":          "Çağrı",
	}
	for in, want := range cases {
		got, err := NormalizeName(in)
		if err != nil || got != want {
			t.Errorf("NormalizeName(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizeName(" \t "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}
