package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lingofocus/internal/clock"
	"lingofocus/internal/models"
	"lingofocus/internal/session"
	"lingofocus/internal/store"
)

func newStudyFixture(t *testing.T, items int) (*StudyService, *store.Store, *clock.Fake, models.Collection) {
	t.Helper()
	ctx := context.Background()
	st := newTestStore()

	c := models.Collection{Kind: models.KindVocabulary, Category: models.CategoryCustom, Topic: "Kitchen"}
	for i := 0; i < items; i++ {
		c.Items = append(c.Items, models.Item{Prompt: string(rune('가' + i)), Answer: string(rune('a' + i))})
	}
	saved, err := st.SaveCollection(ctx, c)
	if err != nil {
		t.Fatalf("SaveCollection() error = %v", err)
	}
	if _, err := st.SaveSettings(ctx, models.Settings{RevealDelaySeconds: 1, AutoAdvanceDelaySeconds: 1, BatchSize: 2}); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	fake := clock.NewFake(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	svc := NewStudyService(st, nil, zerolog.Nop(), WithClock(fake), WithRand(rand.New(rand.NewSource(1))))
	return svc, st, fake, saved
}

func TestStudySessionRunsToSummary(t *testing.T) {
	svc, st, fake, c := newStudyFixture(t, 3)

	active, err := svc.Start(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if active.State.Total != 2 {
		t.Fatalf("working set = %d cards, want batch size 2", active.State.Total)
	}

	fake.Advance(time.Second)
	sum, _ := svc.Summary()
	if sum.Studied != 1 || sum.Completed {
		t.Errorf("summary after first reveal = %+v", sum)
	}

	fake.Advance(3 * time.Second)
	sum, err = svc.Summary()
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if !sum.Completed || sum.Studied != 2 || len(sum.Cards) != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Duration != 4*time.Second {
		t.Errorf("duration = %v, want 4s", sum.Duration)
	}
	for _, card := range sum.Cards {
		if got := st.GetReviewCount(context.Background(), card.ID); got != 1 || card.ReviewCount != 1 {
			t.Errorf("%s: stored %d, card %d, want 1", card.ID, got, card.ReviewCount)
		}
	}
}

func TestStudyControls(t *testing.T) {
	svc, _, fake, c := newStudyFixture(t, 3)

	if _, err := svc.Control(ActionPause); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Control() without a session error = %v", err)
	}
	if _, err := svc.Current(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Current() without a session error = %v", err)
	}

	svc.Start(context.Background(), c.ID)
	st, err := svc.Control(ActionPause)
	if err != nil || !st.Paused {
		t.Fatalf("pause = %+v, %v", st, err)
	}
	fake.Advance(time.Minute)
	if cur, _ := svc.Current(); cur.State.Revealed {
		t.Error("paused session revealed")
	}

	if _, err := svc.Control("shuffle"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown action error = %v", err)
	}
	if st, _ := svc.Control(ActionNext); st.Index != 1 {
		t.Errorf("index after next = %d", st.Index)
	}
	if st, _ := svc.Control(ActionAbort); st.Phase != session.PhaseAborted {
		t.Errorf("phase after abort = %s", st.Phase)
	}
	if _, err := svc.Control(ActionResume); !errors.Is(err, session.ErrNotRunning) {
		t.Errorf("resume after abort error = %v", err)
	}
}

func TestStartReplacesActiveSession(t *testing.T) {
	svc, st, fake, c := newStudyFixture(t, 2)
	ctx := context.Background()

	svc.Start(ctx, c.ID)
	if _, err := svc.Start(ctx, "seed-opic"); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	fake.Advance(time.Second)

	for _, item := range c.Items {
		if n := st.GetReviewCount(ctx, item.ID); n != 0 {
			t.Errorf("replaced session still counted %s", item.ID)
		}
	}
	if cur, _ := svc.Current(); cur.CollectionID != "seed-opic" {
		t.Errorf("current collection = %s", cur.CollectionID)
	}
}

func TestStartEmptyCollectionCompletes(t *testing.T) {
	svc, _, _, c := newStudyFixture(t, 0)

	active, err := svc.Start(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if active.State.Phase != session.PhaseComplete {
		t.Errorf("phase = %s, want complete", active.State.Phase)
	}
	if sum, _ := svc.Summary(); !sum.Completed || sum.Studied != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestStartUnknownCollection(t *testing.T) {
	svc, _, _, _ := newStudyFixture(t, 1)
	if _, err := svc.Start(context.Background(), "missing"); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("Start() error = %v, want ErrCollectionNotFound", err)
	}
}

func TestUpdateSettingsClamps(t *testing.T) {
	svc, _, _, _ := newStudyFixture(t, 1)
	ctx := context.Background()

	saved, err := svc.UpdateSettings(ctx, models.Settings{RevealDelaySeconds: 99, AutoAdvanceDelaySeconds: 0, BatchSize: 10})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if saved.RevealDelaySeconds != 10 || saved.AutoAdvanceDelaySeconds != 1 {
		t.Errorf("saved = %+v", saved)
	}
	if got := svc.Settings(ctx); got != saved {
		t.Errorf("Settings() = %+v, want %+v", got, saved)
	}
}
