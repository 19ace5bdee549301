// Package storetest checks that a store.Store implementation honours the
// result store contract.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/fairhire/internal/model"
	"github.com/nao1215/fairhire/internal/store"
)

// Factory creates a fresh, empty store for one subtest. advance moves the
// store's notion of time forward so expiry can be tested.
type Factory func(t *testing.T) (s store.Store, advance func(time.Duration))

// CompleteRecord returns a complete record with one finding.
func CompleteRecord(id string) *model.AuditRecord {
	rec := model.NewAuditRecord(model.RecordParams{
		DatasetLocation:     "hiring.csv",
		ProtectedAttributes: []string{"gender"},
		PrivilegedGroups:    []model.Group{{"gender": 1}},
		UnprivilegedGroups:  []model.Group{{"gender": 0}},
		LabelColumn:         "hired",
		CreatedAt:           time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
	})
	rec.ID = id
	rec.Findings = []model.Finding{{
		Type:     "Data Bias",
		IsBiased: true,
		Summary:  "Statistical Parity: -0.5000, Disparate Impact: 0.3333, Bias: YES",
		Metrics:  map[string]float64{"statistical_parity_difference": -0.5},
	}}
	rec.Steps = []model.StepResult{
		{Name: "data_bias", Outcome: model.OutcomeRan},
		{Name: "model_bias", Outcome: model.OutcomeSkipped, Reason: "no model"},
	}
	rec.Report = "# FairHire Audit Report"
	rec.Status = model.StatusComplete
	return rec
}

// Run exercises the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		s, _ := newStore(t)
		rec := CompleteRecord("a1")

		if err := s.Save(ctx, "a1", rec, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, found, err := s.Recall(ctx, "a1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !found {
			t.Fatal("expected record to be found")
		}
		if !reflect.DeepEqual(got, rec) {
			t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, rec)
		}
	})

	t.Run("absent id", func(t *testing.T) {
		s, _ := newStore(t)

		got, found, err := s.Recall(ctx, "never-written")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found || got != nil {
			t.Errorf("expected absence, got found=%v rec=%v", found, got)
		}
	})

	t.Run("overwrite replaces value", func(t *testing.T) {
		s, _ := newStore(t)

		first := CompleteRecord("a1")
		second := CompleteRecord("a1")
		second.Report = "# second"

		if err := s.Save(ctx, "a1", first, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Save(ctx, "a1", second, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, found, err := s.Recall(ctx, "a1")
		if err != nil || !found {
			t.Fatalf("expected record, got found=%v err=%v", found, err)
		}
		if got.Report != "# second" {
			t.Errorf("expected second value, got %q", got.Report)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		s, advance := newStore(t)

		if err := s.Save(ctx, "a1", CompleteRecord("a1"), time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		advance(30 * time.Minute)
		if _, found, _ := s.Recall(ctx, "a1"); !found {
			t.Fatal("expected record before expiry")
		}

		advance(31 * time.Minute)
		got, found, err := s.Recall(ctx, "a1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found || got != nil {
			t.Error("expected record to be absent after expiry")
		}
		ids, err := s.ListIDs(ctx, store.Namespace)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("expected no ids after expiry, got %v", ids)
		}
	})

	t.Run("overwrite restarts ttl", func(t *testing.T) {
		s, advance := newStore(t)

		if err := s.Save(ctx, "a1", CompleteRecord("a1"), time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		advance(50 * time.Minute)
		if err := s.Save(ctx, "a1", CompleteRecord("a1"), time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		advance(50 * time.Minute)

		if _, found, _ := s.Recall(ctx, "a1"); !found {
			t.Error("expected record to live on after the second save")
		}
	})

	t.Run("list ids strips namespace", func(t *testing.T) {
		s, _ := newStore(t)

		for _, id := range []string{"a1", "a2", "b1"} {
			if err := s.Save(ctx, id, CompleteRecord(id), 0); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		all, err := s.ListIDs(ctx, store.Namespace)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		slices.Sort(all)
		if !slices.Equal(all, []string{"a1", "a2", "b1"}) {
			t.Errorf("expected [a1 a2 b1], got %v", all)
		}

		for _, prefix := range []string{store.Namespace + "a", "a"} {
			got, err := s.ListIDs(ctx, prefix)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			slices.Sort(got)
			if !slices.Equal(got, []string{"a1", "a2"}) {
				t.Errorf("prefix %q: expected [a1 a2], got %v", prefix, got)
			}
		}
	})

	t.Run("rejects incomplete records", func(t *testing.T) {
		s, _ := newStore(t)

		rec := CompleteRecord("a1")
		rec.Status = model.StatusExplainerComplete

		err := s.Save(ctx, "a1", rec, 0)
		if !errors.Is(err, store.ErrIncompleteRecord) {
			t.Errorf("expected ErrIncompleteRecord, got %v", err)
		}
		if _, found, _ := s.Recall(ctx, "a1"); found {
			t.Error("expected nothing to be stored")
		}
	})

	t.Run("delete", func(t *testing.T) {
		s, _ := newStore(t)

		if err := s.Save(ctx, "a1", CompleteRecord("a1"), 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ok, err := s.Delete(ctx, "a1")
		if err != nil || !ok {
			t.Fatalf("expected delete to succeed, got ok=%v err=%v", ok, err)
		}
		if _, found, _ := s.Recall(ctx, "a1"); found {
			t.Error("expected record to be gone")
		}

		ok, err = s.Delete(ctx, "a1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected second delete to report absence")
		}
	})

	t.Run("empty id", func(t *testing.T) {
		s, _ := newStore(t)

		if err := s.Save(ctx, "", CompleteRecord(""), 0); !errors.Is(err, store.ErrEmptyID) {
			t.Errorf("expected ErrEmptyID from Save, got %v", err)
		}
		if _, _, err := s.Recall(ctx, ""); !errors.Is(err, store.ErrEmptyID) {
			t.Errorf("expected ErrEmptyID from Recall, got %v", err)
		}
	})
}
