package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/infrastructure/storage/memory"
)

func TestPolicyStore_SaveAndFind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPolicyStore()
	p := policy.New("Expenses")

	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, p); !errors.Is(err, policy.ErrPolicyExists) {
		t.Errorf("second Save() = %v, want ErrPolicyExists", err)
	}

	got, err := store.FindByID(ctx, p.ID, policy.FindOptions{})
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Title != "Expenses" || got.Status != policy.StatusDraft {
		t.Errorf("FindByID() = %+v", got)
	}

	got.Title = "mutated"
	again, _ := store.FindByID(ctx, p.ID, policy.FindOptions{})
	if again.Title != "Expenses" {
		t.Error("store returned a shared pointer")
	}

	if _, err := store.FindByID(ctx, "missing", policy.FindOptions{}); !errors.Is(err, policy.ErrPolicyNotFound) {
		t.Errorf("FindByID(missing) = %v", err)
	}
}

func TestPolicyStore_SoftDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPolicyStore()
	p := policy.New("Retention")
	_ = store.Save(ctx, p)

	if err := store.SoftDelete(ctx, p.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	if _, err := store.FindByID(ctx, p.ID, policy.FindOptions{}); !errors.Is(err, policy.ErrPolicyNotFound) {
		t.Errorf("deleted policy should be hidden, got %v", err)
	}

	got, err := store.FindByID(ctx, p.ID, policy.FindOptions{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("FindByID(IncludeDeleted) error = %v", err)
	}
	if !got.IsDeleted() {
		t.Error("DeletedAt should be set")
	}

	if err := store.UpdateStatus(ctx, p.ID, policy.StatusInReview); !errors.Is(err, policy.ErrPolicyNotFound) {
		t.Errorf("UpdateStatus on deleted policy = %v", err)
	}
	if err := store.SoftDelete(ctx, p.ID); !errors.Is(err, policy.ErrPolicyNotFound) {
		t.Errorf("second SoftDelete() = %v", err)
	}
}

func TestPolicyStore_UpdateStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPolicyStore()
	p := policy.New("Security")
	_ = store.Save(ctx, p)

	if err := store.UpdateStatus(ctx, p.ID, policy.StatusPublished); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got, _ := store.FindByID(ctx, p.ID, policy.FindOptions{})
	if got.Status != policy.StatusPublished {
		t.Errorf("Status = %s", got.Status)
	}
	if got.PublishedAt == nil {
		t.Fatal("PublishedAt should be stamped")
	}
	first := *got.PublishedAt

	_ = store.UpdateStatus(ctx, p.ID, policy.StatusInReview)
	_ = store.UpdateStatus(ctx, p.ID, policy.StatusPublished)
	got, _ = store.FindByID(ctx, p.ID, policy.FindOptions{})
	if !got.PublishedAt.Equal(first) {
		t.Error("PublishedAt should keep the first publication time")
	}

	if err := store.UpdateStatus(ctx, p.ID, "LIVE"); !errors.Is(err, policy.ErrInvalidStatus) {
		t.Errorf("UpdateStatus(LIVE) = %v", err)
	}
}

func TestPolicyStore_SetVersionIsMonotonic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPolicyStore()
	p := policy.New("Access")
	_ = store.Save(ctx, p)

	if err := store.SetVersion(ctx, p.ID, "1.4", 5); err != nil {
		t.Fatalf("SetVersion() error = %v", err)
	}
	if err := store.SetVersion(ctx, p.ID, "1.1", 2); err != nil {
		t.Fatalf("SetVersion(lower) error = %v", err)
	}

	n, err := store.CurrentVersionNumber(ctx, p.ID)
	if err != nil {
		t.Fatalf("CurrentVersionNumber() error = %v", err)
	}
	if n != 5 {
		t.Errorf("CurrentVersionNumber() = %d, want 5", n)
	}
	got, _ := store.FindByID(ctx, p.ID, policy.FindOptions{})
	if got.Version != "1.4" {
		t.Errorf("Version = %s, want 1.4", got.Version)
	}
}
