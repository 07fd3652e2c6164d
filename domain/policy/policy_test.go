package policy_test

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/policykeeper/domain/fault"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

func TestNew(t *testing.T) {
	t.Parallel()

	p := policy.New("  Travel policy ")
	if p.ID == "" {
		t.Error("expected generated ID")
	}
	if p.Title != "Travel policy" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Status != policy.StatusDraft {
		t.Errorf("Status = %s, want DRAFT", p.Status)
	}
	if p.Version != policy.InitialVersionLabel || p.VersionNumber != 1 {
		t.Errorf("version = %s/%d", p.Version, p.VersionNumber)
	}
	if p.IsDeleted() {
		t.Error("new policy should not be deleted")
	}
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*policy.Policy)
		want   error
	}{
		{"valid", func(*policy.Policy) {}, nil},
		{"empty id", func(p *policy.Policy) { p.ID = "" }, policy.ErrInvalidPolicyID},
		{"bad status", func(p *policy.Policy) { p.Status = "LIVE" }, policy.ErrInvalidStatus},
		{"zero version", func(p *policy.Policy) { p.VersionNumber = 0 }, policy.ErrInvalidVersionPointer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := policy.New("x")
			tt.mutate(p)
			err := p.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
			if tt.want != nil && !errors.Is(err, fault.ErrInvalidInput) {
				t.Error("validation errors should be invalid input")
			}
		})
	}
}

func TestPolicy_Clone(t *testing.T) {
	t.Parallel()

	now := time.Now()
	p := policy.New("x")
	p.DeletedAt = &now

	c := p.Clone()
	c.Status = policy.StatusArchived
	*c.DeletedAt = now.Add(time.Hour)

	if p.Status != policy.StatusDraft {
		t.Error("clone shares status")
	}
	if !p.DeletedAt.Equal(now) {
		t.Error("clone shares DeletedAt")
	}
}
