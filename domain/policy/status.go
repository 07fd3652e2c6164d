package policy

// Status represents the lifecycle state of a policy.
type Status string

const (
	// StatusDraft is the initial state for new policies.
	StatusDraft Status = "DRAFT"

	// StatusInReview indicates the policy is going through its approval chain.
	StatusInReview Status = "IN_REVIEW"

	// StatusApproved indicates every approver signed off.
	StatusApproved Status = "APPROVED"

	// StatusPublished indicates the policy is in force.
	StatusPublished Status = "PUBLISHED"

	// StatusArchived indicates the policy was retired.
	StatusArchived Status = "ARCHIVED"
)

// Trigger names an event that moves a policy between statuses.
type Trigger string

const (
	TriggerSubmit  Trigger = "SUBMIT"
	TriggerReject  Trigger = "REJECT"
	TriggerApprove Trigger = "APPROVE"
	TriggerPublish Trigger = "PUBLISH"
	TriggerArchive Trigger = "ARCHIVE"
)

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusDraft, StatusInReview, StatusApproved, StatusPublished, StatusArchived}
}

// EventTransitions maps each status to the triggers it accepts and where they lead.
//
// REJECT is accepted from every status, archived included, and always lands
// in IN_REVIEW.
var EventTransitions = map[Status]map[Trigger]Status{
	StatusDraft: {
		TriggerSubmit:  StatusInReview,
		TriggerReject:  StatusInReview,
		TriggerArchive: StatusArchived,
	},
	StatusInReview: {
		TriggerApprove: StatusApproved,
		TriggerPublish: StatusPublished,
		TriggerReject:  StatusInReview,
		TriggerArchive: StatusArchived,
	},
	StatusApproved: {
		TriggerPublish: StatusPublished,
		TriggerReject:  StatusInReview,
		TriggerArchive: StatusArchived,
	},
	StatusPublished: {
		TriggerReject:  StatusInReview,
		TriggerArchive: StatusArchived,
	},
	StatusArchived: {
		TriggerReject: StatusInReview,
	},
}

// StatusTransitions defines valid status transitions, derived from EventTransitions.
var StatusTransitions = func() map[Status][]Status {
	out := make(map[Status][]Status, len(EventTransitions))
	for _, from := range AllStatuses() {
		seen := make(map[Status]bool)
		for _, trig := range []Trigger{TriggerSubmit, TriggerApprove, TriggerPublish, TriggerReject, TriggerArchive} {
			to, ok := EventTransitions[from][trig]
			if !ok || seen[to] {
				continue
			}
			seen[to] = true
			out[from] = append(out[from], to)
		}
	}
	return out
}()

// IsValid returns true if s is a known status.
func (s Status) IsValid() bool {
	_, ok := EventTransitions[s]
	return ok
}

// Next returns the status reached by firing trig from s.
func (s Status) Next(trig Trigger) (Status, bool) {
	to, ok := EventTransitions[s][trig]
	return to, ok
}

// Accepts returns true if s has an outgoing transition for trig.
func (s Status) Accepts(trig Trigger) bool {
	_, ok := EventTransitions[s][trig]
	return ok
}

// CanTransitionTo returns true if the transition from current status to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, valid := range StatusTransitions[s] {
		if valid == target {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}
