package approval

// Progress summarizes an approval chain. Revoked requests count only toward Total.
type Progress struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// Summarize computes the progress of a set of requests.
func Summarize(requests []*Request) Progress {
	p := Progress{Total: len(requests)}
	for _, r := range requests {
		switch r.Status {
		case StatusApproved:
			p.Approved++
		case StatusRejected:
			p.Rejected++
		case StatusPending:
			p.Pending++
		}
	}
	return p
}

// AllCompleted returns true if every request is approved or revoked.
// An empty chain is complete.
func AllCompleted(requests []*Request) bool {
	for _, r := range requests {
		if !r.Status.Completes() {
			return false
		}
	}
	return true
}

// HasRejection returns true if any request is rejected.
func HasRejection(requests []*Request) bool {
	for _, r := range requests {
		if r.Status == StatusRejected {
			return true
		}
	}
	return false
}
