package executor

import "sort"

type stats struct {
	batches         int
	succeeded       int
	failed          int
	autoCorrections int
	failureCodes    map[string]int
	mismatches      map[[2]int]int
}

func (s *stats) countFailure(code string) {
	if s.failureCodes == nil {
		s.failureCodes = map[string]int{}
	}
	s.failureCodes[code]++
}

func (s *stats) countCorrection(requested, maxAvailable int) {
	s.autoCorrections++
	if s.mismatches == nil {
		s.mismatches = map[[2]int]int{}
	}
	s.mismatches[[2]int{requested, maxAvailable}]++
}

// Mismatch is one observed "requested id vs. max available id" pattern.
type Mismatch struct {
	Requested    int `json:"requested"`
	MaxAvailable int `json:"max_available"`
	Count        int `json:"count"`
}

// Report summarizes a session for offline quality monitoring of the
// upstream model's index generation.
type Report struct {
	Batches         int            `json:"batches"`
	Succeeded       int            `json:"succeeded"`
	Failed          int            `json:"failed"`
	AutoCorrections int            `json:"auto_corrections"`
	FailureCodes    map[string]int `json:"failure_codes,omitempty"`
	Mismatches      []Mismatch     `json:"mismatches,omitempty"`
}

// Report snapshots the session's counters. Mismatch patterns come back most
// frequent first.
func (e *Executor) Report() Report {
	r := Report{
		Batches:         e.stats.batches,
		Succeeded:       e.stats.succeeded,
		Failed:          e.stats.failed,
		AutoCorrections: e.stats.autoCorrections,
	}
	if len(e.stats.failureCodes) > 0 {
		r.FailureCodes = make(map[string]int, len(e.stats.failureCodes))
		for code, n := range e.stats.failureCodes {
			r.FailureCodes[code] = n
		}
	}
	for key, n := range e.stats.mismatches {
		r.Mismatches = append(r.Mismatches, Mismatch{Requested: key[0], MaxAvailable: key[1], Count: n})
	}
	sort.Slice(r.Mismatches, func(i, j int) bool {
		a, b := r.Mismatches[i], r.Mismatches[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Requested != b.Requested {
			return a.Requested < b.Requested
		}
		return a.MaxAvailable < b.MaxAvailable
	})
	return r
}
