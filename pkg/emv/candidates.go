package emv

import (
	"fmt"
	"sort"

	"github.com/gregLibert/paycard/pkg/bits"
)

// Candidate is an application offered by the PPSE.
type Candidate struct {
	AID   []byte
	Label string
	// Priority is 1 (highest) to 15; 0 means no priority given.
	Priority int
	// Order is the position of the entry in the PPSE answer.
	Order int
}

func (c Candidate) String() string {
	return fmt.Sprintf("%X %q (priority %d)", c.AID, c.Label, c.Priority)
}

// Candidates lists the PPSE entries that carry an AID, highest priority
// first. Entries without a priority come last; ties keep discovery order.
func Candidates(ppse *FCI) []Candidate {
	var out []Candidate
	for _, app := range ppse.Applications() {
		if len(app.AID) == 0 {
			continue
		}
		out = append(out, Candidate{
			AID:      app.AID,
			Label:    string(app.ApplicationLabel),
			Priority: priority(app.ApplicationPriorityIndicator),
			Order:    len(out),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Priority) < rank(out[j].Priority)
	})
	return out
}

// priority reads bits 4-1 of the Application Priority Indicator.
func priority(api []byte) int {
	if len(api) == 0 {
		return 0
	}
	return int(bits.GetRange(api[0], 4, 1))
}

func rank(p int) int {
	if p == 0 {
		return 16
	}
	return p
}
