package query

import (
	"fmt"

	"github.com/avoskres/wishkeeper/internal/models"
)

// Stats summarizes a full container. OutstandingTotal is the sum of parseable
// prices over pending items, formatted with two decimals; done items and
// unparseable prices contribute nothing.
type Stats struct {
	Total            int    `json:"total"`
	Received         int    `json:"received"`
	Remaining        int    `json:"remaining"`
	OutstandingTotal string `json:"outstandingTotal"`
}

// Aggregate computes Stats over the unfiltered container.
func Aggregate(items []*models.Item) Stats {
	st := Stats{Total: len(items)}
	var sum float64
	for _, it := range items {
		if it.Done {
			st.Received++
			continue
		}
		if it.Price != nil {
			if v, ok := ParsePrice(*it.Price); ok {
				sum += v
			}
		}
	}
	st.Remaining = st.Total - st.Received
	st.OutstandingTotal = fmt.Sprintf("%.2f", sum)
	return st
}
