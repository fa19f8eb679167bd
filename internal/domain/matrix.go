package domain

// Sentinel costs standing in for "no route exists". The matrix stays total:
// downstream optimization treats these edges as prohibitively expensive
// instead of failing on missing data.
const (
	SentinelMinutes = 1_000_000
	SentinelMeters  = 1_000_000_000
)

// Square pairwise travel-time and travel-distance matrices, indexed by stop
// position. IDs defines the indexing. Minutes[i][i] is always zero and every
// entry is a non-negative integer.
type TravelMatrix struct {
	IDs     []string `json:"ids"`
	Minutes [][]int  `json:"minutes"`
	Meters  [][]int  `json:"meters"`
}

// Dim returns the number of stops the matrix covers.
func (m *TravelMatrix) Dim() int { return len(m.IDs) }
