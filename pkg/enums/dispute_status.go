package enums

// DisputeStatus mirrors the processor's dispute lifecycle for an order.
type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusWon         DisputeStatus = "won"
	DisputeStatusLost        DisputeStatus = "lost"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusUnderReview, DisputeStatusWon, DisputeStatusLost:
		return true
	}
	return false
}
