package domain

// Event names published on the subscriber channel. The broadcast cycle
// emits them in the order listed here, overall counts first.
const (
	EventTotalCount         = "total-count-update"
	EventCommentCounts      = "comment-counts-update"
	EventNormalCount        = "normal-count-update"
	EventIndustrialistCount = "industrialist-count-update"
	EventWeightedTotal      = "weighted-total-count-update"
)

// ActionRefresh is the subscriber-initiated request for an immediate
// out-of-cycle push of the overall breakdown.
const ActionRefresh = "refresh-sentiment-data"

// AllEvents lists every published event name, in emission order.
func AllEvents() []string {
	return []string{
		EventTotalCount,
		EventCommentCounts,
		EventNormalCount,
		EventIndustrialistCount,
		EventWeightedTotal,
	}
}
