package temporal

const (
	RefreshClaimSignalName = "refreshClaim"
	TrackingStateQueryName = "trackingState"
)

// RefreshClaimSignal wakes a tracking workflow before its poll timer fires.
type RefreshClaimSignal struct {
	RequestedBy string `json:"requested_by,omitempty"`
}
