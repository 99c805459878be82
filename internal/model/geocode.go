package model

// Geocode matcher tiers, tried in order by the service.
const (
	TierFull      = "full"
	TierShort     = "short"
	TierPlacename = "placename"
)

// GeocodeResult is the service's answer for one address query. X and Y are
// nil when no matcher cleared the confidence threshold.
type GeocodeResult struct {
	X        *float64
	Y        *float64
	Score    float64
	Tier     string
	Address  string // matched address as resolved by the service
	Resolved bool
}
