// Package geocode completes missing incident coordinates through a tiered
// address-matching service.
package geocode

import (
	"strings"

	"github.com/opencitydata/crimepipe/internal/model"
)

// BuildQuery constructs the normalized address string sent to the geocoding
// service for one record: the house-number and street fragments joined,
// intersection markers replaced with "at", and the placeholder "0"
// house-number token dropped.
func BuildQuery(rec model.Incident) string {
	raw := strings.TrimSpace(rec.AddressNum + " " + rec.Street)
	raw = strings.ReplaceAll(raw, "/", " at ")
	raw = strings.ReplaceAll(raw, "@", " at ")

	tokens := strings.Fields(raw)
	if len(tokens) > 0 && tokens[0] == "0" {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}
