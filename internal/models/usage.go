package models

// UsageSnapshot is replaced wholesale on every refresh; the zero value is the
// default shown before the first successful fetch.
type UsageSnapshot struct {
	ConversionsToday     int     `json:"conversions_today"`
	ConversionsTotal     int     `json:"conversions_total"`
	StorageUsedMegabytes float64 `json:"storage_used_mb"`
}
