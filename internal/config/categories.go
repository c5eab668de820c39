package config

const (
	CategoryInformation = "🕯️ Information"
	CategoryMusic       = "🎵 Music"
	CategoryCleanup     = "🧹 Cleanup"
	CategoryMaintenance = "🛠️ Maintenance"
)

// CategoryWeights orders categories in the help listing, lightest first.
var CategoryWeights = map[string]int{
	CategoryInformation: 0,
	CategoryMusic:       39,
	CategoryCleanup:     45,
	CategoryMaintenance: 60,
}
