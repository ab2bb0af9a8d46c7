package presenter

import "reimburse/internal/core"

const (
	colorApproved = "#27ae60"
	colorPending  = "#f39c12"
	colorRejected = "#e74c3c"
	colorUnknown  = "#95a5a6"

	iconFallback = "document-outline"
)

var typeIcons = map[string]string{
	core.CategoryTransport:     "car-outline",
	core.CategoryMeals:         "restaurant-outline",
	core.CategoryAccommodation: "bed-outline",
	core.CategoryCommunication: "call-outline",
}

// StatusColor returns the badge color for a status.
func StatusColor(s core.Status) string {
	switch s {
	case core.StatusApproved:
		return colorApproved
	case core.StatusPending:
		return colorPending
	case core.StatusRejected:
		return colorRejected
	default:
		return colorUnknown
	}
}

// StatusLabel returns the user-facing status text.
func StatusLabel(s core.Status) string {
	switch s {
	case core.StatusApproved:
		return "Disetujui"
	case core.StatusPending:
		return "Menunggu"
	case core.StatusRejected:
		return "Ditolak"
	default:
		return "Unknown"
	}
}

// TypeIcon returns the list icon for a claim category.
func TypeIcon(category string) string {
	if icon, ok := typeIcons[category]; ok {
		return icon
	}
	return iconFallback
}
