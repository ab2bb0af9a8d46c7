package core

// DefaultClaims returns a fresh copy of the built-in sample collection used
// to seed an empty store.
func DefaultClaims() []Claim {
	return []Claim{
		{
			ID:        "1",
			Title:     "Transportasi Meeting Client",
			Amount:    "Rp 150.000",
			Date:      "15 Jan 2024",
			Status:    StatusApproved,
			Type:      CategoryTransport,
			Detail:    "Biaya transportasi untuk meeting dengan client di Jakarta",
			CreatedAt: "2024-01-15T10:00:00.000Z",
		},
		{
			ID:        "2",
			Title:     "Makan Siang Tim",
			Amount:    "Rp 300.000",
			Date:      "14 Jan 2024",
			Status:    StatusPending,
			Type:      CategoryMeals,
			Detail:    "Makan siang bersama tim untuk diskusi project",
			CreatedAt: "2024-01-14T12:00:00.000Z",
		},
		{
			ID:        "3",
			Title:     "Hotel Business Trip",
			Amount:    "Rp 800.000",
			Date:      "12 Jan 2024",
			Status:    StatusApproved,
			Type:      CategoryAccommodation,
			Detail:    "Menginap di hotel untuk business trip ke Surabaya",
			CreatedAt: "2024-01-12T15:00:00.000Z",
		},
		{
			ID:        "4",
			Title:     "Pulsa Internet",
			Amount:    "Rp 50.000",
			Date:      "10 Jan 2024",
			Status:    StatusRejected,
			Type:      CategoryCommunication,
			Detail:    "Pembelian pulsa internet untuk keperluan kerja",
			CreatedAt: "2024-01-10T09:00:00.000Z",
		},
	}
}

// ApprovalStep is one entry of the sample approval chain shown on the form.
type ApprovalStep struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
	Date   string `json:"date,omitempty"`
}

// SampleApprovalChain is inert display data; no workflow reads or advances it.
func SampleApprovalChain() []ApprovalStep {
	return []ApprovalStep{
		{ID: "1", Name: "Yokevin Mayer Van Persie", Role: "Big Boss", Status: "approved", Date: "Mon, 1 Jan 2024"},
		{ID: "2", Name: "Francino Gigi Satrio", Role: "Medium Boss", Status: "waiting"},
	}
}
