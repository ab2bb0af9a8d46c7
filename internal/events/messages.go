package events

import (
	"encoding/json"
	"time"

	"reimburse/internal/core"
)

// ClaimSubmittedMessage announces a newly stored claim. Receipts travel by
// reference only; consumers never read the claim store through this message.
type ClaimSubmittedMessage struct {
	ClaimID   string        `json:"claimId"`
	Title     string        `json:"title"`
	Type      string        `json:"type"`
	Amount    string        `json:"amount,omitempty"`
	Rupiah    int64         `json:"rupiah,omitempty"`
	Date      string        `json:"date"`
	Status    core.Status   `json:"status"`
	CreatedAt string        `json:"createdAt"`
	Receipts  []ReceiptInfo `json:"receipts,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type ReceiptInfo struct {
	Name     string              `json:"name"`
	Amount   string              `json:"amount"`
	Kind     core.AttachmentKind `json:"kind"`
	Location string              `json:"location,omitempty"`
}

func NewClaimSubmittedMessage(c core.Claim, attachments []core.Attachment) *ClaimSubmittedMessage {
	msg := &ClaimSubmittedMessage{
		ClaimID:   c.ID,
		Title:     c.Title,
		Type:      c.Type,
		Amount:    c.Amount,
		Date:      c.Date,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		Timestamp: time.Now().UTC(),
	}
	if v, err := core.ParseAmount(c.Amount); err == nil {
		msg.Rupiah = v
	}
	for _, a := range attachments {
		msg.Receipts = append(msg.Receipts, ReceiptInfo{
			Name:     a.Name,
			Amount:   a.Amount,
			Kind:     a.Kind,
			Location: a.ImageLocation,
		})
	}
	return msg
}

func (m *ClaimSubmittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ClaimSubmittedMessageFromJSON(data []byte) (*ClaimSubmittedMessage, error) {
	var msg ClaimSubmittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
