package txtracker

import (
	"net/url"
	"time"

	"github.com/gabapcia/txtracker/internal/txstore"
)

// GenericFailureReason is shown for failed transactions whose reason is unknown.
const GenericFailureReason = "transaction failed"

// TrayItem is the display view of a tracked transaction.
type TrayItem struct {
	ID           string         `json:"id"`
	Description  string         `json:"description"`
	Status       txstore.Status `json:"status"`
	Hash         string         `json:"hash,omitempty"`
	ExternalLink string         `json:"externalLink,omitempty"`
	FailedReason string         `json:"failedReason,omitempty"`
	ShowIfClosed bool           `json:"showIfClosed"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Reason returns the failure reason to display, falling back to a generic
// message when the item failed for an unknown reason.
func (i TrayItem) Reason() string {
	if i.Status != txstore.StatusFailed {
		return ""
	}
	if i.FailedReason == "" {
		return GenericFailureReason
	}
	return i.FailedReason
}

// List returns every tracked transaction, most recently updated first.
func (s *service) List() []TrayItem {
	records := s.store.Records()

	items := make([]TrayItem, 0, len(records))
	for _, r := range records {
		items = append(items, TrayItem{
			ID:           r.ID,
			Description:  r.Description,
			Status:       r.Status,
			Hash:         r.Hash,
			ExternalLink: s.externalLink(r.Hash),
			FailedReason: r.FailedReason,
			ShowIfClosed: r.ShowIfClosed,
			UpdatedAt:    r.UpdatedAt,
		})
	}

	return items
}

// externalLink points to the block explorer page of hash.
func (s *service) externalLink(hash string) string {
	if hash == "" || s.explorerURL == "" {
		return ""
	}

	link, err := url.JoinPath(s.explorerURL, "tx", hash)
	if err != nil {
		return ""
	}
	return link
}
