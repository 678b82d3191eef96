package domain

import "time"

// User aggregates everything persisted for one chat account. The tracking
// slice keeps insertion order; that order is the order items are reconciled in.
type User struct {
	ChatID              int64         `json:"chatId"`
	Name                string        `json:"name"`
	Tracking            []TrackedItem `json:"tracking"`
	TotalRefundsClaimed int64         `json:"totalRefundsClaimed"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// Normalize cleans up a user record loaded from external storage. Store
// documents may predate fields added later, so missing optionals are
// tolerated; records that fail Validate are dropped instead of reaching the
// tracker or the claim path. The tracking slice is never nil after
// normalization.
func (u *User) Normalize() {
	kept := u.Tracking[:0]
	for i := range u.Tracking {
		u.Tracking[i].normalize()
		if u.Tracking[i].Validate() != nil {
			continue
		}
		kept = append(kept, u.Tracking[i])
	}
	if kept == nil {
		kept = []TrackedItem{}
	}
	u.Tracking = kept
}

// FindItem returns a pointer into the tracking slice for the item with the
// given id, or nil when absent.
func (u *User) FindItem(itemID int64) *TrackedItem {
	for i := range u.Tracking {
		if u.Tracking[i].ID == itemID {
			return &u.Tracking[i]
		}
	}
	return nil
}
