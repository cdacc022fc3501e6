// Package community defines the community registration record.
package community

import (
	"fmt"
	"strings"
	"time"
)

// Community is the user-authored registration record. Exactly one record is
// current per deployment slot; registering again replaces it wholesale.
type Community struct {
	CommunityID   string    `json:"communityId"`
	Name          string    `json:"name"`
	Rules         string    `json:"rules"`
	WalletAddress string    `json:"walletAddress"`
	UniqueLink    string    `json:"uniqueLink"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Validate checks the required registration fields. The wallet address is
// deliberately optional: an unresolved wallet never blocks registration.
func (c Community) Validate() error {
	if strings.TrimSpace(c.CommunityID) == "" {
		return fmt.Errorf("communityId is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(c.Rules) == "" {
		return fmt.Errorf("rules is required")
	}
	return nil
}

// BuildLink derives the shareable community link from the public origin, the
// community ID, and the submit-time millisecond timestamp. The timestamp is
// taken at submit time, not derived from content, so two submits of the same
// community yield distinct links.
func BuildLink(origin, communityID string, at time.Time) string {
	return fmt.Sprintf("%s/community/%s-%d", strings.TrimRight(origin, "/"), communityID, at.UnixMilli())
}
