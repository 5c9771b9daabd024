package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/alpgraphic/alpgraphics-sub003/pkg/account"
)

// Channel marks how a session token travels. Web sessions ride cookies;
// mobile access and refresh tokens are issued as a pair of independent
// rows in the same collection.
type Channel string

const (
	ChannelWeb           Channel = "web"
	ChannelMobile        Channel = "mobile"
	ChannelMobileRefresh Channel = "mobile-refresh"
)

// Session binds an opaque token to an authenticated identity. A row is
// valid iff now < ExpiresAt and, for channels subject to inactivity decay,
// now - LastActivityAt < the inactivity timeout.
type Session struct {
	Token          string       `json:"-"`
	AccountID      uuid.UUID    `json:"account_id"`
	Email          string       `json:"email,omitempty"`
	Role           account.Role `json:"role"`
	Channel        Channel      `json:"channel"`
	IPAddress      string       `json:"ip_address,omitempty"`
	UserAgent      string       `json:"user_agent,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
}

// SubjectToInactivity reports whether the inactivity timeout applies.
// Refresh tokens only expire absolutely or by explicit logout.
func (s *Session) SubjectToInactivity() bool {
	return s.Channel != ChannelMobileRefresh
}

// Identity is the authenticated result handed to collaborating handlers.
type Identity struct {
	AccountID uuid.UUID    `json:"account_id"`
	Email     string       `json:"email,omitempty"`
	Role      account.Role `json:"role"`
}

// TokenPair is the result of minting a mobile session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
