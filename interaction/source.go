package interaction

import (
	"botmux/models"
)

// Source identifies where an interaction came from: the platform, the inbound
// message, the destination it arrived in and the account that sent it. The
// adapter computes these projections from its platform's raw event.
type Source struct {
	Platform      string
	MessageID     string
	DestinationID string
	Text          string
	Account       models.Account
}
