// Package jobs contains the transactional outbox and the workers that drain
// it. Payloads are written next to the state change that caused them and are
// only ever delivered after that change commits.
package jobs

import (
	"encoding/json"
	"fmt"
)

const (
	KindWelcomeEmail       = "email:welcome"
	KindResetPasswordEmail = "email:reset_password"
)

// Payload is anything that can be put on the outbox.
type Payload interface {
	Kind() string
}

// SendWelcomeEmail asks for the welcome and verification email of a newly
// registered (or re-verifying) user.
type SendWelcomeEmail struct {
	UserID uint `json:"userId"`
}

func (SendWelcomeEmail) Kind() string { return KindWelcomeEmail }

// SendResetPasswordEmail asks for the email carrying a reset token link.
type SendResetPasswordEmail struct {
	ResetTokenID uint `json:"resetTokenId"`
}

func (SendResetPasswordEmail) Kind() string { return KindResetPasswordEmail }

// Decode unmarshals a stored payload. Decoding failures are permanent since
// retrying can't fix a malformed row.
func Decode[T any](raw []byte) (T, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, Permanent(fmt.Errorf("failed to decode payload, %w", err))
	}

	return p, nil
}
