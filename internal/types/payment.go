package types

import (
	ierr "github.com/servabill/servabill/internal/errors"
	"github.com/samber/lo"
)

// AuthorizationStatus is the state of a two-phase payment attempt
type AuthorizationStatus string

const (
	AuthorizationStatusAuthorized AuthorizationStatus = "authorized"
	AuthorizationStatusCaptured   AuthorizationStatus = "captured"
	AuthorizationStatusVoided     AuthorizationStatus = "voided"
)

var AuthorizationStatusValues = []AuthorizationStatus{
	AuthorizationStatusAuthorized,
	AuthorizationStatusCaptured,
	AuthorizationStatusVoided,
}

func (s AuthorizationStatus) String() string {
	return string(s)
}

func (s AuthorizationStatus) Validate() error {
	if !lo.Contains(AuthorizationStatusValues, s) {
		return ierr.NewError("invalid authorization status").
			WithHint("Authorization status must be authorized, captured or voided").
			WithReportableDetails(map[string]any{
				"allowed_values": AuthorizationStatusValues,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsLive reports whether the authorization still holds funds
func (s AuthorizationStatus) IsLive() bool {
	return s == AuthorizationStatusAuthorized
}
