package profile

import (
	"github.com/HanTheDev/policyguard/internal/models"
	"github.com/asaskevich/govalidator"
)

// ValidateBanking returns a message for the first malformed field, or "".
func ValidateBanking(b models.BankingDetails) string {
	switch {
	case !govalidator.Matches(b.AadharNumber, `^[0-9]{12}$`):
		return "Aadhar number must be 12 digits"
	case !govalidator.Matches(b.PANNumber, `^[A-Z]{5}[0-9]{4}[A-Z]$`):
		return "Invalid PAN number"
	case !govalidator.Matches(b.AccountNumber, `^[0-9]{9,18}$`):
		return "Account number must be 9 to 18 digits"
	case !govalidator.Matches(b.IFSCCode, `^[A-Z]{4}0[A-Z0-9]{6}$`):
		return "Invalid IFSC code"
	}
	return ""
}

// Mask hides all but the tail of the identity and account numbers.
func Mask(b models.BankingDetails) models.BankingDetails {
	if b.AadharNumber != "" {
		b.AadharNumber = "XXXX XXXX " + tail(b.AadharNumber, 4)
	}
	if b.PANNumber != "" {
		b.PANNumber = "XXXXX" + tail(b.PANNumber, 5)
	}
	if b.AccountNumber != "" {
		b.AccountNumber = "XXXX XXXX " + tail(b.AccountNumber, 4)
	}
	return b
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
