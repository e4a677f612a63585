package wizard

import (
	"regexp"
	"time"

	apperrors "creator-match/internal/common/errors"
	"creator-match/internal/models"
)

// emailShape accepts something@something.something with no
// whitespace. It is not an RFC 5322 check.
var emailShape = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const (
	titleMissingInformation = "Missing Information"
	titleInvalidEmail       = "Invalid Email"

	msgBusinessSocialMissing = "Please provide at least one social media account."
	msgBusinessWebsite       = "Please provide your website URL."
	msgCreatorSocialMissing  = "Please provide at least one creator social media account."
	msgInvalidEmail          = "Please enter a valid email address."
)

// ValidateBusiness checks the first step. Social handles are checked before
// the website so a visitor sees the more general message first.
func ValidateBusiness(p models.BusinessProfile, requireWebsite bool) error {
	if !p.HasSocial() {
		return validationError(apperrors.ErrCodeMissingField, "step", string(StepBusinessInput),
			titleMissingInformation, msgBusinessSocialMissing)
	}
	if requireWebsite && !p.HasWebsite() {
		return validationError(apperrors.ErrCodeMissingField, "field", string(models.FieldWebsite),
			titleMissingInformation, msgBusinessWebsite)
	}
	return nil
}

// ValidateCreator checks the second step.
func ValidateCreator(p models.CreatorProfile) error {
	if !p.HasSocial() {
		return validationError(apperrors.ErrCodeMissingField, "step", string(StepCreatorInput),
			titleMissingInformation, msgCreatorSocialMissing)
	}
	return nil
}

// ValidateEmail applies the loose address shape check.
func ValidateEmail(address string) error {
	if !IsEmailShaped(address) {
		return validationError(apperrors.ErrCodeInvalidFormat, "field", "email",
			titleInvalidEmail, msgInvalidEmail)
	}
	return nil
}

func IsEmailShaped(address string) bool {
	return emailShape.MatchString(address)
}

// validationError carries the notification title in Message and the
// user-facing sentence in Details.
func validationError(code apperrors.ErrorCode, metaKey, metaValue, title, message string) *apperrors.StandardError {
	return &apperrors.StandardError{
		Code:      code,
		Message:   title,
		Details:   message,
		Retryable: false,
		Metadata:  map[string]interface{}{metaKey: metaValue},
		Timestamp: time.Now().UTC(),
	}
}
