package validation

import "account-api/internal/apperror"

// Classify picks the single response for a failure list. The first matching condition wins.
// It returns nil when there are no failures.
func Classify(mode Mode, failures Failures) *apperror.Error {
	if len(failures) == 0 {
		return nil
	}

	switch mode {
	case ModeRegistration:
		if failures.Has("email", "unique") || failures.Has("userName", "unique") {
			return apperror.Duplicate(nil)
		}
		if failures.Has("password", "confirmed") {
			return apperror.Validation(apperror.MsgPasswordMismatch, nil)
		}
		if hasEmailFormatFailure(failures) {
			return apperror.Validation(apperror.MsgWrongEmailType, nil)
		}
	case ModeLogin:
		if hasEmailFormatFailure(failures) {
			return apperror.Validation(apperror.MsgWrongEmailType, nil)
		}
	}

	return apperror.Validation(apperror.MsgValidationFailed, failures.Fields())
}

func hasEmailFormatFailure(failures Failures) bool {
	return failures.Has("email", "strict_email") || failures.Has("email", "email")
}
