package validation

import (
	"fmt"
	"strings"
	"unicode"
)

type presence int

const (
	presenceRequired presence = iota
	presenceNullable
	presenceSometimes
)

type uniqueColumn string

const (
	uniqueEmail    uniqueColumn = "email"
	uniqueUserName uniqueColumn = "userName"
)

type rule struct {
	name     string       // reported rule name
	tag      string       // validator tag
	param    string       // message parameter
	confirms string       // field that must hold the same value
	unique   uniqueColumn // uniqueness lookup
}

type fieldRules struct {
	field    string
	presence presence
	file     bool
	rules    []rule
}

func maxLen(n int) rule { return rule{name: "max", tag: fmt.Sprintf("max=%d", n), param: fmt.Sprint(n)} }
func minLen(n int) rule { return rule{name: "min", tag: fmt.Sprintf("min=%d", n), param: fmt.Sprint(n)} }

var (
	emailRule       = rule{name: "email", tag: "email"}
	strictEmailRule = rule{name: "strict_email", tag: "strict_email"}
	phoneRule       = rule{name: "regex", tag: "phone"}
	roleRule        = rule{name: "in", tag: "oneof=admin user"}
	areaPhoneRules  = []rule{
		{name: "area_phone", tag: "area_phone"},
		{name: "area_phone_reserved", tag: "area_phone_reserved"},
	}
)

func phoneRules(opts Options) []rule {
	rules := []rule{phoneRule}
	if opts.StrictAreaPhone {
		rules = append(rules, areaPhoneRules...)
	}
	return rules
}

func registrationRules(opts Options) []fieldRules {
	return []fieldRules{
		{field: "email", rules: []rule{emailRule, maxLen(255), {name: "unique", unique: uniqueEmail}, strictEmailRule}},
		{field: "password", rules: []rule{minLen(8), maxLen(16), {name: "confirmed", confirms: "password_confirmation"}}},
		{field: "fullName", rules: []rule{maxLen(255)}},
		{field: "userName", rules: []rule{maxLen(10), {name: "unique", unique: uniqueUserName}}},
		{field: "companyName", rules: []rule{maxLen(255)}},
		{field: "phoneNumber", rules: phoneRules(opts)},
		{field: "role", rules: []rule{roleRule}},
		{field: "comments", presence: presenceNullable},
		{field: "password_confirmation", rules: []rule{minLen(8), maxLen(16)}},
		{field: "userLogo", presence: presenceNullable, file: true},
		{field: "companyLogo", presence: presenceNullable, file: true},
	}
}

func loginRules() []fieldRules {
	return []fieldRules{
		{field: "email", rules: []rule{emailRule, strictEmailRule}},
		{field: "password", rules: []rule{minLen(8), maxLen(16)}},
	}
}

func updateRules(opts Options) []fieldRules {
	return []fieldRules{
		{field: "email", presence: presenceSometimes, rules: []rule{emailRule, maxLen(255), {name: "unique", unique: uniqueEmail}, strictEmailRule}},
		{field: "fullName", presence: presenceSometimes, rules: []rule{maxLen(255)}},
		{field: "userName", presence: presenceSometimes, rules: []rule{maxLen(10), {name: "unique", unique: uniqueUserName}}},
		{field: "companyName", presence: presenceSometimes, rules: []rule{maxLen(255)}},
		{field: "phoneNumber", presence: presenceSometimes, rules: phoneRules(opts)},
		{field: "role", presence: presenceSometimes, rules: []rule{roleRule}},
		{field: "comments", presence: presenceNullable},
	}
}

// customMessages overrides the default message for field.rule, per mode.
var customMessages = map[Mode]map[string]string{
	ModeRegistration: {
		"email.unique":       "User Already Registered!",
		"email.strict_email": "Wrong Email Type",
		"password.confirmed": "Check your password",
		"userName.max":       "Username length must be at most 10 characters",
		"password.min":       "Password must be at least 8 characters",
		"password.max":       "Password must be less than 16 characters",
		"phoneNumber.regex":  "Invalid phone number format",
	},
	ModeLogin: {
		"email.email":        "Wrong Email Type",
		"email.strict_email": "Wrong Email Type",
		"password.min":       "Password must be at least 8 characters",
		"password.max":       "Password must be less than 16 characters",
	},
	ModeUpdate: {
		"email.strict_email": "Wrong Email Type",
	},
}

func newFailure(mode Mode, field, ruleName, param string) Failure {
	msg, ok := customMessages[mode][field+"."+ruleName]
	if !ok {
		msg = defaultMessage(attributeName(field), ruleName, param)
	}
	return Failure{Field: field, Rule: ruleName, Message: msg}
}

// defaultMessage returns the generic wording for a rule
func defaultMessage(attr, ruleName, param string) string {
	switch ruleName {
	case "required":
		return fmt.Sprintf("The %s field is required.", attr)
	case "filled":
		return fmt.Sprintf("The %s field must have a value.", attr)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", attr)
	case "strict_email":
		return "Wrong Email Type"
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", attr, param)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", attr, param)
	case "unique":
		return fmt.Sprintf("The %s has already been taken.", attr)
	case "confirmed":
		return fmt.Sprintf("The %s field confirmation does not match.", attr)
	case "regex":
		return fmt.Sprintf("The %s field format is invalid.", attr)
	case "area_phone":
		return fmt.Sprintf("The %s is not a valid phone number format for this region (e.g., must start with +1 and be 10 digits).", attr)
	case "area_phone_reserved":
		return fmt.Sprintf("The %s is not a valid phone number.", attr)
	case "in":
		return fmt.Sprintf("The selected %s is invalid.", attr)
	case "image":
		return fmt.Sprintf("The %s field must be an image.", attr)
	case "mimes":
		return fmt.Sprintf("The %s field must be a file of type: %s.", attr, param)
	case "max_file":
		return fmt.Sprintf("The %s field must not be greater than %s kilobytes.", attr, param)
	default:
		return fmt.Sprintf("The %s field is invalid.", attr)
	}
}

// attributeName turns "fullName" or "password_confirmation" into "full name" / "password confirmation".
func attributeName(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case r == '_':
			b.WriteRune(' ')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteRune(' ')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
