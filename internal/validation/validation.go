// File: internal/validation/validation.go
package validation

import (
	"context"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"account-api/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Mode selects which rule table applies to a payload.
type Mode int

const (
	ModeRegistration Mode = iota
	ModeLogin
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeRegistration:
		return "registration"
	case ModeLogin:
		return "login"
	case ModeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Failure is a single field-level rule violation.
type Failure struct {
	Field   string
	Rule    string
	Message string
}

// Failures keeps violations in rule-table order.
type Failures []Failure

// Has reports whether field failed the named rule.
func (f Failures) Has(field, rule string) bool {
	for _, failure := range f {
		if failure.Field == field && failure.Rule == rule {
			return true
		}
	}
	return false
}

// Fields groups messages by field, preserving per-field order.
func (f Failures) Fields() map[string][]string {
	if len(f) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for _, failure := range f {
		out[failure.Field] = append(out[failure.Field], failure.Message)
	}
	return out
}

// UniquenessChecker answers the advisory uniqueness rules. The store re-checks atomically on write.
type UniquenessChecker interface {
	ExistsByEmailExcluding(ctx context.Context, email, excludeID string) (bool, error)
	ExistsByUserNameExcluding(ctx context.Context, userName, excludeID string) (bool, error)
}

const (
	MaxLogoKilobytes = 2048
	maxLogoBytes     = MaxLogoKilobytes * 1024
)

// AllowedLogoExtensions lists the accepted client extensions for logo uploads.
var AllowedLogoExtensions = []string{"jpeg", "png", "jpg", "gif", "svg"}

var (
	phoneRegex       = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	areaPhoneRegex   = regexp.MustCompile(`^\+1[0-9]{10}$`)
	phoneStripRegex  = regexp.MustCompile(`[^0-9+]`)
	strictEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	policy = bluemonday.StrictPolicy()
)

// IsStrictEmail is the secondary mailbox check applied on top of the basic email rule.
func IsStrictEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	if !strictEmailRegex.MatchString(email) {
		return false
	}

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]
	if len(local) > 64 {
		return false
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	return true
}

// IsPhoneNumber reports whether s is an optional '+' followed by 7 to 15 digits.
func IsPhoneNumber(s string) bool {
	return phoneRegex.MatchString(s)
}

// IsAreaPhoneNumber is the regional rule: +1 followed by ten digits once separators are removed.
func IsAreaPhoneNumber(s string) bool {
	return areaPhoneRegex.MatchString(phoneStripRegex.ReplaceAllString(s, ""))
}

// IsReservedAreaNumber flags the all-zero regional number.
func IsReservedAreaNumber(s string) bool {
	return phoneStripRegex.ReplaceAllString(s, "") == "+10000000000"
}

// IsImage sniffs content and reports whether it is an image.
func IsImage(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	return strings.HasPrefix(mimetype.Detect(content).String(), "image/")
}

// LogoExtension returns the lower-cased client extension of an uploaded file name, without the dot.
func LogoExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// HasAllowedLogoExtension checks the client extension against AllowedLogoExtensions.
func HasAllowedLogoExtension(name string) bool {
	ext := LogoExtension(name)
	for _, allowed := range AllowedLogoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// SanitizeString strips markup and NUL bytes and trims the result. Entities escaped by the
// policy are decoded again so stored text keeps its length and round-trips unchanged.
func SanitizeString(input string) string {
	cleaned := strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(cleaned)))
}

// Options tune optional rules.
type Options struct {
	// StrictAreaPhone adds the regional phone rules to registration and update.
	StrictAreaPhone bool
}

// RuleSet evaluates the per-mode rule tables. It owns its validator instance.
type RuleSet struct {
	validate *validator.Validate
	checker  UniquenessChecker
	tables   map[Mode][]fieldRules
}

// NewRuleSet builds a rule set. checker may be nil when only login payloads are validated.
func NewRuleSet(checker UniquenessChecker, opts Options) *RuleSet {
	v := validator.New()
	_ = v.RegisterValidation("strict_email", func(fl validator.FieldLevel) bool {
		return IsStrictEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhoneNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("area_phone", func(fl validator.FieldLevel) bool {
		return IsAreaPhoneNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("area_phone_reserved", func(fl validator.FieldLevel) bool {
		return !IsReservedAreaNumber(fl.Field().String())
	})

	return &RuleSet{
		validate: v,
		checker:  checker,
		tables: map[Mode][]fieldRules{
			ModeRegistration: registrationRules(opts),
			ModeLogin:        loginRules(),
			ModeUpdate:       updateRules(opts),
		},
	}
}

// ValidateRegistration runs the registration table.
func (rs *RuleSet) ValidateRegistration(ctx context.Context, req models.RegisterRequest) (Failures, error) {
	return rs.Validate(ctx, ModeRegistration, RegistrationInput(req), "")
}

// ValidateLogin runs the login table.
func (rs *RuleSet) ValidateLogin(ctx context.Context, req models.LoginRequest) (Failures, error) {
	return rs.Validate(ctx, ModeLogin, LoginInput(req), "")
}

// ValidateUpdate runs the update table; uniqueness excludes selfID.
func (rs *RuleSet) ValidateUpdate(ctx context.Context, req models.UpdateAccountRequest, selfID string) (Failures, error) {
	return rs.Validate(ctx, ModeUpdate, UpdateInput(req), selfID)
}

// Validate evaluates every field of the mode's table and collects all failures.
// The returned error is only set when a uniqueness lookup could not be answered.
func (rs *RuleSet) Validate(ctx context.Context, mode Mode, in Input, excludeID string) (Failures, error) {
	var failures Failures

	for _, fr := range rs.tables[mode] {
		if fr.file {
			failures = append(failures, rs.checkFile(mode, fr, in.files[fr.field])...)
			continue
		}

		value, present := in.value(fr.field)
		switch {
		case !present || (value == "" && fr.presence == presenceRequired):
			if fr.presence == presenceRequired {
				failures = append(failures, newFailure(mode, fr.field, "required", ""))
			}
			continue
		case value == "" && fr.presence == presenceNullable:
			continue
		case value == "" && fr.presence == presenceSometimes:
			failures = append(failures, newFailure(mode, fr.field, "filled", ""))
			continue
		}

		for _, r := range fr.rules {
			ok, err := rs.check(ctx, r, value, in, excludeID)
			if err != nil {
				return nil, fmt.Errorf("validate %s.%s: %w", fr.field, r.name, err)
			}
			if !ok {
				failures = append(failures, newFailure(mode, fr.field, r.name, r.param))
			}
		}
	}

	return failures, nil
}

func (rs *RuleSet) check(ctx context.Context, r rule, value string, in Input, excludeID string) (bool, error) {
	switch {
	case r.unique != "":
		if rs.checker == nil {
			return true, nil
		}
		var exists bool
		var err error
		if r.unique == uniqueEmail {
			exists, err = rs.checker.ExistsByEmailExcluding(ctx, value, excludeID)
		} else {
			exists, err = rs.checker.ExistsByUserNameExcluding(ctx, value, excludeID)
		}
		return !exists, err
	case r.confirms != "":
		other, _ := in.value(r.confirms)
		return rs.validate.VarWithValue(value, other, "eqfield") == nil, nil
	default:
		return rs.validate.Var(value, r.tag) == nil, nil
	}
}

func (rs *RuleSet) checkFile(mode Mode, fr fieldRules, upload *models.LogoUpload) Failures {
	if upload == nil {
		return nil
	}

	var failures Failures
	if !IsImage(upload.Content) {
		failures = append(failures, newFailure(mode, fr.field, "image", ""))
	}
	if !HasAllowedLogoExtension(upload.OriginalName) {
		failures = append(failures, newFailure(mode, fr.field, "mimes", strings.Join(AllowedLogoExtensions, ", ")))
	}
	if upload.Size > maxLogoBytes {
		failures = append(failures, newFailure(mode, fr.field, "max_file", fmt.Sprint(MaxLogoKilobytes)))
	}
	return failures
}

// Input is a flattened payload: nil values are absent fields.
type Input struct {
	values map[string]*string
	files  map[string]*models.LogoUpload
}

func (in Input) value(field string) (string, bool) {
	v, ok := in.values[field]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

func RegistrationInput(req models.RegisterRequest) Input {
	return Input{
		values: map[string]*string{
			"email":                 nonEmpty(req.Email),
			"password":              nonEmpty(req.Password),
			"password_confirmation": nonEmpty(req.PasswordConfirmation),
			"fullName":              nonEmpty(req.FullName),
			"userName":              nonEmpty(req.UserName),
			"companyName":           nonEmpty(req.CompanyName),
			"phoneNumber":           nonEmpty(req.PhoneNumber),
			"role":                  nonEmpty(req.Role),
			"comments":              req.Comments,
		},
		files: map[string]*models.LogoUpload{
			"userLogo":    req.UserLogo,
			"companyLogo": req.CompanyLogo,
		},
	}
}

func LoginInput(req models.LoginRequest) Input {
	return Input{values: map[string]*string{
		"email":    nonEmpty(req.Email),
		"password": nonEmpty(req.Password),
	}}
}

func UpdateInput(req models.UpdateAccountRequest) Input {
	return Input{values: map[string]*string{
		"email":       req.Email,
		"fullName":    req.FullName,
		"userName":    req.UserName,
		"companyName": req.CompanyName,
		"phoneNumber": req.PhoneNumber,
		"role":        req.Role,
		"comments":    req.Comments,
	}}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ContentType returns the sniffed MIME type of an upload.
func ContentType(content []byte) string {
	return mimetype.Detect(content).String()
}
