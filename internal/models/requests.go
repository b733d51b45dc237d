package models

// RegisterRequest represents a registration payload (JSON body or multipart form fields)
type RegisterRequest struct {
	Email                string  `json:"email"`
	Password             string  `json:"password"`
	PasswordConfirmation string  `json:"password_confirmation"`
	FullName             string  `json:"fullName"`
	UserName             string  `json:"userName"`
	CompanyName          string  `json:"companyName"`
	PhoneNumber          string  `json:"phoneNumber"`
	Role                 string  `json:"role"`
	Comments             *string `json:"comments"`

	// Logos only arrive through multipart uploads.
	UserLogo    *LogoUpload `json:"-"`
	CompanyLogo *LogoUpload `json:"-"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateAccountRequest represents a profile update. Absent fields stay nil.
type UpdateAccountRequest struct {
	Email       *string `json:"email,omitempty"`
	FullName    *string `json:"fullName,omitempty"`
	UserName    *string `json:"userName,omitempty"`
	CompanyName *string `json:"companyName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Role        *string `json:"role,omitempty"`
	Comments    *string `json:"comments,omitempty"`
}

// Patch converts the request into a store-level patch.
func (r UpdateAccountRequest) Patch() AccountPatch {
	p := AccountPatch{
		Email:       r.Email,
		FullName:    r.FullName,
		UserName:    r.UserName,
		CompanyName: r.CompanyName,
		PhoneNumber: r.PhoneNumber,
		Comments:    r.Comments,
	}
	if r.Role != nil {
		role := Role(*r.Role)
		p.Role = &role
	}
	return p
}

// LogoPurpose names what an uploaded logo is for.
type LogoPurpose string

const (
	LogoPurposeUser    LogoPurpose = "user"
	LogoPurposeCompany LogoPurpose = "company"
)

// LogoUpload is an uploaded image held in memory for validation and storage.
type LogoUpload struct {
	Field        string // form field, "userLogo" or "companyLogo"
	OriginalName string
	Size         int64
	Content      []byte
}
