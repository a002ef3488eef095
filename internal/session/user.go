package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Normalized roles.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleConsultant = "consultant"
	RoleStaff      = "staff"
	RoleMember     = "member"
	RoleGuest      = "guest"
)

// UserID accepts a JSON number or string and keeps it as text.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*id = UserID(strings.TrimSpace(str))
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("user id %s: %w", s, err)
	}
	*id = UserID(s)
	return nil
}

// UserInfo is the cached profile of the signed-in account.
type UserInfo struct {
	ID            UserID   `json:"id"`
	Username      string   `json:"username,omitempty"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	FullName      string   `json:"fullName,omitempty"`
	Gender        string   `json:"gender,omitempty"`
	YOB           int      `json:"yob,omitempty"`
	Avatar        string   `json:"avatar,omitempty"`
	RawRole       string   `json:"role,omitempty"`
	Address       string   `json:"address,omitempty"`
	Bio           string   `json:"bio,omitempty"`
	AcademicTitle string   `json:"academicTitle,omitempty"`
	Certificates  []string `json:"certificates,omitempty"`
}

// Role maps ROLE_ADMIN, admin and friends to one of the Role constants.
func (u UserInfo) Role() string {
	return NormalizeRole(u.RawRole)
}

func NormalizeRole(raw string) string {
	r := strings.ToLower(strings.TrimSpace(raw))
	r = strings.TrimPrefix(r, "role_")
	switch r {
	case RoleAdmin, RoleManager, RoleConsultant, RoleStaff, RoleMember, RoleGuest:
		return r
	default:
		return ""
	}
}

// CanUsePortal is false for members, guests and unknown roles.
func (u UserInfo) CanUsePortal() bool {
	switch u.Role() {
	case RoleAdmin, RoleManager, RoleConsultant, RoleStaff:
		return true
	}
	return false
}

// DisplayName prefers the full name.
func (u UserInfo) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// ProfilePatch holds the editable profile fields. Nil means unchanged.
type ProfilePatch struct {
	FullName      *string  `json:"fullName,omitempty"`
	Email         *string  `json:"email,omitempty"`
	Phone         *string  `json:"phone,omitempty"`
	Gender        *string  `json:"gender,omitempty"`
	YOB           *int     `json:"yob,omitempty"`
	Avatar        *string  `json:"avatar,omitempty"`
	Address       *string  `json:"address,omitempty"`
	Bio           *string  `json:"bio,omitempty"`
	AcademicTitle *string  `json:"academicTitle,omitempty"`
	Certificates  []string `json:"certificates,omitempty"`
}

func (p ProfilePatch) apply(u UserInfo) UserInfo {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.FullName, p.FullName)
	set(&u.Email, p.Email)
	set(&u.Phone, p.Phone)
	set(&u.Gender, p.Gender)
	set(&u.Avatar, p.Avatar)
	set(&u.Address, p.Address)
	set(&u.Bio, p.Bio)
	set(&u.AcademicTitle, p.AcademicTitle)
	if p.YOB != nil {
		u.YOB = *p.YOB
	}
	if p.Certificates != nil {
		u.Certificates = append([]string(nil), p.Certificates...)
	}
	return u
}
