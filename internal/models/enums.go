package models

import (
	"fmt"
	"strings"
)

// Role is the account type chosen at sign-up.
type Role string

const (
	RoleStudent Role = "student"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

var roleBadges = map[Role]string{
	RoleStudent: "Student",
	RoleCreator: "Creator",
	RoleAdmin:   "Admin",
}

// Roles returns every known role.
func Roles() []Role { return []Role{RoleStudent, RoleCreator, RoleAdmin} }

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleBadges[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// Badge is the label shown next to the profile.
func (r Role) Badge() string {
	if b, ok := roleBadges[r]; ok {
		return b
	}
	return "Member"
}

// CanCreateCommunity reports whether the role may own communities.
func (r Role) CanCreateCommunity() bool {
	return r == RoleCreator || r == RoleAdmin
}

// PricingType selects how a community charges for access.
type PricingType string

const (
	PricingFree    PricingType = "free"
	PricingOneTime PricingType = "one-time"
	PricingMonthly PricingType = "monthly"
)

var pricingLabels = map[PricingType]string{
	PricingFree:    "Free",
	PricingOneTime: "One-time payment",
	PricingMonthly: "Monthly subscription",
}

func PricingTypes() []PricingType {
	return []PricingType{PricingFree, PricingOneTime, PricingMonthly}
}

func ParsePricingType(s string) (PricingType, error) {
	p := PricingType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := pricingLabels[p]; !ok {
		return "", fmt.Errorf("unknown pricing type %q", s)
	}
	return p, nil
}

func (p PricingType) String() string { return string(p) }

func (p PricingType) Label() string {
	if l, ok := pricingLabels[p]; ok {
		return l
	}
	return pricingLabels[PricingFree]
}

// IsPaid reports whether the type is one of the charge-based types.
func (p PricingType) IsPaid() bool {
	return p == PricingOneTime || p == PricingMonthly
}

// CheckoutMode is the provider mode matching the pricing type.
func (p PricingType) CheckoutMode() string {
	if p == PricingMonthly {
		return "subscription"
	}
	return "payment"
}

// Interest is what a waitlist visitor wants to do on the platform.
type Interest string

const (
	InterestCreator Interest = "creator"
	InterestStudent Interest = "student"
	InterestBoth    Interest = "both"
)

var interestLabels = map[Interest]string{
	InterestCreator: "I want to run a community",
	InterestStudent: "I want to join communities",
	InterestBoth:    "Both",
}

func Interests() []Interest { return []Interest{InterestCreator, InterestStudent, InterestBoth} }

func ParseInterest(s string) (Interest, error) {
	i := Interest(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := interestLabels[i]; !ok {
		return "", fmt.Errorf("unknown interest %q", s)
	}
	return i, nil
}

func (i Interest) String() string { return string(i) }

func (i Interest) Label() string { return interestLabels[i] }

// MembershipSource records how a membership row came to exist.
type MembershipSource string

const (
	SourceDirect   MembershipSource = "direct"
	SourceCheckout MembershipSource = "checkout"
	SourceCreator  MembershipSource = "creator"
)

func (s MembershipSource) String() string { return string(s) }

// CheckoutStatus tracks a provider session from creation to completion.
type CheckoutStatus string

const (
	CheckoutPending   CheckoutStatus = "pending"
	CheckoutCompleted CheckoutStatus = "completed"
	CheckoutExpired   CheckoutStatus = "expired"
)

var checkoutLabels = map[CheckoutStatus]string{
	CheckoutPending:   "Waiting for payment",
	CheckoutCompleted: "Payment received",
	CheckoutExpired:   "Checkout expired",
}

func CheckoutStatuses() []CheckoutStatus {
	return []CheckoutStatus{CheckoutPending, CheckoutCompleted, CheckoutExpired}
}

func (s CheckoutStatus) String() string { return string(s) }

func (s CheckoutStatus) Label() string { return checkoutLabels[s] }

func (r Role) MarshalText() ([]byte, error) { return []byte(r), nil }

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (p PricingType) MarshalText() ([]byte, error) { return []byte(p), nil }

func (p *PricingType) UnmarshalText(b []byte) error {
	v, err := ParsePricingType(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (i Interest) MarshalText() ([]byte, error) { return []byte(i), nil }

func (i *Interest) UnmarshalText(b []byte) error {
	v, err := ParseInterest(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}
