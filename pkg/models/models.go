// Package models holds the shared data types of the advisor desk: catalog
// responders, transcript messages, backend run payloads and user profiles.
package models

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// ── Responders (agents & teams) ─────────────────────────────

// ResponderKind distinguishes the two kinds of chat targets the backend exposes.
type ResponderKind string

const (
	KindAgent ResponderKind = "agent"
	KindTeam  ResponderKind = "team"
)

// Valid reports whether k is one of the known kinds.
func (k ResponderKind) Valid() bool {
	return k == KindAgent || k == KindTeam
}

// Plural returns the URL segment used by the backend for this kind.
func (k ResponderKind) Plural() string {
	if k == KindTeam {
		return "teams"
	}
	return "agents"
}

// Responder is a catalog entry. Only ID, Name and Kind are interpreted;
// every other backend field is kept in Extra and passed through untouched.
type Responder struct {
	ID    string                     `json:"id"`
	Name  string                     `json:"name"`
	Kind  ResponderKind              `json:"kind"`
	Extra map[string]json.RawMessage `json:"-"`
}

// Ref returns the (id, kind) pair used to pin this responder to a session.
func (r Responder) Ref() ResponderRef {
	return ResponderRef{ID: r.ID, Kind: r.Kind}
}

func (r *Responder) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Responder{}
	for k, v := range raw {
		switch k {
		case "id":
			if err := json.Unmarshal(v, &r.ID); err != nil {
				return fmt.Errorf("responder id: %w", err)
			}
		case "name":
			if err := json.Unmarshal(v, &r.Name); err != nil {
				return fmt.Errorf("responder name: %w", err)
			}
		case "kind":
			var kind string
			if err := json.Unmarshal(v, &kind); err == nil {
				r.Kind = ResponderKind(kind)
			}
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]json.RawMessage)
			}
			r.Extra[k] = v
		}
	}
	return nil
}

func (r Responder) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+3)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["id"] = r.ID
	out["name"] = r.Name
	out["kind"] = r.Kind
	return json.Marshal(out)
}

// ResponderRef is the (id, kind) pair a session is pinned to.
type ResponderRef struct {
	ID   string        `json:"id"`
	Kind ResponderKind `json:"kind"`
}

// ── Transcript ──────────────────────────────────────────────

// Role is the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PromptLabel is the label used for this role inside the composed history
// block. The backend model reads assistant turns as its own ("you").
func (r Role) PromptLabel() string {
	if r == RoleAssistant {
		return "you"
	}
	return "user"
}

// Message is one immutable transcript entry.
type Message struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessage builds a transcript entry with a fresh, time-ordered ID.
// TokenCount is only kept for assistant messages.
func NewMessage(role Role, content string, tokens int) Message {
	now := time.Now().UTC()
	if role != RoleAssistant {
		tokens = 0
	}
	return Message{
		ID:         ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Role:       role,
		Content:    content,
		TokenCount: tokens,
		CreatedAt:  now,
	}
}

// ── Backend runs ────────────────────────────────────────────

// RunRequest is the form body posted to /{agents|teams}/{id}/runs.
type RunRequest struct {
	Message   string
	SessionID string
	UserID    string
}

// RunMetrics is the subset of backend usage metrics the desk reads.
type RunMetrics struct {
	TotalTokens int `json:"total_tokens"`
}

// RunResult is the decoded JSON body of a successful run. Content is nil
// when the backend omitted the field.
type RunResult struct {
	Content *string     `json:"content"`
	Metrics *RunMetrics `json:"metrics,omitempty"`
}

// ── Profiles ────────────────────────────────────────────────

// Profile is a stored financial profile keyed by UserID.
type Profile struct {
	UserID    string      `json:"user_id"`
	Name      string      `json:"name"`
	Data      ProfileData `json:"profile_data"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ProfileSummary is the listing shape used by profile pickers.
type ProfileSummary struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileData is the structured document. A nil section is omitted from
// the prompt rendering entirely.
type ProfileData struct {
	Personal       *PersonalInfo `json:"personal,omitempty"`
	Income         *IncomeInfo   `json:"income,omitempty"`
	Expenses       *Expenses     `json:"expenses,omitempty"`
	Insurance      *Insurance    `json:"insurance,omitempty"`
	Savings        *Savings      `json:"savings,omitempty"`
	Tax            *TaxPlanning  `json:"tax,omitempty"`
	RealEstate     *RealEstate   `json:"real_estate,omitempty"`
	Goals          *Goals        `json:"goals,omitempty"`
	AdditionalInfo string        `json:"additional_info,omitempty"`
}

type PersonalInfo struct {
	Age           *int   `json:"age,omitempty"`
	Gender        string `json:"gender,omitempty"`
	MaritalStatus string `json:"marital_status,omitempty"`
	Dependents    int    `json:"dependents"`
	City          string `json:"city,omitempty"`
}

type IncomeInfo struct {
	MonthlyIncome  float64 `json:"monthly_income"`
	AnnualIncome   float64 `json:"annual_income"`
	EmploymentType string  `json:"employment_type,omitempty"`
	JobStability   string  `json:"job_stability,omitempty"`
	Industry       string  `json:"industry,omitempty"`
}

type Expenses struct {
	Housing        float64 `json:"housing"`
	Food           float64 `json:"food"`
	Transportation float64 `json:"transportation"`
	Utilities      float64 `json:"utilities"`
	Healthcare     float64 `json:"healthcare"`
	Education      float64 `json:"education"`
	Entertainment  float64 `json:"entertainment"`
	EMIPayments    float64 `json:"emi_payments"`
	Other          float64 `json:"other"`
}

// Total sums every monthly expense line.
func (e Expenses) Total() float64 {
	return e.Housing + e.Food + e.Transportation + e.Utilities + e.Healthcare +
		e.Education + e.Entertainment + e.EMIPayments + e.Other
}

type Insurance struct {
	LifeInsurance   float64 `json:"life_insurance"`
	HealthInsurance float64 `json:"health_insurance"`
	TermInsurance   float64 `json:"term_insurance"`
	HealthPremium   float64 `json:"health_premium"`
	LifePremium     float64 `json:"life_premium"`
}

type Savings struct {
	EmergencyFund float64 `json:"emergency_fund"`
	FixedDeposits float64 `json:"fixed_deposits"`
	MutualFunds   float64 `json:"mutual_funds"`
	Stocks        float64 `json:"stocks"`
	PPF           float64 `json:"ppf"`
	NPS           float64 `json:"nps"`
	EPF           float64 `json:"epf"`
	Gold          float64 `json:"gold"`
	RealEstate    float64 `json:"real_estate"`
	Other         float64 `json:"other"`
	RiskTolerance string  `json:"risk_tolerance,omitempty"`
}

// TaxPlanning covers Indian income-tax deductions under 80C, 80D and 80CCD.
type TaxPlanning struct {
	PPFContribution      float64 `json:"ppf_contribution"`
	ELSSInvestment       float64 `json:"elss_investment"`
	LifeInsurancePremium float64 `json:"life_insurance_premium"`
	EPFContribution      float64 `json:"epf_contribution"`
	HomeLoanPrincipal    float64 `json:"home_loan_principal"`
	ChildrenTuition      float64 `json:"children_tuition"`
	SukanyaSamriddhi     float64 `json:"sukanya_samriddhi"`

	HealthPremiumSelf    float64 `json:"health_premium_self"`
	HealthPremiumParents float64 `json:"health_premium_parents"`
	ParentsSenior        bool    `json:"parents_senior"`

	NPSContribution float64 `json:"nps_contribution"`
	EmployerNPS     float64 `json:"employer_nps"`
}

// Section80CLimit is the statutory ceiling on 80C deductions.
const Section80CLimit = 150000

// Total80C sums the 80C instruments, capped at Section80CLimit.
func (t TaxPlanning) Total80C() float64 {
	total := t.PPFContribution + t.ELSSInvestment + t.LifeInsurancePremium +
		t.EPFContribution + t.HomeLoanPrincipal + t.ChildrenTuition + t.SukanyaSamriddhi
	if total > Section80CLimit {
		return Section80CLimit
	}
	return total
}

type RealEstate struct {
	OwnershipStatus     string  `json:"ownership_status,omitempty"`
	CurrentRent         float64 `json:"current_rent"`
	PropertyValue       float64 `json:"property_value"`
	HomeLoanOutstanding float64 `json:"home_loan_outstanding"`
	HomeLoanEMI         float64 `json:"home_loan_emi"`
	LoanInterestRate    float64 `json:"loan_interest_rate"`
	LoanTenureRemaining int     `json:"loan_tenure_remaining"`
}

type Goals struct {
	ShortTerm     string  `json:"short_term,omitempty"`
	MediumTerm    string  `json:"medium_term,omitempty"`
	LongTerm      string  `json:"long_term,omitempty"`
	RetirementAge *int    `json:"retirement_age,omitempty"`
	SIPTarget     float64 `json:"sip_target"`
}
