package profile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agentoven/advisor-desk/pkg/models"
)

// DefaultRetirementAge is shown when a goals section omits it.
const DefaultRetirementAge = 60

// FormatForPrompt renders a profile as readable prose for the agent. Only
// non-empty sections are rendered. A nil profile yields "".
func FormatForPrompt(p *models.Profile) string {
	if p == nil {
		return ""
	}
	d := p.Data
	name := p.Name
	if name == "" {
		name = "User"
	}

	var sections []string
	add := func(header string, lines ...string) {
		var b strings.Builder
		b.WriteString("\n")
		b.WriteString(header)
		b.WriteString("\n")
		for _, l := range lines {
			b.WriteString(l)
			b.WriteString("\n")
		}
		sections = append(sections, b.String())
	}

	if s := d.Personal; present(s) {
		age := "N/A"
		if s.Age != nil {
			age = strconv.Itoa(*s.Age)
		}
		add("📋 PERSONAL INFORMATION:",
			"- Name: "+name,
			"- Age: "+age+" years",
			"- Gender: "+orNA(s.Gender),
			"- Marital Status: "+orNA(s.MaritalStatus),
			"- Dependents: "+strconv.Itoa(s.Dependents),
			"- City: "+orNA(s.City),
		)
	}

	if s := d.Income; present(s) {
		add("💰 INCOME & EMPLOYMENT:",
			"- Monthly Income: "+Rupees(s.MonthlyIncome),
			"- Annual Income: "+Rupees(s.AnnualIncome),
			"- Employment Type: "+orNA(s.EmploymentType),
			"- Job Stability: "+orNA(s.JobStability),
			"- Industry: "+orNA(s.Industry),
		)
	}

	if s := d.Expenses; present(s) {
		add(fmt.Sprintf("📊 MONTHLY EXPENSES (Total: %s):", Rupees(s.Total())),
			"- Housing/Rent: "+Rupees(s.Housing),
			"- Food & Groceries: "+Rupees(s.Food),
			"- Transportation: "+Rupees(s.Transportation),
			"- Utilities: "+Rupees(s.Utilities),
			"- Healthcare: "+Rupees(s.Healthcare),
			"- Education: "+Rupees(s.Education),
			"- Entertainment: "+Rupees(s.Entertainment),
			"- EMI Payments: "+Rupees(s.EMIPayments),
			"- Other: "+Rupees(s.Other),
		)
	}

	if s := d.Insurance; present(s) {
		add("🛡️ INSURANCE:",
			"- Life Insurance Coverage: "+Rupees(s.LifeInsurance),
			"- Health Insurance Coverage: "+Rupees(s.HealthInsurance),
			"- Term Insurance Coverage: "+Rupees(s.TermInsurance),
			"- Annual Health Premium: "+Rupees(s.HealthPremium),
			"- Annual Life Premium: "+Rupees(s.LifePremium),
		)
	}

	if s := d.Savings; present(s) {
		add("💵 SAVINGS & INVESTMENTS:",
			"- Emergency Fund: "+Rupees(s.EmergencyFund),
			"- Fixed Deposits: "+Rupees(s.FixedDeposits),
			"- Mutual Funds: "+Rupees(s.MutualFunds),
			"- Stocks/Equity: "+Rupees(s.Stocks),
			"- PPF Balance: "+Rupees(s.PPF),
			"- NPS Balance: "+Rupees(s.NPS),
			"- EPF Balance: "+Rupees(s.EPF),
			"- Gold: "+Rupees(s.Gold),
			"- Real Estate Value: "+Rupees(s.RealEstate),
			"- Other Investments: "+Rupees(s.Other),
			"- Risk Tolerance: "+orNA(s.RiskTolerance),
		)
	}

	if s := d.Tax; present(s) {
		add("📑 TAX PLANNING:",
			fmt.Sprintf("Section 80C (Total: %s / ₹1,50,000):", Rupees(s.Total80C())),
			"- PPF Contribution: "+Rupees(s.PPFContribution),
			"- ELSS Investment: "+Rupees(s.ELSSInvestment),
			"- Life Insurance Premium: "+Rupees(s.LifeInsurancePremium),
			"- EPF Contribution: "+Rupees(s.EPFContribution),
			"- Home Loan Principal: "+Rupees(s.HomeLoanPrincipal),
			"- Children's Tuition: "+Rupees(s.ChildrenTuition),
			"- Sukanya Samriddhi: "+Rupees(s.SukanyaSamriddhi),
			"",
			"Section 80D (Health Insurance):",
			"- Self/Family Premium: "+Rupees(s.HealthPremiumSelf),
			"- Parents Premium: "+Rupees(s.HealthPremiumParents),
			"- Parents are Senior Citizens: "+yesNo(s.ParentsSenior),
			"",
			"Section 80CCD (NPS):",
			"- NPS Contribution (80CCD 1B): "+Rupees(s.NPSContribution),
			"- Employer NPS Contribution: "+Rupees(s.EmployerNPS),
		)
	}

	if s := d.RealEstate; present(s) {
		add("🏠 REAL ESTATE:",
			"- Home Ownership: "+orNA(s.OwnershipStatus),
			"- Current Rent: "+Rupees(s.CurrentRent)+"/month",
			"- Property Value: "+Rupees(s.PropertyValue),
			"- Home Loan Outstanding: "+Rupees(s.HomeLoanOutstanding),
			"- Home Loan EMI: "+Rupees(s.HomeLoanEMI),
			"- Home Loan Interest Rate: "+strconv.FormatFloat(s.LoanInterestRate, 'f', -1, 64)+"%",
			"- Loan Tenure Remaining: "+strconv.Itoa(s.LoanTenureRemaining)+" months",
		)
	}

	if s := d.Goals; present(s) {
		retire := DefaultRetirementAge
		if s.RetirementAge != nil {
			retire = *s.RetirementAge
		}
		add("🎯 FINANCIAL GOALS:",
			"- Short-term Goals (1-3 years): "+orNA(s.ShortTerm),
			"- Medium-term Goals (3-7 years): "+orNA(s.MediumTerm),
			"- Long-term Goals (7+ years): "+orNA(s.LongTerm),
			"- Target Retirement Age: "+strconv.Itoa(retire),
			"- Monthly SIP Target: "+Rupees(s.SIPTarget),
		)
	}

	if d.AdditionalInfo != "" {
		add("📝 ADDITIONAL INFORMATION:", d.AdditionalInfo)
	}

	return strings.Join(sections, "\n")
}

// Rupees formats an amount as whole rupees with comma thousands separators,
// e.g. 1234567.6 → "₹1,234,568". Halves round to even.
func Rupees(v float64) string {
	n := int64(math.RoundToEven(v))
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	b.WriteString("₹")
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// present reports whether a section exists and has any field set.
func present[T comparable](s *T) bool {
	var zero T
	return s != nil && *s != zero
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
