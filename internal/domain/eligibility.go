package domain

import "strconv"

const DefaultLegalBasis = "DGCA CAR Section 3"

type entitlement struct {
	Key   string
	Label string
}

// Display order is fixed; keys not listed here are ignored.
var entitlements = []entitlement{
	{Key: "meals_and_refreshments", Label: "Meals and Refreshments"},
	{Key: "hotel_accommodation", Label: "Hotel Accommodation (for overnight delays)"},
	{Key: "communication", Label: "Communication (2 free calls or emails)"},
	{Key: "refund_option", Label: "Full Refund Option"},
}

type EligibilityView struct {
	Eligible          bool     `json:"eligible"`
	CompensationLabel string   `json:"compensation_label"`
	Reason            string   `json:"reason"`
	LegalBasis        string   `json:"legal_basis"`
	Entitlements      []string `json:"entitlements"`
	ExemptionReason   *string  `json:"exemption_reason,omitempty"`
}

// Present normalizes an eligibility verdict for display. A nil verdict yields
// an empty view with the default legal basis and no compensation label.
func Present(details *EligibilityDetails) EligibilityView {
	view := EligibilityView{
		LegalBasis:   DefaultLegalBasis,
		Entitlements: []string{},
	}
	if details == nil {
		return view
	}

	view.Eligible = details.IsEligible
	view.Reason = details.Reason
	view.ExemptionReason = details.ExemptionReason
	view.CompensationLabel = compensationLabel(details.Currency, details.CompensationAmount)
	if details.LegalBasis != "" {
		view.LegalBasis = details.LegalBasis
	}
	for _, e := range entitlements {
		if details.AirlineObligations[e.Key] {
			view.Entitlements = append(view.Entitlements, e.Label)
		}
	}
	return view
}

func compensationLabel(currency string, amount float64) string {
	return currency + " " + strconv.FormatFloat(amount, 'f', -1, 64)
}
