package policy

import (
	"math"
	"time"

	"github.com/HanTheDev/policyguard/internal/models"
)

const baseRate = 0.04

// addonRates are surcharges on the base premium.
var addonRates = map[string]float64{
	"Zero Depreciation":       0.15,
	"Roadside Assistance":     0.05,
	"Engine Protection":       0.10,
	"Personal Accident Cover": 0.08,
}

// Summary is a customer's view of one policy.
type Summary struct {
	Type         string                `json:"type"`
	PolicyNumber string                `json:"policyNumber"`
	SumInsured   float64               `json:"sumInsured"`
	Premium      float64               `json:"premium"`
	Status       string                `json:"status"`
	RenewalDate  string                `json:"renewalDate"`
	Vehicle      models.VehicleDetails `json:"vehicle"`
	Applicant    models.ApplicantInfo  `json:"applicant"`
	Addons       []string              `json:"addons"`
	NCB          float64               `json:"ncb"`
}

func Summarize(app models.Application) Summary {
	addons := app.Terms.Addons
	if addons == nil {
		addons = []string{}
	}

	return Summary{
		Type:         "Vehicle",
		PolicyNumber: app.ID,
		SumInsured:   app.Terms.IDV,
		Premium:      Premium(app.Terms),
		Status:       app.Status,
		RenewalDate:  RenewalDate(app.CreatedAt),
		Vehicle:      app.Vehicle,
		Applicant:    app.Applicant,
		Addons:       addons,
		NCB:          app.Terms.NCB,
	}
}

// Premium is 4% of the IDV less the no-claim bonus, plus addon surcharges
// on the undiscounted base, rounded to cents. Unknown addons are free.
func Premium(terms models.PolicyTerms) float64 {
	base := terms.IDV * baseRate
	premium := base * (1 - terms.NCB/100)
	for _, addon := range terms.Addons {
		premium += base * addonRates[addon]
	}
	return math.Round(premium*100) / 100
}

// RenewalDate is one year after creation.
func RenewalDate(created time.Time) string {
	if created.IsZero() {
		return "Invalid Date"
	}
	return created.AddDate(1, 0, 0).Format("02 Jan 2006")
}
