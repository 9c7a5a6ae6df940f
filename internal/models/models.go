package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SampleSize is the length of the anomaly model input vector.
const SampleSize = 12

// BehaviorMetrics is the named form of one session flush. The two reserved
// constants of the model sample (session count and source) are not included.
type BehaviorMetrics struct {
	InterAPIAccessDuration float64 `json:"inter_api_access_duration"`
	APIAccessUniqueness    float64 `json:"api_access_uniqueness"`
	SequenceLength         int     `json:"sequence_length"`
	SessionDurationMinutes float64 `json:"session_duration_minutes"`
	NumUsers               int     `json:"num_users"`
	UniqueAPIs             int     `json:"unique_apis"`
	IPTypeDefault          int     `json:"ip_type_default"`
	IPTypeBot              int     `json:"ip_type_bot"`
	IPTypePrivate          int     `json:"ip_type_private"`
	BehaviorEncoded        float64 `json:"behavior_encoded"`
}

// BehaviorLogEntry is one line of the behavior log.
type BehaviorLogEntry struct {
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Metrics   BehaviorMetrics `json:"metrics"`
	Sample    []float64       `json:"sample"`
}

type ScoredEntry struct {
	BehaviorLogEntry
	Prediction   string  `json:"prediction"`
	AnomalyScore float64 `json:"anomaly_score"`
}

type MetricStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P95 float64 `json:"p95"`
}

type BehaviorStats struct {
	Metrics       map[string]MetricStats `json:"metrics"`
	AnomalyRate   float64                `json:"anomaly_rate"`
	TotalSessions int                    `json:"total_sessions"`
	AnomalyCount  int                    `json:"anomaly_count"`
}

// Application statuses.
const (
	StatusPending = "PENDING"
	StatusActive  = "ACTIVE"
	StatusExpired = "EXPIRED"
)

// Claim statuses.
const (
	ClaimInProgress = "In Progress"
	ClaimApproved   = "Approved"
	ClaimRejected   = "Rejected"
)

type VehicleDetails struct {
	Type               string `json:"vehicleType"`
	RegistrationNumber string `json:"registrationNumber"`
	Make               string `json:"make"`
	Model              string `json:"model"`
	Year               int    `json:"year"`
}

type ApplicantInfo struct {
	Name    string `json:"name"`
	Mobile  string `json:"mobile"`
	Email   string `json:"email"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
}

type PolicyTerms struct {
	IDV                  float64  `json:"idv"`
	NCB                  float64  `json:"ncb"`
	Addons               []string `json:"addons"`
	AnnualPremium        float64  `json:"policy_annual_premium"`
	UmbrellaLimit        float64  `json:"umbrella_limit"`
	CSL                  float64  `json:"policy_csl"`
	TotalInsuranceAmount float64  `json:"total_insurance_amount"`
}

// Application is a vehicle policy application. It becomes a policy once an
// administrator activates it.
type Application struct {
	ID           string         `json:"application_id"`
	UserEmail    string         `json:"user_email"`
	Status       string         `json:"status"`
	Vehicle      VehicleDetails `json:"vehicle"`
	Applicant    ApplicantInfo  `json:"applicant"`
	Terms        PolicyTerms    `json:"policy"`
	ManagementID string         `json:"management_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Claim struct {
	ID               string    `json:"id"`
	UserEmail        string    `json:"user_email"`
	Status           string    `json:"status"`
	IncidentType     string    `json:"incident_type"`
	Severity         string    `json:"incident_severity"`
	TotalAmount      float64   `json:"total_claim_amount"`
	InjuryAmount     float64   `json:"injury_claim"`
	PropertyAmount   float64   `json:"property_claim"`
	VehicleAmount    float64   `json:"vehicle_claim"`
	IncidentDate     string    `json:"incident_date"`
	IncidentHour     int       `json:"incident_hour_of_the_day"`
	IncidentLocation string    `json:"incident_location"`
	IncidentCity     string    `json:"incident_city"`
	VehiclesInvolved int       `json:"number_of_vehicles_involved"`
	Witnesses        int       `json:"witnesses"`
	PropertyDamage   string    `json:"property_damage"`
	BodilyInjuries   string    `json:"bodily_injuries"`
	PoliceReport     string    `json:"police_report_available"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type BankingDetails struct {
	AadharNumber  string `json:"aadharNumber"`
	PANNumber     string `json:"panNumber"`
	AccountNumber string `json:"accountNumber"`
	IFSCCode      string `json:"ifscCode"`
}

type OtherDetails struct {
	Sex            string `json:"sex"`
	DateOfBirth    string `json:"dob"`
	EducationLevel string `json:"education_level"`
	Occupation     string `json:"occupation"`
	Hobbies        string `json:"hobbies"`
	Relationship   string `json:"relationship"`
}

// Profile is a user together with the optional detail records.
type Profile struct {
	User
	Mobile     string          `json:"mobile"`
	Address    string          `json:"address"`
	CustomerID string          `json:"customerId"`
	Banking    *BankingDetails `json:"banking,omitempty"`
	Other      *OtherDetails   `json:"otherDetails,omitempty"`
}

// PolicyRecord is an application joined with its applicant's profile, as
// listed on the admin dashboard.
type PolicyRecord struct {
	Application
	CustomerID string `json:"customer_id"`
	PANNumber  string `json:"pan_number,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Education  string `json:"education,omitempty"`
	BirthDate  string `json:"date_of_birth,omitempty"`
}

type ClaimRecord struct {
	Claim
	UserName string `json:"user_name"`
}

type DashboardStats struct {
	TotalPolicies      int            `json:"total_policies"`
	PolicyDistribution map[string]int `json:"policy_distribution"`
	TotalClaims        int            `json:"total_claims"`
	ClaimsDistribution map[string]int `json:"claims_distribution"`
	TotalUsers         int            `json:"total_users"`
}
