package models

import "time"

// Role identifies who a session token was issued to.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAmbassador Role = "ambassador"
)

// Status is the review state shared by ambassadors, signups and task submissions.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Tier is the reward bracket derived from an ambassador's signup count.
type Tier string

const (
	TierNone     Tier = "none"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// ProofType is the kind of evidence a task asks for.
type ProofType string

const (
	ProofLink       ProofType = "link"
	ProofScreenshot ProofType = "screenshot"
	ProofVideo      ProofType = "video"
	ProofText       ProofType = "text"
)

// PointSource tags every row of the points ledger.
type PointSource string

const (
	PointsFromTask       PointSource = "task"
	PointsFromSignup     PointSource = "signup"
	PointsFromAdmin      PointSource = "admin"
	PointsFromConversion PointSource = "conversion"
)

// SignupSource records which path created a signup.
type SignupSource string

const (
	SignupSubmitted SignupSource = "submitted"
	SignupBulk      SignupSource = "bulk"
)

// Admin is an organiser account. Admins are created from the CLI only.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ambassador is a student recruiting participants with a referral code.
// Tier is never stored; it is filled from SignupCount whenever the row is read.
type Ambassador struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	College      string     `json:"college"`
	Year         string     `json:"year"`
	Motivation   string     `json:"why_ambassador,omitempty"`
	ReferralCode string     `json:"referral_code"`
	Status       Status     `json:"status"`
	SignupCount  int        `json:"signup_count"`
	Tier         Tier       `json:"tier"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Signup is a participant recruited by an ambassador.
type Signup struct {
	ID                 string       `json:"id"`
	AmbassadorID       string       `json:"ambassador_id"`
	ParticipantName    string       `json:"participant_name"`
	ParticipantEmail   string       `json:"participant_email"`
	ParticipantPhone   string       `json:"participant_phone,omitempty"`
	ParticipantCollege string       `json:"participant_college,omitempty"`
	Status             Status       `json:"status"`
	Source             SignupSource `json:"source"`
	RegisteredAt       time.Time    `json:"registered_at"`
	ApprovedAt         *time.Time   `json:"approved_at,omitempty"`
	ApprovedBy         *string      `json:"approved_by,omitempty"`

	// Populated on the admin dashboard
	AmbassadorName string `json:"ambassador_name,omitempty"`
	ReferralCode   string `json:"referral_code,omitempty"`
}

// Task is a promotional activity ambassadors complete for points.
type Task struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	PointsMin     int       `json:"points_min"`
	PointsMax     int       `json:"points_max"`
	RequiredProof ProofType `json:"required_proof"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// TaskSubmission is an ambassador's proof that a task was done.
type TaskSubmission struct {
	ID              string     `json:"id"`
	AmbassadorID    string     `json:"ambassador_id"`
	TaskID          string     `json:"task_id"`
	ProofLink       string     `json:"proof_link,omitempty"`
	ProofScreenshot string     `json:"proof_screenshot,omitempty"`
	Status          Status     `json:"status"`
	PointsAwarded   *int       `json:"points_awarded,omitempty"`
	AdminNotes      string     `json:"admin_notes,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy      *string    `json:"reviewed_by,omitempty"`

	// Populated on the admin review queue
	TaskName        string `json:"task_name,omitempty"`
	TaskPointsMin   int    `json:"task_points_min,omitempty"`
	TaskPointsMax   int    `json:"task_points_max,omitempty"`
	AmbassadorName  string `json:"ambassador_name,omitempty"`
	AmbassadorEmail string `json:"ambassador_email,omitempty"`
}

// PointEntry is one append-only row of the points ledger.
// Awards are positive, conversions negative.
type PointEntry struct {
	ID           string      `json:"id"`
	AmbassadorID string      `json:"ambassador_id"`
	Points       int         `json:"points"`
	Source       PointSource `json:"source"`
	ReferenceID  *string     `json:"reference_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ---- Request / Response DTOs ----

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AdminLoginResponse struct {
	Token string `json:"token"`
	Admin Admin  `json:"admin"`
}

type AmbassadorLoginResponse struct {
	Token      string     `json:"token"`
	Ambassador Ambassador `json:"ambassador"`
}

type RegisterRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	Phone         string `json:"phone" validate:"required"`
	College       string `json:"college" validate:"required"`
	Year          string `json:"year" validate:"required"`
	WhyAmbassador string `json:"whyAmbassador"`
}

type ReviewAmbassadorRequest struct {
	AmbassadorID string `json:"ambassadorId" validate:"required"`
	Status       Status `json:"status" validate:"required,oneof=approved rejected"`
}

type ReviewSignupRequest struct {
	SignupID string `json:"signupId" validate:"required"`
	Status   Status `json:"status" validate:"required,oneof=approved rejected"`
}

type AddSignupRequest struct {
	ParticipantName    string `json:"participant_name" validate:"required"`
	ParticipantEmail   string `json:"participant_email" validate:"required,email"`
	ParticipantPhone   string `json:"participant_phone"`
	ParticipantCollege string `json:"participant_college"`
}

// ImportRow is one line of a bulk import, in CSV column order.
type ImportRow struct {
	ReferralCode       string `json:"referral_code"`
	ParticipantName    string `json:"participant_name"`
	ParticipantEmail   string `json:"participant_email"`
	ParticipantPhone   string `json:"participant_phone,omitempty"`
	ParticipantCollege string `json:"participant_college,omitempty"`
}

type BulkImportRequest struct {
	Signups []ImportRow `json:"signups"`
}

// ImportError reports why one row of a bulk import was skipped.
// Row is 1-based and excludes the CSV header.
type ImportError struct {
	Row     int       `json:"row"`
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Data    ImportRow `json:"data"`
}

type ImportReport struct {
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
	Errors  []ImportError `json:"errors"`
}

type SubmitTaskRequest struct {
	TaskID          string `json:"taskId" validate:"required"`
	ProofLink       string `json:"proofLink"`
	ProofScreenshot string `json:"proofScreenshot"`
}

type ReviewTaskRequest struct {
	SubmissionID  string `json:"submissionId" validate:"required"`
	Status        Status `json:"status" validate:"required,oneof=approved rejected"`
	PointsAwarded *int   `json:"pointsAwarded"`
	Notes         string `json:"notes"`
}

type CreateTaskRequest struct {
	Name          string    `json:"name" yaml:"name" validate:"required"`
	Description   string    `json:"description" yaml:"description"`
	PointsMin     int       `json:"points_min" yaml:"points_min" validate:"min=0"`
	PointsMax     int       `json:"points_max" yaml:"points_max" validate:"gtefield=PointsMin"`
	RequiredProof ProofType `json:"required_proof" yaml:"required_proof" validate:"required,oneof=link screenshot video text"`
	Active        *bool     `json:"active" yaml:"active"`
}

type ConvertPointsRequest struct {
	PointsNeeded *int `json:"pointsNeeded"`
}

type ConvertPointsResponse struct {
	NewPoints   int `json:"newPoints"`
	SignupAdded int `json:"signupAdded"`
}

type TaskListResponse struct {
	Tasks           []Task           `json:"tasks"`
	Submissions     []TaskSubmission `json:"submissions"`
	TotalPoints     int              `json:"totalPoints"`
	PointsPerSignup int              `json:"pointsPerSignup"`
}

type AmbassadorDashboard struct {
	Ambassador Ambassador `json:"ambassador"`
	Signups    []Signup   `json:"signups"`
}

// TierDistribution counts ambassadors per tier.
type TierDistribution struct {
	None     int `json:"none"`
	Bronze   int `json:"bronze"`
	Silver   int `json:"silver"`
	Gold     int `json:"gold"`
	Platinum int `json:"platinum"`
}

type DashboardStats struct {
	TotalAmbassadors    int              `json:"totalAmbassadors"`
	PendingAmbassadors  int              `json:"pendingAmbassadors"`
	ApprovedAmbassadors int              `json:"approvedAmbassadors"`
	RejectedAmbassadors int              `json:"rejectedAmbassadors"`
	TotalSignups        int              `json:"totalSignups"`
	PendingSignups      int              `json:"pendingSignups"`
	ApprovedSignups     int              `json:"approvedSignups"`
	RejectedSignups     int              `json:"rejectedSignups"`
	TierDistribution    TierDistribution `json:"tierDistribution"`
}

type AdminDashboard struct {
	Ambassadors []Ambassador   `json:"ambassadors"`
	Signups     []Signup       `json:"signups"`
	Stats       DashboardStats `json:"stats"`
}

type ProofUploadResponse struct {
	URL string `json:"url"`
}
