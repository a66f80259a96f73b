package entity

import "time"

// Review status constants
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// ReviewTargetDrug is the target type of reviews written about a drug batch.
const ReviewTargetDrug = "drug"

// CriterionDrugQuality is the criteria rating key used for drug quality.
const CriterionDrugQuality = "drugQuality"

// Review is a rating left by a user about a supplier or a drug batch.
type Review struct {
	ID              string         `json:"id" yaml:"id"`
	TargetType      string         `json:"target_type" yaml:"target_type"`
	TargetID        string         `json:"target_id" yaml:"target_id"`
	OverallRating   int            `json:"overall_rating" yaml:"overall_rating"` // 1-5
	IsVerified      bool           `json:"is_verified" yaml:"is_verified"`
	CriteriaRatings map[string]int `json:"criteria_ratings,omitempty" yaml:"criteria_ratings,omitempty"`
	Status          string         `json:"status" yaml:"status"`
	CreatedAt       time.Time      `json:"created_at" yaml:"created_at"`
}

// IsNegative reports whether the review counts against the target.
func (r *Review) IsNegative() bool {
	return r.OverallRating <= 2
}

// IsPositive reports whether the review counts as favourable.
func (r *Review) IsPositive() bool {
	return r.OverallRating >= 4
}

// Task status constants
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// Task is a unit of work assigned to a supplier.
type Task struct {
	ID            string     `json:"id" yaml:"id"`
	AssignedTo    string     `json:"assigned_to" yaml:"assigned_to"`
	Status        string     `json:"status" yaml:"status"`
	DueDate       *time.Time `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	QualityRating *float64   `json:"quality_rating,omitempty" yaml:"quality_rating,omitempty"` // 1-5
}

// IsCompleted reports whether the task has been completed.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// IsOnTime reports whether a completed task finished no later than its due date.
// Tasks without a due date or completion time are never on time.
func (t *Task) IsOnTime() bool {
	if !t.IsCompleted() || t.DueDate == nil || t.CompletedAt == nil {
		return false
	}
	return !t.CompletedAt.After(*t.DueDate)
}

// Signature status constants
const (
	SignatureStatusPending = "pending"
	SignatureStatusSigned  = "signed"
	SignatureStatusRevoked = "revoked"
)

// Signature is a digital signature produced by a supplier.
type Signature struct {
	ID       string `json:"id" yaml:"id"`
	SignedBy string `json:"signed_by" yaml:"signed_by"`
	Status   string `json:"status" yaml:"status"`
	IsValid  bool   `json:"is_valid" yaml:"is_valid"`
}

// Drug status constants
const (
	DrugStatusActive    = "active"
	DrugStatusInactive  = "inactive"
	DrugStatusSuspended = "suspended"
)

// Quality test result values as stored in drug batch documents
const (
	TestResultPassed  = "đạt"           // passed
	TestResultFailed  = "không đạt"     // failed
	TestResultPending = "đang kiểm tra" // under test
)

// QualityTest is the laboratory test outcome attached to a drug batch.
type QualityTest struct {
	TestResult string     `json:"test_result" yaml:"test_result"`
	TestDate   *time.Time `json:"test_date,omitempty" yaml:"test_date,omitempty"`
}

// Passed reports a passing test result.
func (q QualityTest) Passed() bool { return q.TestResult == TestResultPassed }

// Failed reports a failing test result.
func (q QualityTest) Failed() bool { return q.TestResult == TestResultFailed }

// Pending reports a test still in progress.
func (q QualityTest) Pending() bool { return q.TestResult == TestResultPending }

// Recorded reports whether the test produced a final result.
func (q QualityTest) Recorded() bool { return q.Passed() || q.Failed() }

// DrugBatch is a manufactured lot of a drug.
type DrugBatch struct {
	ID             string      `json:"id" yaml:"id"`
	BatchNumber    string      `json:"batch_number" yaml:"batch_number"`
	Name           string      `json:"name" yaml:"name"`
	ManufacturerID string      `json:"manufacturer_id" yaml:"manufacturer_id"`
	IsRecalled     bool        `json:"is_recalled" yaml:"is_recalled"`
	ExpiryDate     time.Time   `json:"expiry_date" yaml:"expiry_date"`
	Status         string      `json:"status" yaml:"status"`
	QualityTest    QualityTest `json:"quality_test" yaml:"quality_test"`
}

// IsValid reports whether the batch passed testing, is not recalled and is active.
func (d *DrugBatch) IsValid() bool {
	return d.QualityTest.Passed() && !d.IsRecalled && d.Status == DrugStatusActive
}
