package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Role string

type RiskLevel string

type LoanStage string

const (
	RoleBeneficiary Role = "beneficiary"
	RoleOfficer     Role = "officer"
	RoleAdmin       Role = "admin"

	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"

	LoanStageRegistered   LoanStage = "Registered"
	LoanStageVerification LoanStage = "Verification"
	LoanStageApproved     LoanStage = "Approved"
	LoanStageFlagged      LoanStage = "Flagged"
	LoanStageActive       LoanStage = "Active"
	LoanStageDefaulted    LoanStage = "Defaulted"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	switch r {
	case RoleBeneficiary, RoleOfficer, RoleAdmin:
		return true
	default:
		return false
	}
}

// Valid сообщает, входит ли уровень риска в закрытый набор.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// Valid сообщает, известна ли стадия займа.
func (s LoanStage) Valid() bool {
	switch s {
	case LoanStageRegistered, LoanStageVerification, LoanStageApproved,
		LoanStageFlagged, LoanStageActive, LoanStageDefaulted:
		return true
	default:
		return false
	}
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar,omitempty"`
	Role         Role      `json:"role"`
	Region       string    `json:"region"`
	// Demo-аккаунты входят по email без пароля.
	Demo      bool      `json:"demo"`
	CreatedAt time.Time `json:"created_at"`
}

// Beneficiary is a portfolio entry reviewed by officers.
type Beneficiary struct {
	ID         uuid.UUID   `json:"id"`
	UserID     *uuid.UUID  `json:"user_id,omitempty"`
	Name       string      `json:"name"`
	Region     string      `json:"region"`
	Occupation string      `json:"occupation,omitempty"`
	LoanAmount float64     `json:"loan_amount"`
	Score      *int        `json:"score"`
	Risk       *RiskLevel  `json:"risk"`
	Insights   []string    `json:"insights"`
	ScoredByAI bool        `json:"scored_by_ai"`
	LoanStage  LoanStage   `json:"loan_stage"`
	StageNote  string      `json:"stage_note,omitempty"`
	ReviewedBy *uuid.UUID  `json:"reviewed_by,omitempty"`
	Repayments []Repayment `json:"-"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type Repayment struct {
	ID      string  `json:"id"`
	DueDate string  `json:"due_date"`
	Amount  float64 `json:"amount"`
	Status  string  `json:"status"`
}

type Advice struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Advice string `json:"advice"`
}

type RiskShare struct {
	Risk    RiskLevel `json:"risk"`
	Count   int       `json:"count"`
	Percent float64   `json:"percent"`
}

type PortfolioStats struct {
	TotalBeneficiaries int               `json:"total_beneficiaries"`
	ActiveLoans        int               `json:"active_loans"`
	AverageScore       float64           `json:"average_score"`
	DefaultRate        float64           `json:"default_rate"`
	TotalLoanAmount    string            `json:"total_loan_amount"`
	RiskDistribution   []RiskShare       `json:"risk_distribution"`
	LoanStages         map[LoanStage]int `json:"loan_stages"`
}

type AIRequest struct {
	ID              uuid.UUID       `json:"id"`
	UserID          *uuid.UUID      `json:"user_id,omitempty"`
	Flow            string          `json:"flow"`
	Provider        string          `json:"provider"`
	Model           string          `json:"model"`
	Prompt          string          `json:"prompt"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	RawResponse     *string         `json:"raw_response,omitempty"`
	Success         bool            `json:"success"`
	ErrorKind       *string         `json:"error_kind,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	LatencyMS       int64           `json:"latency_ms"`
	CreatedAt       time.Time       `json:"created_at"`
}

type FlowUsage struct {
	Flow        string     `json:"flow"`
	Requests    int        `json:"requests"`
	Failures    int        `json:"failures"`
	AvgLatency  float64    `json:"avg_latency_ms"`
	LastRequest *time.Time `json:"last_request,omitempty"`
}
