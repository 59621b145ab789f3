package capturelead

import (
	"context"

	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/common/zoho"
)

type Input struct {
	SessionID          string   `json:"sessionId,omitempty"`
	Email              string   `json:"email"`
	Name               string   `json:"name,omitempty"`
	Company            string   `json:"company,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	BusinessType       string   `json:"businessType,omitempty"`
	BusinessSize       string   `json:"businessSize,omitempty"`
	QualificationStage string   `json:"qualificationStage,omitempty"`
	PainPoints         []string `json:"painPoints,omitempty"`
	Intent             string   `json:"intent,omitempty"`
}

type Output struct {
	LeadID    string `json:"leadId"`
	Priority  string `json:"priority"`
	Existing  bool   `json:"existing"`
	EmailSent bool   `json:"emailSent"`
	SMSSent   bool   `json:"smsSent"`
}

// Lead priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// LeadStore is implemented by zoho.CRMClient.
type LeadStore interface {
	FindLeadByEmail(ctx context.Context, email string) (*zoho.Lead, error)
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
	UpdateLead(ctx context.Context, leadID string, lead *zoho.Lead) error
}

// EmailSender is implemented by aws.SESClient.
type EmailSender interface {
	SendEmail(ctx context.Context, to []string, subject, body string) (string, error)
}

// SMSSender is implemented by aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) (string, error)
}

type ServiceDependencies struct {
	Leads  LeadStore
	Email  EmailSender
	SMS    SMSSender
	Logger logger.Logger
}
