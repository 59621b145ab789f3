package capturelead

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"retail-chat-workers/internal/chat"
	"retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/common/metrics"
	"retail-chat-workers/internal/common/validation"
	"retail-chat-workers/internal/common/zoho"
	"retail-chat-workers/internal/hybrid"
)

// ErrLeadCaptureFailed wraps every CRM write failure.
var ErrLeadCaptureFailed = stderrors.New("lead capture failed")

type Service struct {
	config *Config
	leads  LeadStore
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config: config,
		leads:  deps.Leads,
		email:  deps.Email,
		sms:    deps.SMS,
		logger: deps.Logger,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	email := strings.TrimSpace(input.Email)
	if !validation.ValidateEmail(email) {
		return nil, errors.NewLeadValidationError(fmt.Sprintf("invalid email address %q", input.Email))
	}
	if input.Phone != "" && !validation.ValidatePhone(input.Phone) {
		return nil, errors.NewLeadValidationError(fmt.Sprintf("invalid phone number %q", input.Phone))
	}

	lead := s.buildLead(email, input)
	output := &Output{Priority: Priority(input)}

	existing, err := s.leads.FindLeadByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("Lead lookup failed, creating a new lead", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
	}

	if existing != nil {
		if err := s.leads.UpdateLead(ctx, existing.ID, lead); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLeadCaptureFailed, errors.NewLeadCaptureFailedError(err))
		}
		output.LeadID = existing.ID
		output.Existing = true
	} else {
		lead.LeadStatus = "Not Contacted"
		id, err := s.leads.CreateLead(ctx, lead)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLeadCaptureFailed, errors.NewLeadCaptureFailedError(err))
		}
		output.LeadID = id
	}
	metrics.LeadsCaptured.WithLabelValues(output.Priority).Inc()

	s.logger.Info("Lead captured", map[string]interface{}{
		"leadId":   output.LeadID,
		"priority": output.Priority,
		"existing": output.Existing,
		"session":  input.SessionID,
	})

	emailErr := s.notifyByEmail(ctx, lead, output)
	smsErr := s.notifyBySMS(ctx, input, output)

	// A high-priority lead must reach sales through at least one channel.
	if output.Priority == PriorityHigh && !output.EmailSent && !output.SMSSent {
		if smsErr != nil {
			return nil, errors.NewNotificationSendFailedError("sms", smsErr)
		}
		if emailErr != nil {
			return nil, errors.NewNotificationSendFailedError("email", emailErr)
		}
	}
	return output, nil
}

// Priority ranks a lead from its size, stage and intent.
func Priority(input *Input) string {
	switch {
	case input.BusinessSize == "enterprise",
		input.QualificationStage == chat.StageDemoScheduling,
		input.Intent == hybrid.IntentDemoRequest:
		return PriorityHigh
	case input.BusinessSize == "medium",
		input.QualificationStage == chat.StageLeadCapture,
		input.Intent == hybrid.IntentPricing:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func (s *Service) buildLead(email string, input *Input) *zoho.Lead {
	first, last := splitName(input.Name)
	if last == "" {
		last = strings.SplitN(email, "@", 2)[0]
	}
	company := input.Company
	if company == "" {
		company = "Unknown"
	}
	return &zoho.Lead{
		Email:       email,
		FirstName:   first,
		LastName:    last,
		Company:     company,
		Phone:       input.Phone,
		Industry:    input.BusinessType,
		LeadSource:  s.config.LeadSource,
		Description: describe(input),
	}
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func describe(input *Input) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Business type", input.BusinessType)
	add("Business size", input.BusinessSize)
	add("Qualification stage", input.QualificationStage)
	add("Pain points", strings.Join(input.PainPoints, ", "))
	add("Last intent", input.Intent)
	add("Chat session", input.SessionID)
	return strings.Join(lines, "\n")
}

func (s *Service) notifyByEmail(ctx context.Context, lead *zoho.Lead, output *Output) error {
	if s.email == nil || len(s.config.SalesRecipients) == 0 {
		return nil
	}
	subject := fmt.Sprintf("[%s] New chat lead: %s", strings.ToUpper(output.Priority), displayName(lead))
	body := fmt.Sprintf("A visitor shared their contact details in the website chat.\n\nName: %s %s\nEmail: %s\nCompany: %s\nPhone: %s\nZoho lead: %s\n\n%s\n",
		lead.FirstName, lead.LastName, lead.Email, lead.Company, lead.Phone, output.LeadID, lead.Description)

	if _, err := s.email.SendEmail(ctx, s.config.SalesRecipients, subject, body); err != nil {
		s.logger.Warn("Sales email failed", map[string]interface{}{"leadId": output.LeadID, "error": err.Error()})
		return err
	}
	output.EmailSent = true
	return nil
}

// notifyBySMS texts the sales phones for high-priority leads only.
func (s *Service) notifyBySMS(ctx context.Context, input *Input, output *Output) error {
	if s.sms == nil || output.Priority != PriorityHigh || len(s.config.SalesPhones) == 0 {
		return nil
	}
	message := fmt.Sprintf("Hot chat lead %s (%s, %s). Zoho %s", input.Email, orDash(input.Company), orDash(input.BusinessSize), output.LeadID)

	var lastErr error
	for _, phone := range s.config.SalesPhones {
		if _, err := s.sms.SendSMS(ctx, phone, message); err != nil {
			s.logger.Warn("Sales SMS failed", map[string]interface{}{"phone": phone, "error": err.Error()})
			lastErr = err
			continue
		}
		output.SMSSent = true
	}
	if output.SMSSent {
		return nil
	}
	return lastErr
}

func displayName(lead *zoho.Lead) string {
	name := strings.TrimSpace(lead.FirstName + " " + lead.LastName)
	if lead.Company != "" && lead.Company != "Unknown" {
		return name + " (" + lead.Company + ")"
	}
	return name
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
