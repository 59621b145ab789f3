package capturelead

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"retail-chat-workers/internal/common/camunda/jobtest"
	"retail-chat-workers/internal/common/config"
	"retail-chat-workers/internal/common/errors"
	"retail-chat-workers/internal/common/logger"
	"retail-chat-workers/internal/common/zoho"
	"retail-chat-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLeadStore struct {
	mock.Mock
}

func (m *MockLeadStore) FindLeadByEmail(ctx context.Context, email string) (*zoho.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*zoho.Lead), args.Error(1)
}

func (m *MockLeadStore) CreateLead(ctx context.Context, lead *zoho.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

func (m *MockLeadStore) UpdateLead(ctx context.Context, leadID string, lead *zoho.Lead) error {
	return m.Called(ctx, leadID, lead).Error(0)
}

type MockEmail struct {
	mock.Mock
}

func (m *MockEmail) SendEmail(ctx context.Context, to []string, subject, body string) (string, error) {
	args := m.Called(ctx, to, subject, body)
	return args.String(0), args.Error(1)
}

type MockSMS struct {
	mock.Mock
}

func (m *MockSMS) SendSMS(ctx context.Context, phoneNumber, message string) (string, error) {
	args := m.Called(ctx, phoneNumber, message)
	return args.String(0), args.Error(1)
}

func createMockJob(variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       99,
		Type:      TaskType,
		Retries:   3,
		Variables: string(variablesJSON),
	}}
}

func createValidConfig() *Config {
	return &Config{
		Enabled:         true,
		MaxJobsActive:   5,
		Timeout:         30 * time.Second,
		LeadSource:      "Website Chat",
		SalesRecipients: []string{"sales@retail.ai"},
		SalesPhones:     []string{"+15550100"},
	}
}

type fixture struct {
	leads   *MockLeadStore
	email   *MockEmail
	sms     *MockSMS
	handler *Handler
}

func newFixture(t *testing.T) *fixture {
	reg, err := registry.Default()
	require.NoError(t, err)

	f := &fixture{leads: new(MockLeadStore), email: new(MockEmail), sms: new(MockSMS)}
	f.handler, err = NewHandler(HandlerOptions{
		CustomConfig: createValidConfig(),
		Leads:        f.leads,
		Email:        f.email,
		SMS:          f.sms,
		Registry:     reg,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return f
}

func TestHandler_NewHandler(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: createValidConfig()})
	assert.ErrorContains(t, err, "lead store is required")

	cfg := createValidConfig()
	cfg.LeadSource = ""
	_, err = NewHandler(HandlerOptions{CustomConfig: cfg, Leads: new(MockLeadStore)})
	assert.ErrorContains(t, err, "lead_source is required")
}

func TestHandler_ConfigFromAppConfig(t *testing.T) {
	appCfg := &config.Config{}
	appCfg.Integrations.Zoho.LeadSource = "Chat Widget"
	appCfg.Integrations.AWS.SES.Enabled = true
	appCfg.Integrations.AWS.SES.SalesRecipients = []string{"a@retail.ai", "b@retail.ai"}
	appCfg.Integrations.AWS.SNS.Enabled = false
	appCfg.Integrations.AWS.SNS.SalesPhones = []string{"+15550100"}

	handler, err := NewHandler(HandlerOptions{AppConfig: appCfg, Leads: new(MockLeadStore)})
	require.NoError(t, err)

	assert.Equal(t, "Chat Widget", handler.GetConfig().LeadSource)
	assert.Len(t, handler.GetConfig().SalesRecipients, 2)
	assert.Empty(t, handler.GetConfig().SalesPhones)
}

func TestHandler_ParseInput(t *testing.T) {
	f := newFixture(t)

	input, err := f.handler.parseInput(createMockJob(map[string]interface{}{
		"email":        "jane@acme.com",
		"name":         "Jane Q Doe",
		"businessSize": "enterprise",
		"painPoints":   []interface{}{"stockouts"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "jane@acme.com", input.Email)
	assert.Equal(t, []string{"stockouts"}, input.PainPoints)

	for name, vars := range map[string]map[string]interface{}{
		"missing email": {"name": "Jane"},
		"bad email":     {"email": "not-an-email"},
		"bad size":      {"email": "jane@acme.com", "businessSize": "huge"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.handler.parseInput(createMockJob(vars))
			require.Error(t, err)
			assert.Equal(t, string(errors.ErrCodeLeadValidationFailed), extractErrorCode(err))
		})
	}
}

func TestPriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, Priority(&Input{BusinessSize: "enterprise"}))
	assert.Equal(t, PriorityHigh, Priority(&Input{QualificationStage: "demo_scheduling"}))
	assert.Equal(t, PriorityHigh, Priority(&Input{Intent: "demo_request"}))
	assert.Equal(t, PriorityMedium, Priority(&Input{BusinessSize: "medium"}))
	assert.Equal(t, PriorityMedium, Priority(&Input{QualificationStage: "lead_capture"}))
	assert.Equal(t, PriorityLow, Priority(&Input{BusinessSize: "small"}))
}

func TestExecute_NewHighPriorityLead(t *testing.T) {
	f := newFixture(t)

	f.leads.On("FindLeadByEmail", mock.Anything, "jane@acme.com").Return(nil, nil)
	f.leads.On("CreateLead", mock.Anything, mock.MatchedBy(func(l *zoho.Lead) bool {
		return l.FirstName == "Jane" && l.LastName == "Doe" && l.Company == "Acme" &&
			l.LeadSource == "Website Chat" && l.LeadStatus == "Not Contacted" &&
			strings.Contains(l.Description, "Pain points: stockouts, manual_processes")
	})).Return("zl-1", nil)
	f.email.On("SendEmail", mock.Anything, []string{"sales@retail.ai"}, mock.MatchedBy(func(subject string) bool {
		return strings.HasPrefix(subject, "[HIGH]") && strings.Contains(subject, "Jane Doe (Acme)")
	}), mock.Anything).Return("ses-1", nil)
	f.sms.On("SendSMS", mock.Anything, "+15550100", mock.Anything).Return("sns-1", nil)

	output, err := f.handler.Execute(context.Background(), &Input{
		SessionID:    "sess-1",
		Email:        "jane@acme.com",
		Name:         "Jane Doe",
		Company:      "Acme",
		BusinessSize: "enterprise",
		PainPoints:   []string{"stockouts", "manual_processes"},
	})

	require.NoError(t, err)
	assert.Equal(t, &Output{LeadID: "zl-1", Priority: PriorityHigh, EmailSent: true, SMSSent: true}, output)
	f.leads.AssertExpectations(t)
	f.email.AssertExpectations(t)
	f.sms.AssertExpectations(t)
}

func TestExecute_ExistingLeadIsUpdated(t *testing.T) {
	f := newFixture(t)

	f.leads.On("FindLeadByEmail", mock.Anything, "sam@shop.io").Return(&zoho.Lead{ID: "zl-9"}, nil)
	f.leads.On("UpdateLead", mock.Anything, "zl-9", mock.MatchedBy(func(l *zoho.Lead) bool {
		return l.LastName == "sam" && l.Company == "Unknown" && l.LeadStatus == ""
	})).Return(nil)
	f.email.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ses-2", nil)

	output, err := f.handler.Execute(context.Background(), &Input{Email: "sam@shop.io", BusinessSize: "small"})

	require.NoError(t, err)
	assert.True(t, output.Existing)
	assert.Equal(t, "zl-9", output.LeadID)
	assert.Equal(t, PriorityLow, output.Priority)
	assert.False(t, output.SMSSent)
	f.leads.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_LookupFailureFallsBackToCreate(t *testing.T) {
	f := newFixture(t)

	f.leads.On("FindLeadByEmail", mock.Anything, mock.Anything).Return(nil, stderrors.New("search unavailable"))
	f.leads.On("CreateLead", mock.Anything, mock.Anything).Return("zl-2", nil)
	f.email.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ses-3", nil)

	output, err := f.handler.Execute(context.Background(), &Input{Email: "lee@store.com"})
	require.NoError(t, err)
	assert.Equal(t, "zl-2", output.LeadID)
}

func TestExecute_Failures(t *testing.T) {
	t.Run("crm create fails", func(t *testing.T) {
		f := newFixture(t)
		f.leads.On("FindLeadByEmail", mock.Anything, mock.Anything).Return(nil, nil)
		f.leads.On("CreateLead", mock.Anything, mock.Anything).Return("", stderrors.New("status 500"))

		_, err := f.handler.Execute(context.Background(), &Input{Email: "lee@store.com"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLeadCaptureFailed)
		assert.Equal(t, string(errors.ErrCodeLeadCaptureFailed), extractErrorCode(err))
		f.email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid phone", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.handler.Execute(context.Background(), &Input{Email: "lee@store.com", Phone: "12"})
		assert.Equal(t, string(errors.ErrCodeLeadValidationFailed), extractErrorCode(err))
	})

	t.Run("low priority notification failure is tolerated", func(t *testing.T) {
		f := newFixture(t)
		f.leads.On("FindLeadByEmail", mock.Anything, mock.Anything).Return(nil, nil)
		f.leads.On("CreateLead", mock.Anything, mock.Anything).Return("zl-3", nil)
		f.email.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", stderrors.New("throttled"))

		output, err := f.handler.Execute(context.Background(), &Input{Email: "lee@store.com"})
		require.NoError(t, err)
		assert.False(t, output.EmailSent)
	})

	t.Run("high priority lead with no channel delivered", func(t *testing.T) {
		f := newFixture(t)
		f.leads.On("FindLeadByEmail", mock.Anything, mock.Anything).Return(nil, nil)
		f.leads.On("CreateLead", mock.Anything, mock.Anything).Return("zl-4", nil)
		f.email.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", stderrors.New("throttled"))
		f.sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return("", stderrors.New("opted out"))

		_, err := f.handler.Execute(context.Background(), &Input{Email: "cto@bigbox.com", Intent: "demo_request"})
		require.Error(t, err)
		assert.Equal(t, string(errors.ErrCodeNotificationSendFailed), extractErrorCode(err))
	})
}

func TestHandler_Handle_FailsJobAfterSlowCRM(t *testing.T) {
	f := newFixture(t)
	f.handler.config.Timeout = 200 * time.Millisecond

	f.leads.On("FindLeadByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	f.leads.On("CreateLead", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded)

	client := jobtest.NewClient()
	f.handler.Handle(client, createMockJob(map[string]interface{}{"email": "lee@store.com"}))

	failed := client.Gateway.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, int64(99), failed[0].JobKey)
	assert.Equal(t, int32(2), failed[0].Retries)
	assert.Zero(t, client.Gateway.Rejected())
}
