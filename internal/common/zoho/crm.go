package zoho

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

// CRMClient talks to the Zoho CRM v3 Leads module.
type CRMClient struct {
	http *resty.Client
}

// Lead is the subset of Zoho lead fields populated from a chat conversation.
type Lead struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"Email"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Company     string `json:"Company"`
	Phone       string `json:"Phone,omitempty"`
	Industry    string `json:"Industry,omitempty"`
	LeadSource  string `json:"Lead_Source,omitempty"`
	LeadStatus  string `json:"Lead_Status,omitempty"`
	Description string `json:"Description,omitempty"`
}

type recordResult struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		ID string `json:"id"`
	} `json:"details"`
}

type writeResponse struct {
	Data []recordResult `json:"data"`
}

type searchResponse struct {
	Data []Lead `json:"data"`
}

func NewCRMClient(baseURL, oauthToken string) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &CRMClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Zoho-oauthtoken "+oauthToken).
			SetTimeout(30 * time.Second),
	}
}

// CreateLead inserts a lead and returns its Zoho record id.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	var out writeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"data": []Lead{*lead}}).
		SetResult(&out).
		Post("/Leads")
	if err != nil {
		return "", fmt.Errorf("create lead request: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("create lead failed (status %d): %s", resp.StatusCode(), resp.String())
	}
	return firstRecordID(out, "create lead")
}

// UpdateLead patches an existing lead.
func (c *CRMClient) UpdateLead(ctx context.Context, leadID string, lead *Lead) error {
	var out writeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", leadID).
		SetBody(map[string]interface{}{"data": []Lead{*lead}}).
		SetResult(&out).
		Put("/Leads/{id}")
	if err != nil {
		return fmt.Errorf("update lead request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("update lead failed (status %d): %s", resp.StatusCode(), resp.String())
	}
	_, err = firstRecordID(out, "update lead")
	return err
}

// FindLeadByEmail returns nil without error when no lead matches.
func (c *CRMClient) FindLeadByEmail(ctx context.Context, email string) (*Lead, error) {
	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("email", email).
		SetResult(&out).
		Get("/Leads/search")
	if err != nil {
		return nil, fmt.Errorf("search lead request: %w", err)
	}
	if resp.StatusCode() == http.StatusNoContent {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search lead failed (status %d): %s", resp.StatusCode(), resp.String())
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}

func firstRecordID(out writeResponse, op string) (string, error) {
	if len(out.Data) == 0 {
		return "", fmt.Errorf("%s: no data in response", op)
	}
	if out.Data[0].Status != "success" {
		return "", fmt.Errorf("%s: %s (%s)", op, out.Data[0].Message, out.Data[0].Code)
	}
	return out.Data[0].Details.ID, nil
}
