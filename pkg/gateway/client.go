// Package gateway wraps the external redirect-payment gateway: a transaction
// is opened server-side, the shopper is redirected to the gateway's payment
// page, and the gateway redirects back to a callback URL that must be
// confirmed with a server-side verify call.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Callback query parameters and the gateway's own status flag values.
const (
	ParamStatus    = "Status"
	ParamAuthority = "Authority"

	StatusOK        = "OK"
	StatusCancelled = "NOK"
)

type PaymentRequest struct {
	Amount       int64  `json:"amount"`
	Description  string `json:"description"`
	ContactPhone string `json:"contact_phone,omitempty"`
	CallbackURL  string `json:"callback_url"`
	OrderRef     string `json:"order_ref,omitempty"`
}

// PaymentSession is an accepted payment request: the token the gateway uses to
// identify the reservation and the page the shopper must be sent to.
type PaymentSession struct {
	AuthorityToken string `json:"authority"`
	RedirectURL    string `json:"redirect_url"`
}

type VerifyRequest struct {
	AuthorityToken string `json:"authority"`
	Amount         int64  `json:"amount"`
}

// VerifyResult reports the gateway's decision for one authority token.
// Success=false with a nil error is a definite rejection, not a transport
// failure.
type VerifyResult struct {
	Success     bool   `json:"success"`
	ReferenceID string `json:"reference_id,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
	ErrorReason string `json:"error_reason,omitempty"`
}

// Client defines the two operations any payment gateway must implement.
type Client interface {
	RequestPayment(ctx context.Context, req *PaymentRequest) (*PaymentSession, error)
	VerifyPayment(ctx context.Context, req *VerifyRequest) (*VerifyResult, error)
}

type httpClient struct {
	merchantID string
	baseURL    string
	client     *http.Client
}

func NewClient(merchantID, baseURL string, timeout time.Duration) Client {
	return &httpClient{
		merchantID: merchantID,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type requestPayload struct {
	MerchantID  string `json:"merchant_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	CallbackURL string `json:"callback_url"`
	Phone       string `json:"phone,omitempty"`
	OrderRef    string `json:"order_ref,omitempty"`
}

type requestReply struct {
	Authority  string `json:"authority"`
	PaymentURL string `json:"payment_url"`
	ErrorCode  int    `json:"error_code"`
	Message    string `json:"message"`
}

type verifyPayload struct {
	MerchantID string `json:"merchant_id"`
	Authority  string `json:"authority"`
	Amount     int64  `json:"amount"`
}

type verifyReply struct {
	Status      int    `json:"status"`
	ReferenceID string `json:"ref_id"`
	Message     string `json:"message"`
}

// gateway status code for a verified payment.
const verifiedStatus = 100

// RequestPayment implements Client.
func (c *httpClient) RequestPayment(ctx context.Context, req *PaymentRequest) (*PaymentSession, error) {
	payload := requestPayload{
		MerchantID:  c.merchantID,
		Amount:      req.Amount,
		Description: req.Description,
		CallbackURL: req.CallbackURL,
		Phone:       req.ContactPhone,
		OrderRef:    req.OrderRef,
	}

	var reply requestReply
	if err := c.post(ctx, "/payment/request", payload, &reply); err != nil {
		return nil, err
	}

	if reply.Authority == "" || reply.PaymentURL == "" {
		return nil, fmt.Errorf("gateway rejected payment request (code %d): %s", reply.ErrorCode, reply.Message)
	}

	return &PaymentSession{
		AuthorityToken: reply.Authority,
		RedirectURL:    reply.PaymentURL,
	}, nil
}

// VerifyPayment implements Client.
func (c *httpClient) VerifyPayment(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	payload := verifyPayload{
		MerchantID: c.merchantID,
		Authority:  req.AuthorityToken,
		Amount:     req.Amount,
	}

	var reply verifyReply
	if err := c.post(ctx, "/payment/verify", payload, &reply); err != nil {
		return nil, err
	}

	if reply.Status != verifiedStatus {
		return &VerifyResult{
			Success:     false,
			ErrorCode:   reply.Status,
			ErrorReason: reply.Message,
		}, nil
	}

	return &VerifyResult{
		Success:     true,
		ReferenceID: reply.ReferenceID,
	}, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload, reply any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(reply); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return nil
}
