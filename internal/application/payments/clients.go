package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MpesaPushResult is the provider's synchronous acceptance of an STK push.
type MpesaPushResult struct {
	MerchantRequestID string `json:"merchant_request_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	CustomerMessage   string `json:"customer_message"`
}

// mpesaCallbackEnvelope mirrors the Daraja stkCallback payload.
type mpesaCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// MpesaHTTPClient talks to the Safaricom Daraja API.
type MpesaHTTPClient struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	HTTP           *http.Client
}

func NewMpesaHTTPClient(baseURL, consumerKey, consumerSecret, shortcode, passkey, callbackURL string) *MpesaHTTPClient {
	return &MpesaHTTPClient{
		BaseURL:        baseURL,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Shortcode:      shortcode,
		Passkey:        passkey,
		CallbackURL:    callbackURL,
		HTTP:           &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *MpesaHTTPClient) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(m.ConsumerKey, m.ConsumerSecret)

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return "", errors.New("Could not reach M-Pesa")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("M-Pesa auth failed with status %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.AccessToken == "" {
		return "", errors.New("M-Pesa returned an invalid auth response")
	}
	return out.AccessToken, nil
}

// InitiateSTKPush sends a CustomerPayBillOnline push to the phone.
func (m *MpesaHTTPClient) InitiateSTKPush(ctx context.Context, phone string, amount int, accountRef, description string) (*MpesaPushResult, error) {
	token, err := m.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(m.Shortcode + m.Passkey + timestamp))

	payload := map[string]interface{}{
		"BusinessShortCode": m.Shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            phone,
		"PartyB":            m.Shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       m.CallbackURL,
		"AccountReference":  accountRef,
		"TransactionDesc":   description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return nil, errors.New("Could not reach M-Pesa")
	}
	defer resp.Body.Close()

	var out struct {
		MerchantRequestID string `json:"MerchantRequestID"`
		CheckoutRequestID string `json:"CheckoutRequestID"`
		ResponseCode      string `json:"ResponseCode"`
		CustomerMessage   string `json:"CustomerMessage"`
		ErrorMessage      string `json:"errorMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.New("M-Pesa returned an invalid response")
	}
	if resp.StatusCode != http.StatusOK || out.ResponseCode != "0" {
		msg := out.ErrorMessage
		if msg == "" {
			msg = "M-Pesa rejected the payment request"
		}
		return nil, errors.New(msg)
	}
	return &MpesaPushResult{
		MerchantRequestID: out.MerchantRequestID,
		CheckoutRequestID: out.CheckoutRequestID,
		CustomerMessage:   out.CustomerMessage,
	}, nil
}

// PaystackVerifyResult is the outcome of a transaction verification.
type PaystackVerifyResult struct {
	Success         bool
	TransactionCode string
	AmountSubunits  int
	Raw             []byte
}

// PaystackHTTPClient talks to the Paystack REST API.
type PaystackHTTPClient struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	HTTP        *http.Client
}

func NewPaystackHTTPClient(baseURL, secretKey, callbackURL string) *PaystackHTTPClient {
	return &PaystackHTTPClient{
		BaseURL:     baseURL,
		SecretKey:   secretKey,
		CallbackURL: callbackURL,
		HTTP:        &http.Client{Timeout: 10 * time.Second},
	}
}

// Initialize creates a hosted checkout and returns its authorization URL.
func (p *PaystackHTTPClient) Initialize(ctx context.Context, email string, amountSubunits int, reference string) (string, error) {
	payload := map[string]interface{}{
		"email":     email,
		"amount":    amountSubunits,
		"reference": reference,
		"currency":  "KES",
	}
	if p.CallbackURL != "" {
		payload["callback_url"] = p.CallbackURL
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return "", errors.New("Could not reach Paystack")
	}
	defer resp.Body.Close()

	var out struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.New("Paystack returned an invalid response")
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		msg := out.Message
		if msg == "" {
			msg = "Paystack rejected the payment request"
		}
		return "", errors.New(msg)
	}
	return out.Data.AuthorizationURL, nil
}

// Verify fetches the final state of a transaction by reference.
func (p *PaystackHTTPClient) Verify(ctx context.Context, reference string) (*PaystackVerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.BaseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, errors.New("Could not reach Paystack")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New("Paystack returned an invalid response")
	}
	var out struct {
		Status bool `json:"status"`
		Data   struct {
			Status    string `json:"status"`
			Reference string `json:"reference"`
			Amount    int    `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.New("Paystack returned an invalid response")
	}
	if !out.Status {
		return nil, errors.New("Paystack could not verify this reference")
	}
	return &PaystackVerifyResult{
		Success:         out.Data.Status == "success",
		TransactionCode: out.Data.Reference,
		AmountSubunits:  out.Data.Amount,
		Raw:             raw,
	}, nil
}
