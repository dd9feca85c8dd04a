// Package sizpay implements the GatewayClient port against the SizPay
// KimiaIPG SOAP route service.
package sizpay

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/nopfarsi/sizpay-gateway/internal/application"
	"github.com/nopfarsi/sizpay-gateway/internal/config"
)

const soapNS = "http://schemas.xmlsoap.org/soap/envelope/"

type Client struct {
	endpoint   string
	merchantID string
	terminalID string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient builds a gateway client from configuration. The default HTTP
// transport is used, so the gateway's certificate chain is fully verified.
func NewClient(cfg config.GatewayConfig) application.GatewayClient {
	return &Client{
		endpoint:   cfg.RouteServiceURL,
		merchantID: cfg.MerchantID,
		terminalID: cfg.TerminalID,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

func (c *Client) RequestToken(ctx context.Context, req application.TokenRequest) (*application.TokenResponse, error) {
	payload := generateToken{
		XMLNS:      tempuriNS,
		UserName:   c.username,
		Password:   c.password,
		MerchantID: c.merchantID,
		TerminalID: c.terminalID,
		Amount:     req.Amount,
		DocDate:    req.DocDate,
		OrderID:    req.OrderID,
		ReturnURL:  req.ReturnURL,
		InvoiceNo:  req.InvoiceNo,
	}

	var envelope getTokenResponseEnvelope
	if err := c.call(ctx, "GetToken", payload, &envelope); err != nil {
		return nil, err
	}

	result := envelope.Body.Response.Result
	return &application.TokenResponse{
		ResCod:  result.ResCod,
		Message: result.Message,
		Token:   result.Token,
	}, nil
}

func (c *Client) ConfirmPayment(ctx context.Context, req application.ConfirmRequest) (*application.ConfirmResponse, error) {
	// Confirmation always carries the configured credential set; tokens are
	// the only caller-supplied input.
	payload := paymentRequest{
		XMLNS:      tempuriNS,
		UserName:   c.username,
		Password:   c.password,
		MerchantID: c.merchantID,
		TerminalID: c.terminalID,
		Token:      req.Token,
	}

	var envelope confirmResponseEnvelope
	if err := c.call(ctx, "Confirm", payload, &envelope); err != nil {
		return nil, err
	}

	result := envelope.Body.Response.Result
	return &application.ConfirmResponse{
		ResCod:  result.ResCod,
		Message: result.Message,
		TraceNo: result.TraceNo,
		TransNo: result.TransNo,
	}, nil
}

func (c *Client) call(ctx context.Context, operation string, payload any, out any) error {
	body, err := xml.Marshal(requestEnvelope{
		SoapNS: soapNS,
		Body:   requestBody{Payload: payload},
	})
	if err != nil {
		return fmt.Errorf("error marshalling %s envelope: %w", operation, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		bytes.NewReader(append([]byte(xml.Header), body...)))
	if err != nil {
		return fmt.Errorf("error creating %s request: %w", operation, err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", tempuriNS+operation)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error calling %s: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s response: %w", operation, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &ProtocolError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if err := xml.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error decoding %s envelope: %w", operation, err)
	}

	return nil
}
