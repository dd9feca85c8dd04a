package sizpay

import "encoding/xml"

const tempuriNS = "http://tempuri.org/"

type requestEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    requestBody
}

type requestBody struct {
	XMLName xml.Name `xml:"soap:Body"`
	Payload any
}

// generateToken is the GetToken operation payload. The order identifier is
// sent both as OrderID and InvoiceNo, matching the gateway contract.
type generateToken struct {
	XMLName    xml.Name `xml:"GetToken"`
	XMLNS      string   `xml:"xmlns,attr"`
	UserName   string   `xml:"GenerateTokenData>UserName"`
	Password   string   `xml:"GenerateTokenData>Password"`
	MerchantID string   `xml:"GenerateTokenData>MerchantID"`
	TerminalID string   `xml:"GenerateTokenData>TerminalID"`
	Amount     int64    `xml:"GenerateTokenData>Amount"`
	DocDate    string   `xml:"GenerateTokenData>DocDate"`
	OrderID    string   `xml:"GenerateTokenData>OrderID"`
	ReturnURL  string   `xml:"GenerateTokenData>ReturnURL"`
	InvoiceNo  string   `xml:"GenerateTokenData>InvoiceNo"`
	ExtraInf   string   `xml:"GenerateTokenData>ExtraInf"`
}

type getTokenResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result getTokenResult `xml:"GetTokenResult"`
		} `xml:"GetTokenResponse"`
	} `xml:"Body"`
}

type getTokenResult struct {
	ResCod  int    `xml:"ResCod"`
	Message string `xml:"Message"`
	Token   string `xml:"Token"`
}

// paymentRequest is the Confirm operation payload.
type paymentRequest struct {
	XMLName    xml.Name `xml:"Confirm"`
	XMLNS      string   `xml:"xmlns,attr"`
	UserName   string   `xml:"PaymentRequestData>UserName"`
	Password   string   `xml:"PaymentRequestData>Password"`
	MerchantID string   `xml:"PaymentRequestData>MerchantID"`
	TerminalID string   `xml:"PaymentRequestData>TerminalID"`
	Token      string   `xml:"PaymentRequestData>Token"`
}

type confirmResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result confirmResult `xml:"ConfirmResult"`
		} `xml:"ConfirmResponse"`
	} `xml:"Body"`
}

type confirmResult struct {
	ResCod  int    `xml:"ResCod"`
	Message string `xml:"Message"`
	TraceNo string `xml:"TraceNo"`
	TransNo string `xml:"TransNo"`
}
