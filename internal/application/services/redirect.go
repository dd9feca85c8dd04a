package services

import (
	"net/url"
	"strconv"
)

// Route paths served by the REST layer. The services build redirect targets
// against these, the router mounts handlers on them.
const (
	PayPath    = "/sizpay/pay"
	VerifyPath = "/sizpay/verify"
	ErrorPath  = "/sizpay/error"
)

// LocalErrorCode marks failures assigned by this service rather than by the
// gateway (transport faults, verification failures).
const LocalErrorCode = -1

// Redirect is the routed outcome of a protocol step: the URL the buyer's
// browser is sent to next.
type Redirect struct {
	URL string
}

func payPageRedirect(merchantID, terminalID, token string) *Redirect {
	q := url.Values{}
	q.Set("MerchantID", merchantID)
	q.Set("TerminalID", terminalID)
	q.Set("Token", token)
	return &Redirect{URL: PayPath + "?" + q.Encode()}
}

func errorPageRedirect(code int, message string) *Redirect {
	q := url.Values{}
	q.Set("ErrorCode", strconv.Itoa(code))
	q.Set("Message", message)
	return &Redirect{URL: ErrorPath + "?" + q.Encode()}
}
