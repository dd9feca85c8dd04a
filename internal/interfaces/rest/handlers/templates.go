package handlers

const payPageHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Redirecting to payment gateway</title></head>
<body onload="document.forms[0].submit()">
  <p>Redirecting to the payment gateway...</p>
  <form method="post" action="{{.Action}}">
    <input type="hidden" name="MerchantID" value="{{.MerchantID}}">
    <input type="hidden" name="TerminalID" value="{{.TerminalID}}">
    <input type="hidden" name="Token" value="{{.Token}}">
    <noscript><button type="submit">Continue to payment</button></noscript>
  </form>
</body>
</html>
`

const errorPageHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Payment failed</title></head>
<body>
  <h1>Payment failed</h1>
  <p>Error code: {{.ErrorCode}}</p>
  <p>{{.Message}}</p>
</body>
</html>
`

const completedPageHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Payment completed</title></head>
<body>
  <h1>Thank you</h1>
  <p>Payment for order {{.OrderID}} has been confirmed.</p>
</body>
</html>
`
