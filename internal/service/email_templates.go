package service

import (
	"fmt"
	"strings"
)

func refundReceiptEmailTemplate(orderID string, tokens int, price, historyURL, appName string) (string, string) {
	subject := fmt.Sprintf("Your %s refund has been processed", appName)
	body := fmt.Sprintf(`Hi,

Your purchase has been refunded.

Order: %s
Tokens: %d
Amount: %s

It can take 5-10 business days for the refund to appear on your statement.

You can review your token history here: %s

Best,
The %s Team`, orderID, tokens, price, historyURL, appName)

	return subject, body
}

func adminGrantedEmailTemplate(adminURL, appName string) (string, string) {
	subject := fmt.Sprintf("You are now an administrator of %s", appName)
	body := fmt.Sprintf(`Hi,

You have been granted administrator access to %s.

Open the back office: %s

If you did not expect this, please contact the other administrators.

Best,
The %s Team`, appName, adminURL, appName)

	return subject, body
}

func adminRevokedEmailTemplate(appName string) (string, string) {
	subject := fmt.Sprintf("Your %s administrator access was removed", appName)
	body := fmt.Sprintf(`Hi,

Your administrator access to %s has been removed. Your regular account is unchanged.

Best,
The %s Team`, appName, appName)

	return subject, body
}

// formatPrice renders minor units, e.g. 1999 usd -> 19.99 USD.
func formatPrice(amount int64, currency string) string {
	currency = strings.ToUpper(currency)
	switch currency {
	case "", "KRW", "JPY":
		return strings.TrimSpace(fmt.Sprintf("%d %s", amount, currency))
	default:
		return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, currency)
	}
}
