package envconfig

import "github.com/TheoDuToit1/sella/internal/payfast"

// LoadPayFastConfig loads payment gateway credentials from environment
// variables. PAYFAST_SANDBOX defaults to true so a misconfigured
// deployment talks to the sandbox rather than the live gateway.
func LoadPayFastConfig() payfast.Config {
	return payfast.Config{
		MerchantID:  GetEnv("PAYFAST_MERCHANT_ID", ""),
		MerchantKey: GetEnv("PAYFAST_MERCHANT_KEY", ""),
		Passphrase:  GetEnv("PAYFAST_PASSPHRASE", ""),
		Sandbox:     GetBool("PAYFAST_SANDBOX", true),
	}
}
