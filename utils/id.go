package utils

import (
	"crypto/rand"
	"math/big"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Identifier prefixes.
const (
	PrefixOrder         = "order_"
	PrefixPayment       = "pay_"
	PrefixRefund        = "rfnd_"
	PrefixWebhookSecret = "whsec_"
)

// RandomString returns n characters drawn from [A-Za-z0-9].
func RandomString(n int) string {
	max := big.NewInt(int64(len(idAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		buf[i] = idAlphabet[idx.Int64()]
	}
	return string(buf)
}

// GenerateID returns prefix followed by 16 random alphanumerics.
func GenerateID(prefix string) string {
	return prefix + RandomString(16)
}
