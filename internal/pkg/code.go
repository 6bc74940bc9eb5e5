package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OTPLength is the number of digits of an invitation code.
const OTPLength = 6

var otpSpace = big.NewInt(1_000_000)

// NewOTP 生成定长数字邀请码，不足位数补 0
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}
