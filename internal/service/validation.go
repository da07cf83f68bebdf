package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the Brazilian document rules used
// by professor payloads registered under the "cpf" and "br_phone" tags.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return ValidCPF(fl.Field().String())
	})
	validate.RegisterValidation("br_phone", func(fl validator.FieldLevel) bool {
		return ValidBRPhone(fl.Field().String())
	})
	return validate
}

// ValidCPF validates a Brazilian CPF, with or without punctuation. It
// rejects values whose digits are all equal and checks both verifier
// digits.
func ValidCPF(value string) bool {
	digits := onlyDigits(value)
	if len(digits) != 11 {
		return false
	}
	if strings.Count(digits, string(digits[0])) == 11 {
		return false
	}
	dv1 := cpfVerifierDigit(digits[:9])
	dv2 := cpfVerifierDigit(digits[:9] + dv1)
	return digits[9:] == dv1+dv2
}

func cpfVerifierDigit(partial string) string {
	sum := 0
	weight := len(partial) + 1
	for _, ch := range partial {
		sum += int(ch-'0') * weight
		weight--
	}
	rest := sum % 11
	if rest < 2 {
		return "0"
	}
	return string(rune('0' + 11 - rest))
}

// ValidBRPhone accepts a Brazilian phone with area code, formatted or
// not. Empty values pass since the field is optional.
func ValidBRPhone(value string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	digits := onlyDigits(value)
	return len(digits) == 10 || len(digits) == 11
}

func onlyDigits(value string) string {
	var b strings.Builder
	for _, ch := range value {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
