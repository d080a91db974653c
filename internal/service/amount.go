package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// AmountReason classifies why an amount was rejected.
type AmountReason string

const (
	ReasonNotANumber AmountReason = "not_a_number"
	ReasonOutOfRange AmountReason = "out_of_range"
	ReasonMismatch   AmountReason = "amount_mismatch"
)

// AmountError is a classified amount rejection. Fraud marks rejections that
// imply a tampered request rather than a typo: a well-behaved client always
// computes the fee-inclusive total itself, so a mismatch means someone edited
// the request, and a gateway-charge mismatch means real money moved in an
// amount the system never authorized.
type AmountError struct {
	Reason    AmountReason
	Message   string
	Fraud     bool
	Deposited float64
	Expected  float64
	Provided  float64
}

func (e *AmountError) Error() string { return e.Message }

// DepositRules are the injected constants governing deposit validation.
type DepositRules struct {
	FeePercentage float64 // e.g. 3 for a 3% fee
	Tolerance     float64 // GHS tolerance absorbing rounding, e.g. 0.01
	MinDeposit    float64
	MaxDeposit    float64
}

// DepositAmounts is the parsed, validated amount pair.
type DepositAmounts struct {
	Amount float64 // base amount, what gets credited
	Total  float64 // fee-inclusive total, what the gateway charges
}

// ValidateDepositAmount cross-checks a client-declared (base amount,
// fee-inclusive total) pair. Pure; no side effects.
func ValidateDepositAmount(rules DepositRules, amountRaw, totalRaw interface{}) (DepositAmounts, error) {
	deposit, ok := parseAmount(amountRaw)
	total, ok2 := parseAmount(totalRaw)
	if !ok || !ok2 {
		return DepositAmounts{}, &AmountError{
			Reason:  ReasonNotANumber,
			Message: "Invalid amount format",
		}
	}

	if deposit < rules.MinDeposit || deposit > rules.MaxDeposit {
		return DepositAmounts{}, &AmountError{
			Reason: ReasonOutOfRange,
			Message: fmt.Sprintf("Amount must be between GHS %.0f and GHS %.0f",
				rules.MinDeposit, rules.MaxDeposit),
			Deposited: deposit,
		}
	}

	expectedTotal := deposit * (1 + rules.FeePercentage/100)
	if math.Abs(total-expectedTotal) > rules.Tolerance {
		return DepositAmounts{}, &AmountError{
			Reason: ReasonMismatch,
			Message: fmt.Sprintf("Amount mismatch detected. Expected GHS %.2f, got GHS %.2f",
				expectedTotal, total),
			Fraud:     true,
			Deposited: deposit,
			Expected:  expectedTotal,
			Provided:  total,
		}
	}

	return DepositAmounts{Amount: deposit, Total: total}, nil
}

// ValidateGatewayCharge compares what the gateway reports it charged against
// what the ledger expects, both in pesewas. This is the last line of defense
// before crediting a wallet: a mismatch here is always tagged fraud because
// the gateway has already moved real money.
func ValidateGatewayCharge(rules DepositRules, chargedPesewas, expectedPesewas int64) error {
	chargedGHS := float64(chargedPesewas) / 100
	expectedGHS := float64(expectedPesewas) / 100

	if math.Abs(chargedGHS-expectedGHS) > rules.Tolerance {
		return &AmountError{
			Reason: ReasonMismatch,
			Message: fmt.Sprintf("Paystack amount mismatch. Expected %.2f GHS (%d pesewas), but charged %.2f GHS (%d pesewas)",
				expectedGHS, expectedPesewas, chargedGHS, chargedPesewas),
			Fraud:    true,
			Expected: expectedGHS,
			Provided: chargedGHS,
		}
	}
	return nil
}

// ExpectedGatewayCharge computes the fee-inclusive charge in pesewas for a
// stored base amount.
func ExpectedGatewayCharge(rules DepositRules, baseAmount float64) int64 {
	return int64(math.Round(baseAmount * (1 + rules.FeePercentage/100) * 100))
}

// ToPesewas converts a GHS amount to minor units.
func ToPesewas(ghs float64) int64 {
	return int64(math.Round(ghs * 100))
}

// parseAmount accepts the decimal formats clients actually send: JSON
// numbers, numeric strings, and json.Number.
func parseAmount(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}
