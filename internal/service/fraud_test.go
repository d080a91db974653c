package service

import (
	"testing"
	"time"

	"dataspot/internal/domain"
)

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func TestEvaluateFraudRules_Clean(t *testing.T) {
	report := evaluateFraudRules(fraudContext{
		RecentCompletedDeposits: 1,
		AccountAge:              30 * 24 * time.Hour,
		Amount:                  100,
	})
	if len(report.Flags) != 0 {
		t.Fatalf("expected no flags, got %v", report.Flags)
	}
}

func TestEvaluateFraudRules_MultipleDeposits(t *testing.T) {
	report := evaluateFraudRules(fraudContext{
		RecentCompletedDeposits: 3,
		AccountAge:              30 * 24 * time.Hour,
		Amount:                  50,
	})
	if !hasFlag(report.Flags, domain.FlagMultipleDeposits) {
		t.Fatalf("expected multiple-deposits flag, got %v", report.Flags)
	}
}

func TestEvaluateFraudRules_LargeAmount(t *testing.T) {
	report := evaluateFraudRules(fraudContext{
		AccountAge: 365 * 24 * time.Hour,
		Amount:     10001,
	})
	if !hasFlag(report.Flags, domain.FlagLargeAmount) {
		t.Fatalf("expected large-amount flag, got %v", report.Flags)
	}
	// threshold is exclusive
	report = evaluateFraudRules(fraudContext{AccountAge: 365 * 24 * time.Hour, Amount: 10000})
	if hasFlag(report.Flags, domain.FlagLargeAmount) {
		t.Fatal("10000 exactly should not raise the large-amount flag")
	}
}

func TestEvaluateFraudRules_YoungAccount(t *testing.T) {
	// five minutes old depositing 1000: both new-account rules fire
	report := evaluateFraudRules(fraudContext{
		AccountAge: 5 * time.Minute,
		Amount:     1000,
	})
	if !hasFlag(report.Flags, domain.FlagNewAccountLarge) {
		t.Fatalf("expected new-account flag, got %v", report.Flags)
	}
	if !hasFlag(report.Flags, domain.FlagImmediateDeposit) {
		t.Fatalf("expected immediate-deposit flag, got %v", report.Flags)
	}
}

func TestEvaluateFraudRules_DayOldSmallDeposit(t *testing.T) {
	report := evaluateFraudRules(fraudContext{
		AccountAge: 12 * time.Hour,
		Amount:     100,
	})
	if hasFlag(report.Flags, domain.FlagNewAccountLarge) {
		t.Fatal("small deposit on a young account should not flag")
	}
	if hasFlag(report.Flags, domain.FlagImmediateDeposit) {
		t.Fatal("12h old account is past the immediate-deposit window")
	}
}

func TestEvaluateFraudRules_UndercutCharge(t *testing.T) {
	charged := int64(9900)
	report := evaluateFraudRules(fraudContext{
		AccountAge:     30 * 24 * time.Hour,
		Amount:         100,
		ChargedPesewas: &charged,
	})
	if !hasFlag(report.Flags, domain.FlagAmountManipulation) {
		t.Fatalf("expected amount-manipulation flag, got %v", report.Flags)
	}
	if report.Metadata["chargedAmount"] != 99.0 {
		t.Fatalf("unexpected charged amount metadata: %v", report.Metadata["chargedAmount"])
	}
}

func TestEvaluateFraudRules_ExactChargeNotFlagged(t *testing.T) {
	charged := int64(10000)
	report := evaluateFraudRules(fraudContext{
		AccountAge:     30 * 24 * time.Hour,
		Amount:         100,
		ChargedPesewas: &charged,
	})
	if hasFlag(report.Flags, domain.FlagAmountManipulation) {
		t.Fatal("charge covering the base amount should not flag")
	}
}
