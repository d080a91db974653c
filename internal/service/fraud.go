package service

import (
	"context"
	"time"

	"dataspot/internal/domain"
	"dataspot/internal/repository"
)

// FraudReport is the advisory output of deposit scoring: the flags raised
// and the numeric context that motivated each one, destined for the audit
// trail. An empty report never blocks anything.
type FraudReport struct {
	Flags    []string
	Metadata map[string]interface{}
}

// FraudService scores deposits against recent transaction history and
// account age. Read-only; it annotates, it never gates.
type FraudService struct {
	transactions *repository.TransactionRepository
	users        *repository.UserRepository
}

func NewFraudService(transactions *repository.TransactionRepository, users *repository.UserRepository) *FraudService {
	return &FraudService{transactions: transactions, users: users}
}

// ScoreDeposit gathers the user's recent history and runs the rule set.
// chargedPesewas is the gateway-reported charge when one is available.
func (s *FraudService) ScoreDeposit(ctx context.Context, userID int64, amount float64, chargedPesewas *int64) (FraudReport, error) {
	oneHourAgo := time.Now().Add(-time.Hour)
	recentDeposits, err := s.transactions.CountCompletedDepositsSince(ctx, userID, oneHourAgo)
	if err != nil {
		return FraudReport{}, err
	}

	var accountAge time.Duration
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return FraudReport{}, err
	}
	if user != nil {
		accountAge = time.Since(user.CreatedAt)
	}

	return evaluateFraudRules(fraudContext{
		RecentCompletedDeposits: recentDeposits,
		AccountAge:              accountAge,
		Amount:                  amount,
		ChargedPesewas:          chargedPesewas,
	}), nil
}

type fraudContext struct {
	RecentCompletedDeposits int64
	AccountAge              time.Duration
	Amount                  float64
	ChargedPesewas          *int64
}

// evaluateFraudRules applies the independently composable heuristics. The
// amount-manipulation rule is defense-in-depth: the hard gateway-charge check
// rejects mismatches before reconciliation ever reaches scoring, but the flag
// stays for post-hoc analytics.
func evaluateFraudRules(fc fraudContext) FraudReport {
	var flags []string
	metadata := make(map[string]interface{})

	if fc.RecentCompletedDeposits >= 3 {
		flags = append(flags, domain.FlagMultipleDeposits)
		metadata["recentDeposits"] = fc.RecentCompletedDeposits
	}

	if fc.Amount > 10000 {
		flags = append(flags, domain.FlagLargeAmount)
		metadata["largeAmount"] = true
	}

	if fc.AccountAge > 0 {
		daysOld := fc.AccountAge.Hours() / 24

		if daysOld < 1 && fc.Amount > 500 {
			flags = append(flags, domain.FlagNewAccountLarge)
			metadata["accountAge"] = daysOld
		}

		if fc.AccountAge < 10*time.Minute {
			flags = append(flags, domain.FlagImmediateDeposit)
			metadata["accountAge"] = daysOld
		}
	}

	if fc.ChargedPesewas != nil && float64(*fc.ChargedPesewas) < fc.Amount*100 {
		flags = append(flags, domain.FlagAmountManipulation)
		metadata["fraud"] = true
		metadata["attemptedAmount"] = fc.Amount
		metadata["chargedAmount"] = float64(*fc.ChargedPesewas) / 100
	}

	return FraudReport{Flags: flags, Metadata: metadata}
}
