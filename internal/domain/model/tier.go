package model

import (
	"sort"

	"exam-access-backend/internal/domain"
)

// PaymentTier categorizes an access code by the duration it grants.
type PaymentTier string

const (
	TierOneMonth   PaymentTier = "1_MONTH"
	TierThreeMonth PaymentTier = "3_MONTHS"
	TierSixMonth   PaymentTier = "6_MONTHS"
	TierNineMonth  PaymentTier = "9_MONTHS"
	TierOneYear    PaymentTier = "1_YEAR"
	TierCustom     PaymentTier = "CUSTOM"
)

// TierEntry is one row of the payment tier table.
type TierEntry struct {
	Amount       int64       `json:"amount"`
	DurationDays int         `json:"duration_days"`
	Tier         PaymentTier `json:"tier"`
}

// tierTable maps each allowed payment amount to its granted duration.
// The set is closed: any amount outside it is rejected at creation time.
var tierTable = map[int64]TierEntry{
	500:   {Amount: 500, DurationDays: 30, Tier: TierOneMonth},
	2000:  {Amount: 2000, DurationDays: 90, Tier: TierThreeMonth},
	3500:  {Amount: 3500, DurationDays: 180, Tier: TierSixMonth},
	6000:  {Amount: 6000, DurationDays: 270, Tier: TierNineMonth},
	10000: {Amount: 10000, DurationDays: 365, Tier: TierOneYear},
}

// TierForAmount resolves a payment amount against the tier table.
func TierForAmount(amount int64) (TierEntry, error) {
	e, ok := tierTable[amount]
	if !ok {
		return TierEntry{}, domain.ErrInvalidPaymentAmount
	}
	return e, nil
}

// PaymentTiers returns the tier table sorted by amount, for client display.
func PaymentTiers() []TierEntry {
	out := make([]TierEntry, 0, len(tierTable))
	for _, e := range tierTable {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out
}
