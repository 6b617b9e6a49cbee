package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbd888/txrisk/internal/risk"
)

// Demo accounts, one per behaviour the engine distinguishes.
const (
	DemoSteadyAccount    = "0.0.1001"
	DemoRapidFireAccount = "0.0.1002"
	DemoFailingAccount   = "0.0.1003"
	DemoNightOwlAccount  = "0.0.1004"
)

// DemoHistories builds synthetic ledger histories relative to now. The
// output is deterministic for a given now.
func DemoHistories(now time.Time) map[string][]risk.TransactionRecord {
	day := now.UTC().Truncate(24 * time.Hour)
	out := make(map[string][]risk.TransactionRecord, 4)

	// Business-hours payments spread over two months.
	var steady []risk.TransactionRecord
	for i := range 40 {
		ts := day.AddDate(0, 0, -60+i*3/2).Add(10*time.Hour + time.Duration(i%6)*time.Hour)
		steady = append(steady, demoRecord(DemoSteadyAccount, i, ts, "0.0.0017", risk.ResultSuccess,
			fmt.Sprintf("0.0.%d", 2000+i%12)))
	}
	out[DemoSteadyAccount] = steady

	// A scripted burst: 30 submissions 400ms apart to one counterparty.
	var burst []risk.TransactionRecord
	start := day.Add(-4 * time.Hour)
	for i := range 30 {
		ts := start.Add(time.Duration(i) * 400 * time.Millisecond)
		burst = append(burst, demoRecord(DemoRapidFireAccount, i, ts, "0.0005", risk.ResultSuccess, "0.0.3001"))
	}
	out[DemoRapidFireAccount] = burst

	// Hourly attempts where every other one fails.
	var failing []risk.TransactionRecord
	for i := range 12 {
		result := risk.ResultSuccess
		if i%2 == 1 {
			result = risk.ResultFailure
		}
		ts := day.AddDate(0, 0, -10).Add(time.Duration(9+i) * time.Hour)
		failing = append(failing, demoRecord(DemoFailingAccount, i, ts, "0.0021", result, "0.0.4001"))
	}
	out[DemoFailingAccount] = failing

	// A two-day-old account active only between 01:00 and 03:00 UTC.
	var night []risk.TransactionRecord
	for i := range 8 {
		ts := day.AddDate(0, 0, -(i%2)-1).Add(time.Hour + time.Duration(i)*15*time.Minute)
		night = append(night, demoRecord(DemoNightOwlAccount, i, ts, "0.0150", risk.ResultSuccess,
			fmt.Sprintf("0.0.%d", 5000+i)))
	}
	out[DemoNightOwlAccount] = night

	for _, recs := range out {
		newestFirst(recs)
	}
	return out
}

// DemoAccounts lists the demo account IDs in ascending order.
func DemoAccounts() []string {
	ids := []string{DemoSteadyAccount, DemoRapidFireAccount, DemoFailingAccount, DemoNightOwlAccount}
	sort.Strings(ids)
	return ids
}

func demoRecord(account string, seq int, ts time.Time, fee string, result risk.TxResult, counterparty string) risk.TransactionRecord {
	return risk.TransactionRecord{
		TransactionID:      fmt.Sprintf("%s-%d.%09d", account, ts.Unix(), seq),
		ConsensusTimestamp: ts,
		FeeAmount:          decimal.RequireFromString(fee),
		Result:             result,
		CounterpartyID:     counterparty,
	}
}

// SeedMemory loads the demo histories into p.
func SeedMemory(p *MemoryProvider, now time.Time) {
	for account, recs := range DemoHistories(now) {
		p.Add(account, recs...)
	}
}
