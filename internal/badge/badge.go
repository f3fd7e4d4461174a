// Package badge maps exchange-count milestones to achievement badges.
package badge

const (
	FirstExchange  = "First Exchange"
	FiveExchanges  = "5 Exchanges"
	ExchangeMaster = "Exchange Master"
)

// milestone grants Badge when a user's completed-exchange count equals Count.
type milestone struct {
	Count int
	Badge string
}

var milestones = []milestone{
	{Count: 1, Badge: FirstExchange},
	{Count: 5, Badge: FiveExchanges},
	{Count: 10, Badge: ExchangeMaster},
}

// Evaluate returns the badges earned at totalExchanges that are not in held.
// It must be called with the count after the completing exchange has been
// added. The result is nil when nothing new is earned.
func Evaluate(totalExchanges int, held []string) []string {
	var granted []string
	for _, m := range milestones {
		if totalExchanges != m.Count || contains(held, m.Badge) {
			continue
		}
		granted = append(granted, m.Badge)
	}
	return granted
}

// All returns every badge in milestone order.
func All() []string {
	out := make([]string, len(milestones))
	for i, m := range milestones {
		out[i] = m.Badge
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
