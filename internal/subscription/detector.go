// Package subscription finds recurring charges among stored transactions.
package subscription

import (
	"sort"
	"time"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/enrich"
)

// Cadences
const (
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
	CadenceYearly  = "yearly"
)

type window struct {
	cadence  string
	min, max int
	minCount int
	period   time.Duration
}

var windows = []window{
	{cadence: CadenceWeekly, min: 6, max: 8, minCount: 3, period: 7 * 24 * time.Hour},
	{cadence: CadenceMonthly, min: 25, max: 35, minCount: 2, period: 30 * 24 * time.Hour},
	{cadence: CadenceYearly, min: 350, max: 380, minCount: 2, period: 365 * 24 * time.Hour},
}

const (
	amountTolerance = 0.1
	minConfidence   = 0.5
)

// Candidate is a merchant that looks like it bills on a schedule
type Candidate struct {
	Merchant     string
	Category     string
	Cadence      string
	CardLast4    string
	Occurrences  int
	AmountMin    int64
	AmountMax    int64
	AmountMedian int64
	FirstSeen    time.Time
	LastSeen     time.Time
	NextExpected time.Time
	Confidence   float64
}

// Detector groups transactions by merchant and card and scores their regularity
type Detector struct {
	dict *enrich.Dictionary
}

// NewDetector creates a detector. dict may be nil.
func NewDetector(dict *enrich.Dictionary) *Detector {
	return &Detector{dict: dict}
}

type groupKey struct {
	merchant string
	card     string
}

// Detect returns the subscription candidates among txs, ordered by merchant
func (d *Detector) Detect(txs []core.Transaction) []Candidate {
	groups := make(map[groupKey][]core.Transaction)
	for _, tx := range txs {
		if tx.Amount <= 0 || tx.Date.IsZero() {
			continue
		}
		name := enrich.NormalizeName(tx.Merchant)
		if name == "" {
			continue
		}
		key := groupKey{merchant: name, card: tx.CardLast4}
		groups[key] = append(groups[key], tx)
	}

	var out []Candidate
	for _, group := range groups {
		if c, ok := d.evaluate(group); ok {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Merchant != out[j].Merchant {
			return out[i].Merchant < out[j].Merchant
		}
		return out[i].CardLast4 < out[j].CardLast4
	})
	return out
}

func (d *Detector) evaluate(group []core.Transaction) (Candidate, bool) {
	if len(group) < 2 {
		return Candidate{}, false
	}
	sort.SliceStable(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

	deltas := make([]int, 0, len(group)-1)
	for i := 1; i < len(group); i++ {
		deltas = append(deltas, int(group[i].Date.Sub(group[i-1].Date).Hours()/24+0.5))
	}

	w, ok := pickWindow(deltas)
	if !ok || len(group) < w.minCount {
		return Candidate{}, false
	}

	amounts := make([]int64, len(group))
	for i, tx := range group {
		amounts[i] = tx.Amount
	}
	med := median(amounts)

	periodicity := fraction(deltas, func(delta int) bool { return delta >= w.min && delta <= w.max })
	stability := stableFraction(amounts, med)
	vocab := d.vocabulary(group, w.cadence)

	confidence := 0.5*periodicity + 0.3*stability + 0.2*vocab
	if confidence < minConfidence || stability < 0.5 {
		return Candidate{}, false
	}

	last := group[len(group)-1]
	minAmt, maxAmt := amounts[0], amounts[0]
	for _, a := range amounts {
		minAmt = min(minAmt, a)
		maxAmt = max(maxAmt, a)
	}

	return Candidate{
		Merchant:     last.Merchant,
		Category:     last.Category,
		Cadence:      w.cadence,
		CardLast4:    last.CardLast4,
		Occurrences:  len(group),
		AmountMin:    minAmt,
		AmountMax:    maxAmt,
		AmountMedian: med,
		FirstSeen:    group[0].Date,
		LastSeen:     last.Date,
		NextExpected: next(last.Date, w),
		Confidence:   float64(int(confidence*100+0.5)) / 100,
	}, true
}

// pickWindow chooses the cadence whose window holds the median interval
func pickWindow(deltas []int) (window, bool) {
	sorted := append([]int(nil), deltas...)
	sort.Ints(sorted)
	mid := sorted[len(sorted)/2]
	for _, w := range windows {
		if mid >= w.min && mid <= w.max {
			return w, true
		}
	}
	return window{}, false
}

// vocabulary is 1 when the merchant is known to bill at this cadence or was already flagged as a subscription
func (d *Detector) vocabulary(group []core.Transaction, cadence string) float64 {
	for _, tx := range group {
		if tx.Subscription {
			return 1
		}
	}
	if d.dict != nil {
		if e, ok := d.dict.Lookup(group[len(group)-1].Merchant); ok && e.Billing == cadence {
			return 1
		}
	}
	return 0
}

func next(last time.Time, w window) time.Time {
	switch w.cadence {
	case CadenceMonthly:
		return last.AddDate(0, 1, 0)
	case CadenceYearly:
		return last.AddDate(1, 0, 0)
	default:
		return last.Add(w.period)
	}
}

func median(values []int64) int64 {
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func fraction(deltas []int, ok func(int) bool) float64 {
	if len(deltas) == 0 {
		return 0
	}
	n := 0
	for _, d := range deltas {
		if ok(d) {
			n++
		}
	}
	return float64(n) / float64(len(deltas))
}

func stableFraction(amounts []int64, med int64) float64 {
	if med <= 0 {
		return 0
	}
	n := 0
	for _, a := range amounts {
		diff := float64(a-med) / float64(med)
		if diff < 0 {
			diff = -diff
		}
		if diff <= amountTolerance {
			n++
		}
	}
	return float64(n) / float64(len(amounts))
}
