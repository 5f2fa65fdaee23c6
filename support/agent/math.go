package agent

import (
	"math"
	"math/big"
	"math/rand"

	"github.com/filecoin-project/go-state-types/abi"
)

// ExpectedLeadersPerEpoch is the mean number of election winners per epoch across the network.
const ExpectedLeadersPerEpoch = 5

// RateIterator turns an average event rate into a concrete count of events per epoch, modelling a
// Poisson process. Tick is called once per epoch.
type RateIterator struct {
	rnd  *rand.Rand
	rate float64
	// Time of the next event, measured in epochs from the start of the current one.
	next float64
}

func NewRateIterator(rate float64, seed int64) *RateIterator {
	ri := &RateIterator{rnd: rand.New(rand.NewSource(seed)), rate: rate}
	ri.reschedule()
	return ri
}

// Tick calls f once for each event falling in the current epoch: rate times on average, possibly
// zero or many times. It stops at the first error.
func (ri *RateIterator) Tick(f func() error) error {
	if ri.rate <= 0 {
		return nil
	}
	ri.next--
	for ; ri.next < 1; ri.next += ri.gap() {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

// TickWithRate changes the rate before ticking. A new rate draws a fresh first event rather than
// waiting out an arrival scheduled under the old one.
func (ri *RateIterator) TickWithRate(rate float64, f func() error) error {
	if rate != ri.rate {
		ri.rate = rate
		ri.reschedule()
	}
	return ri.Tick(f)
}

// reschedule places the first event after the epoch in progress.
func (ri *RateIterator) reschedule() {
	ri.next = 1
	if ri.rate > 0 {
		ri.next += ri.gap()
	}
}

// Inter-arrival times of a Poisson process are exponentially distributed with mean 1/rate.
func (ri *RateIterator) gap() float64 {
	return ri.rnd.ExpFloat64() / ri.rate
}

// WinCount draws the number of elections a miner wins in one epoch, with the ticket replaced by a
// uniform number in [0, 1). Wins are Poisson distributed with mean ExpectedLeadersPerEpoch times the
// miner's share of consensus power.
func WinCount(minerPower abi.StoragePower, totalPower abi.StoragePower, random float64) uint64 {
	if totalPower.Sign() <= 0 || minerPower.Sign() <= 0 {
		return 0
	}
	share, _ := new(big.Rat).SetFrac(minerPower.Int, totalPower.Int).Float64()
	lambda := share * ExpectedLeadersPerEpoch

	// Walk the upper tail: P(X > k) starting at k = 0, stopping once it drops to the drawn value.
	pmf := math.Exp(-lambda)
	tail := 1 - pmf
	var wins uint64
	for tail > random {
		wins++
		pmf *= lambda / float64(wins)
		tail -= pmf
	}
	return wins
}

// PopRandom removes a random element by swapping in the last one. The list must not be empty.
func PopRandom(list []uint64, rnd *rand.Rand) (uint64, []uint64) {
	i := rnd.Intn(len(list))
	picked := list[i]
	last := len(list) - 1
	list[i] = list[last]
	return picked, list[:last]
}
