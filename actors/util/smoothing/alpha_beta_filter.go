package smoothing

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/worlddbs/power-actor/actors/util/math"
)

var (
	DefaultAlpha big.Int // Q.128 value of 9.25e-4
	DefaultBeta  big.Int // Q.128 value of 2.84e-7
)

func init() {
	constBigs := math.Parse([]string{
		"314760000000000000000000000000000000", // DefaultAlpha
		"96640100000000000000000000000000",     // DefaultBeta
	})
	DefaultAlpha = big.NewFromGo(constBigs[0])
	DefaultBeta = big.NewFromGo(constBigs[1])
}

// Alpha Beta Filter "position" (value) and "velocity" (rate of change of value) estimates
// Estimates are in Q.128 format
type FilterEstimate struct {
	PositionEstimate big.Int // Q.128
	VelocityEstimate big.Int // Q.128
}

// Returns the Q.0 position estimate of the filter
func (fe *FilterEstimate) Estimate() big.Int {
	return big.Rsh(fe.PositionEstimate, math.Precision128) // Q.128 => Q.0
}

func DefaultInitialEstimate() FilterEstimate {
	return FilterEstimate{
		PositionEstimate: big.Zero(),
		VelocityEstimate: big.Zero(),
	}
}

// Create a new filter estimate given two Q.0 format ints.
func NewEstimate(position, velocity big.Int) FilterEstimate {
	return FilterEstimate{
		PositionEstimate: big.Lsh(position, math.Precision128), // Q.0 => Q.128
		VelocityEstimate: big.Lsh(velocity, math.Precision128), // Q.0 => Q.128
	}
}

type AlphaBetaFilter struct {
	prevEstimate FilterEstimate
	alpha        big.Int // Q.128
	beta         big.Int // Q.128
}

func LoadFilter(prevEstimate FilterEstimate, alpha, beta big.Int) *AlphaBetaFilter {
	return &AlphaBetaFilter{
		prevEstimate: prevEstimate,
		alpha:        alpha,
		beta:         beta,
	}
}

// Advances the filter by epochDelta epochs, folding in a new Q.0 observation.
// epochDelta must be positive.
func (f *AlphaBetaFilter) NextEstimate(observation big.Int, epochDelta abi.ChainEpoch) FilterEstimate {
	deltaT := big.Lsh(big.NewInt(int64(epochDelta)), math.Precision128) // Q.0 => Q.128
	deltaX := big.Mul(deltaT, f.prevEstimate.VelocityEstimate)          // Q.128 * Q.128 => Q.256
	deltaX = big.Rsh(deltaX, math.Precision128)                         // Q.256 => Q.128
	position := big.Sum(f.prevEstimate.PositionEstimate, deltaX)

	observation = big.Lsh(observation, math.Precision128) // Q.0 => Q.128
	residual := big.Sub(observation, position)
	revisionX := big.Mul(f.alpha, residual)           // Q.128 * Q.128 => Q.256
	revisionX = big.Rsh(revisionX, math.Precision128) // Q.256 => Q.128
	position = big.Sum(position, revisionX)

	revisionV := big.Mul(f.beta, residual) // Q.128 * Q.128 => Q.256
	revisionV = big.Div(revisionV, deltaT) // Q.256 / Q.128 => Q.128
	velocity := big.Sum(f.prevEstimate.VelocityEstimate, revisionV)

	return FilterEstimate{
		PositionEstimate: position,
		VelocityEstimate: velocity,
	}
}
