package agent

import (
	"container/heap"
	"math/rand"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/pkg/errors"

	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
	"github.com/worlddbs/power-actor/support/vm"
)

var (
	sealedCIDPrefix   = cid.Prefix{Version: 1, Codec: cid.FilCommitmentSealed, MhType: mh.SHA2_256, MhLength: 32}
	unsealedCIDPrefix = cid.Prefix{Version: 1, Codec: cid.FilCommitmentUnsealed, MhType: mh.SHA2_256, MhLength: 32}
)

type MinerAgentConfig struct {
	ProveCommitRate    float64                 // average number of sector proofs submitted per epoch
	ProofType          abi.RegisteredSealProof // seal proof type for this miner
	StartingBalance    abi.TokenAmount         // initial actor balance for miner actor
	FaultRate          float64                 // rate at which proven sectors lose their power (faults per sector per epoch)
	PledgePerSector    abi.TokenAmount         // pledge reported for each proven sector, returned when it faults
	CronInterval       abi.ChainEpoch          // when positive, the miner keeps a recurring cron callback at this interval
	ConsensusFaultRate float64                 // average consensus faults per epoch; a fault ends the miner
}

// MinerAgent drives one miner through the power actor: it submits sector proofs, tracks which of
// them the power actor confirmed, reports pledge, loses sectors to faults and may be slashed.
type MinerAgent struct {
	Config        MinerAgentConfig // parameters used to define miner prior to creation
	Owner         address.Address
	Worker        address.Address
	IDAddress     address.Address
	RobustAddress address.Address

	ProofsSubmitted uint64
	SectorsFaulted  uint64
	Slashed         bool

	// proven sectors still counted in the miner's claim
	liveSectors []uint64
	// every sector this agent has seen proven, live or since faulted
	knownSectors map[uint64]bool
	// pledge this agent has reported and not yet withdrawn
	pledged abi.TokenAmount

	// epochs at which to sync proven sectors from the miner's state
	syncs epochQueue
	// epoch of the latest scheduled sync, to avoid scheduling one per proof
	syncScheduledAt abi.ChainEpoch
	started         bool

	proveCommitEvents    *RateIterator
	faultEvents          *RateIterator
	consensusFaultEvents *RateIterator
	nextSectorNumber     abi.SectorNumber
	rnd                  *rand.Rand
}

func NewMinerAgent(owner address.Address, worker address.Address, idAddress address.Address, robustAddress address.Address,
	rndSeed int64, config MinerAgentConfig,
) *MinerAgent {
	rnd := rand.New(rand.NewSource(rndSeed))
	if config.PledgePerSector.Nil() {
		config.PledgePerSector = big.Zero()
	}
	return &MinerAgent{
		Config:        config,
		Owner:         owner,
		Worker:        worker,
		IDAddress:     idAddress,
		RobustAddress: robustAddress,

		knownSectors:    make(map[uint64]bool),
		pledged:         big.Zero(),
		syncScheduledAt: -1,

		proveCommitEvents: NewRateIterator(config.ProveCommitRate, rnd.Int63()),
		// the fault rate scales with the live sector count, set on every tick
		faultEvents:          NewRateIterator(0.0, rnd.Int63()),
		consensusFaultEvents: NewRateIterator(config.ConsensusFaultRate, rnd.Int63()),
		rnd:                  rnd, // private to this miner so its draws do not perturb the simulation's
	}
}

func (ma *MinerAgent) Tick(s SimState) ([]message, error) {
	if ma.Slashed {
		return nil, nil
	}

	// A consensus fault removes the claim, so nothing else this miner sends this epoch would succeed.
	var slash []message
	if err := ma.consensusFaultEvents.Tick(func() error {
		if !ma.Slashed {
			ma.Slashed = true
			slash = append(slash, ma.createConsensusFault())
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if ma.Slashed {
		return slash, nil
	}

	var messages []message
	if !ma.started {
		ma.started = true
		messages = append(messages, ma.scheduleCron(s.GetEpoch())...)
	}

	// Fault sectors. Only sectors proven before this epoch can fault, so their pledge is already reported.
	faultRate := ma.Config.FaultRate * float64(len(ma.liveSectors))
	if err := ma.faultEvents.TickWithRate(faultRate, func() error {
		msgs, err := ma.createFault()
		if err != nil {
			return err
		}
		messages = append(messages, msgs...)
		return nil
	}); err != nil {
		return nil, err
	}

	// One sync covers every proof confirmed so far, however many are due.
	if ma.syncs.due(s.GetEpoch()) > 0 {
		msgs, err := ma.syncSectors(s)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msgs...)
	}

	// Submit proofs. Proofs are triggered with a Poisson distribution at the prove-commit rate.
	if err := ma.proveCommitEvents.Tick(func() error {
		msg, err := ma.createProof(s.GetEpoch())
		if err != nil {
			return err
		}
		messages = append(messages, msg)
		return nil
	}); err != nil {
		return nil, err
	}

	return messages, nil
}

// LiveSectorCount is the number of proven sectors this miner still claims power for.
func (ma *MinerAgent) LiveSectorCount() int {
	return len(ma.liveSectors)
}

func (ma *MinerAgent) createProof(epoch abi.ChainEpoch) (message, error) {
	sectorNumber := ma.nextSectorNumber
	ma.nextSectorNumber++

	sealed, err := SealedCID(sealedCIDPrefix, ma.IDAddress, sectorNumber)
	if err != nil {
		return message{}, err
	}
	unsealed, err := SealedCID(unsealedCIDPrefix, ma.IDAddress, sectorNumber)
	if err != nil {
		return message{}, err
	}

	// the batch is confirmed by cron at the end of this epoch
	if ma.syncScheduledAt != epoch+1 {
		heap.Push(&ma.syncs, epoch+1)
		ma.syncScheduledAt = epoch + 1
	}
	ma.ProofsSubmitted++

	msg := ma.toMiner(vm.MethodsMinerStub.SubmitProof, &proof.SealVerifyInfo{
		SealProof:   ma.Config.ProofType,
		SectorID:    abi.SectorID{Number: sectorNumber},
		SealedCID:   sealed,
		UnsealedCID: unsealed,
	})
	// the network-wide prove-commit allowance may already be used up this epoch
	msg.Tolerate = []exitcode.ExitCode{power.ErrTooManyProveCommits}
	return msg, nil
}

func (ma *MinerAgent) createFault() ([]message, error) {
	if len(ma.liveSectors) == 0 {
		return nil, nil
	}

	var faulted uint64
	faulted, ma.liveSectors = PopRandom(ma.liveSectors, ma.rnd)
	ma.SectorsFaulted++

	sectorSize, err := ma.Config.ProofType.SectorSize()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get sector size for sector %d", faulted)
	}
	lost := big.NewIntUnsigned(uint64(sectorSize)).Neg()

	msgs := []message{ma.toMiner(vm.MethodsMinerStub.UpdateClaimedPower, &power.UpdateClaimedPowerParams{
		RawByteDelta:         lost,
		QualityAdjustedDelta: lost,
		Termination:          power.SectorTerminationFaulty,
	})}
	if ma.Config.PledgePerSector.GreaterThan(big.Zero()) {
		msgs = append(msgs, ma.pledgeMessage(ma.Config.PledgePerSector.Neg()))
	}
	return msgs, nil
}

func (ma *MinerAgent) createConsensusFault() message {
	slashed := ma.pledged
	ma.pledged = big.Zero()
	ma.liveSectors = nil
	return ma.toMiner(vm.MethodsMinerStub.ReportConsensusFault, &slashed)
}

func (ma *MinerAgent) scheduleCron(epoch abi.ChainEpoch) []message {
	if ma.Config.CronInterval <= 0 {
		return nil
	}
	return []message{
		ma.toMiner(vm.MethodsMinerStub.Script, &vm.ScriptParams{CronInterval: ma.Config.CronInterval}),
		ma.toMiner(vm.MethodsMinerStub.EnrollCronEvent, &power.EnrollCronEventParams{
			EventEpoch: epoch + ma.Config.CronInterval,
			Payload:    ma.IDAddress.Bytes(),
		}),
	}
}

func (ma *MinerAgent) pledgeMessage(delta abi.TokenAmount) message {
	ma.pledged = big.Add(ma.pledged, delta)
	return ma.toMiner(vm.MethodsMinerStub.UpdatePledge, &delta)
}

// toMiner addresses a zero-value message from the worker to the miner actor.
func (ma *MinerAgent) toMiner(method abi.MethodNum, params interface{}) message {
	return message{From: ma.Worker, To: ma.IDAddress, Value: big.Zero(), Method: method, Params: params}
}

// syncSectors picks up sectors the power actor has confirmed since the last sync and reports their pledge.
func (ma *MinerAgent) syncSectors(s SimState) ([]message, error) {
	view, err := s.MinerState(ma.IDAddress)
	if err != nil {
		return nil, err
	}
	proven, err := view.ProvenSectors(s.Store())
	if err != nil {
		return nil, err
	}

	var added int64
	if err := proven.ForEach(func(n uint64) error {
		if !ma.knownSectors[n] {
			ma.knownSectors[n] = true
			ma.liveSectors = append(ma.liveSectors, n)
			added++
		}
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to iterate proven sectors of %s", ma.IDAddress)
	}

	if added == 0 || !ma.Config.PledgePerSector.GreaterThan(big.Zero()) {
		return nil, nil
	}
	return []message{ma.pledgeMessage(big.Mul(ma.Config.PledgePerSector, big.NewInt(added)))}, nil
}

// epochQueue is a min-heap of epochs at which the agent re-reads its miner's proven sectors.
type epochQueue []abi.ChainEpoch

var _ heap.Interface = (*epochQueue)(nil)

func (q epochQueue) Len() int            { return len(q) }
func (q epochQueue) Less(i, j int) bool  { return q[i] < q[j] }
func (q epochQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *epochQueue) Push(x interface{}) { *q = append(*q, x.(abi.ChainEpoch)) }
func (q *epochQueue) Pop() interface{} {
	old := *q
	e := old[len(old)-1]
	*q = old[:len(old)-1]
	return e
}

// due removes and counts the queued epochs at or before epoch.
func (q *epochQueue) due(epoch abi.ChainEpoch) int {
	n := 0
	for q.Len() > 0 && (*q)[0] <= epoch {
		heap.Pop(q)
		n++
	}
	return n
}
