package agent

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
	"strings"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/hashicorp/go-multierror"
	cid "github.com/ipfs/go-cid"
	ipldcbor "github.com/ipfs/go-ipld-cbor"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"golang.org/x/xerrors"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/states"
	"github.com/worlddbs/power-actor/actors/util/adt"
	"github.com/worlddbs/power-actor/support/ipld"
	"github.com/worlddbs/power-actor/support/vm"
)

var log = logging.Logger("powersim")

// Sim drives the power actor with a population of agents in a network-like environment.
// The simulation "Ticks" once per epoch. Within a tick:
// * The election power table is computed from the previous state and wins are drawn for eligible miners.
// * Every agent is ticked and returns the messages it wants included in this epoch.
// * Messages are shuffled to simulate network entropy, then applied.
// * Cron runs, and a VM over the resulting state is created for the next epoch.
type Sim struct {
	Config       SimConfig
	Agents       []Agent
	WinCount     uint64
	MessageCount uint64
	// Messages that failed with an exit code their sender tolerates, e.g. the prove-commit rate limit.
	RejectedCount uint64
	// Wins per miner ID address over the whole run.
	Wins map[address.Address]uint64

	v               *vm.VM
	policy          power.ThresholdPolicy
	supply          abi.TokenAmount
	rnd             *mrand.Rand
	statsByMethod   vm.StatsByCall
	blkStore        ipldcbor.IpldBlockstore
	blkStoreFactory func() ipldcbor.IpldBlockstore
	ctx             context.Context
}

// NewSim installs the singleton actors in a fresh block store and returns a simulation at epoch zero.
func NewSim(ctx context.Context, blockstoreFactory func() ipldcbor.IpldBlockstore, config SimConfig) (*Sim, error) {
	policy, err := config.Policy()
	if err != nil {
		return nil, err
	}

	blkStore := blockstoreFactory()
	metrics := ipld.NewMetricsBlockStore(blkStore)
	v, err := vm.NewGenesisVM(ctx, metrics, policy)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genesis state")
	}
	v.SetStatsSource(metrics)

	supply, err := v.GetTotalActorBalance()
	if err != nil {
		return nil, err
	}

	return &Sim{
		Config:          config,
		Agents:          []Agent{},
		Wins:            make(map[address.Address]uint64),
		v:               v,
		policy:          policy,
		supply:          supply,
		rnd:             mrand.New(mrand.NewSource(config.Seed)),
		blkStore:        blkStore,
		blkStoreFactory: blockstoreFactory,
		ctx:             ctx,
	}, nil
}

// Tick advances the simulation by one epoch.
func (s *Sim) Tick() error {
	// Wins are drawn against the power table as it stood before this epoch's messages.
	table, err := s.computeElectionTable()
	if err != nil {
		return err
	}

	block, err := s.gatherMessages()
	if err != nil {
		return err
	}
	if err := s.applyBlock(block); err != nil {
		return err
	}
	s.drawWins(table)

	if _, code := s.v.ApplyMessage(builtin.SystemActorAddr, builtin.CronActorAddr, big.Zero(), builtin.MethodsCron.EpochTick, nil); code != exitcode.Ok {
		return errors.Errorf("cron tick at epoch %d exited %d:\n%s", s.v.GetEpoch(), code, strings.Join(s.v.GetLogs(), "\n"))
	}
	s.statsByMethod = s.v.GetCallStats()
	for _, line := range s.v.GetLogs() {
		log.Debugw(line, "epoch", s.v.GetEpoch())
	}
	return s.advance()
}

// gatherMessages collects every agent's messages for this epoch in a random order.
func (s *Sim) gatherMessages() ([]message, error) {
	var block []message
	for _, agent := range s.Agents {
		msgs, err := agent.Tick(s)
		if err != nil {
			return nil, err
		}
		block = append(block, msgs...)
	}
	s.rnd.Shuffle(len(block), func(i, j int) { block[i], block[j] = block[j], block[i] })
	return block, nil
}

func (s *Sim) applyBlock(block []message) error {
	for _, msg := range block {
		s.MessageCount++
		ret, code := s.v.ApplyMessage(msg.From, msg.To, msg.Value, msg.Method, msg.Params)
		switch {
		case code == exitcode.Ok:
		case msg.tolerates(code):
			s.RejectedCount++
			continue
		default:
			return errors.Errorf("message %v exited %d:\n%s", msg, code, strings.Join(s.v.GetLogs(), "\n"))
		}
		if msg.ReturnHandler == nil {
			continue
		}
		if err := msg.ReturnHandler(s, msg, ret); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sim) drawWins(table electionTable) {
	if table.totalQAPower.LessThanEqual(big.Zero()) {
		return
	}
	for _, miner := range table.minerPower {
		wins := WinCount(miner.qaPower, table.totalQAPower, s.rnd.Float64())
		s.WinCount += wins
		s.Wins[miner.addr] += wins
	}
}

// advance moves to a VM at the next epoch. On checkpoint epochs the live state is first copied
// into a fresh block store, dropping everything unreachable from the state root.
func (s *Sim) advance() error {
	epoch := s.v.GetEpoch() + 1
	every := s.Config.CheckpointEpochs
	if every == 0 || uint64(epoch)%every != 0 {
		next, err := s.v.WithEpoch(epoch)
		if err != nil {
			return err
		}
		s.v = next
		return nil
	}

	fresh := s.blkStoreFactory()
	blocks, size, err := BlockstoreCopy(s.blkStore, fresh, s.v.StateRoot())
	if err != nil {
		return errors.Wrapf(err, "checkpoint at epoch %d", epoch)
	}
	log.Infow("checkpoint", "epoch", epoch, "blocks", blocks, "bytes", size)

	metrics := ipld.NewMetricsBlockStore(fresh)
	next, err := vm.NewVMAtEpoch(s.ctx, s.v.GetActorImpls(), adt.WrapBlockStore(s.ctx, metrics), s.v.StateRoot(), epoch)
	if err != nil {
		return err
	}
	next.SetStatsSource(metrics)
	s.blkStore, s.v = fresh, next
	return nil
}

// Run ticks the simulation for the given number of epochs. Invariants are checked every
// CheckInvariantEpochs epochs; violations are collected rather than stopping the run.
// The report callback, when not nil, is invoked after every tick.
func (s *Sim) Run(epochs int, report func(*Sim) error) error {
	var result *multierror.Error
	for i := 0; i < epochs; i++ {
		if err := s.Tick(); err != nil {
			return multierror.Append(result, err)
		}
		if s.Config.CheckInvariantEpochs > 0 && uint64(s.GetEpoch())%s.Config.CheckInvariantEpochs == 0 {
			if err := s.CheckInvariants(); err != nil {
				log.Warnw("invariant violation", "epoch", s.GetEpoch(), "error", err)
				result = multierror.Append(result, xerrors.Errorf("epoch %d: %w", s.GetEpoch(), err))
			}
		}
		if report != nil {
			if err := report(s); err != nil {
				return multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// CheckInvariants checks the whole state tree and returns every violation found.
func (s *Sim) CheckInvariants() error {
	tree, err := s.v.GetStateTree()
	if err != nil {
		return err
	}
	acc, err := states.CheckStateInvariants(tree, s.supply, s.policy)
	if err != nil {
		return err
	}
	var result *multierror.Error
	for _, msg := range acc.Messages() {
		result = multierror.Append(result, xerrors.New(msg))
	}
	return result.ErrorOrNil()
}

// CreateAccounts installs n funded accounts with fresh BLS key addresses and returns those addresses.
func (s *Sim) CreateAccounts(n int, balance abi.TokenAmount) ([]address.Address, error) {
	addrs := make([]address.Address, n)
	for i := range addrs {
		pubkey := make([]byte, address.BlsPublicKeyBytes)
		if _, err := s.rnd.Read(pubkey); err != nil {
			return nil, err
		}
		a, err := address.NewBLSAddress(pubkey)
		if err != nil {
			return nil, err
		}
		if _, err := s.v.CreateAccount(s.ctx, a, balance); err != nil {
			return nil, errors.Wrapf(err, "failed to create account %d", i)
		}
		s.supply = big.Add(s.supply, balance)
		addrs[i] = a
	}
	return addrs, nil
}

func (s *Sim) GetEpoch() abi.ChainEpoch {
	return s.v.GetEpoch()
}

func (s *Sim) GetState(addr address.Address, out cbor.Unmarshaler) error {
	return s.v.GetState(addr, out)
}

func (s *Sim) Store() adt.Store {
	return s.v.Store()
}

func (s *Sim) MinerState(addr address.Address) (*MinerView, error) {
	act, found, err := s.v.GetActor(addr)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, xerrors.Errorf("miner %s not found", addr)
	}
	return &MinerView{Ctx: s.ctx, Root: act.Head}, nil
}

func (s *Sim) AddAgent(a Agent) {
	s.Agents = append(s.Agents, a)
}

func (s *Sim) GetVM() *vm.VM {
	return s.v
}

func (s *Sim) GetCallStats() vm.StatsByCall {
	return s.statsByMethod
}

func (s *Sim) NetworkStats() (vm.NetworkStats, error) {
	return s.v.NetworkStats()
}

func (s *Sim) CreateMinerParams(owner, worker address.Address, sealProof abi.RegisteredSealProof) *power.CreateMinerParams {
	return &power.CreateMinerParams{
		Owner:         owner,
		Worker:        worker,
		SealProofType: sealProof,
		Peer:          abi.PeerID(fmt.Sprintf("peer-%s", owner)),
	}
}

// SealedCID derives a deterministic sealed or unsealed commitment CID for a simulated sector.
func SealedCID(prefix cid.Prefix, miner address.Address, number abi.SectorNumber) (cid.Cid, error) {
	return prefix.Sum([]byte(fmt.Sprintf("%s/%d", miner, number)))
}

func (s *Sim) computeElectionTable() (electionTable, error) {
	pt := electionTable{}

	var st power.State
	if err := s.v.GetState(builtin.StoragePowerActorAddr, &st); err != nil {
		return electionTable{}, err
	}
	_, pt.totalQAPower = power.CurrentTotalPower(&st)

	for _, agent := range s.Agents {
		miner, ok := agent.(*MinerAgent)
		if !ok {
			continue
		}
		claim, found, err := st.GetClaim(s.v.Store(), miner.IDAddress)
		if err != nil {
			return pt, err
		} else if !found {
			continue
		}
		eligible, err := states.MinerPoStLookbackEligibleForElection(s.v.Store(), &st, miner.IDAddress)
		if err != nil {
			return pt, err
		}
		if eligible {
			pt.minerPower = append(pt.minerPower, electionEntry{miner.IDAddress, claim.QualityAdjPower})
		}
	}
	return pt, nil
}

// NewRandomSeed returns a seed drawn from the operating system's entropy source.
func NewRandomSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return int64(binary.BigEndian.Uint64(b[:]))
}

type SimState interface {
	GetEpoch() abi.ChainEpoch
	GetState(addr address.Address, out cbor.Unmarshaler) error
	Store() adt.Store
	AddAgent(a Agent)
	MinerState(addr address.Address) (*MinerView, error)
	CreateMinerParams(owner, worker address.Address, sealProof abi.RegisteredSealProof) *power.CreateMinerParams
}

var _ SimState = (*Sim)(nil)

type Agent interface {
	Tick(v SimState) ([]message, error)
}

type SimConfig struct {
	Seed int64
	// Copy the live state into a fresh block store every this many epochs. Zero disables checkpoints.
	CheckpointEpochs uint64
	// Check state invariants every this many epochs. Zero disables checks.
	CheckInvariantEpochs uint64
	// Threshold policy: 1 uses the per-proof floor, 2 also requires a fraction of the committed total.
	PolicyVersion     power.PolicyVersion
	PolicyNumerator   int64
	PolicyDenominator int64
}

// Policy builds the threshold policy the config selects. An unset version selects the fixed floor.
func (c SimConfig) Policy() (power.ThresholdPolicy, error) {
	switch c.PolicyVersion {
	case 0, power.PolicyVersion1:
		return power.PolicyV1FixedFloor{}, nil
	case power.PolicyVersion2:
		if c.PolicyDenominator <= 0 || c.PolicyNumerator < 0 {
			return nil, xerrors.Errorf("invalid threshold fraction %d/%d", c.PolicyNumerator, c.PolicyDenominator)
		}
		return power.PolicyV2FractionOfTotal{Numerator: c.PolicyNumerator, Denominator: c.PolicyDenominator}, nil
	default:
		return nil, xerrors.Errorf("unknown policy version %d", c.PolicyVersion)
	}
}

type returnHandler func(v SimState, msg message, ret cbor.Marshaler) error

type message struct {
	From          address.Address
	To            address.Address
	Value         abi.TokenAmount
	Method        abi.MethodNum
	Params        interface{}
	ReturnHandler returnHandler
	// Exit codes that reject this message without failing the simulation.
	Tolerate []exitcode.ExitCode
}

func (m message) tolerates(code exitcode.ExitCode) bool {
	for _, c := range m.Tolerate {
		if c == code {
			return true
		}
	}
	return false
}

// electionTable is the election-eligible miners' power and the total it is drawn against.
type electionTable struct {
	totalQAPower abi.StoragePower
	minerPower   []electionEntry
}

type electionEntry struct {
	addr    address.Address
	qaPower abi.StoragePower
}
