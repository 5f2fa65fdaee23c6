// Command gen writes the CBOR tuple encoders for every type stored in state or sent as a message.
// Run it from the repository root.
package main

import (
	"fmt"
	"os"

	gen "github.com/whyrusleeping/cbor-gen"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/account"
	"github.com/worlddbs/power-actor/actors/builtin/cron"
	init_ "github.com/worlddbs/power-actor/actors/builtin/init"
	"github.com/worlddbs/power-actor/actors/builtin/power"
	"github.com/worlddbs/power-actor/actors/builtin/system"
	"github.com/worlddbs/power-actor/actors/runtime/proof"
	"github.com/worlddbs/power-actor/actors/states"
	"github.com/worlddbs/power-actor/actors/util/smoothing"
	"github.com/worlddbs/power-actor/support/vm"
)

type target struct {
	dir, pkg string
	types    []interface{}
}

var targets = []target{
	{"actors/runtime/proof", "proof", []interface{}{proof.SealVerifyInfo{}}},
	{"actors/builtin", "builtin", []interface{}{builtin.ConfirmSectorProofsParams{}}},
	{"actors/util/smoothing", "smoothing", []interface{}{smoothing.FilterEstimate{}}},
	{"actors/states", "states", []interface{}{states.Actor{}}},

	{"actors/builtin/system", "system", []interface{}{system.State{}}},
	{"actors/builtin/account", "account", []interface{}{account.State{}}},
	{"actors/builtin/init", "init", []interface{}{
		init_.State{},
		init_.ConstructorParams{},
		init_.ExecParams{},
		init_.ExecReturn{},
	}},
	{"actors/builtin/cron", "cron", []interface{}{
		cron.State{},
		cron.Entry{},
		cron.ConstructorParams{},
	}},
	{"actors/builtin/power", "power", []interface{}{
		power.State{},
		power.Claim{},
		power.CronEvent{},
		power.MinerConstructorParams{},
		power.CreateMinerParams{},
		power.CreateMinerReturn{},
		power.UpdateClaimedPowerParams{},
		power.EnrollCronEventParams{},
		power.CurrentTotalPowerReturn{},
	}},

	{"support/vm", "vm", []interface{}{vm.MinerStubState{}, vm.ScriptParams{}}},
}

func main() {
	for _, t := range targets {
		if err := gen.WriteTupleEncodersToFile("./"+t.dir+"/cbor_gen.go", t.pkg, t.types...); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", t.dir, err)
			os.Exit(1)
		}
	}
}
