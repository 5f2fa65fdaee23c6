package builtin

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/ipfs/go-cid"
)

// Addresses for singleton system actors.
var (
	// Distinguished actor that is the source of system implicit messages.
	SystemActorAddr       = mustMakeAddress(0)
	InitActorAddr         = mustMakeAddress(1)
	CronActorAddr         = mustMakeAddress(3)
	StoragePowerActorAddr = mustMakeAddress(4)
)

const FirstNonSingletonActorId = 100

func mustMakeAddress(id uint64) addr.Address {
	address, err := addr.NewIDAddress(id)
	if err != nil {
		panic(err)
	}
	return address
}

// IsSingletonActor returns true if the code belongs to a singleton actor.
func IsSingletonActor(code cid.Cid) bool {
	return code.Equals(SystemActorCodeID) ||
		code.Equals(InitActorCodeID) ||
		code.Equals(CronActorCodeID) ||
		code.Equals(StoragePowerActorCodeID)
}
