package builtin

import (
	"sort"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// Code IDs of the actors the power actor runs alongside.
var (
	SystemActorCodeID       cid.Cid
	InitActorCodeID         cid.Cid
	CronActorCodeID         cid.Cid
	AccountActorCodeID      cid.Cid
	StoragePowerActorCodeID cid.Cid
	StorageMinerActorCodeID cid.Cid
	MultisigActorCodeID     cid.Cid
	CallerTypesSignable     []cid.Cid
)

var builtinActors map[cid.Cid]*actorInfo

type actorInfo struct {
	name   string
	signer bool
}

func init() {
	builder := cid.V1Builder{Codec: cid.Raw, MhType: mh.IDENTITY}
	builtinActors = make(map[cid.Cid]*actorInfo)

	for id, info := range map[*cid.Cid]*actorInfo{ //nolint:nomaprange
		&SystemActorCodeID:       {name: "power/1/system"},
		&InitActorCodeID:         {name: "power/1/init"},
		&CronActorCodeID:         {name: "power/1/cron"},
		&StoragePowerActorCodeID: {name: "power/1/storagepower"},
		&StorageMinerActorCodeID: {name: "power/1/storageminer"},
		&AccountActorCodeID:      {name: "power/1/account", signer: true},
		&MultisigActorCodeID:     {name: "power/1/multisig", signer: true},
	} {
		c, err := builder.Sum([]byte(info.name))
		if err != nil {
			panic(err)
		}
		*id = c
		builtinActors[c] = info
	}

	for id, info := range builtinActors { //nolint:nomaprange
		if info.signer {
			CallerTypesSignable = append(CallerTypesSignable, id)
		}
	}
	// Map order is random; callers compare this slice against expectations.
	sort.Slice(CallerTypesSignable, func(i, j int) bool {
		return CallerTypesSignable[i].KeyString() < CallerTypesSignable[j].KeyString()
	})
}

// IsBuiltinActor returns true if the code belongs to an actor defined in this repo.
func IsBuiltinActor(code cid.Cid) bool {
	_, isBuiltin := builtinActors[code]
	return isBuiltin
}

// ActorNameByCode returns the name of the actor with the given code.
func ActorNameByCode(code cid.Cid) string {
	if !code.Defined() {
		return "<undefined>"
	}
	info, ok := builtinActors[code]
	if !ok {
		return "<unknown>"
	}
	return info.name
}

// IsPrincipal tests whether a code represents an actor that can be an external signing party.
func IsPrincipal(code cid.Cid) bool {
	info, ok := builtinActors[code]
	if !ok {
		return false
	}
	return info.signer
}
