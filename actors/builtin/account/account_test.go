package account_test

import (
	"strings"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worlddbs/power-actor/actors/builtin"
	"github.com/worlddbs/power-actor/actors/builtin/account"
	"github.com/worlddbs/power-actor/support/mock"
	tutil "github.com/worlddbs/power-actor/support/testing"
)

func TestExports(t *testing.T) {
	mock.CheckActorExports(t, account.Actor{})
}

func TestConstructor(t *testing.T) {
	actor := account.Actor{}
	receiver := tutil.NewIDAddr(t, 100)
	builder := mock.NewBuilder(receiver).WithCaller(builtin.SystemActorAddr, builtin.SystemActorCodeID)

	testCases := []struct {
		desc     string
		addr     address.Address
		exitCode exitcode.ExitCode
	}{
		{"secp256k1 owner", tutil.NewSECP256K1Addr(t, "owner"), exitcode.Ok},
		{"bls worker", tutil.NewBLSAddr(t, 1), exitcode.Ok},
		{"id address rejected", tutil.NewIDAddr(t, 1), exitcode.ErrIllegalArgument},
		{"actor address rejected", tutil.NewActorAddr(t, "miner"), exitcode.ErrIllegalArgument},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			rt := builder.Build(t)
			rt.ExpectValidateCallerAddr(builtin.SystemActorAddr)

			if !tc.exitCode.IsSuccess() {
				rt.ExpectAbort(tc.exitCode, func() {
					rt.Call(actor.Constructor, &tc.addr)
				})
				rt.Verify()
				return
			}

			rt.Call(actor.Constructor, &tc.addr)
			rt.Verify()

			rt.ExpectValidateCallerAny()
			pubkey := rt.Call(actor.PubkeyAddress, nil).(*address.Address)
			rt.Verify()
			assert.Equal(t, tc.addr, *pubkey)

			var st account.State
			rt.GetState(&st)
			_, msgs := account.CheckStateInvariants(&st, receiver)
			assert.True(t, msgs.IsEmpty(), strings.Join(msgs.Messages(), "\n"))
		})
	}

	t.Run("only the system may construct", func(t *testing.T) {
		rt := builder.Build(t)
		rt.SetCaller(builtin.StoragePowerActorAddr, builtin.StoragePowerActorCodeID)
		rt.ExpectValidateCallerAddr(builtin.SystemActorAddr)
		owner := tutil.NewBLSAddr(t, 2)
		rt.ExpectAbort(exitcode.ErrForbidden, func() {
			rt.Call(actor.Constructor, &owner)
		})
		rt.Verify()
	})
}

func TestInvariants(t *testing.T) {
	st := account.State{Address: tutil.NewIDAddr(t, 7)}
	_, msgs := account.CheckStateInvariants(&st, tutil.NewIDAddr(t, 200))
	require.Len(t, msgs.Messages(), 1)
	assert.Contains(t, msgs.Messages()[0], "must be BLS or SECP256K1")

	_, msgs = account.CheckStateInvariants(&st, builtin.SystemActorAddr)
	assert.True(t, msgs.IsEmpty())
}
