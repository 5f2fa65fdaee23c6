package testing

import (
	"math/rand"
	"testing"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/stretchr/testify/require"
)

func NewIDAddr(t testing.TB, id uint64) addr.Address {
	a, err := addr.NewIDAddress(id)
	require.NoError(t, err)
	return a
}

// NewSECP256K1Addr accepts any string as the key since secp256k1 addresses hold a hash of it.
func NewSECP256K1Addr(t testing.TB, pubkey string) addr.Address {
	a, err := addr.NewSecp256k1Address([]byte(pubkey))
	require.NoError(t, err)
	return a
}

// NewBLSAddr makes a key address from a 48-byte pseudo-random public key.
func NewBLSAddr(t testing.TB, seed int64) addr.Address {
	key := make([]byte, 48)
	rand.New(rand.NewSource(seed)).Read(key) //nolint:gosec
	a, err := addr.NewBLSAddress(key)
	require.NoError(t, err)
	return a
}

// NewActorAddr makes a robust address as the init actor would assign to a new miner.
func NewActorAddr(t testing.TB, data string) addr.Address {
	a, err := addr.NewActorAddress([]byte(data))
	require.NoError(t, err)
	return a
}

func MakeMultiaddrs(inputs ...string) []abi.Multiaddrs {
	out := make([]abi.Multiaddrs, len(inputs))
	for i, in := range inputs {
		out[i] = abi.Multiaddrs(in)
	}
	return out
}
