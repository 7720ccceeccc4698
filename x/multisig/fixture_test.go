package multisig_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/cosigntest"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/store"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// devicePath is the key path of the device key known to the fake node.
var devicePath = crypto.KeyPath{1105, 0, 0, 0, 0}

type fixture struct {
	ctl      *multisig.Controller
	node     *cosigntest.FakeNode
	clock    *clock.Mock
	keys     []cosigntest.Key
	device   *crypto.SoftDevice
	sender   cosign.AccountAddress
	registry *prometheus.Registry
}

// newFixture returns a controller backed by a memory store and a fake node
// where three test keys and one device key may sign updates of every type
// and transactions of the sender account.
func newFixture(t testing.TB) *fixture {
	t.Helper()

	keys := cosigntest.NewKeys(3)
	device := cosigntest.NewDevice(42)
	devKey, err := device.PublicKey(context.Background(), devicePath)
	require.NoError(t, err)
	pub := append(cosigntest.PublicKeys(keys), devKey)

	node := cosigntest.NewFakeNode(cosigntest.BlockSummary(cosigntest.UpdateKeys(pub, 2)))
	sender := cosigntest.Address(1)
	node.Accounts[sender] = multisig.AccountInfo{Nonce: 4, Keys: cosigntest.AccountKeys(pub, 2)}

	clk := cosigntest.NewClock()
	reg := prometheus.NewRegistry()
	ctl := multisig.NewController(store.MemStore(), node).
		WithClock(clk).
		WithMetrics(multisig.NewMetrics(reg))

	return &fixture{
		ctl:      ctl,
		node:     node,
		clock:    clk,
		keys:     keys,
		device:   device,
		sender:   sender,
		registry: reg,
	}
}

// deadline is an hour after the fixture clock start.
func deadline() time.Time {
	return cosigntest.Now.Add(time.Hour)
}

func (f *fixture) createUpdate(t testing.TB, threshold int) *multisig.Proposal {
	t.Helper()
	p, err := f.ctl.Create(context.Background(), cosigntest.EuroPerEnergy(deadline()), threshold)
	require.NoError(t, err)
	return p
}

func (f *fixture) createTransfer(t testing.TB, threshold int) *multisig.Proposal {
	t.Helper()
	p, err := f.ctl.Create(context.Background(), cosigntest.SimpleTransfer(f.sender, deadline()), threshold)
	require.NoError(t, err)
	return p
}

// updateSig signs the update of a proposal with the test key of given index.
func (f *fixture) updateSig(t testing.TB, p *multisig.Proposal, index int) multisig.UpdateSignature {
	t.Helper()
	tx, err := p.Tx()
	require.NoError(t, err)
	digest, err := tx.SignDigest()
	require.NoError(t, err)
	return multisig.UpdateSignature{
		AuthorizationKeyIndex: uint16(index),
		Signature:             f.keys[index].Sign(digest),
	}
}

// accountSig signs the account transaction of a proposal with the test key
// of given index.
func (f *fixture) accountSig(t testing.TB, p *multisig.Proposal, index int) multisig.AccountSignature {
	t.Helper()
	tx, err := p.Tx()
	require.NoError(t, err)
	digest, err := tx.SignDigest()
	require.NoError(t, err)
	return multisig.AccountSignature{
		CredentialIndex: 0,
		KeyIndex:        uint8(index),
		Signature:       f.keys[index].Sign(digest),
	}
}

// countingDevice counts the signatures it is asked for.
type countingDevice struct {
	crypto.Device
	signs int
}

func (d *countingDevice) Sign(ctx context.Context, path crypto.KeyPath, message []byte) ([]byte, error) {
	d.signs++
	return d.Device.Sign(ctx, path, message)
}
