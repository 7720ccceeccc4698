package cosigntest

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/x/accounts"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/iov-one/cosign/x/updates"
)

// Now is the time the mock clocks start at.
var Now = time.Unix(1700000000, 0)

// NewClock returns a mock clock set to Now.
func NewClock() *clock.Mock {
	clk := clock.NewMock()
	clk.Set(Now)
	return clk
}

// UpdateKeys returns a key snapshot where all given keys are root, level 1
// and level 2 keys, and every level 2 key may sign every update type.
func UpdateKeys(pub []crypto.VerifyKey, threshold uint16) updates.UpdateKeys {
	all := make([]uint16, len(pub))
	for i := range all {
		all[i] = uint16(i)
	}
	access := updates.AccessStructure{AuthorizedKeys: all, Threshold: threshold}
	return updates.UpdateKeys{
		RootKeys:   updates.HigherLevelKeys{Keys: pub, Threshold: threshold},
		Level1Keys: updates.HigherLevelKeys{Keys: pub, Threshold: threshold},
		Level2Keys: updates.Authorizations{
			Keys:                       pub,
			Emergency:                  access,
			Protocol:                   access,
			ElectionDifficulty:         access,
			EuroPerEnergy:              access,
			MicroGTUPerEuro:            access,
			FoundationAccount:          access,
			MintDistribution:           access,
			TransactionFeeDistribution: access,
			ParamGASRewards:            access,
			PoolParameters:             &access,
			AddAnonymityRevoker:        access,
			AddIdentityProvider:        access,
			CooldownParameters:         &access,
			TimeParameters:             &access,
		},
	}
}

// BlockSummary returns a summary with given keys and a sequence number of
// 1 for every update queue.
func BlockSummary(keys updates.UpdateKeys) multisig.BlockSummary {
	queues := make(updates.UpdateQueues)
	for _, kind := range updates.Kinds() {
		queues[kind.QueueName()] = updates.UpdateQueue{NextSequenceNumber: 1}
	}
	return multisig.BlockSummary{
		Updates: multisig.BlockUpdates{Keys: keys, UpdateQueues: queues},
	}
}

// EuroPerEnergy returns an unsigned update of the energy price expiring at
// given time.
func EuroPerEnergy(timeout time.Time) *multisig.UpdateTransaction {
	header := updates.Header{
		SequenceNumber: 1,
		Timeout:        uint64(timeout.Unix()),
	}
	p := &updates.EuroPerEnergy{ExchangeRate: updates.ExchangeRate{Numerator: 1, Denominator: 50000}}
	ins, err := updates.NewInstruction(header, p)
	if err != nil {
		panic(err)
	}
	return &multisig.UpdateTransaction{Instruction: ins}
}

// Address returns a deterministic account address.
func Address(n byte) cosign.AccountAddress {
	var a cosign.AccountAddress
	for i := range a {
		a[i] = n
	}
	return a
}

// AccountKeys returns account keys with all given keys in credential 0.
func AccountKeys(pub []crypto.VerifyKey, threshold uint8) accounts.AccountKeys {
	cred := accounts.CredentialKeys{
		Keys:      make(map[uint8]crypto.VerifyKey, len(pub)),
		Threshold: threshold,
	}
	for i, k := range pub {
		cred.Keys[uint8(i)] = k
	}
	return accounts.AccountKeys{
		Credentials: map[uint8]accounts.CredentialKeys{0: cred},
		Threshold:   1,
	}
}

// SimpleTransfer returns an unsigned transfer from sender expiring at given
// time.
func SimpleTransfer(sender cosign.AccountAddress, expiry time.Time) *multisig.AccountTransaction {
	header := accounts.Header{
		Sender: sender,
		Nonce:  1,
		Energy: 501,
		Expiry: uint64(expiry.Unix()),
	}
	p := &accounts.SimpleTransfer{ToAddress: Address(9), Amount: 1000000}
	tx, err := accounts.NewTransaction(header, p)
	if err != nil {
		panic(err)
	}
	return &multisig.AccountTransaction{Transaction: tx}
}
