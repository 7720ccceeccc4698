package updates

import (
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
)

// HigherLevelKeys are the root or level 1 keys together with the number of
// signatures required from them.
type HigherLevelKeys struct {
	Keys      []crypto.VerifyKey `json:"keys"`
	Threshold uint16             `json:"threshold"`
}

// Authorizations are the level 2 keys and, for each group of update types,
// the subset of keys that may sign them.
type Authorizations struct {
	Keys                       []crypto.VerifyKey `json:"keys"`
	Emergency                  AccessStructure    `json:"emergency"`
	Protocol                   AccessStructure    `json:"protocol"`
	ElectionDifficulty         AccessStructure    `json:"electionDifficulty"`
	EuroPerEnergy              AccessStructure    `json:"euroPerEnergy"`
	MicroGTUPerEuro            AccessStructure    `json:"microGTUPerEuro"`
	FoundationAccount          AccessStructure    `json:"foundationAccount"`
	MintDistribution           AccessStructure    `json:"mintDistribution"`
	TransactionFeeDistribution AccessStructure    `json:"transactionFeeDistribution"`
	ParamGASRewards            AccessStructure    `json:"paramGASRewards"`
	PoolParameters             *AccessStructure   `json:"poolParameters,omitempty"`
	// BakerStakeThreshold is the name of PoolParameters used by nodes
	// running a protocol before version 4.
	BakerStakeThreshold *AccessStructure `json:"bakerStakeThreshold,omitempty"`
	AddAnonymityRevoker AccessStructure  `json:"addAnonymityRevoker"`
	AddIdentityProvider AccessStructure  `json:"addIdentityProvider"`
	CooldownParameters  *AccessStructure `json:"cooldownParameters,omitempty"`
	TimeParameters      *AccessStructure `json:"timeParameters,omitempty"`
}

// UpdateKeys is the on chain snapshot of all authorization keys.
type UpdateKeys struct {
	RootKeys   HigherLevelKeys `json:"rootKeys"`
	Level1Keys HigherLevelKeys `json:"level1Keys"`
	Level2Keys Authorizations  `json:"level2Keys"`
}

// AuthorizationKeySet is the set of keys that may sign updates of one kind.
// Signatures refer to keys by their index in Keys.
type AuthorizationKeySet struct {
	Level KeyLevel
	Keys  []crypto.VerifyKey
	// Authorized lists the indexes of keys allowed to sign. Nil means
	// all keys are allowed.
	Authorized []uint16
	// Threshold is the number of signatures the chain requires.
	Threshold uint16
}

// Key returns the key at given index. An index out of range is an error.
func (s AuthorizationKeySet) Key(index uint16) (crypto.VerifyKey, error) {
	if int(index) >= len(s.Keys) {
		return crypto.VerifyKey{}, errors.Wrapf(errors.ErrInput, "key index %d out of range, %d keys", index, len(s.Keys))
	}
	return s.Keys[index], nil
}

// IsAuthorized returns true if the key at given index may sign.
func (s AuthorizationKeySet) IsAuthorized(index uint16) bool {
	if int(index) >= len(s.Keys) {
		return false
	}
	if s.Authorized == nil {
		return true
	}
	for _, i := range s.Authorized {
		if i == index {
			return true
		}
	}
	return false
}

// IndexOf returns the index of an authorized key.
func (s AuthorizationKeySet) IndexOf(key crypto.VerifyKey) (uint16, bool) {
	for i, k := range s.Keys {
		if k.Equal(key) && s.IsAuthorized(uint16(i)) {
			return uint16(i), true
		}
	}
	return 0, false
}

// KeySet returns the keys that may sign updates of given type.
func (k UpdateKeys) KeySet(kind UpdateType) (AuthorizationKeySet, error) {
	switch kind.Level() {
	case RootKeys:
		return AuthorizationKeySet{
			Level:     RootKeys,
			Keys:      k.RootKeys.Keys,
			Threshold: k.RootKeys.Threshold,
		}, nil
	case Level1:
		return AuthorizationKeySet{
			Level:     Level1,
			Keys:      k.Level1Keys.Keys,
			Threshold: k.Level1Keys.Threshold,
		}, nil
	}

	access, err := k.Level2Keys.accessStructure(kind)
	if err != nil {
		return AuthorizationKeySet{}, err
	}
	authorized := access.AuthorizedKeys
	if authorized == nil {
		// Nil would authorize every level 2 key.
		authorized = []uint16{}
	}
	return AuthorizationKeySet{
		Level:      Level2,
		Keys:       k.Level2Keys.Keys,
		Authorized: authorized,
		Threshold:  access.Threshold,
	}, nil
}

func (a *Authorizations) accessStructure(kind UpdateType) (*AccessStructure, error) {
	var access *AccessStructure
	switch kind {
	case UpdateProtocol:
		access = &a.Protocol
	case UpdateElectionDifficulty, UpdateTimeoutParameters, UpdateMinBlockTime, UpdateBlockEnergyLimit:
		access = &a.ElectionDifficulty
	case UpdateEuroPerEnergy:
		access = &a.EuroPerEnergy
	case UpdateMicroCCDPerEuro:
		access = &a.MicroGTUPerEuro
	case UpdateFoundationAccount:
		access = &a.FoundationAccount
	case UpdateMintDistributionV0, UpdateMintDistributionV1:
		access = &a.MintDistribution
	case UpdateTransactionFeeDistribution:
		access = &a.TransactionFeeDistribution
	case UpdateGASRewardsV0, UpdateGASRewardsV1:
		access = &a.ParamGASRewards
	case UpdateBakerStakeThreshold, UpdatePoolParameters, UpdateFinalizationCommitteeParameters:
		access = a.PoolParameters
		if access == nil {
			access = a.BakerStakeThreshold
		}
	case UpdateAddAnonymityRevoker:
		access = &a.AddAnonymityRevoker
	case UpdateAddIdentityProvider:
		access = &a.AddIdentityProvider
	case UpdateCooldownParameters:
		access = a.CooldownParameters
	case UpdateTimeParameters:
		access = a.TimeParameters
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "%s is not a level 2 update", kind)
	}
	if access == nil {
		return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "%s is not supported by the chain", kind)
	}
	return access, nil
}

// UpdateQueue describes pending updates of one kind.
type UpdateQueue struct {
	NextSequenceNumber uint64 `json:"nextSequenceNumber"`
}

// UpdateQueues are indexed by queue name, see UpdateType.QueueName.
type UpdateQueues map[string]UpdateQueue

// QueueName returns the name of the update queue updates of this type are
// enqueued in.
func (t UpdateType) QueueName() string {
	switch t {
	case UpdateProtocol:
		return "protocol"
	case UpdateElectionDifficulty:
		return "electionDifficulty"
	case UpdateEuroPerEnergy:
		return "euroPerEnergy"
	case UpdateMicroCCDPerEuro:
		return "microGTUPerEuro"
	case UpdateFoundationAccount:
		return "foundationAccount"
	case UpdateMintDistributionV0, UpdateMintDistributionV1:
		return "mintDistribution"
	case UpdateTransactionFeeDistribution:
		return "transactionFeeDistribution"
	case UpdateGASRewardsV0, UpdateGASRewardsV1:
		return "gasRewards"
	case UpdateBakerStakeThreshold, UpdatePoolParameters:
		return "poolParameters"
	case UpdateRootKeys:
		return "rootKeys"
	case UpdateLevel1KeysUsingRootKeys, UpdateLevel1KeysUsingLevel1Keys:
		return "level1Keys"
	case UpdateLevel2KeysUsingRootKeys, UpdateLevel2KeysUsingLevel1Keys:
		return "level2Keys"
	case UpdateAddAnonymityRevoker:
		return "addAnonymityRevoker"
	case UpdateAddIdentityProvider:
		return "addIdentityProvider"
	case UpdateCooldownParameters:
		return "cooldownParameters"
	case UpdateTimeParameters:
		return "timeParameters"
	case UpdateTimeoutParameters:
		return "timeoutParameters"
	case UpdateMinBlockTime:
		return "minBlockTime"
	case UpdateBlockEnergyLimit:
		return "blockEnergyLimit"
	case UpdateFinalizationCommitteeParameters:
		return "finalizationCommitteeParameters"
	}
	return ""
}

// NextSequenceNumber returns the sequence number the next update of given
// type must carry.
func (q UpdateQueues) NextSequenceNumber(kind UpdateType) (uint64, error) {
	name := kind.QueueName()
	if name == "" {
		return 0, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "update type %d", uint8(kind))
	}
	queue, ok := q[name]
	if !ok {
		// The queue of the pre protocol 4 name of pool parameters.
		if name == "poolParameters" {
			if queue, ok = q["bakerStakeThreshold"]; ok {
				return queue.NextSequenceNumber, nil
			}
		}
		return 0, errors.Wrapf(errors.ErrNotFound, "update queue %q", name)
	}
	return queue.NextSequenceNumber, nil
}
