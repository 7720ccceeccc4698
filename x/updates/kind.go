package updates

import (
	"encoding/json"
	"fmt"

	"github.com/iov-one/cosign/errors"
)

// UpdateType identifies the kind of an update instruction.
type UpdateType uint8

const (
	UpdateProtocol UpdateType = iota + 1
	UpdateElectionDifficulty
	UpdateEuroPerEnergy
	UpdateMicroCCDPerEuro
	UpdateFoundationAccount
	UpdateMintDistributionV0
	UpdateTransactionFeeDistribution
	UpdateGASRewardsV0
	UpdateBakerStakeThreshold
	UpdateRootKeys
	UpdateLevel1KeysUsingRootKeys
	UpdateLevel2KeysUsingRootKeys
	UpdateLevel1KeysUsingLevel1Keys
	UpdateLevel2KeysUsingLevel1Keys
	UpdateAddAnonymityRevoker
	UpdateAddIdentityProvider
	UpdateCooldownParameters
	UpdatePoolParameters
	UpdateTimeParameters
	UpdateMintDistributionV1
	UpdateGASRewardsV1
	UpdateTimeoutParameters
	UpdateMinBlockTime
	UpdateBlockEnergyLimit
	UpdateFinalizationCommitteeParameters
)

// String returns the registered name of the update type.
func (t UpdateType) String() string {
	if r, ok := registry[t]; ok {
		return r.name
	}
	return fmt.Sprintf("UpdateType(%d)", uint8(t))
}

// ParseUpdateType returns the update type registered under given name.
func ParseUpdateType(name string) (UpdateType, error) {
	for kind, r := range registry {
		if r.name == name {
			return kind, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "%q", name)
}

// MarshalJSON writes the name of the update type.
func (t UpdateType) MarshalJSON() ([]byte, error) {
	if _, ok := registry[t]; !ok {
		return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "update type %d", uint8(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON reads the name of the update type.
func (t *UpdateType) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errors.Wrap(errors.ErrInput, "update type must be a string")
	}
	kind, err := ParseUpdateType(name)
	if err != nil {
		return err
	}
	*t = kind
	return nil
}

// KeyLevel is the level of the authorization keys that sign an update.
type KeyLevel uint8

const (
	// Level2 keys sign parameter updates. Each update type is signed by
	// a subset of them described by an access structure.
	Level2 KeyLevel = iota + 1
	// Level1 keys rotate level 1 and level 2 keys.
	Level1
	// RootKeys rotate any key.
	RootKeys
)

func (l KeyLevel) String() string {
	switch l {
	case Level2:
		return "level2"
	case Level1:
		return "level1"
	case RootKeys:
		return "root"
	default:
		return fmt.Sprintf("KeyLevel(%d)", uint8(l))
	}
}

// Level returns the level of keys that must sign updates of this type.
func (t UpdateType) Level() KeyLevel {
	switch t {
	case UpdateRootKeys, UpdateLevel1KeysUsingRootKeys, UpdateLevel2KeysUsingRootKeys:
		return RootKeys
	case UpdateLevel1KeysUsingLevel1Keys, UpdateLevel2KeysUsingLevel1Keys:
		return Level1
	default:
		return Level2
	}
}
