package updates

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/cosign/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleUpdateKeys() UpdateKeys {
	keys := testKeys(6)
	pool := AccessStructure{AuthorizedKeys: []uint16{4}, Threshold: 1}
	return UpdateKeys{
		RootKeys:   HigherLevelKeys{Keys: keys[:3], Threshold: 2},
		Level1Keys: HigherLevelKeys{Keys: keys[3:5], Threshold: 1},
		Level2Keys: Authorizations{
			Keys:                       keys,
			Emergency:                  AccessStructure{AuthorizedKeys: []uint16{0}, Threshold: 1},
			Protocol:                   AccessStructure{AuthorizedKeys: []uint16{0, 1}, Threshold: 2},
			ElectionDifficulty:         AccessStructure{AuthorizedKeys: []uint16{2}, Threshold: 1},
			EuroPerEnergy:              AccessStructure{AuthorizedKeys: []uint16{1, 3, 5}, Threshold: 2},
			MicroGTUPerEuro:            AccessStructure{AuthorizedKeys: []uint16{3}, Threshold: 1},
			FoundationAccount:          AccessStructure{AuthorizedKeys: []uint16{0}, Threshold: 1},
			MintDistribution:           AccessStructure{AuthorizedKeys: []uint16{0}, Threshold: 1},
			TransactionFeeDistribution: AccessStructure{AuthorizedKeys: []uint16{0}, Threshold: 1},
			ParamGASRewards:            AccessStructure{AuthorizedKeys: []uint16{5}, Threshold: 1},
			PoolParameters:             &pool,
			AddAnonymityRevoker:        AccessStructure{AuthorizedKeys: []uint16{0}, Threshold: 1},
			AddIdentityProvider:        AccessStructure{AuthorizedKeys: []uint16{0}, Threshold: 1},
		},
	}
}

func TestKeySet(t *testing.T) {
	keys := exampleUpdateKeys()

	cases := map[string]struct {
		kind           UpdateType
		wantLevel      KeyLevel
		wantThreshold  uint16
		wantAuthorized []uint16
		wantErr        *errors.Error
	}{
		"root keys": {
			kind:          UpdateLevel2KeysUsingRootKeys,
			wantLevel:     RootKeys,
			wantThreshold: 2,
		},
		"level 1 keys": {
			kind:          UpdateLevel1KeysUsingLevel1Keys,
			wantLevel:     Level1,
			wantThreshold: 1,
		},
		"euro per energy": {
			kind:           UpdateEuroPerEnergy,
			wantLevel:      Level2,
			wantThreshold:  2,
			wantAuthorized: []uint16{1, 3, 5},
		},
		"consensus parameters share the election difficulty keys": {
			kind:           UpdateMinBlockTime,
			wantLevel:      Level2,
			wantThreshold:  1,
			wantAuthorized: []uint16{2},
		},
		"gas rewards of any version": {
			kind:           UpdateGASRewardsV1,
			wantLevel:      Level2,
			wantThreshold:  1,
			wantAuthorized: []uint16{5},
		},
		"baker stake threshold uses pool parameter keys": {
			kind:           UpdateBakerStakeThreshold,
			wantLevel:      Level2,
			wantThreshold:  1,
			wantAuthorized: []uint16{4},
		},
		"cooldown parameters not supported by the chain": {
			kind:    UpdateCooldownParameters,
			wantErr: errors.ErrUnsupportedPayloadKind,
		},
		"unknown update type": {
			kind:    UpdateType(99),
			wantErr: errors.ErrUnsupportedPayloadKind,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			set, err := keys.KeySet(tc.kind)
			require.True(t, tc.wantErr.Is(err), "unexpected error: %+v", err)
			if tc.wantErr != nil {
				return
			}
			assert.Equal(t, tc.wantLevel, set.Level)
			assert.Equal(t, tc.wantThreshold, set.Threshold)
			assert.Equal(t, tc.wantAuthorized, set.Authorized)
		})
	}
}

func TestAuthorizationKeySet(t *testing.T) {
	keys := exampleUpdateKeys()
	set, err := keys.KeySet(UpdateEuroPerEnergy)
	require.NoError(t, err)

	assert.True(t, set.IsAuthorized(3))
	assert.False(t, set.IsAuthorized(2))
	assert.False(t, set.IsAuthorized(60))

	idx, ok := set.IndexOf(keys.Level2Keys.Keys[5])
	assert.True(t, ok)
	assert.Equal(t, uint16(5), idx)
	_, ok = set.IndexOf(keys.Level2Keys.Keys[0])
	assert.False(t, ok)

	k, err := set.Key(1)
	require.NoError(t, err)
	assert.True(t, k.Equal(keys.Level2Keys.Keys[1]))
	_, err = set.Key(6)
	assert.True(t, errors.ErrInput.Is(err))

	root, err := keys.KeySet(UpdateRootKeys)
	require.NoError(t, err)
	for i := range root.Keys {
		assert.True(t, root.IsAuthorized(uint16(i)))
	}

	var empty UpdateKeys
	empty.Level2Keys.Keys = testKeys(2)
	none, err := empty.KeySet(UpdateProtocol)
	require.NoError(t, err)
	assert.False(t, none.IsAuthorized(0))
}

func TestUpdateKeysFromNodeJSON(t *testing.T) {
	raw := `{
		"rootKeys": {"keys": [], "threshold": 1},
		"level1Keys": {"keys": [], "threshold": 1},
		"level2Keys": {
			"keys": [],
			"protocol": {"authorizedKeys": [0, 1], "threshold": 1},
			"bakerStakeThreshold": {"authorizedKeys": [2], "threshold": 1}
		}
	}`
	var keys UpdateKeys
	require.NoError(t, json.Unmarshal([]byte(raw), &keys))

	set, err := keys.KeySet(UpdateBakerStakeThreshold)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2}, set.Authorized)
}

func TestNextSequenceNumber(t *testing.T) {
	queues := UpdateQueues{
		"euroPerEnergy":       {NextSequenceNumber: 4},
		"bakerStakeThreshold": {NextSequenceNumber: 9},
		"level2Keys":          {NextSequenceNumber: 2},
	}

	n, err := queues.NextSequenceNumber(UpdateEuroPerEnergy)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	n, err = queues.NextSequenceNumber(UpdatePoolParameters)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), n)

	n, err = queues.NextSequenceNumber(UpdateLevel2KeysUsingLevel1Keys)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	_, err = queues.NextSequenceNumber(UpdateProtocol)
	assert.True(t, errors.ErrNotFound.Is(err))

	for _, kind := range Kinds() {
		assert.NotEmpty(t, kind.QueueName(), kind.String())
	}
}
