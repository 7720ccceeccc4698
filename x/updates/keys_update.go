package updates

import (
	"strconv"

	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
)

const (
	rootUpdateTag   = 10
	level1UpdateTag = 11
)

func init() {
	register(UpdateRootKeys, "RootKeys", rootUpdateTag, func() bodyReader {
		return &HigherLevelKeysUpdate{Type: UpdateRootKeys}
	})
	register(UpdateLevel1KeysUsingRootKeys, "Level1KeysUsingRootKeys", rootUpdateTag, func() bodyReader {
		return &HigherLevelKeysUpdate{Type: UpdateLevel1KeysUsingRootKeys}
	})
	register(UpdateLevel2KeysUsingRootKeys, "Level2KeysUsingRootKeys", rootUpdateTag, func() bodyReader {
		return &AuthorizationKeysUpdate{Type: UpdateLevel2KeysUsingRootKeys}
	})
	register(UpdateLevel1KeysUsingLevel1Keys, "Level1KeysUsingLevel1Keys", level1UpdateTag, func() bodyReader {
		return &HigherLevelKeysUpdate{Type: UpdateLevel1KeysUsingLevel1Keys}
	})
	register(UpdateLevel2KeysUsingLevel1Keys, "Level2KeysUsingLevel1Keys", level1UpdateTag, func() bodyReader {
		return &AuthorizationKeysUpdate{Type: UpdateLevel2KeysUsingLevel1Keys}
	})
}

// HigherLevelKeysUpdate replaces the root keys or the level 1 keys.
type HigherLevelKeysUpdate struct {
	// Type is one of UpdateRootKeys, UpdateLevel1KeysUsingRootKeys and
	// UpdateLevel1KeysUsingLevel1Keys. It is carried by the instruction
	// type in JSON.
	Type      UpdateType         `json:"-"`
	Keys      []crypto.VerifyKey `json:"keys"`
	Threshold uint16             `json:"threshold"`
}

func (p *HigherLevelKeysUpdate) Kind() UpdateType { return p.Type }

func (p *HigherLevelKeysUpdate) Validate() error {
	var errs error
	switch p.Type {
	case UpdateRootKeys, UpdateLevel1KeysUsingRootKeys, UpdateLevel1KeysUsingLevel1Keys:
	default:
		errs = errors.AppendField(errs, "Type", errors.Wrapf(errors.ErrUnsupportedPayloadKind, "%s", p.Type))
	}
	errs = errors.AppendField(errs, "Keys", validateKeys(p.Keys))
	if p.Threshold == 0 || int(p.Threshold) > len(p.Keys) {
		errs = errors.AppendField(errs, "Threshold",
			errors.Wrapf(errors.ErrInput, "must be between 1 and %d", len(p.Keys)))
	}
	return errs
}

// subTag returns the key update discriminant that follows the update tag.
func (p *HigherLevelKeysUpdate) subTag() (uint8, error) {
	switch p.Type {
	case UpdateRootKeys:
		return 0, nil
	case UpdateLevel1KeysUsingRootKeys:
		return 1, nil
	case UpdateLevel1KeysUsingLevel1Keys:
		return 0, nil
	}
	return 0, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "%s is not a higher level key update", p.Type)
}

// Serialize writes the sub tag, the u16 length prefixed key list and the
// u16 threshold.
func (p *HigherLevelKeysUpdate) Serialize(w *codec.Writer) {
	sub, err := p.subTag()
	if err != nil {
		w.Fail(err)
		return
	}
	w.Word8(sub)
	codec.WriteList(w, p.Keys, codec.WK)
	w.Word16(p.Threshold)
}

func (p *HigherLevelKeysUpdate) readBody(r *codec.Reader) {
	p.Keys = codec.ReadList(r, codec.RK)
	p.Threshold = r.Word16()
}

// AccessStructure lists indexes of level 2 keys that may sign an update
// type together with the number of signatures needed.
type AccessStructure struct {
	AuthorizedKeys []uint16 `json:"authorizedKeys"`
	Threshold      uint16   `json:"threshold"`
}

func (a AccessStructure) validate(keyCount int) error {
	if len(a.AuthorizedKeys) == 0 {
		return errors.Wrap(errors.ErrInput, "no authorized keys")
	}
	for i, idx := range a.AuthorizedKeys {
		if int(idx) >= keyCount {
			return errors.Wrapf(errors.ErrInput, "key index %d out of range", idx)
		}
		if i > 0 && idx <= a.AuthorizedKeys[i-1] {
			return errors.Wrap(errors.ErrInput, "key indexes must be ascending and unique")
		}
	}
	if a.Threshold == 0 || int(a.Threshold) > len(a.AuthorizedKeys) {
		return errors.Wrapf(errors.ErrInput, "threshold must be between 1 and %d", len(a.AuthorizedKeys))
	}
	return nil
}

func (a *AccessStructure) write(w *codec.Writer) {
	codec.WriteList(w, a.AuthorizedKeys, codec.W16)
	w.Word16(a.Threshold)
}

func (a *AccessStructure) read(r *codec.Reader) {
	a.AuthorizedKeys = codec.ReadList(r, codec.R16)
	a.Threshold = r.Word16()
}

// Number of access structures carried by each version of a level 2 key
// update. Version 1 adds cooldown and time parameters.
const (
	accessStructuresV0 = 12
	accessStructuresV1 = 14
)

// AuthorizationKeysUpdate replaces the level 2 keys and their access
// structures.
type AuthorizationKeysUpdate struct {
	// Type is one of UpdateLevel2KeysUsingRootKeys and
	// UpdateLevel2KeysUsingLevel1Keys.
	Type UpdateType `json:"-"`
	// Version 0 is used before protocol 4, version 1 after.
	Version uint8              `json:"version"`
	Keys    []crypto.VerifyKey `json:"keys"`
	// AccessStructures are in the order of the Authorizations fields.
	AccessStructures []AccessStructure `json:"accessStructures"`
}

func (p *AuthorizationKeysUpdate) Kind() UpdateType { return p.Type }

func (p *AuthorizationKeysUpdate) Validate() error {
	var errs error
	if _, err := p.subTag(); err != nil {
		errs = errors.AppendField(errs, "Type", err)
	}
	errs = errors.AppendField(errs, "Keys", validateKeys(p.Keys))
	want := accessStructuresV0
	if p.Version == 1 {
		want = accessStructuresV1
	}
	if len(p.AccessStructures) != want {
		errs = errors.AppendField(errs, "AccessStructures",
			errors.Wrapf(errors.ErrInput, "version %d requires %d access structures, got %d", p.Version, want, len(p.AccessStructures)))
	}
	for i, a := range p.AccessStructures {
		if err := a.validate(len(p.Keys)); err != nil {
			errs = errors.AppendField(errs, "AccessStructures."+strconv.Itoa(i), err)
		}
	}
	return errs
}

func (p *AuthorizationKeysUpdate) subTag() (uint8, error) {
	if p.Version > 1 {
		return 0, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "key update version %d", p.Version)
	}
	switch p.Type {
	case UpdateLevel2KeysUsingRootKeys:
		return 2 + p.Version, nil
	case UpdateLevel2KeysUsingLevel1Keys:
		return 1 + p.Version, nil
	}
	return 0, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "%s is not a level 2 key update", p.Type)
}

// Serialize writes the sub tag, the u16 length prefixed key list and every
// access structure.
func (p *AuthorizationKeysUpdate) Serialize(w *codec.Writer) {
	sub, err := p.subTag()
	if err != nil {
		w.Fail(err)
		return
	}
	w.Word8(sub)
	codec.WriteList(w, p.Keys, codec.WK)
	for i := range p.AccessStructures {
		p.AccessStructures[i].write(w)
	}
}

func (p *AuthorizationKeysUpdate) readBody(r *codec.Reader) {
	p.Keys = codec.ReadList(r, codec.RK)
	n := accessStructuresV0
	if p.Version == 1 {
		n = accessStructuresV1
	}
	p.AccessStructures = make([]AccessStructure, n)
	for i := range p.AccessStructures {
		p.AccessStructures[i].read(r)
	}
}

func validateKeys(keys []crypto.VerifyKey) error {
	if len(keys) == 0 {
		return errors.Wrap(errors.ErrInput, "no keys")
	}
	for i, k := range keys {
		if err := k.Validate(); err != nil {
			return errors.Wrapf(err, "key %d", i)
		}
		for _, other := range keys[:i] {
			if k.Equal(other) {
				return errors.Wrapf(errors.ErrDuplicate, "key %d", i)
			}
		}
	}
	return nil
}
