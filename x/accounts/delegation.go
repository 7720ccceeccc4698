package accounts

import (
	"encoding/json"

	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

// DelegationTarget is the pool stake is delegated to. A nil BakerID
// delegates passively.
type DelegationTarget struct {
	BakerID *uint64
}

// IsPassive returns true for passive delegation.
func (t DelegationTarget) IsPassive() bool {
	return t.BakerID == nil
}

type delegationTargetJSON struct {
	DelegateType string  `json:"delegateType"`
	BakerID      *uint64 `json:"bakerId,omitempty,string"`
}

func (t DelegationTarget) MarshalJSON() ([]byte, error) {
	if t.IsPassive() {
		return json.Marshal(delegationTargetJSON{DelegateType: "Passive"})
	}
	return json.Marshal(delegationTargetJSON{DelegateType: "Baker", BakerID: t.BakerID})
}

func (t *DelegationTarget) UnmarshalJSON(raw []byte) error {
	var in delegationTargetJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	switch in.DelegateType {
	case "Passive":
		*t = DelegationTarget{}
	case "Baker":
		if in.BakerID == nil {
			return errors.Wrap(errors.ErrInput, "baker delegation without baker id")
		}
		*t = DelegationTarget{BakerID: in.BakerID}
	default:
		return errors.Wrapf(errors.ErrInput, "delegate type %q", in.DelegateType)
	}
	return nil
}

// Bits of the ConfigureDelegation field bitmap telling which optional
// fields are present.
const (
	delegationCapitalBit = 1 << iota
	delegationRestakeBit
	delegationTargetBit
)

// ConfigureDelegation adds, changes or removes the delegation of an
// account. Only the fields that are set are changed. Setting the capital to
// zero removes the delegation.
type ConfigureDelegation struct {
	Capital          *uint64           `json:"stake,omitempty,string"`
	RestakeEarnings  *bool             `json:"restakeEarnings,omitempty"`
	DelegationTarget *DelegationTarget `json:"delegationTarget,omitempty"`
}

func (*ConfigureDelegation) Kind() TransactionType { return TypeConfigureDelegation }

func (p *ConfigureDelegation) Validate() error {
	if p.Capital == nil && p.RestakeEarnings == nil && p.DelegationTarget == nil {
		return errors.Wrap(errors.ErrInput, "nothing to configure")
	}
	return nil
}

func (p *ConfigureDelegation) bitmap() uint16 {
	var bits uint16
	if p.Capital != nil {
		bits |= delegationCapitalBit
	}
	if p.RestakeEarnings != nil {
		bits |= delegationRestakeBit
	}
	if p.DelegationTarget != nil {
		bits |= delegationTargetBit
	}
	return bits
}

// Serialize writes the u16 field bitmap followed by the fields that are
// set.
func (p *ConfigureDelegation) Serialize(w *codec.Writer) {
	w.Word16(p.bitmap())
	if p.Capital != nil {
		w.Word64(*p.Capital)
	}
	if p.RestakeEarnings != nil {
		w.Bool(*p.RestakeEarnings)
	}
	if t := p.DelegationTarget; t != nil {
		if t.IsPassive() {
			w.Word8(0)
		} else {
			w.Word8(1)
			w.Word64(*t.BakerID)
		}
	}
}

func (p *ConfigureDelegation) readBody(r *codec.Reader) {
	bits := r.Word16()
	if bits&^(delegationCapitalBit|delegationRestakeBit|delegationTargetBit) != 0 {
		r.Fail(errors.Wrapf(errors.ErrCodec, "unknown delegation fields %#x", bits))
		return
	}
	if bits&delegationCapitalBit != 0 {
		capital := r.Word64()
		p.Capital = &capital
	}
	if bits&delegationRestakeBit != 0 {
		restake := r.Bool()
		p.RestakeEarnings = &restake
	}
	if bits&delegationTargetBit != 0 {
		switch kind := r.Word8(); kind {
		case 0:
			p.DelegationTarget = &DelegationTarget{}
		case 1:
			id := r.Word64()
			p.DelegationTarget = &DelegationTarget{BakerID: &id}
		default:
			r.Fail(errors.Wrapf(errors.ErrCodec, "delegation target %d", kind))
		}
	}
}
