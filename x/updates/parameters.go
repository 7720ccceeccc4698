package updates

import (
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

func init() {
	register(UpdateElectionDifficulty, "ElectionDifficulty", 2, func() bodyReader { return &ElectionDifficulty{} })
	register(UpdateEuroPerEnergy, "EuroPerEnergy", 3, func() bodyReader { return &EuroPerEnergy{} })
	register(UpdateMicroCCDPerEuro, "MicroCCDPerEuro", 4, func() bodyReader { return &MicroCCDPerEuro{} })
	register(UpdateFoundationAccount, "FoundationAccount", 5, func() bodyReader { return &FoundationAccount{} })
	register(UpdateMintDistributionV0, "MintDistributionV0", 6, func() bodyReader { return &MintDistributionV0{} })
	register(UpdateTransactionFeeDistribution, "TransactionFeeDistribution", 7, func() bodyReader { return &TransactionFeeDistribution{} })
	register(UpdateGASRewardsV0, "GASRewardsV0", 8, func() bodyReader { return &GASRewardsV0{} })
	register(UpdateBakerStakeThreshold, "BakerStakeThreshold", 9, func() bodyReader { return &BakerStakeThreshold{} })
	register(UpdateCooldownParameters, "CooldownParameters", 14, func() bodyReader { return &CooldownParameters{} })
	register(UpdatePoolParameters, "PoolParameters", 15, func() bodyReader { return &PoolParameters{} })
	register(UpdateTimeParameters, "TimeParameters", 16, func() bodyReader { return &TimeParameters{} })
	register(UpdateMintDistributionV1, "MintDistributionV1", 17, func() bodyReader { return &MintDistributionV1{} })
	register(UpdateGASRewardsV1, "GASRewardsV1", 18, func() bodyReader { return &GASRewardsV1{} })
	register(UpdateTimeoutParameters, "TimeoutParameters", 19, func() bodyReader { return &TimeoutParameters{} })
	register(UpdateMinBlockTime, "MinBlockTime", 20, func() bodyReader { return &MinBlockTime{} })
	register(UpdateBlockEnergyLimit, "BlockEnergyLimit", 21, func() bodyReader { return &BlockEnergyLimit{} })
	register(UpdateFinalizationCommitteeParameters, "FinalizationCommitteeParameters", 22, func() bodyReader { return &FinalizationCommitteeParameters{} })
}

// RewardFraction is a fraction expressed in parts per hundred thousand.
type RewardFraction uint32

// RewardFractionResolution is the denominator of a RewardFraction.
const RewardFractionResolution = 100000

// Validate returns an error if the fraction is above one.
func (f RewardFraction) Validate() error {
	if f > RewardFractionResolution {
		return errors.Wrapf(errors.ErrInput, "fraction %d exceeds %d", f, RewardFractionResolution)
	}
	return nil
}

func validateFractionSum(fractions ...RewardFraction) error {
	var sum uint64
	for _, f := range fractions {
		sum += uint64(f)
	}
	if sum > RewardFractionResolution {
		return errors.Wrapf(errors.ErrInput, "fractions sum up to %d", sum)
	}
	return nil
}

// ExchangeRate is a positive rational number.
type ExchangeRate struct {
	Numerator   uint64 `json:"numerator,string"`
	Denominator uint64 `json:"denominator,string"`
}

// Validate returns an error if any part of the rate is zero.
func (e ExchangeRate) Validate() error {
	var errs error
	if e.Numerator == 0 {
		errs = errors.AppendField(errs, "Numerator", errors.ErrInput)
	}
	if e.Denominator == 0 {
		errs = errors.AppendField(errs, "Denominator", errors.ErrInput)
	}
	return errs
}

func (e *ExchangeRate) write(w *codec.Writer) {
	w.Word64(e.Numerator)
	w.Word64(e.Denominator)
}

func (e *ExchangeRate) read(r *codec.Reader) {
	e.Numerator = r.Word64()
	e.Denominator = r.Word64()
}

// Fraction is a non negative rational number.
type Fraction struct {
	Numerator   uint64 `json:"numerator,string"`
	Denominator uint64 `json:"denominator,string"`
}

// Validate returns an error if the denominator is zero.
func (f Fraction) Validate() error {
	if f.Denominator == 0 {
		return errors.Field("Denominator", errors.ErrInput, "must not be zero")
	}
	return nil
}

func (f *Fraction) write(w *codec.Writer) {
	w.Word64(f.Numerator)
	w.Word64(f.Denominator)
}

func (f *Fraction) read(r *codec.Reader) {
	f.Numerator = r.Word64()
	f.Denominator = r.Word64()
}

// MintRate is mantissa * 10^(-exponent).
type MintRate struct {
	Mantissa uint32 `json:"mantissa"`
	Exponent uint8  `json:"exponent"`
}

func (m *MintRate) write(w *codec.Writer) {
	w.Word32(m.Mantissa)
	w.Word8(m.Exponent)
}

func (m *MintRate) read(r *codec.Reader) {
	m.Mantissa = r.Word32()
	m.Exponent = r.Word8()
}

// EuroPerEnergy sets the euro price of one unit of energy.
type EuroPerEnergy struct {
	ExchangeRate
}

func (*EuroPerEnergy) Kind() UpdateType            { return UpdateEuroPerEnergy }
func (p *EuroPerEnergy) Serialize(w *codec.Writer) { p.write(w) }
func (p *EuroPerEnergy) readBody(r *codec.Reader)  { p.read(r) }

// MicroCCDPerEuro sets the amount of micro CCD that is worth one euro.
type MicroCCDPerEuro struct {
	ExchangeRate
}

func (*MicroCCDPerEuro) Kind() UpdateType            { return UpdateMicroCCDPerEuro }
func (p *MicroCCDPerEuro) Serialize(w *codec.Writer) { p.write(w) }
func (p *MicroCCDPerEuro) readBody(r *codec.Reader)  { p.read(r) }

// ElectionDifficulty sets the leadership election difficulty in parts per
// hundred thousand.
type ElectionDifficulty struct {
	ElectionDifficulty RewardFraction `json:"electionDifficulty"`
}

func (*ElectionDifficulty) Kind() UpdateType { return UpdateElectionDifficulty }

func (p *ElectionDifficulty) Validate() error {
	if p.ElectionDifficulty >= RewardFractionResolution {
		return errors.Field("ElectionDifficulty", errors.ErrInput, "must be below %d", RewardFractionResolution)
	}
	return nil
}

func (p *ElectionDifficulty) Serialize(w *codec.Writer) { w.Word32(uint32(p.ElectionDifficulty)) }
func (p *ElectionDifficulty) readBody(r *codec.Reader)  { p.ElectionDifficulty = RewardFraction(r.Word32()) }

// FoundationAccount sets the account that receives the foundation share of
// minted tokens.
type FoundationAccount struct {
	Address cosign.AccountAddress `json:"address"`
}

func (*FoundationAccount) Kind() UpdateType { return UpdateFoundationAccount }

func (p *FoundationAccount) Validate() error {
	if p.Address.IsZero() {
		return errors.Field("Address", errors.ErrInput, "required")
	}
	return nil
}

func (p *FoundationAccount) Serialize(w *codec.Writer) { w.Raw(p.Address[:]) }

func (p *FoundationAccount) readBody(r *codec.Reader) {
	copy(p.Address[:], r.Raw(cosign.AccountAddressLength))
}

// MintDistributionV0 sets the mint rate per slot and how minted tokens are
// distributed.
type MintDistributionV0 struct {
	MintPerSlot        MintRate       `json:"mintPerSlot"`
	BakingReward       RewardFraction `json:"bakingReward"`
	FinalizationReward RewardFraction `json:"finalizationReward"`
}

func (*MintDistributionV0) Kind() UpdateType { return UpdateMintDistributionV0 }

func (p *MintDistributionV0) Validate() error {
	return validateFractionSum(p.BakingReward, p.FinalizationReward)
}

func (p *MintDistributionV0) Serialize(w *codec.Writer) {
	p.MintPerSlot.write(w)
	w.Word32(uint32(p.BakingReward))
	w.Word32(uint32(p.FinalizationReward))
}

func (p *MintDistributionV0) readBody(r *codec.Reader) {
	p.MintPerSlot.read(r)
	p.BakingReward = RewardFraction(r.Word32())
	p.FinalizationReward = RewardFraction(r.Word32())
}

// MintDistributionV1 sets how minted tokens are distributed. The mint rate
// is part of TimeParameters since this version.
type MintDistributionV1 struct {
	BakingReward       RewardFraction `json:"bakingReward"`
	FinalizationReward RewardFraction `json:"finalizationReward"`
}

func (*MintDistributionV1) Kind() UpdateType { return UpdateMintDistributionV1 }

func (p *MintDistributionV1) Validate() error {
	return validateFractionSum(p.BakingReward, p.FinalizationReward)
}

func (p *MintDistributionV1) Serialize(w *codec.Writer) {
	w.Word32(uint32(p.BakingReward))
	w.Word32(uint32(p.FinalizationReward))
}

func (p *MintDistributionV1) readBody(r *codec.Reader) {
	p.BakingReward = RewardFraction(r.Word32())
	p.FinalizationReward = RewardFraction(r.Word32())
}

// TransactionFeeDistribution sets the share of transaction fees paid to the
// baker and to the GAS account.
type TransactionFeeDistribution struct {
	Baker      RewardFraction `json:"baker"`
	GASAccount RewardFraction `json:"gasAccount"`
}

func (*TransactionFeeDistribution) Kind() UpdateType { return UpdateTransactionFeeDistribution }

func (p *TransactionFeeDistribution) Validate() error {
	return validateFractionSum(p.Baker, p.GASAccount)
}

func (p *TransactionFeeDistribution) Serialize(w *codec.Writer) {
	w.Word32(uint32(p.Baker))
	w.Word32(uint32(p.GASAccount))
}

func (p *TransactionFeeDistribution) readBody(r *codec.Reader) {
	p.Baker = RewardFraction(r.Word32())
	p.GASAccount = RewardFraction(r.Word32())
}

// GASRewardsV0 sets the GAS account rewards.
type GASRewardsV0 struct {
	Baker             RewardFraction `json:"baker"`
	FinalizationProof RewardFraction `json:"finalizationProof"`
	AccountCreation   RewardFraction `json:"accountCreation"`
	ChainUpdate       RewardFraction `json:"chainUpdate"`
}

func (*GASRewardsV0) Kind() UpdateType { return UpdateGASRewardsV0 }

func (p *GASRewardsV0) Validate() error {
	return errors.Append(
		errors.Field("Baker", p.Baker.Validate(), ""),
		errors.Field("FinalizationProof", p.FinalizationProof.Validate(), ""),
		errors.Field("AccountCreation", p.AccountCreation.Validate(), ""),
		errors.Field("ChainUpdate", p.ChainUpdate.Validate(), ""),
	)
}

func (p *GASRewardsV0) Serialize(w *codec.Writer) {
	w.Word32(uint32(p.Baker))
	w.Word32(uint32(p.FinalizationProof))
	w.Word32(uint32(p.AccountCreation))
	w.Word32(uint32(p.ChainUpdate))
}

func (p *GASRewardsV0) readBody(r *codec.Reader) {
	p.Baker = RewardFraction(r.Word32())
	p.FinalizationProof = RewardFraction(r.Word32())
	p.AccountCreation = RewardFraction(r.Word32())
	p.ChainUpdate = RewardFraction(r.Word32())
}

// GASRewardsV1 sets the GAS account rewards. Finalization proofs are not
// rewarded since this version.
type GASRewardsV1 struct {
	Baker           RewardFraction `json:"baker"`
	AccountCreation RewardFraction `json:"accountCreation"`
	ChainUpdate     RewardFraction `json:"chainUpdate"`
}

func (*GASRewardsV1) Kind() UpdateType { return UpdateGASRewardsV1 }

func (p *GASRewardsV1) Validate() error {
	return errors.Append(
		errors.Field("Baker", p.Baker.Validate(), ""),
		errors.Field("AccountCreation", p.AccountCreation.Validate(), ""),
		errors.Field("ChainUpdate", p.ChainUpdate.Validate(), ""),
	)
}

func (p *GASRewardsV1) Serialize(w *codec.Writer) {
	w.Word32(uint32(p.Baker))
	w.Word32(uint32(p.AccountCreation))
	w.Word32(uint32(p.ChainUpdate))
}

func (p *GASRewardsV1) readBody(r *codec.Reader) {
	p.Baker = RewardFraction(r.Word32())
	p.AccountCreation = RewardFraction(r.Word32())
	p.ChainUpdate = RewardFraction(r.Word32())
}

// BakerStakeThreshold sets the minimum stake, in micro CCD, needed to
// become a baker.
type BakerStakeThreshold struct {
	Threshold uint64 `json:"threshold,string"`
}

func (*BakerStakeThreshold) Kind() UpdateType            { return UpdateBakerStakeThreshold }
func (*BakerStakeThreshold) Validate() error             { return nil }
func (p *BakerStakeThreshold) Serialize(w *codec.Writer) { w.Word64(p.Threshold) }
func (p *BakerStakeThreshold) readBody(r *codec.Reader)  { p.Threshold = r.Word64() }

// CooldownParameters sets the cooldown periods, in seconds, applied when
// stake is reduced.
type CooldownParameters struct {
	PoolOwnerCooldown uint64 `json:"poolOwnerCooldown,string"`
	DelegatorCooldown uint64 `json:"delegatorCooldown,string"`
}

func (*CooldownParameters) Kind() UpdateType { return UpdateCooldownParameters }
func (*CooldownParameters) Validate() error  { return nil }

func (p *CooldownParameters) Serialize(w *codec.Writer) {
	w.Word64(p.PoolOwnerCooldown)
	w.Word64(p.DelegatorCooldown)
}

func (p *CooldownParameters) readBody(r *codec.Reader) {
	p.PoolOwnerCooldown = r.Word64()
	p.DelegatorCooldown = r.Word64()
}

// CommissionRates are commissions charged by a pool.
type CommissionRates struct {
	FinalizationRewardCommission RewardFraction `json:"finalizationRewardCommission"`
	BakingRewardCommission       RewardFraction `json:"bakingRewardCommission"`
	TransactionFeeCommission     RewardFraction `json:"transactionFeeCommission"`
}

// CommissionRange bounds a commission rate.
type CommissionRange struct {
	Min RewardFraction `json:"min"`
	Max RewardFraction `json:"max"`
}

func (c CommissionRange) validate() error {
	if err := c.Max.Validate(); err != nil {
		return err
	}
	if c.Min > c.Max {
		return errors.Wrap(errors.ErrInput, "min above max")
	}
	return nil
}

// CommissionRanges bound the commission rates pools may set.
type CommissionRanges struct {
	FinalizationRewardCommission CommissionRange `json:"finalizationRewardCommission"`
	BakingRewardCommission       CommissionRange `json:"bakingRewardCommission"`
	TransactionFeeCommission     CommissionRange `json:"transactionFeeCommission"`
}

// PoolParameters sets the staking pool parameters.
type PoolParameters struct {
	PassiveCommissions   CommissionRates  `json:"passiveCommissions"`
	CommissionBounds     CommissionRanges `json:"commissionBounds"`
	MinimumEquityCapital uint64           `json:"minimumEquityCapital,string"`
	CapitalBound         RewardFraction   `json:"capitalBound"`
	LeverageBound        Fraction         `json:"leverageBound"`
}

func (*PoolParameters) Kind() UpdateType { return UpdatePoolParameters }

func (p *PoolParameters) Validate() error {
	return errors.Append(
		errors.Field("PassiveCommissions.FinalizationRewardCommission", p.PassiveCommissions.FinalizationRewardCommission.Validate(), ""),
		errors.Field("PassiveCommissions.BakingRewardCommission", p.PassiveCommissions.BakingRewardCommission.Validate(), ""),
		errors.Field("PassiveCommissions.TransactionFeeCommission", p.PassiveCommissions.TransactionFeeCommission.Validate(), ""),
		errors.Field("CommissionBounds.FinalizationRewardCommission", p.CommissionBounds.FinalizationRewardCommission.validate(), ""),
		errors.Field("CommissionBounds.BakingRewardCommission", p.CommissionBounds.BakingRewardCommission.validate(), ""),
		errors.Field("CommissionBounds.TransactionFeeCommission", p.CommissionBounds.TransactionFeeCommission.validate(), ""),
		errors.Field("CapitalBound", p.CapitalBound.Validate(), ""),
		errors.Field("LeverageBound", p.LeverageBound.Validate(), ""),
	)
}

func (p *PoolParameters) Serialize(w *codec.Writer) {
	w.Word32(uint32(p.PassiveCommissions.FinalizationRewardCommission))
	w.Word32(uint32(p.PassiveCommissions.BakingRewardCommission))
	w.Word32(uint32(p.PassiveCommissions.TransactionFeeCommission))
	for _, c := range []CommissionRange{
		p.CommissionBounds.FinalizationRewardCommission,
		p.CommissionBounds.BakingRewardCommission,
		p.CommissionBounds.TransactionFeeCommission,
	} {
		w.Word32(uint32(c.Min))
		w.Word32(uint32(c.Max))
	}
	w.Word64(p.MinimumEquityCapital)
	w.Word32(uint32(p.CapitalBound))
	p.LeverageBound.write(w)
}

func (p *PoolParameters) readBody(r *codec.Reader) {
	p.PassiveCommissions.FinalizationRewardCommission = RewardFraction(r.Word32())
	p.PassiveCommissions.BakingRewardCommission = RewardFraction(r.Word32())
	p.PassiveCommissions.TransactionFeeCommission = RewardFraction(r.Word32())
	for _, c := range []*CommissionRange{
		&p.CommissionBounds.FinalizationRewardCommission,
		&p.CommissionBounds.BakingRewardCommission,
		&p.CommissionBounds.TransactionFeeCommission,
	} {
		c.Min = RewardFraction(r.Word32())
		c.Max = RewardFraction(r.Word32())
	}
	p.MinimumEquityCapital = r.Word64()
	p.CapitalBound = RewardFraction(r.Word32())
	p.LeverageBound.read(r)
}

// TimeParameters sets the length of a reward period, in epochs, and the
// mint rate per pay day.
type TimeParameters struct {
	RewardPeriodLength uint64   `json:"rewardPeriodLength,string"`
	MintRatePerPayday  MintRate `json:"mintRatePerPayday"`
}

func (*TimeParameters) Kind() UpdateType { return UpdateTimeParameters }

func (p *TimeParameters) Validate() error {
	if p.RewardPeriodLength == 0 {
		return errors.Field("RewardPeriodLength", errors.ErrInput, "must not be zero")
	}
	return nil
}

func (p *TimeParameters) Serialize(w *codec.Writer) {
	w.Word64(p.RewardPeriodLength)
	p.MintRatePerPayday.write(w)
}

func (p *TimeParameters) readBody(r *codec.Reader) {
	p.RewardPeriodLength = r.Word64()
	p.MintRatePerPayday.read(r)
}

// TimeoutParameters sets the consensus round timeout, in milliseconds, and
// how it changes after a timeout or a successful round.
type TimeoutParameters struct {
	TimeoutBase     uint64   `json:"timeoutBase,string"`
	TimeoutIncrease Fraction `json:"timeoutIncrease"`
	TimeoutDecrease Fraction `json:"timeoutDecrease"`
}

func (*TimeoutParameters) Kind() UpdateType { return UpdateTimeoutParameters }

func (p *TimeoutParameters) Validate() error {
	var errs error
	if err := p.TimeoutIncrease.Validate(); err != nil {
		errs = errors.AppendField(errs, "TimeoutIncrease", err)
	} else if p.TimeoutIncrease.Numerator <= p.TimeoutIncrease.Denominator {
		errs = errors.AppendField(errs, "TimeoutIncrease", errors.Wrap(errors.ErrInput, "must be above one"))
	}
	if err := p.TimeoutDecrease.Validate(); err != nil {
		errs = errors.AppendField(errs, "TimeoutDecrease", err)
	} else if p.TimeoutDecrease.Numerator == 0 || p.TimeoutDecrease.Numerator >= p.TimeoutDecrease.Denominator {
		errs = errors.AppendField(errs, "TimeoutDecrease", errors.Wrap(errors.ErrInput, "must be between zero and one"))
	}
	return errs
}

func (p *TimeoutParameters) Serialize(w *codec.Writer) {
	w.Word64(p.TimeoutBase)
	p.TimeoutIncrease.write(w)
	p.TimeoutDecrease.write(w)
}

func (p *TimeoutParameters) readBody(r *codec.Reader) {
	p.TimeoutBase = r.Word64()
	p.TimeoutIncrease.read(r)
	p.TimeoutDecrease.read(r)
}

// MinBlockTime sets the minimum time, in milliseconds, between blocks.
type MinBlockTime struct {
	MinBlockTime uint64 `json:"minBlockTime,string"`
}

func (*MinBlockTime) Kind() UpdateType            { return UpdateMinBlockTime }
func (*MinBlockTime) Validate() error             { return nil }
func (p *MinBlockTime) Serialize(w *codec.Writer) { w.Word64(p.MinBlockTime) }
func (p *MinBlockTime) readBody(r *codec.Reader)  { p.MinBlockTime = r.Word64() }

// BlockEnergyLimit sets the maximum energy a block may use.
type BlockEnergyLimit struct {
	BlockEnergyLimit uint64 `json:"blockEnergyLimit,string"`
}

func (*BlockEnergyLimit) Kind() UpdateType            { return UpdateBlockEnergyLimit }
func (*BlockEnergyLimit) Validate() error             { return nil }
func (p *BlockEnergyLimit) Serialize(w *codec.Writer) { w.Word64(p.BlockEnergyLimit) }
func (p *BlockEnergyLimit) readBody(r *codec.Reader)  { p.BlockEnergyLimit = r.Word64() }

// FinalizationCommitteeParameters sets the size bounds of the finalization
// committee and the stake threshold to join it.
type FinalizationCommitteeParameters struct {
	MinFinalizers                  uint32         `json:"minFinalizers"`
	MaxFinalizers                  uint32         `json:"maxFinalizers"`
	RelativeStakeThresholdFraction RewardFraction `json:"relativeStakeThresholdFraction"`
}

func (*FinalizationCommitteeParameters) Kind() UpdateType {
	return UpdateFinalizationCommitteeParameters
}

func (p *FinalizationCommitteeParameters) Validate() error {
	var errs error
	if p.MinFinalizers > p.MaxFinalizers {
		errs = errors.AppendField(errs, "MinFinalizers", errors.Wrap(errors.ErrInput, "above max finalizers"))
	}
	return errors.AppendField(errs, "RelativeStakeThresholdFraction", p.RelativeStakeThresholdFraction.Validate())
}

func (p *FinalizationCommitteeParameters) Serialize(w *codec.Writer) {
	w.Word32(p.MinFinalizers)
	w.Word32(p.MaxFinalizers)
	w.Word32(uint32(p.RelativeStakeThresholdFraction))
}

func (p *FinalizationCommitteeParameters) readBody(r *codec.Reader) {
	p.MinFinalizers = r.Word32()
	p.MaxFinalizers = r.Word32()
	p.RelativeStakeThresholdFraction = RewardFraction(r.Word32())
}
