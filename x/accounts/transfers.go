package accounts

import (
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

// MaxMemoSize is the largest memo the node accepts.
const MaxMemoSize = 256

// SimpleTransfer moves an amount of micro CCD to another account.
type SimpleTransfer struct {
	ToAddress cosign.AccountAddress `json:"toAddress"`
	Amount    uint64                `json:"amount,string"`
}

func (*SimpleTransfer) Kind() TransactionType { return TypeSimpleTransfer }

func (p *SimpleTransfer) Validate() error {
	var errs error
	if p.ToAddress.IsZero() {
		errs = errors.AppendField(errs, "ToAddress", errors.ErrInput)
	}
	if p.Amount == 0 {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrInput, "must be positive"))
	}
	return errs
}

func (p *SimpleTransfer) Serialize(w *codec.Writer) {
	w.Raw(p.ToAddress[:])
	w.Word64(p.Amount)
}

func (p *SimpleTransfer) readBody(r *codec.Reader) {
	copy(p.ToAddress[:], r.Raw(cosign.AccountAddressLength))
	p.Amount = r.Word64()
}

// TransferWithMemo is a simple transfer with an attached memo.
type TransferWithMemo struct {
	ToAddress cosign.AccountAddress `json:"toAddress"`
	Memo      cosign.HexBytes       `json:"memo"`
	Amount    uint64                `json:"amount,string"`
}

func (*TransferWithMemo) Kind() TransactionType { return TypeTransferWithMemo }

func (p *TransferWithMemo) Validate() error {
	var errs error
	if p.ToAddress.IsZero() {
		errs = errors.AppendField(errs, "ToAddress", errors.ErrInput)
	}
	if len(p.Memo) > MaxMemoSize {
		errs = errors.AppendField(errs, "Memo", errors.Wrapf(errors.ErrInput, "longer than %d bytes", MaxMemoSize))
	}
	if p.Amount == 0 {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrInput, "must be positive"))
	}
	return errs
}

func (p *TransferWithMemo) Serialize(w *codec.Writer) {
	w.Raw(p.ToAddress[:])
	w.Bytes16(p.Memo)
	w.Word64(p.Amount)
}

func (p *TransferWithMemo) readBody(r *codec.Reader) {
	copy(p.ToAddress[:], r.Raw(cosign.AccountAddressLength))
	p.Memo = r.Bytes16()
	p.Amount = r.Word64()
}

// SchedulePoint releases an amount at a given time.
type SchedulePoint struct {
	// Timestamp is a unix time in milliseconds.
	Timestamp uint64 `json:"timestamp,string"`
	Amount    uint64 `json:"amount,string"`
}

// MaxSchedulePoints is the largest number of releases in a schedule.
const MaxSchedulePoints = 255

// TransferWithSchedule transfers an amount that is released in steps.
type TransferWithSchedule struct {
	ToAddress cosign.AccountAddress `json:"toAddress"`
	Schedule  []SchedulePoint       `json:"schedule"`
}

func (*TransferWithSchedule) Kind() TransactionType { return TypeTransferWithSchedule }

func (p *TransferWithSchedule) Validate() error {
	var errs error
	if p.ToAddress.IsZero() {
		errs = errors.AppendField(errs, "ToAddress", errors.ErrInput)
	}
	switch n := len(p.Schedule); {
	case n == 0:
		errs = errors.AppendField(errs, "Schedule", errors.Wrap(errors.ErrInput, "empty"))
	case n > MaxSchedulePoints:
		errs = errors.AppendField(errs, "Schedule", errors.Wrapf(errors.ErrInput, "more than %d releases", MaxSchedulePoints))
	}
	for i, s := range p.Schedule {
		if s.Amount == 0 {
			errs = errors.AppendField(errs, "Schedule", errors.Wrapf(errors.ErrInput, "release %d has no amount", i))
		}
		if i > 0 && s.Timestamp <= p.Schedule[i-1].Timestamp {
			errs = errors.AppendField(errs, "Schedule", errors.Wrapf(errors.ErrInput, "release %d is not after the previous one", i))
		}
	}
	return errs
}

// Total returns the sum of all released amounts.
func (p *TransferWithSchedule) Total() uint64 {
	var total uint64
	for _, s := range p.Schedule {
		total += s.Amount
	}
	return total
}

func (p *TransferWithSchedule) Serialize(w *codec.Writer) {
	w.Raw(p.ToAddress[:])
	codec.WriteList8(w, p.Schedule, func(w *codec.Writer, s SchedulePoint) {
		w.Word64(s.Timestamp)
		w.Word64(s.Amount)
	})
}

func (p *TransferWithSchedule) readBody(r *codec.Reader) {
	copy(p.ToAddress[:], r.Raw(cosign.AccountAddressLength))
	p.Schedule = codec.ReadList8(r, func(r *codec.Reader) SchedulePoint {
		return SchedulePoint{Timestamp: r.Word64(), Amount: r.Word64()}
	})
}
