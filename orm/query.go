package orm

import (
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/errors"
)

// PrefixRange returns the iterator bounds covering every key that starts
// with given prefix. A nil end means there is no upper bound.
func PrefixRange(prefix []byte) (start, end []byte) {
	start = append([]byte{}, prefix...)
	end = append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return start, end[:i+1]
		}
	}
	return start, nil
}

// KeyValue is a single entry read from the store.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// ConsumeIterator will read all remaining data into an
// array and release the iterator
func ConsumeIterator(itr cosign.Iterator) ([]KeyValue, error) {
	defer itr.Release()

	var res []KeyValue
	for {
		key, value, err := itr.Next()
		switch {
		case errors.ErrIteratorDone.Is(err):
			return res, nil
		case err != nil:
			return nil, err
		}
		res = append(res, KeyValue{Key: key, Value: value})
	}
}
