package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/cosign/errors"
)

// ascendBtree returns all items within the range in ascending order. The
// result is a snapshot, so the tree can be modified while iterating.
func ascendBtree(bt *btree.BTree, start, end []byte) []keyer {
	var items []keyer
	collect := func(item btree.Item) bool {
		items = append(items, item.(keyer))
		return true
	}
	switch {
	case start == nil && end == nil:
		bt.Ascend(collect)
	case start == nil:
		bt.AscendLessThan(itemKey{end}, collect)
	case end == nil:
		bt.AscendGreaterOrEqual(itemKey{start}, collect)
	default:
		bt.AscendRange(itemKey{start}, itemKey{end}, collect)
	}
	return items
}

// itemIter combines the items of a cache with the iterator of the parent
// store, taking into consideration overwrites and deletes.
type itemIter struct {
	items []keyer
	// if we are iterating in a cache-wrap (and who isn't),
	// we need to combine this iterator with the parent
	parent Iterator

	// The next parent entry, read ahead to compare keys.
	parentKey    []byte
	parentValue  []byte
	parentLoaded bool
	parentDone   bool
}

var _ Iterator = (*itemIter)(nil)

// Next returns the entry with the lowest key from either us or the parent.
// Entries deleted in the cache are skipped.
func (i *itemIter) Next() (key, value []byte, err error) {
	for {
		if err := i.loadParent(); err != nil {
			return nil, nil, err
		}

		var src source
		switch {
		case len(i.items) == 0 && !i.parentLoaded:
			return nil, nil, errors.ErrIteratorDone
		case len(i.items) == 0:
			src = parent
		case !i.parentLoaded:
			src = us
		default:
			switch cmp := bytes.Compare(i.parentKey, i.items[0].Key()); {
			case cmp < 0:
				src = parent
			case cmp > 0:
				src = us
			default:
				src = both
			}
		}

		if src == parent {
			i.parentLoaded = false
			return i.parentKey, i.parentValue, nil
		}

		item := i.items[0]
		i.items = i.items[1:]
		if src == both {
			// our value shadows the parent one
			i.parentLoaded = false
		}
		if set, ok := item.(setItem); ok {
			return set.key, set.value, nil
		}
	}
}

func (i *itemIter) loadParent() error {
	if i.parentLoaded || i.parentDone {
		return nil
	}
	key, value, err := i.parent.Next()
	switch {
	case errors.ErrIteratorDone.Is(err):
		i.parentDone = true
		return nil
	case err != nil:
		return err
	}
	i.parentKey, i.parentValue, i.parentLoaded = key, value, true
	return nil
}

// Release releases the Iterator.
func (i *itemIter) Release() {
	i.parent.Release()
	i.items = nil
}

// source marks where the current item comes from
type source int32

const (
	us source = iota
	parent
	both
)
