package store

import (
	"bytes"
	"crypto/rand"
	"sort"
	"testing"

	"github.com/iov-one/cosign/cosigntest/assert"
	"github.com/iov-one/cosign/errors"
)

// TestSuite runs the same checks against every CacheableKVStore
// implementation. Only the constructor differs between the memory, bolt
// and leveldb tests.
type TestSuite struct {
	makeBase TestStoreConstructor
}

// TestStoreConstructor returns an empty store and a function releasing it.
type TestStoreConstructor func() (base CacheableKVStore, cleanup func())

func NewTestSuite(constructor TestStoreConstructor) *TestSuite {
	return &TestSuite{makeBase: constructor}
}

// Run executes every check of the suite as a subtest.
func (s *TestSuite) Run(t *testing.T) {
	t.Run("get set", s.GetSet)
	t.Run("write and discard", s.WriteDiscard)
	t.Run("failed batch", s.FailedBatch)
	t.Run("cache conflicts", s.CacheConflicts)
	t.Run("iterate", s.Iterate)
	t.Run("iterate overlapping", s.IterateOverlapping)
}

// GetSet checks that reads through a cache wrap see both the base and the
// cached writes, and that the base only sees them once written.
func (s *TestSuite) GetSet(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	p1, open := []byte("proposal:1"), []byte("open")
	s.AssertGetHas(t, base, p1, nil, false)
	assert.Nil(t, base.Set(p1, open))
	s.AssertGetHas(t, base, p1, open, true)

	cache := base.CacheWrap()
	s.AssertGetHas(t, cache, p1, open, true)

	p2, submitted := []byte("proposal:2"), []byte("submitted")
	assert.Nil(t, cache.Set(p2, submitted))
	assert.Nil(t, cache.Delete(p1))
	s.AssertGetHas(t, cache, p1, nil, false)
	s.AssertGetHas(t, cache, p2, submitted, true)
	s.AssertGetHas(t, base, p1, open, true)
	s.AssertGetHas(t, base, p2, nil, false)

	assert.Nil(t, cache.Write())
	s.AssertGetHas(t, base, p1, nil, false)
	s.AssertGetHas(t, base, p2, submitted, true)
}

// WriteDiscard checks what reaches the parent of a cache wrap, including
// a cache wrap layered on another.
func (s *TestSuite) WriteDiscard(t *testing.T) {
	key, before, after := []byte("proposal:1"), []byte("open"), []byte("closed")

	cases := map[string]struct {
		run  func(t testing.TB, base CacheableKVStore)
		want []byte
	}{
		"write": {
			run: func(t testing.TB, base CacheableKVStore) {
				c := base.CacheWrap()
				assert.Nil(t, c.Set(key, after))
				assert.Nil(t, c.Write())
			},
			want: after,
		},
		"discard": {
			run: func(t testing.TB, base CacheableKVStore) {
				c := base.CacheWrap()
				assert.Nil(t, c.Set(key, after))
				c.Discard()
			},
			want: before,
		},
		"nested write without outer write": {
			run: func(t testing.TB, base CacheableKVStore) {
				outer := base.CacheWrap()
				inner := outer.CacheWrap()
				assert.Nil(t, inner.Set(key, after))
				assert.Nil(t, inner.Write())
				s.AssertGetHas(t, outer, key, after, true)
				outer.Discard()
			},
			want: before,
		},
		"nested write with outer write": {
			run: func(t testing.TB, base CacheableKVStore) {
				outer := base.CacheWrap()
				inner := outer.CacheWrap()
				assert.Nil(t, inner.Set(key, after))
				assert.Nil(t, inner.Write())
				assert.Nil(t, outer.Write())
			},
			want: after,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			base, cleanup := s.makeBase()
			defer cleanup()
			assert.Nil(t, base.Set(key, before))

			tc.run(t, base)
			s.AssertGetHas(t, base, key, tc.want, true)
		})
	}
}

// FailedBatch checks the way proposals are updated: several records are
// written in one cache wrap and a failure halfway discards all of them.
// Neither reads nor iteration of the parent may see the partial batch, and
// the same batch can be retried afterwards.
func (s *TestSuite) FailedBatch(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	record := Pair([]byte("proposal:1"), []byte("open 1/3"))
	assert.Nil(t, base.Set(record.Key, record.Value))

	batch := []Op{
		SetOp([]byte("proposal:1"), []byte("open 3/3")),
		SetOp([]byte("proposal:1:sig:0"), []byte("first")),
		SetOp([]byte("proposal:1:sig:1"), []byte("second")),
	}
	apply := func(failAt int) error {
		cache := base.CacheWrap()
		for i, op := range batch {
			if i == failAt {
				cache.Discard()
				return errors.Wrap(errors.ErrInvalidSignature, "second signature")
			}
			if err := op.Apply(cache); err != nil {
				cache.Discard()
				return err
			}
		}
		return cache.Write()
	}

	err := apply(2)
	assert.IsErr(t, errors.ErrInvalidSignature, err)
	s.AssertGetHas(t, base, record.Key, record.Value, true)
	s.AssertGetHas(t, base, batch[1].key, nil, false)
	s.assertIterate(t, base, nil, nil, []Model{record})

	assert.Nil(t, apply(-1))
	s.assertIterate(t, base, nil, nil, []Model{
		Pair(batch[0].key, batch[0].value),
		Pair(batch[1].key, batch[1].value),
		Pair(batch[2].key, batch[2].value),
	})
}

// CacheConflicts checks overwriting and deleting parent values.
func (s *TestSuite) CacheConflicts(t *testing.T) {
	ks := randKeys(10, 16)
	vs := randKeys(20, 40)

	cases := map[string]struct {
		parentOps []Op
		childOps  []Op
		// Key is queried, Value is expected. A nil value must be absent.
		parentQueries []Model
		childQueries  []Model
	}{
		"overwrite one, delete another, add a third": {
			parentOps:     []Op{SetOp(ks[1], vs[1]), SetOp(ks[2], vs[2])},
			childOps:      []Op{SetOp(ks[1], vs[11]), SetOp(ks[3], vs[7]), DelOp(ks[2])},
			parentQueries: []Model{Pair(ks[1], vs[1]), Pair(ks[2], vs[2]), Pair(ks[3], nil)},
			childQueries:  []Model{Pair(ks[1], vs[11]), Pair(ks[2], nil), Pair(ks[3], vs[7])},
		},
		"delete then set again": {
			parentOps:     []Op{SetOp(ks[4], vs[4])},
			childOps:      []Op{DelOp(ks[4]), SetOp(ks[4], vs[14])},
			parentQueries: []Model{Pair(ks[4], vs[4])},
			childQueries:  []Model{Pair(ks[4], vs[14])},
		},
		"delete a missing key": {
			childOps:      []Op{DelOp(ks[5])},
			parentQueries: []Model{Pair(ks[5], nil)},
			childQueries:  []Model{Pair(ks[5], nil)},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			parent, cleanup := s.makeBase()
			defer cleanup()

			for _, op := range tc.parentOps {
				assert.Nil(t, op.Apply(parent))
			}
			child := parent.CacheWrap()
			for _, op := range tc.childOps {
				assert.Nil(t, op.Apply(child))
			}

			for _, q := range tc.parentQueries {
				s.AssertGetHas(t, parent, q.Key, q.Value, q.Value != nil)
			}
			for _, q := range tc.childQueries {
				s.AssertGetHas(t, child, q.Key, q.Value, q.Value != nil)
			}

			assert.Nil(t, child.Write())
			for _, q := range tc.childQueries {
				s.AssertGetHas(t, parent, q.Key, q.Value, q.Value != nil)
			}
		})
	}
}

// Iterate checks ranges over random data with deletes, written either to
// the cache only or to both the parent and the cache.
func (s *TestSuite) Iterate(t *testing.T) {
	const (
		size    = 50
		deletes = 20
	)

	child := randModels(size, 8, 40)
	childOps := append(makeSetOps(child...), makeDelOps(randModels(deletes, 8, 40)...)...)
	parent := randModels(size, 8, 40)
	parentOps := append(makeSetOps(parent...), makeDelOps(randModels(deletes, 8, 40)...)...)

	only := sortModels(child)
	both := sortModels(append(child, parent...))

	cases := map[string]iterCase{
		"cache over an empty parent": {
			child: childOps,
			queries: []rangeQuery{
				{nil, nil, only},
				{only[10].Key, nil, only[10:]},
				{nil, only[size-8].Key, only[:size-8]},
				{only[17].Key, only[28].Key, only[17:28]},
			},
		},
		"cache and parent merged": {
			pre:   parentOps,
			child: childOps,
			queries: []rangeQuery{
				{nil, nil, both},
				{both[10].Key, nil, both[10:]},
				{nil, both[size-8].Key, both[:size-8]},
				{both[17].Key, both[28].Key, both[17:28]},
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			base, cleanup := s.makeBase()
			defer cleanup()
			tc.verify(t, s, base)
		})
	}
}

// IterateOverlapping checks iteration when the cache overwrites or deletes
// keys held by the parent.
func (s *TestSuite) IterateOverlapping(t *testing.T) {
	ms := randModels(6, 20, 100)
	a, a2, b, b2, c, d := ms[0], ms[1], ms[2], ms[3], ms[4], ms[5]
	a2.Key = a.Key
	b2.Key = b.Key

	abc := sortModels([]Model{a, b, c})
	overwritten := sortModels([]Model{a2, b2, c, d})

	cases := map[string]iterCase{
		"cache only": {
			child: makeSetOps(a, b, c),
			queries: []rangeQuery{
				{nil, nil, abc},
				{abc[1].Key, abc[2].Key, abc[1:2]},
			},
		},
		"parent only": {
			pre: makeSetOps(a, b, c),
			queries: []rangeQuery{
				{nil, nil, abc},
				{abc[1].Key, abc[2].Key, abc[1:2]},
			},
		},
		"split between parent and cache": {
			pre:   makeSetOps(a, b),
			child: makeSetOps(c),
			queries: []rangeQuery{
				{nil, nil, abc},
				{abc[1].Key, abc[2].Key, abc[1:2]},
			},
		},
		"cache values shadow the parent": {
			pre:   makeSetOps(a, b, c),
			child: makeSetOps(a2, b2, d),
			queries: []rangeQuery{
				{nil, nil, overwritten},
				{overwritten[1].Key, overwritten[3].Key, overwritten[1:3]},
			},
		},
		"cache deletes hide the parent": {
			pre:   makeSetOps(a, c, d),
			child: makeDelOps(a, b, d),
			queries: []rangeQuery{
				{nil, nil, []Model{c}},
				{nil, c.Key, nil},
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			base, cleanup := s.makeBase()
			defer cleanup()
			tc.verify(t, s, base)
		})
	}
}

func (s *TestSuite) AssertGetHas(t testing.TB, kv ReadOnlyKVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, val, got)
	exists, err := kv.Has(key)
	assert.Nil(t, err)
	assert.Equal(t, has, exists)
}

// assertIterate checks that kv returns exactly want in [start, end).
func (s *TestSuite) assertIterate(t testing.TB, kv ReadOnlyKVStore, start, end []byte, want []Model) {
	t.Helper()
	iter, err := kv.Iterator(start, end)
	assert.Nil(t, err)
	defer iter.Release()

	for i, m := range want {
		key, value, err := iter.Next()
		assert.Nil(t, err)
		if !bytes.Equal(m.Key, key) {
			t.Fatalf("entry %d: want key %X, got %X", i, m.Key, key)
		}
		assert.Equal(t, m.Value, value)
	}
	_, _, err = iter.Next()
	if !errors.ErrIteratorDone.Is(err) {
		t.Fatalf("want ErrIteratorDone after %d entries, got %+v", len(want), err)
	}
}

func randBytes(length int) []byte {
	res := make([]byte, length)
	_, _ = rand.Read(res)
	return res
}

func randKeys(count, size int) [][]byte {
	res := make([][]byte, count)
	for i := range res {
		res[i] = randBytes(size)
	}
	return res
}

func randModels(count, keySize, valueSize int) []Model {
	models := make([]Model, count)
	for i := range models {
		models[i] = Pair(randBytes(keySize), randBytes(valueSize))
	}
	return models
}

// iterCase applies pre to the base and child to a cache wrap over it,
// then runs the queries against the cache wrap.
type iterCase struct {
	pre     []Op
	child   []Op
	queries []rangeQuery
}

func (c iterCase) verify(t testing.TB, s *TestSuite, base CacheableKVStore) {
	t.Helper()
	for _, op := range c.pre {
		assert.Nil(t, op.Apply(base))
	}
	child := base.CacheWrap()
	for _, op := range c.child {
		assert.Nil(t, op.Apply(child))
	}
	for _, q := range c.queries {
		s.assertIterate(t, child, q.start, q.end, q.expected)
	}
}

type rangeQuery struct {
	start    []byte
	end      []byte
	expected []Model
}

// sortModels returns a copy of models ordered by key.
func sortModels(models []Model) []Model {
	res := make([]Model, len(models))
	copy(res, models)
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].Key, res[j].Key) < 0
	})
	return res
}

func makeSetOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = SetOp(m.Key, m.Value)
	}
	return res
}

func makeDelOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = DelOp(m.Key)
	}
	return res
}
