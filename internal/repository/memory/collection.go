package memory

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmhub/internal/repository"
)

// query selects documents. filter holds equality predicates on top-level
// fields; where is an optional extra predicate evaluated after filter.
type query struct {
	filter  bson.M
	where   func(bson.M) bool
	sortBy  string
	order   repository.SortOrder
	exclude []string
}

// collection is an ordered set of BSON documents guarded by a mutex.
// Documents are kept encoded so callers never share mutable state with it.
type collection struct {
	mu     sync.RWMutex
	docs   []bson.Raw
	unique [][]string
}

// newCollection builds a collection enforcing the given compound unique keys.
// A key is skipped for documents where any of its fields is missing or empty.
func newCollection(unique ...[]string) *collection {
	return &collection{unique: unique}
}

func (c *collection) insert(doc any) error {
	m, err := toDoc(doc)
	if err != nil {
		return err
	}
	id, ok := m["_id"]
	if !ok {
		return errors.New("memory: document has no _id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(id) >= 0 {
		return fmt.Errorf("%w: _id %v", repository.ErrDuplicate, id)
	}
	if err := c.checkUnique(m, -1); err != nil {
		return err
	}

	raw, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("memory: encode document: %w", err)
	}
	c.docs = append(c.docs, raw)
	return nil
}

func (c *collection) find(q query) ([]bson.M, error) {
	filter, err := toDoc(q.filter)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]bson.M, 0)
	for _, raw := range c.docs {
		m, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if matches(m, filter) && (q.where == nil || q.where(m)) {
			out = append(out, m)
		}
	}

	if q.sortBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			cmp := compareValues(out[i][q.sortBy], out[j][q.sortBy])
			if q.order == repository.Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	for _, m := range out {
		for _, field := range q.exclude {
			delete(m, field)
		}
	}
	return out, nil
}

func (c *collection) findOne(q query) (bson.M, error) {
	docs, err := c.find(q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, repository.ErrNotFound
	}
	return docs[0], nil
}

// mutate applies fn to the first matching document under the write lock,
// which makes read-check-write sequences inside fn atomic.
func (c *collection) mutate(q query, fn func(doc bson.M) error) (bson.M, error) {
	filter, err := toDoc(q.filter)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, raw := range c.docs {
		m, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if !matches(m, filter) || (q.where != nil && !q.where(m)) {
			continue
		}
		if err := fn(m); err != nil {
			return nil, err
		}
		updated, err := bson.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("memory: encode document: %w", err)
		}
		normalized, err := decode(updated)
		if err != nil {
			return nil, err
		}
		if err := c.checkUnique(normalized, i); err != nil {
			return nil, err
		}
		c.docs[i] = updated
		return normalized, nil
	}
	return nil, repository.ErrNotFound
}

func (c *collection) remove(q query) (bson.M, error) {
	filter, err := toDoc(q.filter)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, raw := range c.docs {
		m, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if matches(m, filter) && (q.where == nil || q.where(m)) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c *collection) exists(q query) (bool, error) {
	_, err := c.findOne(q)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *collection) indexOf(id any) int {
	for i, raw := range c.docs {
		if m, err := decode(raw); err == nil && equalValues(m["_id"], id) {
			return i
		}
	}
	return -1
}

// checkUnique must be called with the lock held. skip is the index of the
// document being replaced, or -1 on insert.
func (c *collection) checkUnique(m bson.M, skip int) error {
	for _, key := range c.unique {
		values := make([]any, len(key))
		sparse := false
		for i, field := range key {
			v, ok := m[field]
			if !ok || v == nil || v == "" {
				sparse = true
				break
			}
			values[i] = v
		}
		if sparse {
			continue
		}

		for i, raw := range c.docs {
			if i == skip {
				continue
			}
			other, err := decode(raw)
			if err != nil {
				return err
			}
			same := true
			for j, field := range key {
				if !equalValues(other[field], values[j]) {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("%w: %v", repository.ErrDuplicate, key)
			}
		}
	}
	return nil
}

func toDoc(v any) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	if m, ok := v.(bson.M); ok && m == nil {
		return bson.M{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("memory: encode: %w", err)
	}
	return decode(raw)
}

func decode(raw []byte) (bson.M, error) {
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("memory: decode: %w", err)
	}
	return m, nil
}

func fromDoc[T any](m bson.M) (*T, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("memory: encode: %w", err)
	}
	out := new(T)
	if err := bson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("memory: decode: %w", err)
	}
	return out, nil
}

func fromDocs[T any](docs []bson.M) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, m := range docs {
		v, err := fromDoc[T](m)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func matches(doc, filter bson.M) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if !ok {
			if want == nil {
				continue
			}
			return false
		}
		if !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compareValues orders values the way MongoDB does for the types we store:
// missing and null first, then numbers, strings, object ids, booleans, dates.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}

	switch x := a.(type) {
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case primitive.DateTime:
		return compareInt(int64(x), int64(b.(primitive.DateTime)))
	case primitive.ObjectID:
		y := b.(primitive.ObjectID)
		return bytes.Compare(x[:], y[:])
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}

	if fa, ok := toFloat(a); ok {
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	}
	return 0
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int32, int64, int, float64:
		return 1
	case string:
		return 2
	case primitive.ObjectID:
		return 3
	case bool:
		return 4
	case primitive.DateTime:
		return 5
	}
	return 6
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
