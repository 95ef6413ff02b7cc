package attrs

import (
	"fmt"
	"sort"
)

// Values maps attribute names to numeric (float64), boolean or string values.
type Values map[string]any

// Listener observes the attributes that changed in one batch.
type Listener func(changed Values)

// TypeError reports an attribute value of an unsupported kind.
type TypeError struct {
	Name  string
	Value any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("attrs: unsupported value %T for %q", e.Value, e.Name)
}

// Store holds the authoritative key/value state of one entity. A Store is
// owned by the simulation goroutine and is not safe for concurrent use.
type Store struct {
	values    map[string]any
	dirty     map[string]struct{}
	listeners []Listener
}

// New constructs a store seeded with the provided values. Initial values are
// reported as dirty so the first incremental flush carries them.
func New(initial Values) (*Store, error) {
	s := &Store{
		values: make(map[string]any, len(initial)),
		dirty:  make(map[string]struct{}, len(initial)),
	}
	if err := s.Set(initial); err != nil {
		return nil, err
	}
	return s, nil
}

// Normalize converts supported Go kinds into the canonical attribute kinds.
func Normalize(value any) (any, bool) {
	switch v := value.(type) {
	case float64, bool, string:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return nil, false
	}
}

// Truthy reports whether a value counts as set: true, a non-zero number or a
// non-empty string.
func Truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return false
	}
}

// Get returns a single attribute.
func (s *Store) Get(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether the attribute is defined.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Float returns a numeric attribute.
func (s *Store) Float(name string) (float64, bool) {
	v, ok := s.Get(name)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// String returns a string attribute.
func (s *Store) String(name string) (string, bool) {
	v, ok := s.Get(name)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Bool returns the truthiness of an attribute; undefined is false.
func (s *Store) Bool(name string) bool {
	v, ok := s.Get(name)
	return ok && Truthy(v)
}

// GetMany returns the defined subset of the requested attributes.
func (s *Store) GetMany(names ...string) Values {
	out := make(Values, len(names))
	for _, name := range names {
		if v, ok := s.Get(name); ok {
			out[name] = v
		}
	}
	return out
}

// Floats reads several numeric attributes at once. ok is false when any of
// them is missing or not numeric.
func (s *Store) Floats(names ...string) ([]float64, bool) {
	out := make([]float64, len(names))
	for i, name := range names {
		f, ok := s.Float(name)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// Set applies a batch. The batch is validated up front and rejected whole on
// an unsupported value; listeners run once after every value is written.
func (s *Store) Set(batch Values) error {
	if len(batch) == 0 {
		return nil
	}
	normalized := make(Values, len(batch))
	for name, value := range batch {
		v, ok := Normalize(value)
		if !ok {
			return &TypeError{Name: name, Value: value}
		}
		normalized[name] = v
	}
	s.apply(normalized)
	return nil
}

// SetFloats applies a numeric batch.
func (s *Store) SetFloats(batch map[string]float64) {
	if len(batch) == 0 {
		return
	}
	values := make(Values, len(batch))
	for name, value := range batch {
		values[name] = value
	}
	s.apply(values)
}

// Delete removes attributes, reporting them as changed to nil.
func (s *Store) Delete(names ...string) {
	changed := make(Values)
	for _, name := range names {
		if _, ok := s.values[name]; !ok {
			continue
		}
		delete(s.values, name)
		s.dirty[name] = struct{}{}
		changed[name] = nil
	}
	s.notify(changed)
}

// OnChange registers a listener for subsequent batches.
func (s *Store) OnChange(listener Listener) {
	if listener == nil {
		return
	}
	s.listeners = append(s.listeners, listener)
}

// Snapshot copies every defined attribute.
func (s *Store) Snapshot() Values {
	out := make(Values, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Names lists the defined attribute names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dirty reports whether any attribute changed since the last Flush.
func (s *Store) Dirty() bool {
	return len(s.dirty) > 0
}

// Flush returns the attributes changed since the previous flush and clears
// the change set. Deleted attributes are omitted.
func (s *Store) Flush() Values {
	if len(s.dirty) == 0 {
		return nil
	}
	out := make(Values, len(s.dirty))
	for name := range s.dirty {
		if v, ok := s.values[name]; ok {
			out[name] = v
		}
	}
	s.dirty = make(map[string]struct{})
	return out
}

func (s *Store) apply(batch Values) {
	changed := make(Values, len(batch))
	for name, value := range batch {
		if current, ok := s.values[name]; ok && current == value {
			continue
		}
		s.values[name] = value
		s.dirty[name] = struct{}{}
		changed[name] = value
	}
	s.notify(changed)
}

func (s *Store) notify(changed Values) {
	if len(changed) == 0 {
		return
	}
	for _, listener := range s.listeners {
		listener(changed)
	}
}
