package lightrecord

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry caches synthesized record types per (Base name, Signature).
//
// Entries are never evicted: the number of distinct result shapes is bounded
// by the queries in a program, not by the data they return. Resolve is safe
// for concurrent use and synthesizes each key at most once.
type Registry struct {
	types  sync.Map // typeKey -> *RecordType
	group  singleflight.Group
	logger *slog.Logger
}

type typeKey struct {
	base string
	sig  string // Signature.Key
}

// flight is the singleflight key: the base name length-prefixed like the
// signature parts, so no base name can run into the columns.
func (k typeKey) flight() string {
	var b strings.Builder
	writeKeyPart(&b, k.base)
	b.WriteString(k.sig)
	return b.String()
}

// RegistryOption configures a [Registry].
type RegistryOption func(*Registry)

// WithRegistryLogger logs each synthesis at debug level on l.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: discardLogger}
	for _, o := range opts {
		o(r)
	}
	return r
}

// --- package-level lazy registry (used by Query/Each) ---

var (
	registry     *Registry
	registryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	registryOnce.Do(func() { registry = NewRegistry() })
	return registry
}

// Resolve returns the record type for base and sig from the default registry.
func Resolve(base Base, sig Signature) *RecordType {
	return DefaultRegistry().Resolve(base, sig)
}

// BaseType returns the record type shaped like base's declared columns.
func BaseType(base Base) *RecordType {
	return DefaultRegistry().BaseType(base)
}

// Resolve returns the cached record type for base and sig, synthesizing it
// on first use. Equal pairs always yield the identical *RecordType.
func (r *Registry) Resolve(base Base, sig Signature) *RecordType {
	key := typeKey{sig: sig.Key()}
	if base != nil {
		key.base = base.Name()
	}
	if v, ok := r.types.Load(key); ok {
		return v.(*RecordType)
	}

	v, _, _ := r.group.Do(key.flight(), func() (any, error) {
		if v, ok := r.types.Load(key); ok {
			return v, nil
		}
		rt := synthesize(base, sig)
		actual, loaded := r.types.LoadOrStore(key, rt)
		if !loaded {
			r.logger.Debug("record type synthesized",
				"type", rt.String(), "columns", len(rt.sig), "identity", rt.identity >= 0)
		}
		return actual, nil
	})
	return v.(*RecordType)
}

// BaseType returns the record type for base's declared column list.
func (r *Registry) BaseType(base Base) *RecordType {
	return r.Resolve(base, NewSignature(base.Columns()))
}

// Len returns the number of cached record types.
func (r *Registry) Len() int {
	n := 0
	r.types.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Types lists the cached record types ordered by display name.
func (r *Registry) Types() []*RecordType {
	var out []*RecordType
	r.types.Range(func(_, v any) bool {
		out = append(out, v.(*RecordType))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
