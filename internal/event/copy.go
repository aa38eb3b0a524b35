package event

import (
	"reflect"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/rs/zerolog"

	"github.com/Organization5762/heart/internal/log"
)

// fidelity is what deepcopy.Copy does to values of a type.
type fidelity uint8

const (
	// copyExact types are reproduced field for field.
	copyExact fidelity = iota
	// copyDynamic types hold interfaces or may be recursive, so the
	// verdict depends on the value.
	copyDynamic
	// copyLossy types reach unexported fields that deepcopy zeroes.
	copyLossy
)

var (
	deepCopierType = reflect.TypeOf((*deepcopy.Interface)(nil)).Elem()
	timeType       = reflect.TypeOf(time.Time{})

	fidelityCache sync.Map // reflect.Type -> fidelity
)

func fidelityOf(t reflect.Type) fidelity {
	if f, ok := fidelityCache.Load(t); ok {
		return f.(fidelity)
	}
	f := analyze(t, map[reflect.Type]bool{})
	fidelityCache.Store(t, f)
	return f
}

func analyze(t reflect.Type, visiting map[reflect.Type]bool) fidelity {
	if t.Implements(deepCopierType) || t == timeType {
		return copyExact
	}
	if visiting[t] {
		// Recursive types can build cyclic values.
		return copyDynamic
	}
	visiting[t] = true
	defer delete(visiting, t)

	switch t.Kind() {
	case reflect.Interface:
		return copyDynamic
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return analyze(t.Elem(), visiting)
	case reflect.Map:
		return max(analyze(t.Key(), visiting), analyze(t.Elem(), visiting))
	case reflect.Struct:
		f := copyExact
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				return copyLossy
			}
			f = max(f, analyze(field.Type, visiting))
		}
		return f
	default:
		return copyExact
	}
}

type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

// copyWalker inspects a value that fidelityOf could not judge from its type.
type copyWalker struct {
	path    map[visitKey]bool
	blocker reflect.Type
}

// faithful reports whether deepcopy reproduces v exactly and terminates.
// On false, blocker names the offending type.
func (w *copyWalker) faithful(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch fidelityOf(v.Type()) {
	case copyExact:
		return true
	case copyLossy:
		w.blocker = v.Type()
		return false
	}

	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || w.faithful(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			return true
		}
		return w.enter(v, func() bool { return w.faithful(v.Elem()) })
	case reflect.Map:
		if v.IsNil() {
			return true
		}
		return w.enter(v, func() bool {
			iter := v.MapRange()
			for iter.Next() {
				if !w.faithful(iter.Key()) || !w.faithful(iter.Value()) {
					return false
				}
			}
			return true
		})
	case reflect.Slice:
		if v.IsNil() {
			return true
		}
		return w.enter(v, func() bool { return w.elements(v) })
	case reflect.Array:
		return w.elements(v)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !w.faithful(v.Field(i)) {
				return false
			}
		}
	}
	return true
}

func (w *copyWalker) elements(v reflect.Value) bool {
	for i := 0; i < v.Len(); i++ {
		if !w.faithful(v.Index(i)) {
			return false
		}
	}
	return true
}

// enter guards against values that contain themselves.
func (w *copyWalker) enter(v reflect.Value, fn func() bool) bool {
	key := visitKey{ptr: v.Pointer(), typ: v.Type()}
	if w.path == nil {
		w.path = make(map[visitKey]bool)
	}
	if w.path[key] {
		w.blocker = v.Type()
		return false
	}
	w.path[key] = true
	defer delete(w.path, key)
	return fn()
}

// payloadCopier deep copies payloads and falls back to sharing the
// original when a copy would lose data or never finish.
type payloadCopier struct {
	logger func() zerolog.Logger
	warned sync.Map // reflect.Type -> struct{}
}

func newPayloadCopier(l zerolog.Logger) *payloadCopier {
	return &payloadCopier{logger: func() zerolog.Logger { return l }}
}

var defaultCopier = &payloadCopier{
	logger: func() zerolog.Logger { return log.WithComponent("eventbus") },
}

func (c *payloadCopier) copy(v any) any {
	if v == nil {
		return nil
	}
	var w copyWalker
	if !w.faithful(reflect.ValueOf(v)) {
		c.warnOnce(reflect.TypeOf(v), w.blocker)
		return v
	}
	return deepcopy.Copy(v)
}

func (c *payloadCopier) warnOnce(payload, blocker reflect.Type) {
	if _, seen := c.warned.LoadOrStore(payload, struct{}{}); seen {
		return
	}
	l := c.logger()
	l.Warn().
		Str(log.FieldPayloadType, payload.String()).
		Str("blocking_type", blocker.String()).
		Msg("payload cannot be deep copied; consumers share the original value")
}
