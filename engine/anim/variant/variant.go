// Package variant implements the host-driven parameter store ("variable
// map") that plumbs named values and single-frame triggers into every
// animation node. Lookups are type-safe and coercion-free: a mis-typed
// stored value yields the caller's default rather than panicking.
package variant

import "github.com/go-gl/mathgl/mgl32"

// Kind tags the type of value held by a Variant.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindVec3
	KindQuat
	KindMat4
	KindString
)

// Variant is a tagged union of the value kinds the map supports.
type Variant struct {
	Kind Kind

	boolVal   bool
	intVal    int
	floatVal  float32
	vec3Val   mgl32.Vec3
	quatVal   mgl32.Quat
	mat4Val   mgl32.Mat4
	stringVal string
}

func Bool(v bool) Variant     { return Variant{Kind: KindBool, boolVal: v} }
func Int(v int) Variant       { return Variant{Kind: KindInt, intVal: v} }
func Float(v float32) Variant { return Variant{Kind: KindFloat, floatVal: v} }
func Vec3(v mgl32.Vec3) Variant {
	return Variant{Kind: KindVec3, vec3Val: v}
}
func Quat(v mgl32.Quat) Variant {
	return Variant{Kind: KindQuat, quatVal: v}
}
func Mat4(v mgl32.Mat4) Variant {
	return Variant{Kind: KindMat4, mat4Val: v}
}
func String(v string) Variant { return Variant{Kind: KindString, stringVal: v} }

// Map is the variable map: a string-keyed store of Variant values plus a
// separate set of write-only trigger tokens emitted during evaluation.
// Map is not safe for concurrent use across goroutines sharing a single
// avatar's tree, matching the single-threaded-per-avatar step model.
type Map struct {
	values   map[string]Variant
	triggers map[string]struct{}
}

// NewMap constructs an empty variable map.
func NewMap() *Map {
	return &Map{values: make(map[string]Variant), triggers: make(map[string]struct{})}
}

// Set stores a value under key, overwriting any previous value.
func (m *Map) Set(key string, v Variant) {
	m.values[key] = v
}

// SetTrigger marks key as fired for the current frame.
func (m *Map) SetTrigger(key string) {
	m.triggers[key] = struct{}{}
}

// ClearTriggers empties the trigger set; called by the driver between frames.
func (m *Map) ClearTriggers() {
	for k := range m.triggers {
		delete(m.triggers, k)
	}
}

// HasKey reports whether key has a stored value.
func (m *Map) HasKey(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Triggers returns the set of trigger keys fired so far this frame. The
// returned map must not be mutated by the caller.
func (m *Map) Triggers() map[string]struct{} {
	return m.triggers
}

// LookupBool returns the trigger set first (a present trigger key reads as
// true), then the stored bool value, then def.
func (m *Map) LookupBool(key string, def bool) bool {
	if key == "" {
		return def
	}
	if _, ok := m.triggers[key]; ok {
		return true
	}
	if v, ok := m.values[key]; ok && v.Kind == KindBool {
		return v.boolVal
	}
	return def
}

func (m *Map) LookupInt(key string, def int) int {
	if key == "" {
		return def
	}
	if v, ok := m.values[key]; ok && v.Kind == KindInt {
		return v.intVal
	}
	return def
}

func (m *Map) LookupFloat(key string, def float32) float32 {
	if key == "" {
		return def
	}
	if v, ok := m.values[key]; ok && v.Kind == KindFloat {
		return v.floatVal
	}
	return def
}

func (m *Map) LookupVec3(key string, def mgl32.Vec3) mgl32.Vec3 {
	if key == "" {
		return def
	}
	if v, ok := m.values[key]; ok && v.Kind == KindVec3 {
		return v.vec3Val
	}
	return def
}

func (m *Map) LookupQuat(key string, def mgl32.Quat) mgl32.Quat {
	if key == "" {
		return def
	}
	if v, ok := m.values[key]; ok && v.Kind == KindQuat {
		return v.quatVal
	}
	return def
}

func (m *Map) LookupMat4(key string, def mgl32.Mat4) mgl32.Mat4 {
	if key == "" {
		return def
	}
	if v, ok := m.values[key]; ok && v.Kind == KindMat4 {
		return v.mat4Val
	}
	return def
}

func (m *Map) LookupString(key string, def string) string {
	if key == "" {
		return def
	}
	if v, ok := m.values[key]; ok && v.Kind == KindString {
		return v.stringVal
	}
	return def
}
