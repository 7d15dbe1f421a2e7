package modelkit

// DefaultValue is the tagged default of a Field: either StaticDefault or
// ComputedDefault.
type DefaultValue interface {
	// Derive returns the default. Computed defaults run their factory on every
	// call.
	Derive() any
}

// StaticDefault returns the same value on every derivation.
type StaticDefault struct{ Value any }

func (d StaticDefault) Derive() any { return d.Value }

// ComputedDefault invokes Fn on every derivation.
type ComputedDefault struct{ Fn func() any }

func (d ComputedDefault) Derive() any {
	if d.Fn == nil {
		return nil
	}
	return d.Fn()
}
