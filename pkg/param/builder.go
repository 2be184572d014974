package param

import (
	"errors"
)

// Builder provides a fluent interface for constructing parameter metadata.
type Builder struct {
	info Info
	err  error
}

// NewBuilder starts a Builder with sensible 0..1 defaults.
func NewBuilder(id ID, name string) *Builder {
	return &Builder{
		info: Info{
			ID:           id,
			Name:         name,
			MinValue:     0.0,
			MaxValue:     1.0,
			DefaultValue: 0.5,
			Flags:        FlagAutomatable,
		},
	}
}

// Module sets the parameter's display group, e.g. "Filter".
func (b *Builder) Module(module string) *Builder {
	if b.err != nil {
		return b
	}
	b.info.Module = module
	return b
}

// Range sets min, max, and default in one call.
func (b *Builder) Range(min, max, defaultValue float64) *Builder {
	if b.err != nil {
		return b
	}
	if min >= max {
		b.err = errors.New("min value must be less than max value")
		return b
	}
	if defaultValue < min || defaultValue > max {
		b.err = errors.New("default value must be within min/max range")
		return b
	}
	b.info.MinValue = min
	b.info.MaxValue = max
	b.info.DefaultValue = defaultValue
	return b
}

// Flags overwrites the parameter's flag bits.
func (b *Builder) Flags(flags uint32) *Builder {
	if b.err != nil {
		return b
	}
	b.info.Flags = flags
	return b
}

// AddFlags ORs additional flag bits in.
func (b *Builder) AddFlags(flags uint32) *Builder {
	if b.err != nil {
		return b
	}
	b.info.Flags |= flags
	return b
}

func (b *Builder) Automatable() *Builder { return b.AddFlags(FlagAutomatable) }
func (b *Builder) Modulatable() *Builder { return b.AddFlags(FlagModulatable) }
func (b *Builder) Stepped() *Builder     { return b.AddFlags(FlagStepped) }
func (b *Builder) Hidden() *Builder      { return b.AddFlags(FlagHidden) }
func (b *Builder) ReadOnly() *Builder    { return b.AddFlags(FlagReadonly) }
func (b *Builder) Bypass() *Builder      { return b.AddFlags(FlagBypass) }
func (b *Builder) Bounded() *Builder     { return b.AddFlags(FlagBoundedBelow | FlagBoundedAbove) }

// Cookie sets the plugin-assigned fast-lookup token.
func (b *Builder) Cookie(cookie uint64) *Builder {
	if b.err != nil {
		return b
	}
	b.info.Cookie = cookie
	return b
}

// Build validates and returns the parameter metadata.
func (b *Builder) Build() (Info, error) {
	if b.err != nil {
		return Info{}, b.err
	}
	if b.info.Name == "" {
		return Info{}, errors.New("parameter name is required")
	}
	if b.info.MinValue >= b.info.MaxValue {
		return Info{}, errors.New("min value must be less than max value")
	}
	if b.info.DefaultValue < b.info.MinValue || b.info.DefaultValue > b.info.MaxValue {
		return Info{}, errors.New("default value must be within min/max range")
	}
	return b.info, nil
}

// MustBuild builds the parameter info, panicking on validation error. Only
// safe for parameter definitions fixed at compile time.
func (b *Builder) MustBuild() Info {
	info, err := b.Build()
	if err != nil {
		panic(err)
	}
	return info
}
