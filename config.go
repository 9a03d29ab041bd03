package compiler

// EmitterConfig controls which of spec.md §6.4's optional compilation
// features a Compile call includes, with the default implementation
// as NewEmitterConfig.
//
// Grounded on the teacher's RuntimeConfig/ModuleConfig immutable
// builder: clone() plus With* methods each returning a new pointer, so
// a shared base config can be specialized per call site without
// aliasing bugs.
type EmitterConfig struct {
	emitAllFunctions bool
	kindGlobals      bool
	hostImports      bool
	wasiImports      bool
	ffiImports       bool
	moduleName       string
}

// defaultConfig mirrors the teacher's engineLessConfig pattern: a
// package-level value holding every default, cloned by each
// NewEmitterConfig caller to avoid copy/pasting the wrong defaults.
var defaultConfig = EmitterConfig{
	moduleName: "wasp",
}

// NewEmitterConfig returns the default configuration: no tree-shaking
// override (helpers are still shaken unless WithEmitAllFunctions is
// set), no kind-constant globals, and no import blocks.
func NewEmitterConfig() EmitterConfig {
	return defaultConfig.clone()
}

// clone returns a copy of c, so every With* method can return an
// independent value.
func (c EmitterConfig) clone() EmitterConfig {
	return c
}

// WithEmitAllFunctions disables tree-shaking: every helper in the
// runtime catalog is emitted regardless of whether analysis found it
// reachable, per spec.md §6.4's "emit_all_functions" flag (useful when
// the caller wants a stable function-index layout across programs, or
// is debugging the helper library itself).
func (c EmitterConfig) WithEmitAllFunctions(enabled bool) EmitterConfig {
	ret := c.clone()
	ret.emitAllFunctions = enabled
	return ret
}

// WithKindGlobals exports one immutable i64 global per Kind constant
// (spec.md §6.2), letting a host read the same discriminant values the
// compiled module's own get_kind helper returns.
func (c EmitterConfig) WithKindGlobals(enabled bool) EmitterConfig {
	ret := c.clone()
	ret.kindGlobals = enabled
	return ret
}

// WithHostImports enables the fixed host.fetch/host.run import pair
// (spec.md §4.3, §12's supplemented host import feature).
func (c EmitterConfig) WithHostImports(enabled bool) EmitterConfig {
	ret := c.clone()
	ret.hostImports = enabled
	return ret
}

// WithWASIImports enables the wasi_snapshot_preview1 fd_write import
// and switches main's result type to a bare i64 exit code (spec.md
// §4.5.6's WASI command mode), matching the teacher's WithStartFunctions
// convention of a distinct command-style entry point.
func (c EmitterConfig) WithWASIImports(enabled bool) EmitterConfig {
	ret := c.clone()
	ret.wasiImports = enabled
	return ret
}

// WithFFIImports enables emission of the import section entries
// collected from `use`/`import` forms during analysis (spec.md §4.3).
func (c EmitterConfig) WithFFIImports(enabled bool) EmitterConfig {
	ret := c.clone()
	ret.ffiImports = enabled
	return ret
}

// WithModuleName overrides the emitted module's name-section entry.
// Defaults to "wasp".
func (c EmitterConfig) WithModuleName(name string) EmitterConfig {
	ret := c.clone()
	ret.moduleName = name
	return ret
}
