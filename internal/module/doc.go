// Package module builds the set of modules a daemon serves.
//
// A module is one backend integration ("wemo", "tv", "group") owning a
// list of channels. Modules are created from an explicit Factories table
// passed to Build, so tests and the node daemon can supply their own set.
// Build initializes every configured module once at startup; a module whose
// initialization fails is logged and left out of the Registry. The Registry
// is never mutated afterwards.
//
// Usage:
//
//	reg := module.Build(ctx, module.Factories{
//	    "virtual": func() module.Instance { return virtual.New() },
//	}, cfg.Modules, logger)
//	m, ok := reg.Lookup("virtual")
package module
