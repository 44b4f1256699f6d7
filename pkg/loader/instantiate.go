package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/chainload/pkg/hostapi"
)

// Instantiator creates the plugin instance of typeName from a loaded module
type Instantiator interface {
	Instantiate(handle Handle, typeName string) (hostapi.Plugin, error)
}

// FactorySymbol is the exported symbol a module provides for typeName
func FactorySymbol(typeName string) string {
	return hostapi.FactoryPrefix + typeName
}

// SymbolInstantiator looks up New<TypeName> in the module. The symbol may be a
// function returning hostapi.Plugin or a variable holding a hostapi.Factory or a
// hostapi.Plugin.
type SymbolInstantiator struct{}

// Instantiate calls the factory symbol of typeName
func (SymbolInstantiator) Instantiate(handle Handle, typeName string) (hostapi.Plugin, error) {
	symbol := FactorySymbol(typeName)

	sym, err := handle.Lookup(symbol)
	if err != nil {
		return nil, &TypeLoadError{
			TypeName: typeName,
			Symbol:   symbol,
			Module:   handle.Location(),
			Reason:   "the module does not export a factory for this type",
			Err:      err,
		}
	}

	var instance hostapi.Plugin
	switch f := sym.(type) {
	case func() hostapi.Plugin:
		instance = f()
	case hostapi.Factory:
		instance = f()
	case *hostapi.Factory:
		if *f != nil {
			instance = (*f)()
		}
	case *hostapi.Plugin:
		instance = *f
	default:
		return nil, &TypeLoadError{
			TypeName: typeName,
			Symbol:   symbol,
			Module:   handle.Location(),
			Reason:   fmt.Sprintf("symbol has type %T, want func() hostapi.Plugin", sym),
		}
	}

	if instance == nil {
		return nil, &TypeLoadError{
			TypeName: typeName,
			Symbol:   symbol,
			Module:   handle.Location(),
			Reason:   "factory returned no instance",
		}
	}
	return instance, nil
}

// TypeLoadError explains why a plugin type could not be instantiated from a module
type TypeLoadError struct {
	TypeName string
	Symbol   string
	Module   string
	Reason   string
	Err      error
}

func (e *TypeLoadError) Error() string {
	return fmt.Sprintf("could not instantiate %s: %s", e.TypeName, e.Reason)
}

func (e *TypeLoadError) Unwrap() error {
	return e.Err
}

// Diagnosis is a multi-line description for debug logs
func (e *TypeLoadError) Diagnosis() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type load failure for %s\n", e.TypeName)
	fmt.Fprintf(&b, "  module: %s\n", e.Module)
	fmt.Fprintf(&b, "  symbol: %s\n", e.Symbol)
	fmt.Fprintf(&b, "  reason: %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, "\n  cause:  %v", e.Err)
	}
	return b.String()
}

// AsTypeLoadError returns the *TypeLoadError carried by err, if any
func AsTypeLoadError(err error) (*TypeLoadError, bool) {
	var tle *TypeLoadError
	if errors.As(err, &tle) {
		return tle, true
	}
	return nil, false
}
