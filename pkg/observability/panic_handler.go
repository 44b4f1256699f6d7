package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with structured logging
//
// Usage in defer statements:
//
//	func riskyOperation() {
//	    defer observability.RecoverPanic(logger, "risky operation")
//	    // ... code that might panic
//	}
//
// After logging, the panic is NOT re-raised - the function returns normally.
func RecoverPanic(logger logrus.FieldLogger, context string) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback recovers from a panic, logs it, and executes a callback
//
// Usage when the caller must learn about the failure:
//
//	func run() {
//	    defer observability.RecoverPanicWithCallback(logger, "chainloader run", func(r interface{}) {
//	        diags.Addf(plugins.KindRunFailure, plugins.SeverityError, "", "%v", r)
//	    })
//	    // ... code that might panic
//	}
//
// The callback only runs when a panic was recovered.
func RecoverPanicWithCallback(logger logrus.FieldLogger, context string, callback func(r interface{})) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
		if callback != nil {
			callback(r)
		}
	}
}

// MustRecover converts a recovered value to an error
//
// Usage when you want to convert panics to errors:
//
//	func instantiate() (p Plugin, err error) {
//	    defer func() {
//	        if r := recover(); r != nil {
//	            err = observability.MustRecover(r)
//	        }
//	    }()
//	    // ... code that might panic
//	}
//
// If r is nil, returns nil. A recovered error is wrapped so errors.Is and
// errors.As still see it.
func MustRecover(r interface{}) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
