// Package logger wraps zap with context helpers.
//
// A global sugared logger with a console encoder is created at init time.
// Services never hold a logger themselves: they pull it out of the context
// (FromContext) so that scoped names and key-value pairs added with WithName
// and WithKV follow the call chain of a convergence run.
package logger
