package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter forwards fx container events to the ProArc logger.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter is passed to fx.WithLogger.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent implements fxevent.Logger. Wiring noise goes to DEBUG, failures to ERROR.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			Errorf("fx: start hook %s failed: %v", shortFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("fx: start hook %s done in %s", shortFuncName(e.FunctionName), e.Runtime)
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			Errorf("fx: stop hook %s failed: %v", shortFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("fx: stop hook %s done", shortFuncName(e.FunctionName))
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("fx: provide failed: %v", e.Err)
			return
		}
		for _, t := range e.OutputTypeNames {
			Debugf("fx: provided %s", t)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("fx: invoke %s failed: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		Infof("fx: received %s, stopping", strings.ToUpper(e.Signal.String()))
	case *fxevent.RollingBack:
		Errorf("fx: start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("fx: rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("fx: start failed: %v", e.Err)
			return
		}
		Infof("ProArc application started.")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("fx: logger initialization failed: %v", e.Err)
		}
	}
}

// shortFuncName strips closure suffixes such as ".func1" from fx function names.
func shortFuncName(name string) string {
	if idx := strings.LastIndex(name, ".func"); idx != -1 {
		return name[:idx]
	}
	return name
}
