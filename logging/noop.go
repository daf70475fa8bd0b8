package logging

// Noop returns a logger that discards everything.
func Noop() Logger {
	return noop{}
}

type noop struct{}

func (noop) Debug(string, ...interface{}) {}
func (noop) Info(string, ...interface{})  {}
func (noop) Warn(string, ...interface{})  {}
func (noop) Error(string, ...interface{}) {}

func (n noop) WithComponent(string) Logger { return n }
