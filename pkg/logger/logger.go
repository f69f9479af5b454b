package logger

import "go.uber.org/zap"

// New builds the process logger. Development mode switches to the console
// encoder with debug level enabled.
func New(development bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return l
}
