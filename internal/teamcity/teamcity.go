package teamcity

import (
	"fmt"
	"io"
	"time"
)

type Logger struct {
	writer io.Writer
}

func NewLogger(writer io.Writer) *Logger {
	return &Logger{writer: writer}
}

func (l *Logger) TestSuiteStarted(name string) {
	fmt.Fprintf(l.writer, "##teamcity[testSuiteStarted name='%s']\n", name)
}

func (l *Logger) TestSuiteFinished(name string, duration time.Duration) {
	fmt.Fprintf(l.writer, "##teamcity[testSuiteFinished name='%s' duration='%s']\n", name, duration.String())
}

func (l *Logger) TestStarted(name string) {
	fmt.Fprintf(l.writer, "##teamcity[testStarted name='%s']\n", name)
}

func (l *Logger) TestFinished(name string) {
	fmt.Fprintf(l.writer, "##teamcity[testFinished name='%s']\n", name)
}

func (l *Logger) TestFailed(name string, message string) {
	fmt.Fprintf(l.writer, "##teamcity[testFailed name='%s' message='%s']\n", name, message)
}
