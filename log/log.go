// Package log wraps the standard logger with a raw mode for use while a
// terminal screen is active. In raw mode the terminal does not translate
// LF to CRLF, so bare newlines in log output would stairstep; the logger
// rewrites them on the way out.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
)

type Logger struct {
	l       *log.Logger
	rawMode bool
}

var (
	crlfPrefixer = regexp.MustCompile(`(?:([^\r])\n|^\n)`)
)

var std = NewFromLogger(log.Default(), false)

// Default returns the standard logger used by the package-level output functions.
func Default() *Logger { return std }

func New(out io.Writer, prefix string, flag int, rawMode bool) *Logger {
	return NewFromLogger(log.New(out, prefix, flag), rawMode)
}

func NewFromLogger(l *log.Logger, rawMode bool) *Logger {
	return &Logger{l: l, rawMode: rawMode}
}

func (l *Logger) fixString(str string) string {
	if !l.rawMode {
		return str
	}

	s := crlfPrefixer.ReplaceAllString(str, "$1\r\n")
	if len(s) == 0 || s[len(s)-1] != '\n' {
		s += "\r\n"
	}
	return s
}

// RawMode returns the raw mode for the logger.
func (l *Logger) RawMode() bool {
	return l.rawMode
}

// SetRawMode sets the raw mode for the logger.
func (l *Logger) SetRawMode(rawMode bool) {
	l.rawMode = rawMode
}

// SetOutput sets the output destination for the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.l.SetOutput(w)
}

// Writer returns the output destination for the logger.
func (l *Logger) Writer() io.Writer {
	return l.l.Writer()
}

// Output writes s as one logging event, CR-prefixing bare LFs first when
// raw mode is on. calldepth is how many frames to skip when the
// underlying logger records a file position.
func (l *Logger) Output(calldepth int, s string) error {
	s = l.fixString(s)
	return l.l.Output(calldepth+1, s)
}

// Print calls l.Output to print to the logger.
// Arguments are handled in the manner of [fmt.Print].
func (l *Logger) Print(v ...any) {
	s := l.fixString(fmt.Sprint(v...))
	l.l.Output(2, s)
}

// Printf calls l.Output to print to the logger.
// Arguments are handled in the manner of [fmt.Printf].
func (l *Logger) Printf(format string, v ...any) {
	s := l.fixString(fmt.Sprintf(format, v...))
	l.l.Output(2, s)
}

// Println calls l.Output to print to the logger.
// Arguments are handled in the manner of [fmt.Println].
func (l *Logger) Println(v ...any) {
	s := l.fixString(fmt.Sprintln(v...))
	l.l.Output(2, s)
}

// Fatal is equivalent to l.Print() followed by a call to [os.Exit](1).
func (l *Logger) Fatal(v ...any) {
	l.Print(v...)
	os.Exit(1)
}

// Fatalf is equivalent to l.Printf() followed by a call to [os.Exit](1).
func (l *Logger) Fatalf(format string, v ...any) {
	l.Printf(format, v...)
	os.Exit(1)
}

// Fatalln is equivalent to l.Println() followed by a call to [os.Exit](1).
func (l *Logger) Fatalln(v ...any) {
	l.Println(v...)
	os.Exit(1)
}

// SetOutput sets the output destination for the standard logger.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Writer returns the output destination for the standard logger.
func Writer() io.Writer {
	return std.Writer()
}

// Print calls Output to print to the standard logger.
// Arguments are handled in the manner of [fmt.Print].
func Print(v ...any) {
	std.Print(v...)
}

// Printf calls Output to print to the standard logger.
// Arguments are handled in the manner of [fmt.Printf].
func Printf(format string, v ...any) {
	std.Printf(format, v...)
}

// Println calls Output to print to the standard logger.
// Arguments are handled in the manner of [fmt.Println].
func Println(v ...any) {
	std.Println(v...)
}

// Fatal is equivalent to [Print] followed by a call to [os.Exit](1).
func Fatal(v ...any) {
	std.Output(2, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf is equivalent to [Printf] followed by a call to [os.Exit](1).
func Fatalf(format string, v ...any) {
	std.Fatalf(format, v...)
}

// Fatalln is equivalent to [Println] followed by a call to [os.Exit](1).
func Fatalln(v ...any) {
	std.Fatalln(v...)
}
