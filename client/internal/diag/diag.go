// Package diag содержит диагностический логгер для ситуаций, которые не
// укладываются в описанные ошибки клиента. Логгер никогда не влияет на ход
// выполнения вызывающего кода.
package diag

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Site описывает место вызова логгера.
type Site struct {
	File string // Имя файла без каталога
	Line int
	Func string // Имя функции без пакета и получателя
}

// String форматирует место вызова как "file.go:42 (Func)".
func (s Site) String() string {
	return fmt.Sprintf("%s:%d (%s)", s.File, s.Line, s.Func)
}

// Logger принимает сообщение вместе с местом вызова.
type Logger interface {
	Log(site Site, msg string)
}

// Caller возвращает место вызова, пропуская skip кадров над вызывающей функцией.
// Caller(0) описывает функцию, которая вызвала Caller.
func Caller(skip int) Site {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Site{File: "<unknown>", Func: "<unknown>"}
	}
	site := Site{File: filepath.Base(file), Line: line, Func: "<unknown>"}
	if fn := runtime.FuncForPC(pc); fn != nil {
		site.Func = shortFuncName(fn.Name())
	}
	return site
}

// shortFuncName превращает "github.com/x/api.(*httpClient).Create.func1" в "Create".
func shortFuncName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	parts := strings.Split(name, ".")
	// Отбрасываем суффиксы замыканий: func1, func2, ...
	for len(parts) > 1 && isClosure(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	return parts[len(parts)-1]
}

func isClosure(part string) bool {
	digits, ok := strings.CutPrefix(part, "func")
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// slogLogger пишет диагностику в slog с уровнем Warn.
type slogLogger struct {
	log *slog.Logger
}

// NewSlog оборачивает slog.Logger. При nil используется slog.Default().
func NewSlog(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{log: l}
}

func (l *slogLogger) Log(site Site, msg string) {
	l.log.Warn(msg, "file", site.File, "line", site.Line, "func", site.Func)
}

type nopLogger struct{}

func (nopLogger) Log(Site, string) {}

// Nop возвращает логгер, который ничего не делает.
func Nop() Logger {
	return nopLogger{}
}

// Entry - одна запись, сохраненная Recorder.
type Entry struct {
	Site    Site
	Message string
}

// Recorder запоминает все записи в памяти. Используется в тестах.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Log сохраняет запись.
func (r *Recorder) Log(site Site, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Site: site, Message: msg})
}

// Entries возвращает копию сохраненных записей.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages возвращает только тексты сообщений.
func (r *Recorder) Messages() []string {
	entries := r.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}
