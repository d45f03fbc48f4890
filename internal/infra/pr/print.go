// Package pr — вывод операторской консоли. До Init печатает в os.Stdout/os.Stderr,
// после Init — в буферы readline, чтобы строки логов и ответы команд не ломали
// строку ввода.
package pr

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kr/pretty"
)

var (
	mu     sync.Mutex
	rl     *readline.Instance
	stdin  io.Closer
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// Init создаёт readline с отменяемым stdin и переключает вывод на него.
func Init(prompt string) error {
	cs := readline.NewCancelableStdin(os.Stdin)
	inst, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		Stdin:           cs,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		_ = cs.Close()
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	rl, stdin = inst, cs
	out, errOut = inst.Stdout(), inst.Stderr()
	return nil
}

// Readline читает строку ввода. До Init возвращает io.EOF.
func Readline() (string, error) {
	mu.Lock()
	inst := rl
	mu.Unlock()
	if inst == nil {
		return "", io.EOF
	}
	return inst.Readline()
}

// Interrupt прерывает ожидание ввода: Readline вернёт io.EOF.
func Interrupt() {
	mu.Lock()
	defer mu.Unlock()
	if stdin != nil {
		_ = stdin.Close()
	}
}

// Close закрывает readline и возвращает вывод в системные потоки.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if rl != nil {
		_ = rl.Close()
	}
	rl, stdin = nil, nil
	out, errOut = os.Stdout, os.Stderr
}

// Stdout возвращает текущий поток вывода.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// Stderr возвращает текущий поток ошибок.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return errOut
}

// SetOutput подменяет потоки вывода (nil — системные). Используется в тестах.
func SetOutput(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	out, errOut = stdout, stderr
}

// Println печатает строку в Stdout.
func Println(a ...any) { fmt.Fprintln(Stdout(), a...) }
func Printf(format string, a ...any) { fmt.Fprintf(Stdout(), format, a...) }
func ErrPrintln(a ...any) { fmt.Fprintln(Stderr(), a...) }
func ErrPrintf(format string, a ...any) { fmt.Fprintf(Stderr(), format, a...) }

// PP печатает значение через kr/pretty.
func PP(v any) {
	fmt.Fprintf(Stdout(), "%# v\n", pretty.Formatter(v))
}

// Pf возвращает pretty-представление значения.
func Pf(v any) string {
	return fmt.Sprintf("%# v", pretty.Formatter(v))
}
