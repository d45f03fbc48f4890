// Package cli — интерактивная консоль оператора. Читает команды из readline и
// выполняет их через commands.Executor: проверка состояния, белый список, статистика.
// Встраивается в lifecycle: Start/Stop идемпотентны.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"el-estate-bot/internal/domain/commands"
	"el-estate-bot/internal/domain/stats"
	"el-estate-bot/internal/infra/logger"
	"el-estate-bot/internal/infra/pr"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// commandTimeout ограничивает одну команду консоли.
const commandTimeout = 10 * time.Second

// commandDescriptor описывает одну CLI-команду: её имя и краткое описание для help.
type commandDescriptor struct {
	name        string
	args        string
	description string
}

// commandDescriptors — реестр команд. Имена совпадают с кейсами в execute().
var commandDescriptors = []commandDescriptor{
	{name: "help", description: "Show available commands"},
	{name: "status", description: "Check store and browser, show whitelist size and uptime"},
	{name: "allowed", description: "Print whitelisted users"},
	{name: "stats", description: "Print daily and weekly usage"},
	{name: "allow", args: "<id>", description: "Add user to whitelist"},
	{name: "deny", args: "<id>", description: "Remove user from whitelist"},
	{name: "version", description: "Print bot version"},
	{name: "exit", description: "Stop CLI and terminate the service"},
}

// IsInteractive сообщает, подключены ли stdin и stdout к терминалу.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Service — консоль оператора.
type Service struct {
	exec      commands.Executor
	stopApp   context.CancelFunc // остановка всего приложения (exit, Ctrl-C на пустой строке)
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	onceStart sync.Once
	onceStop  sync.Once
}

// NewService создаёт консоль поверх исполнителя команд.
func NewService(exec commands.Executor, stopApp context.CancelFunc) *Service {
	return &Service{exec: exec, stopApp: stopApp}
}

// Start инициализирует readline и запускает цикл чтения в фоне.
func (s *Service) Start(ctx context.Context) error {
	var err error
	s.onceStart.Do(func() {
		if err = pr.Init("> "); err != nil {
			return
		}
		logger.SetWriters(pr.Stdout(), pr.Stderr())
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.wg.Go(func() { s.run(runCtx) })
	})
	return err
}

// Stop прерывает readline, дожидается цикла и возвращает логи в системные потоки.
func (s *Service) Stop() {
	s.onceStop.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		pr.Interrupt()
		s.wg.Wait()
		logger.SetWriters(nil, nil)
		pr.Close()
	})
}

func (s *Service) run(ctx context.Context) {
	pr.Println("CLI started. Commands:", joinCommandNames(commandDescriptors))
	for ctx.Err() == nil {
		line, err := pr.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl-C на пустой строке останавливает приложение, на непустой очищает строку.
			if strings.TrimSpace(line) == "" && s.stopApp != nil {
				s.stopApp()
				return
			}
			continue
		}
		if err != nil {
			logger.Debug("CLI: input closed", zap.Error(err))
			return
		}
		if s.execute(ctx, line) {
			return
		}
	}
}

// execute выполняет одну строку. Возвращает true для команды exit.
func (s *Service) execute(parent context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "help", "?":
		printCommandHelp()
	case "status":
		s.printStatus(ctx)
	case "allowed":
		s.printAllowed(ctx)
	case "stats":
		s.printStats(ctx)
	case "allow", "deny":
		s.changeWhitelist(ctx, cmd, args)
	case "version":
		v, _ := s.exec.Version(ctx)
		pr.Printf("%s %s (%s)\n", v.Name, v.Version, v.Commit)
	case "exit", "quit":
		if s.stopApp != nil {
			s.stopApp()
		}
		return true
	default:
		pr.ErrPrintln("unknown command:", cmd)
	}
	return false
}

func (s *Service) printStatus(ctx context.Context) {
	st, err := s.exec.Status(ctx)
	if err != nil {
		pr.ErrPrintln("status error:", err)
		return
	}
	pr.Printf("store: %s\n", okLabel(st.StoreOK))
	pr.Printf("browser: %s\n", okLabel(st.BrowserOK))
	if st.WhitelistSize >= 0 {
		pr.Printf("whitelist: %d users\n", st.WhitelistSize)
	} else {
		pr.Println("whitelist: <unavailable>")
	}
	pr.Printf("admins: %v\n", st.Admins)
	pr.Printf("uptime: %s (now %s)\n", st.Uptime.Truncate(time.Second), st.Now.Format(time.RFC3339))
}

func (s *Service) printAllowed(ctx context.Context) {
	res, err := s.exec.Allowed(ctx)
	if err != nil {
		pr.ErrPrintln("allowed error:", err)
		return
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"id", "username", "full name"})
	for _, u := range res.Users {
		t.AppendRow(table.Row{u.ID, u.Username, u.FullName})
	}
	t.AppendFooter(table.Row{"total", len(res.Users), ""})
	pr.Println(t.Render())
}

func (s *Service) printStats(ctx context.Context) {
	res, err := s.exec.Stats(ctx)
	if err != nil {
		pr.ErrPrintln("stats error:", err)
		return
	}
	pr.Println(rankTable("today", res.Daily))
	pr.Println(rankTable("this week", res.Weekly))
}

func rankTable(title string, rows []stats.Row) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "user", "count"})
	for i, r := range rows {
		t.AppendRow(table.Row{i + 1, r.Label, r.Count})
	}
	return t.Render()
}

func (s *Service) changeWhitelist(ctx context.Context, cmd string, args []string) {
	if len(args) != 1 {
		pr.ErrPrintf("usage: %s <id>\n", cmd)
		return
	}
	uid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		pr.ErrPrintln("invalid id:", args[0])
		return
	}
	if cmd == "allow" {
		err = s.exec.Allow(ctx, uid)
	} else {
		err = s.exec.Deny(ctx, uid)
	}
	if err != nil {
		pr.ErrPrintf("%s error: %v\n", cmd, err)
		return
	}
	pr.Printf("%s: %d done\n", cmd, uid)
}

func okLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

// printCommandHelp печатает список поддерживаемых команд и их описания.
func printCommandHelp() {
	for _, text := range buildCommandHelpLines(commandDescriptors) {
		pr.Println(text)
	}
}

// joinCommandNames собирает строку имён команд, разделённых запятыми, для короткой подсказки.
func joinCommandNames(descriptors []commandDescriptor) string {
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.name)
	}
	return strings.Join(names, ", ")
}

// buildCommandHelpLines генерирует строки помощи вида "<name> <args> - <description>".
func buildCommandHelpLines(descriptors []commandDescriptor) []string {
	lines := make([]string, 0, len(descriptors)+1)
	lines = append(lines, "Available commands:")
	for _, d := range descriptors {
		lines = append(lines, fmt.Sprintf("  %-13s - %s", strings.TrimSpace(d.name+" "+d.args), d.description))
	}
	return lines
}
