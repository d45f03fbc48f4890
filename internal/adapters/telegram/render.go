package telegram

import (
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"el-estate-bot/internal/domain/commands"
	"el-estate-bot/internal/domain/stats"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	// maxMessageLen — запас до лимита Bot API в 4096 символов.
	maxMessageLen = 3800
	// maxCellRunes — ширина ячейки, после которой текст обрезается.
	maxCellRunes = 48
)

// newTable создаёт компактную таблицу без рамки, чтобы она помещалась на экран телефона.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateHeader = true
	t.Style().Format.Header = text.FormatDefault
	return t
}

// cell готовит текст ячейки: пустое — прочерк, длинное — обрезка с многоточием,
// чтобы одна строка таблицы всегда помещалась в сообщение.
func cell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	if utf8.RuneCountInString(s) <= maxCellRunes {
		return s
	}
	return string([]rune(s)[:maxCellRunes-1]) + "…"
}

// RenderAllowed рисует белый список. Результат может занять несколько сообщений.
func RenderAllowed(rows []commands.AllowedUser) []string {
	t := newTable()
	t.AppendHeader(table.Row{"#", "id", "нік", "імʼя"})
	for i, r := range rows {
		t.AppendRow(table.Row{i + 1, strconv.FormatInt(r.ID, 10), cell(r.Username), cell(r.FullName)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	return preMessages("👥 Дозволені користувачі ("+strconv.Itoa(len(rows))+")", t.Render())
}

func renderRank(rows []stats.Row) string {
	t := newTable()
	t.AppendHeader(table.Row{"#", "користувач", "кількість"})
	for i, r := range rows {
		t.AppendRow(table.Row{i + 1, cell(r.Label), r.Count})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignRight},
	})
	return t.Render()
}

// RenderStats рисует две таблицы: за сегодня и за текущую неделю.
func RenderStats(daily, weekly []stats.Row) []string {
	out := preMessages("📊 Статистика — сьогодні", renderRank(daily))
	return append(out, preMessages("📈 Статистика — цей тиждень", renderRank(weekly))...)
}

// preMessages оборачивает таблицу в <pre>, при необходимости режет её по строкам
// на несколько сообщений. Заголовок ставится только в первое.
func preMessages(title, body string) []string {
	var out []string
	var chunk strings.Builder
	head := html.EscapeString(title) + "\n"

	flush := func() {
		if chunk.Len() == 0 {
			return
		}
		out = append(out, head+"<pre>"+strings.TrimRight(chunk.String(), "\n")+"</pre>")
		head = ""
		chunk.Reset()
	}

	for _, line := range strings.Split(body, "\n") {
		escaped := html.EscapeString(line) + "\n"
		if chunk.Len()+len(escaped)+len(head) > maxMessageLen {
			flush()
		}
		chunk.WriteString(escaped)
	}
	flush()
	return out
}
