package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
)

// lineInput 逐行读取用户输入 / reads user input one line at a time
type lineInput interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// scriptInput 读取管道或重定向的输入，每行一条命令
// scriptInput reads piped or redirected input, one command per line.
type scriptInput struct {
	lines *bufio.Scanner
	echo  io.Writer
}

func newScriptInput(r io.Reader, echo io.Writer) *scriptInput {
	return &scriptInput{lines: bufio.NewScanner(r), echo: echo}
}

func (s *scriptInput) ReadLine(prompt string) (string, error) {
	if s.echo != nil {
		fmt.Fprint(s.echo, prompt)
	}
	if s.lines.Scan() {
		return s.lines.Text(), nil
	}
	if err := s.lines.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scriptInput) Close() error { return nil }

// terminalInput readline 行编辑，带历史与命令补全
// terminalInput is readline line editing with history and command completion.
type terminalInput struct {
	rl *readline.Instance
}

func newTerminalInput(historyPath string) (*terminalInput, error) {
	if historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:       historyPath,
		HistorySearchFold: true,
		AutoComplete:      commandCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         ":quit",
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return &terminalInput{rl: rl}, nil
}

func (t *terminalInput) ReadLine(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	return t.rl.Readline()
}

func (t *terminalInput) Close() error {
	return t.rl.Close()
}

// commandCompleter 补全命令名；:view 与 :cancel 补全参数
// commandCompleter completes command names, and the arguments of :view and :cancel.
func commandCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		args := make([]readline.PrefixCompleterInterface, 0, len(c.args))
		for _, a := range c.args {
			args = append(args, readline.PcItem(a))
		}
		items = append(items, readline.PcItem(c.name, args...))
	}
	return readline.NewPrefixCompleter(items...)
}

// newLineInput 终端上用 readline，其余情况逐行读取 stdin
// newLineInput uses readline on a terminal and plain stdin lines otherwise. The
// returned error only reports why readline was skipped; the input is always usable.
func newLineInput(historyPath string) (lineInput, error) {
	if !readline.DefaultIsTerminal() {
		return newScriptInput(os.Stdin, os.Stdout), nil
	}
	term, err := newTerminalInput(historyPath)
	if err != nil {
		return newScriptInput(os.Stdin, os.Stdout), err
	}
	return term, nil
}
