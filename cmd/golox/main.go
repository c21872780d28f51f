// Command golox runs scripts from files or an interactive prompt.
//
// With a path argument the script is executed and the process exits 0 on
// success, 65 on compile errors and 70 on runtime errors. Without
// arguments an interactive session starts; global state persists across
// lines and a trailing expression without a semicolon prints its value.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	lox "github.com/xirelogy/go-lox"
	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/scanner"
	"github.com/xirelogy/go-lox/internal/token"
)

func main() {
	engineName := flag.String("engine", "vm", "execution engine: vm or tree")
	dis := flag.Bool("dis", false, "disassemble the script instead of running it")
	trace := flag.Bool("trace", false, "log instruction dispatch to stderr (vm engine only)")
	flag.Parse()

	engine, ok := parseEngine(*engineName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown engine %q (want vm or tree)\n", *engineName)
		os.Exit(64)
	}

	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "usage: golox [flags] [script]")
		os.Exit(64)
	}

	if *dis {
		if flag.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "usage: golox -dis script")
			os.Exit(64)
		}
		os.Exit(disassembleFile(flag.Arg(0)))
	}

	in := lox.NewInterpreter(engine)
	if *trace {
		in.SetTraceHook(func(info lox.TraceInfo) {
			fmt.Fprintf(os.Stderr, "[trace] %04d %-16s %s line %d\n",
				info.IP, bytecode.Name(info.Op), info.Function, info.Line)
		})
	}

	if flag.NArg() == 1 {
		status, err := in.RunFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(status.ExitCode())
	}

	repl(in)
}

func parseEngine(name string) (lox.Engine, bool) {
	switch name {
	case "vm":
		return lox.EngineVM, true
	case "tree":
		return lox.EngineTree, true
	default:
		return lox.EngineVM, false
	}
}

func disassembleFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 65
	}
	listing, err := lox.Disassemble(path, string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 65
	}
	fmt.Print(listing)
	return 0
}

func repl(in *lox.Interpreter) {
	fmt.Println("golox interactive session (:help for commands)")
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if !replCommand(in, line) {
				return
			}
			continue
		}
		if _, err := in.RunRepl(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// replCommand handles colon commands; it returns false when the session
// should end.
func replCommand(in *lox.Interpreter, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":exit", ":quit":
		return false
	case ":help":
		fmt.Println(":exit        end the session")
		fmt.Println(":lex CODE    show the token stream for CODE")
		fmt.Println(":dis CODE    show the bytecode for CODE")
		fmt.Println(":load PATH   run a script file in this session")
		fmt.Println(":help        show this help")
	case ":lex":
		if arg == "" {
			fmt.Fprintln(os.Stderr, "usage: :lex CODE")
			break
		}
		lexDump(arg)
	case ":dis":
		if arg == "" {
			fmt.Fprintln(os.Stderr, "usage: :dis CODE")
			break
		}
		listing, err := lox.Disassemble("<repl>", arg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			break
		}
		fmt.Print(listing)
	case ":load":
		if arg == "" {
			fmt.Fprintln(os.Stderr, "usage: :load PATH")
			break
		}
		if _, err := in.RunFile(arg); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s (:help for commands)\n", cmd)
	}
	return true
}

func lexDump(src string) {
	sc := scanner.New(src)
	for {
		tok := sc.NextToken()
		fmt.Printf("%4d %-14s %q\n", tok.Line, tok.Kind, tok.Lexeme)
		if tok.Kind == token.EOF {
			return
		}
	}
}
