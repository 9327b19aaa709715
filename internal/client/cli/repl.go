package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

type view int

const (
	viewLoading view = iota
	viewSignedOut
	viewSignedIn
)

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	view() view
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	NewWorkout(ctx context.Context) error
	History(ctx context.Context) error
}

const (
	msgLoading     = "Carregando..."
	msgUnavailable = "Comando indisponível neste momento. Digite help para ver as opções."
)

// runREPL reads one command per line and dispatches it according to the
// current view. It returns on EOF or on "exit" / "quit". Handler errors are
// not printed here; handlers report to the user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("workoutlog [%s] > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Até logo!")
			return
		}

		v := a.view()
		if v == viewLoading {
			printlnFn(msgLoading)
			continue
		}

		switch {
		case cmd == "help" || cmd == "ajuda":
			if v == viewSignedIn {
				printlnFn("Comandos: novo, historico, sair, exit")
			} else {
				printlnFn("Comandos: login, cadastro, exit")
			}

		case v == viewSignedOut && (cmd == "login" || cmd == "entrar"):
			_ = a.Login(ctx)

		case v == viewSignedOut && (cmd == "cadastro" || cmd == "register"):
			_ = a.Register(ctx)

		case v == viewSignedIn && (cmd == "novo" || cmd == "add"):
			_ = a.NewWorkout(ctx)

		case v == viewSignedIn && (cmd == "historico" || cmd == "histórico" || cmd == "l"):
			_ = a.History(ctx)

		case v == viewSignedIn && (cmd == "sair" || cmd == "logout"):
			_ = a.Logout(ctx)

		case isKnown(cmd):
			printlnFn(msgUnavailable)

		default:
			printlnFn("Comando desconhecido:", cmd)
		}
	}
}

func isKnown(cmd string) bool {
	switch cmd {
	case "login", "entrar", "cadastro", "register", "novo", "add", "historico", "histórico", "l", "sair", "logout":
		return true
	}
	return false
}
