package main

import (
	"bufio"
	"context"
	"ctchen222/Chess-Room/internal/game"
	"ctchen222/Chess-Room/internal/logger"
	"ctchen222/Chess-Room/internal/msgcat"
	"ctchen222/Chess-Room/internal/participant"
	"ctchen222/Chess-Room/internal/render"
	"ctchen222/Chess-Room/internal/rules"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

const usage = `Commands:
  e2e4 | e2 e4 | e7e8n   propose a move (promotes to a queen unless q/r/b/n is given)
  new                    start a new game
  flip                   turn the board around
  quit                   leave`

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "websocket endpoint")
	roomID := flag.String("room", "", "room to join (server default when empty)")
	name := flag.String("name", "", "display name")
	token := flag.String("token", "", "token from /api/users/login or /api/users/guest")
	ascii := flag.Bool("ascii", false, "draw pieces as letters")
	messagesDir := flag.String("messages", os.Getenv("MESSAGES_DIR"), "directory with a messages.en.yaml override")
	verbose := flag.Bool("v", false, "log debug output to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(logger.New(os.Stderr, level))

	catalog, err := msgcat.Load(*messagesDir)
	if err != nil {
		log.Fatalf("failed to load messages: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoint, err := buildURL(*serverURL, *roomID, *name, *token)
	if err != nil {
		log.Fatalf("bad server url: %v", err)
	}
	conn, err := participant.Dial(ctx, endpoint)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	p := participant.New(participant.Options{
		Engine:  rules.New(),
		Sender:  conn,
		Catalog: catalog,
		Render:  drawer(os.Stdout, *ascii),
	})

	listenDone := make(chan error, 1)
	go func() { listenDone <- conn.Listen(ctx, p) }()

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	fmt.Println(usage)
	for {
		select {
		case err := <-listenDone:
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleCommand(ctx, p, line); quit {
				return
			}
		}
	}
}

func buildURL(base, roomID, name, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if roomID != "" {
		q.Set("room", roomID)
	}
	if name != "" {
		q.Set("name", name)
	}
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- strings.TrimSpace(scanner.Text())
	}
}

func handleCommand(ctx context.Context, p *participant.Participant, line string) bool {
	switch strings.ToLower(line) {
	case "":
		return false
	case "quit", "exit":
		return true
	case "new":
		if err := p.RequestNewGame(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return false
	case "flip":
		p.Flip()
		return false
	case "help", "?":
		fmt.Println(usage)
		return false
	}

	mv, err := game.ParseUCI(strings.ReplaceAll(line, " ", ""))
	if err != nil {
		fmt.Println(usage)
		return false
	}
	if mv.Promotion != "" {
		_ = p.ProposeLocalPromotion(ctx, mv.From, mv.To, mv.Promotion)
		return false
	}
	// Pawns reaching the last rank become queens.
	_ = p.ProposeLocalMove(ctx, mv.From, mv.To)
	return false
}

func drawer(w io.Writer, ascii bool) participant.RenderFunc {
	return func(f participant.Frame) {
		fmt.Fprintln(w)
		if f.HasBoard {
			_ = render.Text(w, f.Board, render.Options{Flip: f.Flip, Highlight: f.Highlight, ASCII: ascii})
		}
		if f.Status != "" {
			fmt.Fprintln(w, f.Status)
		}
		if f.Turn != "" {
			fmt.Fprintln(w, f.Turn)
		}
		fmt.Fprint(w, "> ")
	}
}
