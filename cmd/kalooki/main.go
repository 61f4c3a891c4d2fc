// cmd/kalooki/main.go is a terminal client: it registers, waits in the lobby
// until the table is full, then plays through stdin commands.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/kalooki/internal/client"
	"github.com/jason-s-yu/kalooki/internal/config"
	"github.com/jason-s-yu/kalooki/internal/events"
	"github.com/jason-s-yu/kalooki/internal/journal"
	"github.com/jason-s-yu/kalooki/internal/lobby"
	"github.com/jason-s-yu/kalooki/internal/session"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	name := flag.String("name", "", "username (random when empty)")
	game := flag.String("game", lobby.DefaultGameIdentifier, "game to join")
	networkFile := flag.String("network", config.DefaultNetworkFile, "network config file")
	flag.Parse()

	logger := logrus.New()
	cfg, err := config.LoadFrom(*networkFile, logger)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := client.New(cfg.BaseURL(), client.WithLogger(logger), client.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		logger.Fatal(err)
	}
	pub, closeJournal := openJournal(ctx, cfg, logger)
	defer closeJournal()

	if err := run(ctx, api, pub, cfg, logger, *name, *game); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("client stopped")
	}
}

// openJournal publishes actions to Redis when REDIS_ADDR is set.
func openJournal(ctx context.Context, cfg config.Config, logger *logrus.Logger) (journal.Publisher, func()) {
	if cfg.RedisAddr == "" {
		return journal.Nop{}, func() {}
	}
	rdb, err := journal.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Warn("journal disabled")
		return journal.Nop{}, func() {}
	}
	pub := journal.NewRedis(rdb, cfg.JournalQueue)
	return pub, func() { _ = pub.Close() }
}

func run(ctx context.Context, api *client.Client, pub journal.Publisher, cfg config.Config, logger *logrus.Logger, name, game string) error {
	lob := lobby.New(api, lobby.WithCapacity(cfg.LobbyCapacity), lobby.WithLogger(logger))
	if _, err := lob.Register(ctx, name); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	defer func() {
		leaveCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		if err := lob.Leave(leaveCtx); err != nil {
			logger.WithError(err).Warn("unregister failed")
		}
	}()

	conn, err := events.Dial(ctx, lob.WebsocketURL(), logger)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	lobbyDone := make(chan error, 1)
	go func() { lobbyDone <- events.NewListener(conn, logger).Run(ctx, lob) }()

	lob.Subscribe(func(roster []string) {
		fmt.Printf("players (%d/%d): %v\n", len(roster), cfg.LobbyCapacity, roster)
	})
	if _, err := lob.Join(ctx, game); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	fmt.Printf("joined game %s as %s. Commands: start, quit\n", lob.GameID(), lob.Username())

	lines := readLines(os.Stdin)
	if err := waitInLobby(ctx, lob, lines, lobbyDone); err != nil {
		return err
	}

	id, _ := lob.Identity()
	sess, err := enterGame(ctx, id, api,
		session.WithJournal(pub),
		session.WithLogger(logger),
		session.WithSessionID(api.SessionID()),
	)
	defer sess.Close()
	watchRound(sess)

	gameDone := make(chan error, 1)
	go func() { gameDone <- events.NewListener(conn, logger).Run(ctx, sess) }()

	fmt.Printf("game started, you are player %d. Type help for commands.\n", id.PlayerID())
	if err != nil {
		report(err)
	} else {
		render(id, sess.View())
	}
	return play(ctx, api, sess, lines, gameDone)
}

// enterGame opens the game session and loads the table. The server is not
// required to push a GameState after StartGameResponse, so the first snapshot
// is fetched here. The session is returned even when that fetch fails.
func enterGame(ctx context.Context, id session.Identity, gw session.Gateway, opts ...session.Option) (*session.Session, error) {
	sess := session.New(id, gw, opts...)
	_, err := sess.Refresh(ctx)
	return sess, err
}

func waitInLobby(ctx context.Context, lob *lobby.Lobby, lines <-chan string, done <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-lob.Started():
			<-done
			return nil
		case err := <-done:
			if errors.Is(err, events.ErrHandOff) {
				return nil
			}
			if err == nil {
				err = errors.New("server closed the connection")
			}
			return err
		case line, ok := <-lines:
			if !ok {
				return context.Canceled
			}
			switch line {
			case "start":
				if err := lob.Start(ctx); err != nil {
					report(err)
				}
			case "quit":
				return context.Canceled
			case "":
			default:
				fmt.Println("commands: start, quit")
			}
		}
	}
}

// readLines feeds stdin lines to a channel that closes at EOF.
func readLines(f *os.File) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

// report prints an error the way the player needs to see it.
func report(err error) {
	switch client.KindOf(err) {
	case client.KindPrecondition:
		fmt.Println("!", err)
	case client.KindTransport:
		fmt.Println("! could not reach the server:", err)
	case client.KindRejection:
		fmt.Println("! the server refused:", err)
	case client.KindProtocol:
		fmt.Println("! unexpected response:", err)
	default:
		fmt.Println("! error:", err)
	}
}
