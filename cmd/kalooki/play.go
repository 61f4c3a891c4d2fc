// cmd/kalooki/play.go
package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jason-s-yu/kalooki/internal/client"
	"github.com/jason-s-yu/kalooki/internal/session"
)

const helpText = `commands:
  show             print the table
  sel N [N...]     toggle selection of hand positions
  draw             draw from the stock
  pickup           take the discard pile with the selected cards
  open             open with the selected cards
  points           add the selected cards to your team's points
  discard          discard the one selected card
  refresh          fetch the table again
  next             deal the next round
  quit             leave`

func play(ctx context.Context, api *client.Client, sess *session.Session, lines <-chan string, done <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			if err == nil {
				err = errors.New("server closed the connection")
			}
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := dispatch(ctx, api, sess, line); quit {
				return nil
			}
		}
	}
}

func dispatch(ctx context.Context, api *client.Client, sess *session.Session, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	var err error
	switch fields[0] {
	case "show":
		render(sess.Identity(), sess.View())
	case "sel":
		err = toggle(sess, fields[1:])
		if err == nil {
			fmt.Println("selected:", sess.SelectedIndices())
		}
	case "draw":
		err = sess.Draw(ctx)
	case "pickup":
		err = sess.PickupDiscardPile(ctx)
	case "open":
		err = sess.Open(ctx)
	case "points":
		err = sess.AddPoints(ctx)
	case "discard":
		err = sess.Discard(ctx)
	case "refresh":
		_, err = sess.Refresh(ctx)
	case "next":
		err = api.StartGame(ctx, sess.Identity().GameID())
	case "quit":
		return true
	default:
		fmt.Println(helpText)
		return false
	}
	if err != nil {
		report(err)
		return false
	}
	if fields[0] != "show" && fields[0] != "sel" {
		render(sess.Identity(), sess.View())
	}
	return false
}

func toggle(sess *session.Session, args []string) error {
	if len(args) == 0 {
		return &client.PreconditionError{Op: "sel", Reason: "give one or more hand positions"}
	}
	for _, a := range args {
		i, err := strconv.Atoi(a)
		if err != nil {
			return &client.PreconditionError{Op: "sel", Reason: fmt.Sprintf("%q is not a hand position", a)}
		}
		if err := sess.Toggle(i); err != nil {
			return err
		}
	}
	return nil
}

// watchRound prints round and game ends as they are applied. Callbacks run one
// at a time, so last needs no lock.
func watchRound(sess *session.Session) {
	var last session.TurnState
	sess.Subscribe(func(v session.View) {
		if v.Turn.RoundOver && !last.RoundOver && v.LastRound != nil {
			fmt.Printf("round over: team 1 %d, team 2 %d. Type next to deal again.\n", v.LastRound.Team1, v.LastRound.Team2)
		}
		if v.Turn.GameOver && !last.GameOver {
			fmt.Println("game over")
		}
		if !v.Turn.RoundOver && last.RoundOver {
			fmt.Println("new round dealt")
		}
		last = v.Turn
	})
}
