// client/client.go
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wfunc/pebbles/game"
	"github.com/wfunc/pebbles/protocol"
	"github.com/wfunc/pebbles/session"
)

// Exchanger sends one request packet and returns the answer.
type Exchanger interface {
	Exchange(ctx context.Context, p *protocol.Packet) (*protocol.Packet, error)
}

var errQuit = errors.New("quit")

const usage = `Commands:
  new [N M easy|hard]      start a game (defaults from config)
  take N                   remove N pebbles
  giveup                   concede the game
  restart [N M easy|hard]  replace the game
  state                    show the pile
  help                     show this text
  quit                     leave`

type styles struct {
	prompt lipgloss.Style
	info   lipgloss.Style
	win    lipgloss.Style
	loss   lipgloss.Style
	err    lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		prompt: r.NewStyle().Foreground(lipgloss.Color("63")).Bold(true),
		info:   r.NewStyle().Foreground(lipgloss.Color("250")),
		win:    r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		loss:   r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		err:    r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Player plays one interactive game against an Exchanger.
type Player struct {
	ex       Exchanger
	out      io.Writer
	defaults protocol.GameParams
	styles   styles
}

// NewPlayer writes to out. defaults fill in new and restart when the
// command gives no parameters.
func NewPlayer(ex Exchanger, out io.Writer, defaults protocol.GameParams) *Player {
	return &Player{ex: ex, out: out, defaults: defaults, styles: newStyles(out)}
}

// Run reads commands from in until quit, end of input or ctx is done.
// Rejected commands are reported and the loop continues; only exchange
// failures end it with an error. Input is scanned on its own goroutine; a
// read still blocked when Run returns is abandoned.
func (p *Player) Run(ctx context.Context, in io.Reader) error {
	p.println(p.styles.info.Render(usage))

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(p.out, p.styles.prompt.Render("pebbles> "))

		var line string
		select {
		case <-ctx.Done():
			p.println("")
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				p.println("")
				return <-scanErr
			}
			line = l
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := p.Execute(ctx, line)
		if errors.Is(err, errQuit) {
			p.println(p.styles.info.Render("Bye."))
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Execute runs a single command line.
func (p *Player) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "new", "start":
		params, err := p.parseParams(fields[1:])
		if err != nil {
			p.printError(err)
			return nil
		}
		return p.request(ctx, protocol.MsgTypeInitialize, params)
	case "take":
		if len(fields) != 2 {
			p.printError(errors.New("usage: take N"))
			return nil
		}
		n, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			p.printError(fmt.Errorf("not a pebble count: %q", fields[1]))
			return nil
		}
		return p.request(ctx, protocol.MsgTypeTurn, protocol.TurnRequest{Amount: uint32(n)})
	case "giveup", "give-up":
		return p.request(ctx, protocol.MsgTypeGiveUp, nil)
	case "restart":
		params, err := p.parseParams(fields[1:])
		if err != nil {
			p.printError(err)
			return nil
		}
		return p.request(ctx, protocol.MsgTypeRestart, params)
	case "state":
		return p.request(ctx, protocol.MsgTypeQueryState, nil)
	case "help", "?":
		p.println(p.styles.info.Render(usage))
		return nil
	case "quit", "exit":
		return errQuit
	}

	p.printError(fmt.Errorf("unknown command %q, try help", fields[0]))
	return nil
}

func (p *Player) parseParams(args []string) (protocol.GameParams, error) {
	params := p.defaults
	switch len(args) {
	case 0:
		return params, nil
	case 2, 3:
	default:
		return params, errors.New("expected N M [easy|hard]")
	}

	count, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return params, fmt.Errorf("not a pebble count: %q", args[0])
	}
	perTurn, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return params, fmt.Errorf("not a pebble count: %q", args[1])
	}
	params.PebblesCount, params.MaxPebblesPerTurn = uint32(count), uint32(perTurn)

	if len(args) == 3 {
		if params.Difficulty, err = game.ParseDifficulty(args[2]); err != nil {
			return params, err
		}
	}
	return params, nil
}

func (p *Player) request(ctx context.Context, msgID uint16, payload any) error {
	reply, err := p.exchange(ctx, msgID, payload)
	if err != nil || reply == nil {
		return err
	}

	if reply.Error != "" {
		p.printError(errors.New(reply.Error))
		return nil
	}
	if reply.Event != nil {
		p.printEvent(msgID, *reply.Event)
	}

	st := reply.State
	if st == nil {
		// Events carry no pile; follow up with a state query.
		follow, err := p.exchange(ctx, protocol.MsgTypeQueryState, nil)
		if err != nil {
			return err
		}
		if follow != nil {
			st = follow.State
		}
	}
	if st != nil {
		p.printState(*st)
	}
	return nil
}

// exchange returns a nil reply when the server answered with an error
// packet, after printing it.
func (p *Player) exchange(ctx context.Context, msgID uint16, payload any) (*session.Reply, error) {
	req, err := protocol.NewPacket(msgID, payload)
	if err != nil {
		return nil, err
	}
	resp, err := p.ex.Exchange(ctx, req)
	if err != nil {
		return nil, err
	}

	switch resp.MsgID {
	case protocol.MsgTypeReply:
		var reply session.Reply
		if err := resp.Decode(&reply); err != nil {
			return nil, err
		}
		return &reply, nil
	case protocol.MsgTypeError:
		var e protocol.ErrorReply
		if err := resp.Decode(&e); err != nil {
			return nil, err
		}
		p.printError(errors.New(e.Error))
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected message type %d", resp.MsgID)
}

func (p *Player) printEvent(msgID uint16, evt game.Event) {
	switch evt.Kind {
	case game.EventWon:
		if evt.Winner == game.User {
			p.println(p.styles.win.Render("You took the last pebble. You win!"))
		} else {
			p.println(p.styles.loss.Render("The program wins."))
		}
	case game.EventCounterTurn:
		if msgID == protocol.MsgTypeTurn {
			p.println(p.styles.info.Render(fmt.Sprintf("Turn played (%d).", evt.Count)))
		}
	case game.EventRestarted:
		p.println(p.styles.info.Render("New game."))
	}
}

func (p *Player) printState(st game.GameState) {
	winner := "-"
	if st.Winner != nil {
		winner = st.Winner.String()
	}
	p.println(p.styles.info.Render(fmt.Sprintf("Pile: %d/%d  Max per turn: %d  Difficulty: %s  Winner: %s",
		st.PebblesRemaining, st.PebblesCount, st.MaxPebblesPerTurn, st.Difficulty, winner)))
}

func (p *Player) printError(err error) {
	p.println(p.styles.err.Render("Error: " + err.Error()))
}

func (p *Player) println(s string) {
	fmt.Fprintln(p.out, s)
}

