package main

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/wfunc/pebbles/broadcast"
	"github.com/wfunc/pebbles/client"
	"github.com/wfunc/pebbles/config"
	"github.com/wfunc/pebbles/logger"
	"github.com/wfunc/pebbles/monitor"
	"github.com/wfunc/pebbles/protocol"
	"github.com/wfunc/pebbles/random"
	"github.com/wfunc/pebbles/server"
	"github.com/wfunc/pebbles/session"
)

// App carries what every command needs.
type App struct {
	Config  *config.Config
	Context context.Context
}

// NewSession wires the random source, broadcaster and monitor around a new
// session.
func (a *App) NewSession() (*session.Session, *monitor.Monitor) {
	mon := monitor.NewMonitor(a.Config.Monitor.Namespace)

	b := broadcast.NewEventBroadcaster()
	b.Subscribe(mon)
	b.Subscribe(broadcast.ListenerFunc(func(n broadcast.Notice) error {
		logger.Log.Debugw("Game notice", "game_id", n.GameID, "op", n.Op,
			"pebbles_remaining", n.State.PebblesRemaining, "error", n.Err)
		return nil
	}))

	if a.Config.Random.Seed != 0 {
		logger.Log.Warnf("Using seeded randomness (seed %d)", a.Config.Random.Seed)
	}
	src := random.New(a.Config.Random.Seed)

	sess := session.NewSession(src,
		session.WithBroadcaster(b),
		session.WithMonitor(mon),
		session.WithRules(a.Config.Game.Rules.GameRules()),
	)
	return sess, mon
}

// DefaultParams returns the configured game used when a command gives none.
func (a *App) DefaultParams() protocol.GameParams {
	return protocol.GameParams{
		PebblesCount:      a.Config.Game.PebblesCount,
		MaxPebblesPerTurn: a.Config.Game.MaxPebblesPerTurn,
		Difficulty:        a.Config.Game.DifficultyLevel(),
	}
}

type ServeCmd struct {
	MetricsAddr string `help:"Serve /metrics on this address (overrides monitor.address)"`
}

func (c *ServeCmd) Run(app *App) error {
	sess, mon := app.NewSession()
	srv := server.NewGameServer(sess)

	addr := app.Config.Monitor.Address
	if c.MetricsAddr != "" {
		addr = c.MetricsAddr
	}

	ctx, cancel := context.WithCancel(app.Context)
	defer cancel()

	// The metrics server stops once the request stream ends.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Serve(ctx, protocol.NewStreamConnection(os.Stdin, os.Stdout))
	})
	if addr != "" {
		g.Go(func() error {
			return mon.StartServer(ctx, addr)
		})
	}
	return g.Wait()
}

type PlayCmd struct{}

func (c *PlayCmd) Run(app *App) error {
	sess, _ := app.NewSession()
	player := client.NewPlayer(server.NewGameServer(sess), os.Stdout, app.DefaultParams())
	return player.Run(app.Context, os.Stdin)
}
