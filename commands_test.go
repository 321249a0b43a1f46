package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wfunc/pebbles/client"
	"github.com/wfunc/pebbles/config"
	"github.com/wfunc/pebbles/game"
	"github.com/wfunc/pebbles/server"
	"github.com/wfunc/pebbles/session"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("PEBBLES_RANDOM_SEED", "7")
	cfg, err := config.LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	return &App{Config: cfg, Context: context.Background()}
}

func TestApp_NewSessionWiresMonitor(t *testing.T) {
	app := newTestApp(t)
	sess, mon := app.NewSession()

	p := app.DefaultParams()
	if _, err := sess.Initialize(app.Context, session.Params(p)); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := sess.GiveUp(app.Context); err != nil {
		t.Fatalf("GiveUp failed: %v", err)
	}

	if got := testutil.ToFloat64(mon.Metrics().GamesStarted.WithLabelValues("Easy")); got != 1 {
		t.Errorf("Expected 1 game started, got %v", got)
	}
	if got := testutil.ToFloat64(mon.Metrics().Wins.WithLabelValues("Program")); got != 1 {
		t.Errorf("Expected 1 program win, got %v", got)
	}
}

func TestApp_RulesFromConfig(t *testing.T) {
	app := newTestApp(t)
	app.Config.Game.Rules.AwardProgramOnRestart = false
	sess, _ := app.NewSession()

	p := session.Params(app.DefaultParams())
	if _, err := sess.Initialize(app.Context, p); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	reply, err := sess.Restart(app.Context, p)
	if err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if *reply.Event != game.Restarted() {
		t.Errorf("Expected Restarted, got %v", reply.Event)
	}
}

func TestApp_PlayDefaults(t *testing.T) {
	app := newTestApp(t)
	sess, _ := app.NewSession()

	var out bytes.Buffer
	player := client.NewPlayer(server.NewGameServer(sess), &out, app.DefaultParams())
	if err := player.Run(app.Context, strings.NewReader("new\nstate\nquit\n")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Pile: 15/15") {
		t.Errorf("Expected the configured default pile, got:\n%s", out.String())
	}
}
