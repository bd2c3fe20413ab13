package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

const linePrefix = "D 20:00:00.0000000 PowerTaskList.DebugPrintPower() - "

// matchLog is a one-turn match left open in combat.
var matchLog = []string{
	"CREATE_GAME",
	"    GameEntity EntityID=1",
	"        tag=STATE value=RUNNING",
	"    Player EntityID=2 PlayerID=1",
	"        tag=HERO_ENTITY value=10",
	"    Player EntityID=3 PlayerID=2",
	"        tag=HERO_ENTITY value=20",
	"FULL_ENTITY - Creating ID=10 CardID=HERO_A",
	"    tag=CARDTYPE value=HERO",
	"    tag=CONTROLLER value=1",
	"    tag=ZONE value=PLAY",
	"    tag=HEALTH value=30",
	"FULL_ENTITY - Creating ID=20 CardID=HERO_B",
	"    tag=CARDTYPE value=HERO",
	"    tag=CONTROLLER value=2",
	"    tag=ZONE value=PLAY",
	"    tag=HEALTH value=30",
	"TAG_CHANGE Entity=GameEntity tag=TURN value=1",
	"TAG_CHANGE Entity=2 tag=NEXT_OPPONENT_PLAYER_ID value=2",
	"TAG_CHANGE Entity=GameEntity tag=BACON_COMBAT_SETUP value=1",
	"TAG_CHANGE Entity=GameEntity tag=BACON_COMBAT_SETUP value=0",
}

type captureSink struct {
	mu      sync.Mutex
	matches []*recorder.MatchRecord
}

func (c *captureSink) WriteMatch(_ context.Context, m *recorder.MatchRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = append(c.matches, m)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matches)
}

func writeLog(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Power.log")
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(linePrefix + line + "\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(path string) *Config {
	cfg := DefaultConfig()
	cfg.LogPath = path
	cfg.PollInterval = 10 * time.Millisecond
	cfg.UseFSNotify = false
	cfg.ReadFromStart = true
	cfg.ServeAPI = false
	cfg.StatusInterval = 0
	cfg.Port = 0
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestService_RequiresSession(t *testing.T) {
	svc := New(testConfig("Power.log"), Deps{})
	if err := svc.Start(); err == nil {
		t.Error("Expected Start to fail without a session")
	}
}

func TestService_ProcessesLogAndFlushesOnStop(t *testing.T) {
	sink := &captureSink{}
	session := recorder.NewSession(recorder.Options{Sink: sink})
	svc := New(testConfig(writeLog(t, matchLog)), Deps{Session: session})

	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, "lines to be processed", func() bool {
		return svc.GetHealth().Metrics.TotalProcessed == int64(len(matchLog))
	})

	st := session.Snapshot()
	if !st.InMatch || st.CombatPhase != "active" {
		t.Errorf("Expected an active combat, got inMatch=%v phase=%s", st.InMatch, st.CombatPhase)
	}

	health := svc.GetHealth()
	if health.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", health.Status)
	}
	if !health.Recorder.InMatch || health.Recorder.Turn != 1 {
		t.Errorf("Unexpected recorder health: %+v", health.Recorder)
	}
	if health.LogMonitor.LastRead == "" {
		t.Error("Expected lastRead to be set")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("Expected the open match to be written on Stop, got %d", sink.count())
	}
	if turns := len(sink.matches[0].Turns); turns != 1 {
		t.Errorf("Expected 1 turn, got %d", turns)
	}
}

func TestService_FollowsAppendedLines(t *testing.T) {
	path := writeLog(t, nil)
	session := recorder.NewSession(recorder.Options{})
	svc := New(testConfig(path), Deps{Session: session})
	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = svc.Stop() }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range matchLog[:3] {
		if _, err := f.WriteString(linePrefix + line + "\n"); err != nil {
			t.Fatal(err)
		}
	}
	_ = f.Close()

	waitFor(t, "match to open", func() bool { return session.Snapshot().InMatch })
}

func TestService_APIAndGameState(t *testing.T) {
	live := NewLiveState()
	session := recorder.NewSession(recorder.Options{Live: live})
	cfg := testConfig(writeLog(t, nil))
	cfg.ServeAPI = true
	svc := New(cfg, Deps{Session: session, Live: live})
	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = svc.Stop() }()

	resp, err := http.Get("http://" + svc.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	var health HealthStatus
	err = json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || health.Status != "healthy" {
		t.Errorf("Unexpected health: %d %+v", resp.StatusCode, health)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+svc.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	frame := `{"type":"game:state","data":{"gameType":"GT_BATTLEGROUNDS","localPlayerId":3,"heroes":{"3":44}}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "live state update", func() bool { return live.LocalPlayerID() == 3 })
	if live.HeroEntityID(3) != 44 {
		t.Errorf("Expected hero 44, got %d", live.HeroEntityID(3))
	}
}

func TestService_DegradedOnErrors(t *testing.T) {
	svc := New(testConfig("Power.log"), Deps{Session: recorder.NewSession(recorder.Options{})})
	svc.totalProcessed = 10
	svc.totalErrors = 5

	healthy, body := svc.health()
	if healthy {
		t.Error("Expected unhealthy with a 50% error rate")
	}
	if body.(*HealthStatus).Status != "degraded" {
		t.Errorf("Expected degraded, got %s", body.(*HealthStatus).Status)
	}
}
