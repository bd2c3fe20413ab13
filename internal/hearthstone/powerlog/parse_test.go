package powerlog

import (
	"errors"
	"testing"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

func TestParseLine_Kinds(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Kind
	}{
		{name: "blank", line: "   ", want: KindNone},
		{name: "unrecognized", line: "D 19:33:27.3917220 PowerTaskList.DebugDump() - ID=1 ParentID=0", want: KindNone},
		{name: "create game", line: "D 19:33:27.3917220 PowerTaskList.DebugPrintPower() - CREATE_GAME", want: KindCreateGame},
		{name: "game entity", line: "D 19:33:27.3917220 PowerTaskList.DebugPrintPower() -     GameEntity EntityID=1", want: KindGameEntity},
		{name: "player entity", line: "    Player EntityID=2 PlayerID=1 GameAccountId=[hi=1 lo=2]", want: KindPlayerEntity},
		{name: "tag line", line: "D 19:33:27.3917220 PowerTaskList.DebugPrintPower() -         tag=ZONE value=PLAY", want: KindTagLine},
		{name: "tag change", line: "TAG_CHANGE Entity=GameEntity tag=TURN value=2 ", want: KindTagChange},
		{name: "show entity", line: "SHOW_ENTITY - Updating Entity=[entityName=UNKNOWN ENTITY [cardType=INVALID] id=40 zone=SETASIDE zonePos=0 cardId= player=1] CardID=BGS_004", want: KindShowEntity},
		{name: "player name", line: "D 19:33:27.3917220 GameState.DebugPrintGame() - PlayerID=1, PlayerName=Finley#1234", want: KindPlayerName},
		{name: "game type", line: "D 19:33:27.3917220 GameState.DebugPrintGame() - GameType=GT_BATTLEGROUNDS", want: KindGameType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseLine(tt.line)
			if err != nil {
				t.Fatalf("ParseLine() error = %v", err)
			}
			if rec.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", rec.Kind, tt.want)
			}
		})
	}
}

func TestParseLine_Prefix(t *testing.T) {
	rec, err := ParseLine("D 19:33:27.3917220 GameState.DebugPrintPower() - TAG_CHANGE Entity=5 tag=HEALTH value=30")
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if rec.Clock != "19:33:27.3917220" {
		t.Errorf("Clock = %q", rec.Clock)
	}
	if !rec.Echo() {
		t.Error("GameState power line should be reported as an echo")
	}

	rec, _ = ParseLine("D 19:33:27.3917220 PowerTaskList.DebugPrintPower() - TAG_CHANGE Entity=5 tag=HEALTH value=30")
	if rec.Echo() {
		t.Error("PowerTaskList line should not be an echo")
	}
}

func TestParseLine_FullEntity(t *testing.T) {
	line := "D 19:33:27.3917220 PowerTaskList.DebugPrintPower() -     FULL_ENTITY - Updating [entityName=Wrath Weaver id=23 zone=PLAY zonePos=2 cardId=BGS_004 player=3] CardID=BGS_004"
	rec, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if rec.Kind != KindFullEntity {
		t.Fatalf("Kind = %v", rec.Kind)
	}
	if rec.EntityID != 23 || rec.CardID != "BGS_004" || rec.Zone != gametag.ZonePlay {
		t.Errorf("got id=%d card=%q zone=%v", rec.EntityID, rec.CardID, rec.Zone)
	}
	desc := rec.Entity.Descriptor
	if desc == nil {
		t.Fatal("descriptor not decoded")
	}
	if desc.Name != "Wrath Weaver" || desc.ZonePos != 2 || desc.PlayerID != 3 {
		t.Errorf("descriptor = %+v", desc)
	}
}

func TestParseLine_FullEntityCreatingForm(t *testing.T) {
	rec, err := ParseLine("FULL_ENTITY - Creating ID=89 CardID=")
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if rec.Kind != KindFullEntity || rec.EntityID != 89 || rec.CardID != "" {
		t.Errorf("got %+v", rec)
	}
}

func TestParseLine_TagChange(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantID    int
		wantGame  bool
		wantName  string
		wantTag   gametag.Tag
		wantValue int
	}{
		{
			name:   "bare id",
			line:   "TAG_CHANGE Entity=14 tag=DAMAGE value=3",
			wantID: 14, wantTag: gametag.TagDamage, wantValue: 3,
		},
		{
			name:     "game entity",
			line:     "TAG_CHANGE Entity=GameEntity tag=STATE value=COMPLETE",
			wantGame: true, wantTag: gametag.TagState, wantValue: int(gametag.StateComplete),
		},
		{
			name:   "descriptor with nested name brackets",
			line:   "TAG_CHANGE Entity=[entityName=UNKNOWN ENTITY [cardType=INVALID] id=77 zone=HAND zonePos=0 cardId= player=2] tag=ZONE value=SETASIDE",
			wantID: 77, wantTag: gametag.TagZone, wantValue: int(gametag.ZoneSetAside),
		},
		{
			name:     "player name",
			line:     "TAG_CHANGE Entity=Finley#1234 tag=PLAYER_TECH_LEVEL value=3",
			wantName: "Finley#1234", wantTag: gametag.TagPlayerTechLevel, wantValue: 3,
		},
		{
			name:   "numeric tag code",
			line:   "TAG_CHANGE Entity=1 tag=3533 value=0 ",
			wantID: 1, wantTag: gametag.TagBaconCombatSetup, wantValue: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseLine(tt.line)
			if err != nil {
				t.Fatalf("ParseLine() error = %v", err)
			}
			if rec.Kind != KindTagChange {
				t.Fatalf("Kind = %v", rec.Kind)
			}
			if rec.Entity.ID != tt.wantID || rec.Entity.GameEntity != tt.wantGame || rec.Entity.PlayerName != tt.wantName {
				t.Errorf("Entity = %+v", rec.Entity)
			}
			if rec.Tag != tt.wantTag || rec.Value != tt.wantValue {
				t.Errorf("tag=%v value=%d, want %v %d", rec.Tag, rec.Value, tt.wantTag, tt.wantValue)
			}
		})
	}
}

func TestParseLine_DecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "bad enum value", line: "TAG_CHANGE Entity=14 tag=ZONE value=SOMEWHERE"},
		{name: "descriptor without id", line: "TAG_CHANGE Entity=[entityName=Foo zone=PLAY] tag=ATK value=3"},
		{name: "unterminated descriptor", line: "SHOW_ENTITY - Updating Entity=[entityName=Foo id=3 CardID=BGS_001"},
		{name: "tag line without value", line: "tag=HEALTH"},
		{name: "tag line bad value", line: "tag=CARDTYPE value=DRAGON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			if err == nil {
				t.Fatal("expected decode error")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("error %v does not wrap ErrDecode", err)
			}
		})
	}
}

func TestParseLine_BlockStart(t *testing.T) {
	line := "BLOCK_START BlockType=TRIGGER Entity=[entityName=Wrath Weaver id=23 zone=PLAY zonePos=2 cardId=BGS_004 player=3] EffectCardId=System.Collections.Generic.List`1[System.String] EffectIndex=0 Target=[entityName=Imp id=31 zone=PLAY zonePos=1 cardId=BRM_006t player=3] SubOption=-1 TriggerKeyword=TRIGGER_VISUAL"
	rec, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if rec.Kind != KindBlockStart || rec.Block == nil {
		t.Fatalf("Kind = %v block=%v", rec.Kind, rec.Block)
	}
	b := rec.Block
	if b.Type != "TRIGGER" || b.SourceEntityID != 23 || b.SourceCardID != "BGS_004" || b.PlayerID != 3 {
		t.Errorf("block source = %+v", b)
	}
	if b.TargetCardID != "BRM_006t" || b.TriggerKeyword != "TRIGGER_VISUAL" {
		t.Errorf("block target = %+v", b)
	}
}

func TestParseEntityRef(t *testing.T) {
	ref, err := ParseEntityRef("42")
	if err != nil || ref.ID != 42 {
		t.Errorf("ParseEntityRef(42) = %+v, %v", ref, err)
	}
	ref, err = ParseEntityRef("GameEntity")
	if err != nil || !ref.GameEntity {
		t.Errorf("ParseEntityRef(GameEntity) = %+v, %v", ref, err)
	}
	if _, err := ParseEntityRef(""); err == nil {
		t.Error("empty ref should fail")
	}
}
