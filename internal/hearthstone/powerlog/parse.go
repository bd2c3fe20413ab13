package powerlog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

// Kind identifies which record shape a line matched.
type Kind int

const (
	KindNone Kind = iota
	KindTagLine
	KindCreateGame
	KindGameEntity
	KindPlayerEntity
	KindFullEntity
	KindShowEntity
	KindTagChange
	KindBlockStart
	KindPlayerName
	KindGameType
)

var kindNames = [...]string{
	"none", "tag_line", "create_game", "game_entity", "player_entity",
	"full_entity", "show_entity", "tag_change", "block_start", "player_name", "game_type",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind_" + strconv.Itoa(int(k))
}

// ErrDecode marks a line that had a recognized shape but a field that could
// not be decoded. The record must be discarded.
var ErrDecode = errors.New("decode power log record")

// Descriptor is the bracketed entity form used throughout Power.log, e.g.
// [entityName=Murloc Tidehunter id=23 zone=PLAY zonePos=1 cardId=EX1_506 player=1].
type Descriptor struct {
	ID       int
	Name     string
	Zone     gametag.Zone
	ZonePos  int
	CardID   string
	PlayerID int
}

// EntityRef is how a record names an entity.
type EntityRef struct {
	ID         int
	GameEntity bool
	PlayerName string
	Descriptor *Descriptor
}

// Block carries the fields of a BLOCK_START line.
type Block struct {
	Type           string
	SourceEntityID int
	SourceCardID   string
	PlayerID       int
	EffectCardID   string
	TargetCardID   string
	TriggerKeyword string
}

// Record is one decoded Power.log line.
type Record struct {
	Kind Kind
	// Clock is the HH:MM:SS.fffffff time printed in the line prefix.
	Clock string
	// Source is the method that printed the line, e.g. PowerTaskList.DebugPrintPower().
	Source string

	EntityID int
	PlayerID int
	Entity   EntityRef
	CardID   string
	Zone     gametag.Zone

	Tag      gametag.Tag
	Value    int
	RawTag   string
	RawValue string

	Block *Block

	PlayerName string
	GameType   string

	Raw string
}

// Echo reports whether the line is GameState's copy of a power record.
// PowerTaskList prints the same record again once the client has applied it,
// so only one of the two streams should be fed to a session.
func (r Record) Echo() bool {
	return r.Source == "GameState.DebugPrintPower()"
}

var (
	prefixRegex       = regexp.MustCompile(`^[DWEI] (\d{2}:\d{2}:\d{2}\.\d+) ([\w.]+\(\)) - ?(.*)$`)
	gameEntityRegex   = regexp.MustCompile(`GameEntity EntityID=(\d+)`)
	playerEntityRegex = regexp.MustCompile(`Player EntityID=(\d+) PlayerID=(\d+)`)
	fullEntityRegex   = regexp.MustCompile(`FULL_ENTITY - (?:Updating|Creating)\s+(?:ID=)?(\[.*\]|\d+)\s+CardID=(\S*)`)
	updateEntityRegex = regexp.MustCompile(`(?:SHOW_ENTITY|CHANGE_ENTITY) - Updating Entity=(.+?)\s+CardID=(\S*)`)
	tagChangeRegex    = regexp.MustCompile(`TAG_CHANGE Entity=(.+?) tag=(\S+) value=(\S+)`)
	blockStartRegex   = regexp.MustCompile(`BLOCK_START BlockType=(\w+) Entity=(.+?) EffectCardId=(.*?)(?: EffectIndex=-?\d+)? Target=(.*?) SubOption=-?\d+(?: TriggerKeyword=(\w+))?`)
	playerNameRegex   = regexp.MustCompile(`PlayerID=(\d+), PlayerName=(.+)$`)
	gameTypeRegex     = regexp.MustCompile(`GameType=(\w+)`)

	descIDRegex     = regexp.MustCompile(`(?:^|\s)id=(\d+)`)
	descNameRegex   = regexp.MustCompile(`^entityName=(.*?)\s+id=\d+`)
	descZoneRegex   = regexp.MustCompile(`(?:^|\s)zone=(\w+)`)
	descPosRegex    = regexp.MustCompile(`(?:^|\s)zonePos=(\d+)`)
	descCardIDRegex = regexp.MustCompile(`(?:^|\s)cardId=(\S*)`)
	descPlayerRegex = regexp.MustCompile(`(?:^|\s)player=(\d+)`)
)

// StripPrefix removes the "D HH:MM:SS.fffffff Method() - " prefix. Lines
// without a prefix are returned unchanged with empty clock and source.
func StripPrefix(line string) (clock, source, body string) {
	m := prefixRegex.FindStringSubmatch(line)
	if m == nil {
		return "", "", line
	}
	return m[1], m[2], m[3]
}

// ParseLine classifies a single log line. Blank or unrecognized lines return
// a KindNone record and a nil error. A recognized line whose fields cannot be
// decoded returns an error wrapping ErrDecode; for continuation tag lines the
// returned record still carries KindTagLine.
func ParseLine(line string) (Record, error) {
	clock, source, body := StripPrefix(strings.TrimRight(line, "\r\n"))
	rec := Record{Clock: clock, Source: source, Raw: line}

	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return rec, nil
	}

	if strings.HasPrefix(trimmed, "tag=") {
		return parseTagLine(rec, trimmed)
	}

	if strings.Contains(trimmed, "CREATE_GAME") {
		rec.Kind = KindCreateGame
		return rec, nil
	}

	if m := gameEntityRegex.FindStringSubmatch(trimmed); m != nil {
		rec.Kind = KindGameEntity
		rec.EntityID, _ = strconv.Atoi(m[1])
		return rec, nil
	}

	if m := playerEntityRegex.FindStringSubmatch(trimmed); m != nil {
		rec.Kind = KindPlayerEntity
		rec.EntityID, _ = strconv.Atoi(m[1])
		rec.PlayerID, _ = strconv.Atoi(m[2])
		return rec, nil
	}

	if m := fullEntityRegex.FindStringSubmatch(trimmed); m != nil {
		return parseFullEntity(rec, m)
	}

	if m := updateEntityRegex.FindStringSubmatch(trimmed); m != nil {
		ref, err := ParseEntityRef(m[1])
		if err != nil {
			return rec, err
		}
		if ref.ID <= 0 {
			return rec, fmt.Errorf("%w: entity update without id: %q", ErrDecode, m[1])
		}
		rec.Kind = KindShowEntity
		rec.Entity = ref
		rec.EntityID = ref.ID
		rec.CardID = m[2]
		return rec, nil
	}

	if m := tagChangeRegex.FindStringSubmatch(trimmed); m != nil {
		return parseTagChange(rec, m)
	}

	if m := blockStartRegex.FindStringSubmatch(trimmed); m != nil {
		return parseBlockStart(rec, m)
	}

	if m := playerNameRegex.FindStringSubmatch(trimmed); m != nil {
		rec.Kind = KindPlayerName
		rec.PlayerID, _ = strconv.Atoi(m[1])
		rec.PlayerName = strings.TrimSpace(m[2])
		return rec, nil
	}

	if m := gameTypeRegex.FindStringSubmatch(trimmed); m != nil {
		rec.Kind = KindGameType
		rec.GameType = m[1]
		return rec, nil
	}

	return rec, nil
}

func parseTagLine(rec Record, trimmed string) (Record, error) {
	rec.Kind = KindTagLine
	valueIdx := strings.Index(trimmed, " value=")
	if valueIdx <= len("tag=") {
		return rec, fmt.Errorf("%w: tag line without value: %q", ErrDecode, trimmed)
	}
	rawTag := strings.TrimSpace(trimmed[len("tag="):valueIdx])
	rawValue := strings.TrimSpace(trimmed[valueIdx+len(" value="):])
	tag, value, err := decodeTag(rawTag, rawValue)
	if err != nil {
		return rec, err
	}
	rec.RawTag, rec.RawValue = rawTag, rawValue
	rec.Tag, rec.Value = tag, value
	return rec, nil
}

func parseFullEntity(rec Record, m []string) (Record, error) {
	rec.Kind = KindFullEntity
	rec.CardID = m[2]
	if strings.HasPrefix(m[1], "[") {
		desc, err := ParseDescriptor(m[1])
		if err != nil {
			return rec, err
		}
		rec.EntityID = desc.ID
		rec.Zone = desc.Zone
		rec.Entity = EntityRef{ID: desc.ID, Descriptor: desc}
		if rec.CardID == "" {
			rec.CardID = desc.CardID
		}
		return rec, nil
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return rec, fmt.Errorf("%w: entity id %q", ErrDecode, m[1])
	}
	rec.EntityID = id
	rec.Entity = EntityRef{ID: id}
	return rec, nil
}

func parseTagChange(rec Record, m []string) (Record, error) {
	ref, err := ParseEntityRef(m[1])
	if err != nil {
		return rec, err
	}
	tag, value, err := decodeTag(m[2], m[3])
	if err != nil {
		return rec, err
	}
	rec.Kind = KindTagChange
	rec.Entity = ref
	rec.EntityID = ref.ID
	rec.RawTag, rec.RawValue = m[2], m[3]
	rec.Tag, rec.Value = tag, value
	return rec, nil
}

func parseBlockStart(rec Record, m []string) (Record, error) {
	block := &Block{
		Type:           m[1],
		EffectCardID:   m[3],
		TriggerKeyword: m[5],
	}
	ref, err := ParseEntityRef(m[2])
	if err == nil {
		block.SourceEntityID = ref.ID
		if ref.Descriptor != nil {
			block.SourceCardID = ref.Descriptor.CardID
			block.PlayerID = ref.Descriptor.PlayerID
		}
		rec.Entity = ref
	}
	if target := strings.TrimSpace(m[4]); strings.HasPrefix(target, "[") {
		if desc, err := ParseDescriptor(target); err == nil {
			block.TargetCardID = desc.CardID
		}
	}
	rec.Kind = KindBlockStart
	rec.EntityID = block.SourceEntityID
	rec.Block = block
	return rec, nil
}

func decodeTag(rawTag, rawValue string) (gametag.Tag, int, error) {
	tag, err := gametag.Parse(rawTag)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	value, err := gametag.ParseValue(tag, rawValue)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return tag, value, nil
}

// ParseEntityRef decodes an entity reference: a bare id, a bracketed
// descriptor, the literal GameEntity, or a player display name.
func ParseEntityRef(text string) (EntityRef, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return EntityRef{}, fmt.Errorf("%w: empty entity reference", ErrDecode)
	case text == "GameEntity":
		return EntityRef{GameEntity: true}, nil
	case strings.HasPrefix(text, "["):
		desc, err := ParseDescriptor(text)
		if err != nil {
			return EntityRef{}, err
		}
		return EntityRef{ID: desc.ID, Descriptor: desc}, nil
	}
	if id, err := strconv.Atoi(text); err == nil {
		return EntityRef{ID: id}, nil
	}
	return EntityRef{PlayerName: text}, nil
}

// ParseDescriptor decodes a bracketed entity descriptor. The id field is
// required; the other fields are optional.
func ParseDescriptor(text string) (*Descriptor, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return nil, fmt.Errorf("%w: malformed descriptor %q", ErrDecode, text)
	}
	inner := text[1 : len(text)-1]

	m := descIDRegex.FindStringSubmatch(inner)
	if m == nil {
		return nil, fmt.Errorf("%w: descriptor without id %q", ErrDecode, text)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: descriptor id %q", ErrDecode, m[1])
	}

	desc := &Descriptor{ID: id}
	if m := descNameRegex.FindStringSubmatch(inner); m != nil {
		desc.Name = m[1]
	}
	if m := descZoneRegex.FindStringSubmatch(inner); m != nil {
		desc.Zone = gametag.ParseZone(m[1])
	}
	if m := descPosRegex.FindStringSubmatch(inner); m != nil {
		desc.ZonePos, _ = strconv.Atoi(m[1])
	}
	if m := descCardIDRegex.FindStringSubmatch(inner); m != nil {
		desc.CardID = m[1]
	}
	if m := descPlayerRegex.FindStringSubmatch(inner); m != nil {
		desc.PlayerID, _ = strconv.Atoi(m[1])
	}
	return desc, nil
}
