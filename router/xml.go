package router

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strconv"

	"github.com/rankgate/rankgate/gateway"
)

// The XML shapes below are a stable wire contract: clients scrape them with
// positional parsers, so element order and the duplicated entry name
// (attribute and child element) must not change.

type xmlCData struct {
	Value string `xml:",cdata"`
}

type xmlLeaderboardEntry struct {
	XMLName  xml.Name `xml:"entry"`
	NameAttr string   `xml:"name,attr"`
	SteamID  uint64   `xml:"steamid"`
	Score    int32    `xml:"score"`
	Rank     int32    `xml:"rank"`
	UGCID    uint64   `xml:"ugcid"`
	Name     string   `xml:"name"`
	Details  xmlCData `xml:"details"`
}

type xmlLeaderboardResponse struct {
	XMLName         xml.Name              `xml:"response"`
	AppID           uint32                `xml:"appID"`
	AppFriendlyName uint32                `xml:"appFriendlyName"`
	LeaderboardID   uint64                `xml:"leaderboardID"`
	TotalEntries    int32                 `xml:"totalLeaderboardEntries"`
	EntryStart      int                   `xml:"entryStart"`
	EntryEnd        int                   `xml:"entryEnd"`
	ResultCount     int                   `xml:"resultCount"`
	Entries         []xmlLeaderboardEntry `xml:"entries>entry"`
}

// renderLeaderboard serializes a leaderboard snapshot to the response XML.
func renderLeaderboard(snapshot *gateway.LeaderboardSnapshot) ([]byte, error) {
	doc := xmlLeaderboardResponse{
		AppID:           snapshot.AppID,
		AppFriendlyName: snapshot.AppID,
		LeaderboardID:   uint64(snapshot.LeaderboardID),
		TotalEntries:    snapshot.TotalEntries,
		EntryStart:      snapshot.EntryStart,
		EntryEnd:        snapshot.EntryEnd,
		ResultCount:     snapshot.ResultCount,
		Entries:         make([]xmlLeaderboardEntry, 0, len(snapshot.Entries)),
	}
	for _, e := range snapshot.Entries {
		doc.Entries = append(doc.Entries, xmlLeaderboardEntry{
			NameAttr: e.Name,
			SteamID:  uint64(e.SteamID),
			Score:    e.Score,
			Rank:     e.Rank,
			UGCID:    e.UGCID,
			Name:     e.Name,
			Details:  xmlCData{Value: e.DetailsHex},
		})
	}
	return xml.MarshalIndent(doc, "", "  ")
}

type xmlLobbyResponse struct {
	XMLName    xml.Name   `xml:"response"`
	AppID      uint32     `xml:"appID"`
	LobbyCount int        `xml:"lobbyCount"`
	Source     string     `xml:"source"`
	Lobbies    []xmlLobby `xml:"lobbies>lobby"`
}

type xmlLobby struct {
	info gateway.LobbyInfo
}

// MarshalXML writes one lobby element. Metadata keys become child elements,
// so they need sanitizing into valid XML names; keys are emitted in sorted
// order for a stable document.
func (l xmlLobby) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "lobby"
	start.Attr = []xml.Attr{{
		Name:  xml.Name{Local: "id"},
		Value: strconv.FormatUint(uint64(l.info.ID), 10),
	}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	if err := encodeChild(e, "members", strconv.FormatInt(int64(l.info.NumMembers), 10)); err != nil {
		return err
	}
	if err := encodeChild(e, "max_members", strconv.FormatInt(int64(l.info.MaxMembers), 10)); err != nil {
		return err
	}
	if err := encodeChild(e, "type", strconv.FormatInt(int64(l.info.Type), 10)); err != nil {
		return err
	}
	if err := encodeChild(e, "owner", l.info.OwnerName); err != nil {
		return err
	}
	if l.info.OwnerID != 0 {
		if err := encodeChild(e, "ownerId", strconv.FormatUint(uint64(l.info.OwnerID), 10)); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(l.info.Metadata))
	for k := range l.info.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := encodeChild(e, sanitizeElementName(k), l.info.Metadata[k]); err != nil {
			return err
		}
	}

	return e.EncodeToken(start.End())
}

// renderLobbies serializes a lobby snapshot to the response XML.
func renderLobbies(snapshot *gateway.LobbySnapshot) ([]byte, error) {
	doc := xmlLobbyResponse{
		AppID:      snapshot.AppID,
		LobbyCount: len(snapshot.Lobbies),
		Source:     "LobbyList",
		Lobbies:    make([]xmlLobby, 0, len(snapshot.Lobbies)),
	}
	for _, l := range snapshot.Lobbies {
		doc.Lobbies = append(doc.Lobbies, xmlLobby{info: l})
	}
	return xml.MarshalIndent(doc, "", "  ")
}

// renderError wraps a message in the error document clients expect.
func renderError(message string) []byte {
	var buf bytes.Buffer
	buf.WriteString("<error>")
	_ = xml.EscapeText(&buf, []byte(message))
	buf.WriteString("</error>")
	return buf.Bytes()
}

func encodeChild(e *xml.Encoder, name, value string) error {
	return e.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: name}})
}

// sanitizeElementName coerces an arbitrary metadata key into a valid XML
// element name. Invalid runes are replaced with underscores; a name that
// cannot start an element is prefixed with one.
func sanitizeElementName(key string) string {
	if key == "" {
		return "_"
	}
	out := []rune(key)
	for i, r := range out {
		if !isNameRune(r, false) {
			out[i] = '_'
		}
	}
	if !isNameRune(out[0], true) {
		return "_" + string(out)
	}
	return string(out)
}

func isNameRune(r rune, initial bool) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		return true
	case initial:
		return false
	case r >= '0' && r <= '9', r == '-', r == '.':
		return true
	default:
		return false
	}
}
