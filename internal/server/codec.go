// Payload encode/decode glue between the game package's OutboundEvent
// values and the wire package's fixed-size frames. This is the one place
// that knows about both — game and wire stay independent leaves.
package server

import (
	"arena-server/internal/game"
	"arena-server/internal/wire"
)

// Lobby-action / ranked-queue / game-event sub-action bytes (§6).
const (
	LobbyListRequest    byte = iota
	LobbyListEntry
	LobbyListEnd
	LobbyCreate
	LobbyJoin
	LobbyJoined
	LobbyLeave
	LobbyPlayerJoined
	LobbyPlayerLeft
	LobbyStart
	LobbyGameStarting
	LobbyConfigUpdate
	LobbyCharacterSelect
	LobbyClosed
	LobbyAddBot
	LobbyRemoveBot
)

const (
	QueueJoin byte = iota
	QueueLeave
	QueueCharacterChange
	QueueStatus
	QueueMatchFound
)

const (
	HistoryQuery byte = iota
	HistoryStats
	HistoryEntry
	HistoryEnd
)

const (
	LeaderboardQuery byte = iota
	LeaderboardEntry
	LeaderboardEnd
)

const (
	AuthLogin byte = iota
	AuthRegister
)

// AuthRequestPayload decodes a TypeAuthRequest packet.
type AuthRequestPayload struct {
	Action   byte
	Username string
	Password string
}

func DecodeAuthRequest(p wire.Packet) AuthRequestPayload {
	r := wire.NewPayloadReader(p.Payload)
	action := r.ReadUint8()
	username := string(r.ReadBytes16())
	password := string(r.ReadBytes16())
	return AuthRequestPayload{Action: action, Username: username, Password: password}
}

// EncodeAuthResponse builds a TypeAuthResponse packet.
func EncodeAuthResponse(seq uint32, success bool, id game.PlayerID, message string) wire.Packet {
	w := wire.NewPayloadWriter()
	if success {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
	w.WriteBytes16(id[:])
	w.WriteBytes16([]byte(message))
	return wire.Packet{Type: wire.TypeAuthResponse, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// EncodePlayerJoin builds a TypePlayerJoin packet from a game event.
func EncodePlayerJoin(seq uint32, e game.PlayerJoinEvent) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint8(e.Color[0])
	w.WriteUint8(e.Color[1])
	w.WriteUint8(e.Color[2])
	w.WriteUint32(uint32(int32(e.X)))
	w.WriteUint32(uint32(int32(e.Y)))
	w.WriteUint32(uint32(int32(e.Health)))
	w.WriteUint8(uint8(e.Character))
	w.WriteUint8(uint8(e.TeamID))
	w.WriteBytes16([]byte(e.Name))
	return wire.Packet{Type: wire.TypePlayerJoin, Seq: seq, Sender: e.PlayerID, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// EncodePlayerLeave builds a TypePlayerLeave packet.
func EncodePlayerLeave(seq uint32, e game.PlayerLeaveEvent) wire.Packet {
	return wire.Packet{Type: wire.TypePlayerLeave, Seq: seq, Sender: e.PlayerID, Timestamp: wire.NowTimestamp()}
}

// EncodePlayerUpdate builds a TypePlayerUpdate packet.
func EncodePlayerUpdate(seq uint32, e game.PlayerUpdateEvent) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint8(e.Color[0])
	w.WriteUint8(e.Color[1])
	w.WriteUint8(e.Color[2])
	w.WriteUint32(uint32(int32(e.X)))
	w.WriteUint32(uint32(int32(e.Y)))
	w.WriteUint32(uint32(int32(e.Health)))
	w.WriteUint8(uint8(e.Charge))
	w.WriteUint8(e.EffectFlags)
	w.WriteUint8(uint8(e.Character))
	w.WriteUint8(uint8(e.TeamID))
	return wire.Packet{Type: wire.TypePlayerUpdate, Seq: seq, Sender: e.PlayerID, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// ClientMovePayload is the claimed position a client submits in an
// inbound TypePlayerUpdate packet. The server treats X/Y as a claim to
// validate, never as authoritative state (§4.6).
type ClientMovePayload struct {
	X, Y int
}

// DecodeClientMove reads the claimed-position fields a client writes at
// the front of a TypePlayerUpdate payload, ignoring the trailing fields
// that are server-authoritative on the outbound encoding of the same type.
func DecodeClientMove(p wire.Packet) ClientMovePayload {
	r := wire.NewPayloadReader(p.Payload)
	r.ReadUint8() // color, unused on the inbound side
	r.ReadUint8()
	r.ReadUint8()
	x := int(int32(r.ReadUint32()))
	y := int(int32(r.ReadUint32()))
	return ClientMovePayload{X: x, Y: y}
}

// DecodeHeartbeat confirms a TypeHeartbeat packet has no payload to read.
func DecodeHeartbeat(p wire.Packet) {}

// EncodeHeartbeat builds a TypeHeartbeat packet (used for server keepalive
// echoes, if ever needed).
func EncodeHeartbeat(seq uint32, sender game.PlayerID) wire.Packet {
	return wire.Packet{Type: wire.TypeHeartbeat, Seq: seq, Sender: sender, Timestamp: wire.NowTimestamp()}
}

// EncodeProjectileUpdate builds a TypeProjectileUpdate packet.
func EncodeProjectileUpdate(seq uint32, e game.ProjectileUpdateEvent) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteBytes16([]byte(e.Action))
	w.WriteUint32(e.Projectile)
	w.WriteFloat32(float32(e.X))
	w.WriteFloat32(float32(e.Y))
	w.WriteFloat32(float32(e.DX))
	w.WriteFloat32(float32(e.DY))
	w.WriteUint8(e.Color[0])
	w.WriteUint8(e.Color[1])
	w.WriteUint8(e.Color[2])
	w.WriteUint64(targetIDLow(e.TargetID))
	w.WriteUint8(uint8(e.Charge))
	w.WriteUint8(uint8(e.Type))
	return wire.Packet{Type: wire.TypeProjectileUpdate, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// ProjectileSpawnPayload is a client's fire request: claimed origin,
// direction, charge level, and which projectile type to spawn. The
// server treats PX/PY as a claim to validate against the player's own
// authoritative position, never as authoritative itself (§4.6).
type ProjectileSpawnPayload struct {
	PX, PY float64
	DX, DY float64
	Charge int
	Type   game.ProjectileTypeID
}

// DecodeProjectileSpawn reads a client-submitted TypeProjectileUpdate
// SPAWN request: same wire type as the server's outbound MOVE/HIT/DESPAWN
// broadcasts, but a distinct payload shape on this direction — the client
// has no projectile id, color, or target to report, only where it wants
// to fire from and at what.
func DecodeProjectileSpawn(p wire.Packet) ProjectileSpawnPayload {
	r := wire.NewPayloadReader(p.Payload)
	r.ReadBytes16() // action, expected "SPAWN" on this inbound direction
	px := float64(r.ReadFloat32())
	py := float64(r.ReadFloat32())
	dx := float64(r.ReadFloat32())
	dy := float64(r.ReadFloat32())
	charge := int(r.ReadUint8())
	typ := game.ProjectileTypeID(r.ReadUint8())
	return ProjectileSpawnPayload{PX: px, PY: py, DX: dx, DY: dy, Charge: charge, Type: typ}
}

func targetIDLow(id game.PlayerID) uint64 {
	var v uint64
	for i := 8; i < 16; i++ {
		v = v<<8 | uint64(id[i])
	}
	return v
}

// ItemUsePayload is a client's USE request: which inventory item to
// consume, and the target tile (meaningful for Star and Fence; ignored
// for Heart/Shield/Gem).
type ItemUsePayload struct {
	Kind   game.ItemKind
	Target game.Position
}

// DecodeItemUse reads a client-submitted TypeItemUpdate USE request.
func DecodeItemUse(p wire.Packet) ItemUsePayload {
	r := wire.NewPayloadReader(p.Payload)
	r.ReadBytes16() // action, expected "USE" on this inbound direction
	x := int(int32(r.ReadUint32()))
	y := int(int32(r.ReadUint32()))
	kind := game.ItemKind(r.ReadUint8())
	return ItemUsePayload{Kind: kind, Target: game.Position{X: x, Y: y}}
}

// EncodeItemUpdate builds a TypeItemUpdate packet.
func EncodeItemUpdate(seq uint32, e game.ItemUpdateEvent) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteBytes16([]byte(e.Action))
	w.WriteUint32(uint32(int32(e.Tile.X)))
	w.WriteUint32(uint32(int32(e.Tile.Y)))
	w.WriteUint8(uint8(e.Kind))
	w.WriteUint64(e.ItemID)
	return wire.Packet{Type: wire.TypeItemUpdate, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// EncodeTileUpdate builds a TypeTileUpdate packet.
func EncodeTileUpdate(seq uint32, e game.TileUpdateEvent) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint32(uint32(int32(e.X)))
	w.WriteUint32(uint32(int32(e.Y)))
	w.WriteUint8(uint8(e.Tile))
	return wire.Packet{Type: wire.TypeTileUpdate, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// EncodeGameEvent builds a TypeGameEvent packet.
func EncodeGameEvent(seq uint32, e game.GameEventMessage) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteBytes16([]byte(e.Kind))
	w.WriteUint32(uint32(int32(e.RemainingS)))
	w.WriteUint32(uint32(int32(e.Kills)))
	w.WriteUint32(uint32(int32(e.Deaths)))
	w.WriteUint64(targetIDLow(e.TargetID))
	w.WriteUint8(uint8(e.Rank))
	w.WriteUint32(uint32(int32(e.SpawnX)))
	w.WriteUint32(uint32(int32(e.SpawnY)))
	w.WriteUint8(uint8(e.TeamID))
	return wire.Packet{Type: wire.TypeGameEvent, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// EncodeSnapshot builds a TypeSnapshot packet carrying every participant's
// join record, replacing the redundant per-participant PLAYER_JOIN replay
// after game start.
func EncodeSnapshot(seq uint32, e game.SnapshotEvent) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint16(uint16(len(e.Players)))
	for _, pl := range e.Players {
		w.WriteUint64(targetIDLow(pl.PlayerID))
		w.WriteUint32(uint32(int32(pl.X)))
		w.WriteUint32(uint32(int32(pl.Y)))
		w.WriteUint8(uint8(pl.Character))
		w.WriteUint8(uint8(pl.TeamID))
	}
	return wire.Packet{Type: wire.TypeSnapshot, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// LobbyActionPayload decodes a TypeLobbyAction request packet's common
// fields; not every field is populated for every action.
type LobbyActionPayload struct {
	Action      byte
	LobbyID     uint32
	MapIndex    byte
	DurationMin byte
	MaxPlayers  byte
	Name        string
	Character   byte
	Mode        byte
	TeamSize    byte
}

func DecodeLobbyAction(p wire.Packet) LobbyActionPayload {
	r := wire.NewPayloadReader(p.Payload)
	var out LobbyActionPayload
	out.Action = r.ReadUint8()
	out.LobbyID = r.ReadUint32()
	out.MapIndex = r.ReadUint8()
	out.DurationMin = r.ReadUint8()
	out.MaxPlayers = r.ReadUint8()
	out.Mode = r.ReadUint8()
	out.TeamSize = r.ReadUint8()
	out.Character = r.ReadUint8()
	out.Name = string(r.ReadBytes16())
	return out
}

// EncodeLobbyAction builds a TypeLobbyAction response/broadcast packet.
func EncodeLobbyAction(seq uint32, action byte, lobbyID uint32, mapIdx, durationMin, maxPlayers int, status byte, name string) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint8(action)
	w.WriteUint32(lobbyID)
	w.WriteUint8(uint8(mapIdx))
	w.WriteUint8(uint8(durationMin))
	w.WriteUint8(uint8(maxPlayers))
	w.WriteUint8(status)
	w.WriteBytes16([]byte(name))
	return wire.Packet{Type: wire.TypeLobbyAction, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// RankedQueuePayload decodes a TypeRankedQueue request packet.
type RankedQueuePayload struct {
	Action    byte
	Character byte
}

func DecodeRankedQueue(p wire.Packet) RankedQueuePayload {
	r := wire.NewPayloadReader(p.Payload)
	return RankedQueuePayload{Action: r.ReadUint8(), Character: r.ReadUint8()}
}

// EncodeQueueStatus builds a TypeRankedQueue QUEUE_STATUS packet.
func EncodeQueueStatus(seq uint32, queueSize, elo, waitS int) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint8(QueueStatus)
	w.WriteUint8(0)
	w.WriteUint32(uint32(queueSize))
	w.WriteUint32(uint32(int32(elo)))
	w.WriteUint32(uint32(waitS))
	return wire.Packet{Type: wire.TypeRankedQueue, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// EncodeMatchHistoryEntry builds one TypeMatchHistory ENTRY packet.
func EncodeMatchHistoryEntry(seq uint32, mapIdx, kills, deaths, rank int, eloDelta int) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint8(HistoryEntry)
	w.WriteUint32(uint32(int32(mapIdx)))
	w.WriteUint32(uint32(int32(kills)))
	w.WriteUint32(uint32(int32(deaths)))
	w.WriteUint8(uint8(rank))
	w.WriteUint32(uint32(int32(eloDelta)))
	return wire.Packet{Type: wire.TypeMatchHistory, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// EncodeMatchHistoryEnd builds the terminating TypeMatchHistory END marker.
func EncodeMatchHistoryEnd(seq uint32) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint8(HistoryEnd)
	return wire.Packet{Type: wire.TypeMatchHistory, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// EncodeLeaderboardEntry builds one TypeLeaderboard ENTRY packet.
func EncodeLeaderboardEntry(seq uint32, rank, elo int, username string) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint8(LeaderboardEntry)
	w.WriteUint32(uint32(rank))
	w.WriteUint32(uint32(int32(elo)))
	w.WriteBytes16([]byte(username))
	return wire.Packet{Type: wire.TypeLeaderboard, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}

// EncodeLeaderboardEnd builds the terminating TypeLeaderboard END marker.
func EncodeLeaderboardEnd(seq uint32) wire.Packet {
	w := wire.NewPayloadWriter()
	w.WriteUint8(LeaderboardEnd)
	return wire.Packet{Type: wire.TypeLeaderboard, Seq: seq, Timestamp: wire.NowTimestamp(), Payload: w.Bytes()}
}
