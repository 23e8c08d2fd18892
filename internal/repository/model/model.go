package model

import (
	"time"

	"github.com/google/uuid"
)

type Player struct {
	Id   uuid.UUID `bson:"_id"`
	Name string    `bson:"name"`

	// GameServerId is a weak reference, the server may no longer exist or be offline.
	GameServerId string    `bson:"gameServerId"`
	LastContact  time.Time `bson:"lastContact"`
}

type GameServer struct {
	Id             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Ip             string    `bson:"ip"`
	Port           int       `bson:"port"`
	MaximumPlayers int       `bson:"maximumPlayers"`
	LastContact    time.Time `bson:"lastContact"`
}

type ProxyServer struct {
	Id          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Ip          string    `bson:"ip"`
	Port        int       `bson:"port"`
	LastContact time.Time `bson:"lastContact"`
}

// Patches only touch non-nil fields. LastContact is applied as a max and never moves backwards.

type PlayerPatch struct {
	GameServerId *string
	LastContact  *time.Time
}

type GameServerPatch struct {
	Ip             *string
	Port           *int
	MaximumPlayers *int
	LastContact    *time.Time
}

type ProxyServerPatch struct {
	Ip          *string
	Port        *int
	LastContact *time.Time
}

// Filter narrows count and find queries. Zero values match everything.
type Filter struct {
	// ContactedSince matches records with lastContact >= ContactedSince.
	ContactedSince time.Time

	// GameServerId and ExcludePlayerId only apply to players.
	GameServerId    string
	ExcludePlayerId uuid.UUID
}
