package domain

import "github.com/google/uuid"

// Catalog entities are read-only inputs to order creation. The engine only
// snapshots them; catalog management lives in another service.

type Pooja struct {
	ID        uuid.UUID
	TempleID  uuid.UUID
	Name      string
	BasePrice int64
}

type Temple struct {
	ID   uuid.UUID
	Name string
	City string
}

type Chadhava struct {
	ID    uuid.UUID
	Name  string
	Price int64
	Icon  string
}
