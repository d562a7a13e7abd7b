package game

type Object interface {
	ID() ObjectID
	Pos() Pos
}

// Creep is a mobile unit. Own creeps accept commands; hostile creeps are only queried.
type Creep interface {
	Object
	Name() string
	My() bool
	Spawning() bool
	Hits() int
	HitsMax() int
	// TicksToLive is false while the creep is still spawning.
	TicksToLive() (int, bool)

	EnergyUsed() int
	EnergyFree() int
	EnergyCapacity() int

	Harvest(s Source) ReturnCode
	Build(s Site) ReturnCode
	Repair(s Structure) ReturnCode
	Transfer(s Structure) ReturnCode
	UpgradeController(c Controller) ReturnCode
	Attack(c Creep) ReturnCode
	Heal(c Creep) ReturnCode
	MoveTo(p Pos) ReturnCode
}

type Tower interface {
	Object
	EnergyUsed() int
	EnergyCapacity() int

	Attack(c Creep) ReturnCode
	Heal(c Creep) ReturnCode
	Repair(s Structure) ReturnCode
}

type Source interface {
	Object
	Energy() int
	EnergyCapacity() int
}

type Site interface {
	Object
	StructureType() StructureType
	Progress() int
	ProgressTotal() int
}

type Structure interface {
	Object
	StructureType() StructureType
	Hits() int
	HitsMax() int
	// HasStore is false for structures without an energy store; the energy
	// accessors then report zero.
	HasStore() bool
	EnergyUsed() int
	EnergyFree() int
}

type Controller interface {
	Object
	Level() int
	Progress() int
	ProgressTotal() int
}

// Resolver re-resolves references captured on earlier ticks. A false result
// means the entity is gone or no longer visible.
type Resolver interface {
	CreepByID(id ObjectID) (Creep, bool)
	SiteByID(id ObjectID) (Site, bool)
	SourceByID(id ObjectID) (Source, bool)
	StructureByID(id ObjectID) (Structure, bool)
	ControllerByID(id ObjectID) (Controller, bool)
}

type Room interface {
	Name() string

	MyCreeps() []Creep
	Hostiles() []Creep
	Sites() []Site
	Sources() []Source
	Structures() []Structure
	Towers() []Tower
	Controller() (Controller, bool)

	EnergyCapacityAvailable() int

	// LookTerrainArea returns the terrain of every tile in the inclusive
	// rectangle, row by row from top to bottom.
	LookTerrainArea(top, left, bottom, right int) ([]Terrain, error)
}

// Game is the per-tick view of the world handed to the scheduler.
type Game interface {
	Resolver
	Time() uint64
	Rooms() []Room
	// CreepNames lists every living own creep across all rooms.
	CreepNames() []string
}
