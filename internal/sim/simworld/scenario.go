package simworld

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/jsonc"
)

//go:embed scenario.schema.json
var scenarioSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func scenarioSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("scenario.schema.json", scenarioSchemaJSON)
	})
	return schema, schemaErr
}

type Scenario struct {
	Seed      int64          `json:"seed"`
	Tick      uint64         `json:"tick"`
	RoomSize  int            `json:"room_size"`
	MaxCreeps *int           `json:"max_creeps"`
	Rooms     []RoomScenario `json:"rooms"`
}

type RoomScenario struct {
	Name       string              `json:"name"`
	Terrain    TerrainScenario     `json:"terrain"`
	Controller *ControllerScenario `json:"controller"`
	Sources    []SourceScenario    `json:"sources"`
	Structures []StructureScenario `json:"structures"`
	Sites      []SiteScenario      `json:"sites"`
	Creeps     []CreepScenario     `json:"creeps"`
	Hostiles   []CreepScenario     `json:"hostiles"`
}

type TerrainScenario struct {
	Rows  []string       `json:"rows"`
	Noise *NoiseScenario `json:"noise"`
}

type NoiseScenario struct {
	Scale          float64 `json:"scale"`
	WallThreshold  float64 `json:"wall_threshold"`
	SwampThreshold float64 `json:"swamp_threshold"`
	ClearRadius    *int    `json:"clear_radius"`
}

type ControllerScenario struct {
	ID    string `json:"id"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Level int    `json:"level"`
}

type SourceScenario struct {
	ID       string `json:"id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Energy   *int   `json:"energy"`
	Capacity int    `json:"capacity"`
}

type StructureScenario struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	X              int    `json:"x"`
	Y              int    `json:"y"`
	Hits           *int   `json:"hits"`
	HitsMax        int    `json:"hits_max"`
	Energy         int    `json:"energy"`
	EnergyCapacity *int   `json:"energy_capacity"`
}

type SiteScenario struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Progress      int    `json:"progress"`
	ProgressTotal int    `json:"progress_total"`
}

type CreepScenario struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Hits     *int   `json:"hits"`
	HitsMax  int    `json:"hits_max"`
	Energy   int    `json:"energy"`
	Capacity *int   `json:"capacity"`
	TTL      int    `json:"ttl"`
}

// ParseScenario strips JSONC comments and trailing commas, validates the
// document against the scenario schema and decodes it.
func ParseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	stripped := jsonc.ToJSON(data)

	var doc any
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return sc, fmt.Errorf("parsing scenario: %w", err)
	}
	s, err := scenarioSchema()
	if err != nil {
		return sc, fmt.Errorf("compile scenario schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return sc, fmt.Errorf("invalid scenario: %w", err)
	}
	if err := json.Unmarshal(stripped, &sc); err != nil {
		return sc, fmt.Errorf("decoding scenario: %w", err)
	}
	return sc, nil
}

func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading %s: %w", path, err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return sc, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}
