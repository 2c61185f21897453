package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skyward/combat-core/internal/util"
	"github.com/skyward/combat-core/pkg/core"
)

// FormatVersion is bumped on incompatible changes to Recording.
const FormatVersion = 1

// Recording is the root JSON structure of an exported sortie.
// Positions and events are compact arrays; see buildExport for their layout.
type Recording struct {
	Version          int          `json:"version"`
	ExtensionVersion string       `json:"extensionVersion"`
	ExtensionBuild   string       `json:"extensionBuild"`
	MissionName      string       `json:"missionName"`
	Aircraft         string       `json:"aircraft"`
	Difficulty       string       `json:"difficulty"`
	Seed             uint64       `json:"seed"`
	TickRate         float64      `json:"tickRate"`
	StartTime        string       `json:"startTime"`
	Tag              string       `json:"tag,omitempty"`
	WorldName        string       `json:"worldName"`
	TerrainType      string       `json:"terrainType"`
	Origin           [2]float64   `json:"origin"` // lon, lat
	EndFrame         uint         `json:"endFrame"`
	Player           EntityJSON   `json:"player"`
	Entities         []EntityJSON `json:"entities"`
	Events           [][]any      `json:"events"`
	Telemetry        [][]any      `json:"telemetry"`
}

// EntityJSON is the player or one enemy.
type EntityJSON struct {
	ID            int     `json:"id"`
	Type          string  `json:"type"` // player, air, ground
	Kind          string  `json:"kind"`
	MaxHealth     float64 `json:"maxHealth,omitempty"`
	StartFrameNum uint    `json:"startFrameNum"`
	Positions     [][]any `json:"positions"`
}

// round2 keeps two decimals, enough for metres and degrees on a replay.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func vec(p core.Position3D) []float64 {
	return []float64{round2(p.X), round2(p.Y), round2(p.Z)}
}

// exportJSON writes the mission data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	filename := util.StampedFileName(b.mission.Name, b.mission.StartTime, ".json")
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	dir := b.cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() Recording {
	export := Recording{
		Version:          FormatVersion,
		ExtensionVersion: b.mission.ExtensionVersion,
		ExtensionBuild:   b.mission.ExtensionBuild,
		MissionName:      b.mission.Name,
		Aircraft:         b.mission.Aircraft,
		Difficulty:       b.mission.Difficulty,
		Seed:             b.mission.Seed,
		TickRate:         b.mission.TickRate,
		StartTime:        b.mission.StartTime.UTC().Format(time.RFC3339),
		Tag:              b.mission.Tag,
		Entities:         make([]EntityJSON, 0, len(b.enemies)),
		Events:           make([][]any, 0, len(b.events)),
		Telemetry:        make([][]any, 0, len(b.telemetry)),
	}
	if b.world != nil {
		export.WorldName = b.world.Name
		export.TerrainType = b.world.TerrainType
		export.Origin = [2]float64{b.world.Longitude, b.world.Latitude}
	}

	var maxFrame uint

	// Player
	// Format: [[x, y, z], bearing, speed, health, alive, afterburner]
	export.Player = EntityJSON{
		ID:        core.PlayerID,
		Type:      "player",
		Kind:      b.mission.Aircraft,
		Positions: make([][]any, 0, len(b.playerStates)),
	}
	if len(b.playerStates) > 0 {
		export.Player.StartFrameNum = b.playerStates[0].Frame
	}
	for _, state := range b.playerStates {
		p := state.Player
		export.Player.Positions = append(export.Player.Positions, []any{
			vec(p.Position),
			round2(p.Rotation.Bearing()),
			round2(p.Speed),
			round2(p.Health),
			boolToInt(!p.IsDead),
			boolToInt(p.Afterburner),
		})
		maxFrame = max(maxFrame, state.Frame)
	}

	// Enemies in spawn order
	// Format: [[x, y, z], bearing, speed, health, aiMode]
	for _, id := range b.enemyOrder {
		record := b.enemies[id]
		entity := EntityJSON{
			ID:        record.Enemy.ID,
			Type:      "air",
			Kind:      record.Enemy.Kind,
			MaxHealth: record.Enemy.MaxHealth,
			Positions: make([][]any, 0, len(record.States)),
		}
		if record.Enemy.IsGround {
			entity.Type = "ground"
		}
		if len(record.States) > 0 {
			entity.StartFrameNum = record.States[0].Frame
		}
		for _, state := range record.States {
			e := state.Enemy
			entity.Positions = append(entity.Positions, []any{
				vec(e.Position),
				round2(e.Rotation.Bearing()),
				round2(e.Speed),
				round2(e.Health),
				e.AIMode,
			})
			maxFrame = max(maxFrame, state.Frame)
		}
		export.Entities = append(export.Entities, entity)
	}

	export.EndFrame = maxFrame

	for _, evt := range b.events {
		export.Events = append(export.Events, eventJSON(evt))
	}

	// Format: [tick, altitude, speed, mach, gForce, fuel, health]
	for _, t := range b.telemetry {
		export.Telemetry = append(export.Telemetry, []any{
			t.Tick,
			round2(t.Altitude),
			round2(t.Speed),
			round2(t.Mach),
			round2(t.GForce),
			round2(t.Fuel),
			round2(t.Health),
		})
	}

	return export
}

// eventJSON lays an event out as a compact array:
//
//	hit:       [tick, "hit", targetId, [sourceId, weapon], damage]
//	kill:      [tick, "kill", targetId, [sourceId, weapon], [x, y, z]]
//	explosion: [tick, "explosion", [x, y, z], radius]
//	others:    [tick, kind, sourceId, targetId, [x, y, z], detail?]
func eventJSON(evt core.Event) []any {
	kind := evt.Kind.String()
	switch evt.Kind {
	case core.EventHit:
		return []any{evt.Tick, kind, evt.TargetID, []any{evt.SourceID, evt.WeaponID}, round2(evt.Damage)}
	case core.EventKill:
		return []any{evt.Tick, kind, evt.TargetID, []any{evt.SourceID, evt.WeaponID}, vec(evt.Position)}
	case core.EventExplosion:
		return []any{evt.Tick, kind, vec(evt.Position), round2(evt.Radius)}
	}
	out := []any{evt.Tick, kind, evt.SourceID, evt.TargetID, vec(evt.Position)}
	if evt.Detail != "" {
		out = append(out, evt.Detail)
	}
	return out
}

func writeExport(path string, data Recording, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if compress {
		gzWriter := gzip.NewWriter(f)
		defer func() {
			if cerr := gzWriter.Close(); err == nil {
				err = cerr
			}
		}()
		w = gzWriter
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}
	return nil
}

// ReadRecording decodes an export written by this package, gzipped or not.
func ReadRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode recording: %w", err)
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
