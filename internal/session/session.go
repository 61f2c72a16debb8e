// Package session is the orchestrating layer: it owns one instance of each
// store, stamps its session id on every fact-producing action for
// provenance, and drives the end-of-session reflection step. Stores never
// call each other; this is the only place they meet.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GetAnima/anima-memory/internal/behavior"
	"github.com/GetAnima/anima-memory/internal/bus"
	"github.com/GetAnima/anima-memory/internal/config"
	"github.com/GetAnima/anima-memory/internal/conflict"
	"github.com/GetAnima/anima-memory/internal/episode"
	"github.com/GetAnima/anima-memory/internal/identity"
	"github.com/GetAnima/anima-memory/internal/memory"
	"github.com/GetAnima/anima-memory/internal/opinion"
	"github.com/GetAnima/anima-memory/internal/relation"
	"github.com/GetAnima/anima-memory/internal/storage"
)

// Session wires the stores together for one agent process.
type Session struct {
	ID       string
	Layout   storage.Layout
	Identity identity.Snapshot

	Memory    *memory.Store
	Episodes  *episode.Store
	Knowledge *episode.Knowledge
	Behavior  *behavior.Store
	Opinions  *opinion.Store
	Conflicts *conflict.Ledger
	Relations *relation.Log
	Bus       *bus.Bus

	startedAt time.Time
	seedTags  []string
}

// Open creates a session over the configured storage root, generating a
// fresh session id.
func Open(cfg config.Config) (*Session, error) {
	root := cfg.Storage.Root
	if root == "" {
		var err error
		root, err = storage.DefaultRoot()
		if err != nil {
			return nil, fmt.Errorf("resolve storage root: %w", err)
		}
	}

	layout, err := storage.NewLayout(root)
	if err != nil {
		return nil, fmt.Errorf("open storage root: %w", err)
	}

	snap := identity.Load(layout)
	knowledge := episode.NewKnowledge(layout, cfg.Limits.Knowledge)

	s := &Session{
		ID:       uuid.NewString(),
		Layout:   layout,
		Identity: snap,

		Memory:    memory.NewStore(layout, cfg.Decay),
		Episodes:  episode.NewStore(layout, knowledge, cfg.Limits.Episodes),
		Knowledge: knowledge,
		Behavior: behavior.NewStore(layout, behavior.Caps{
			Situations:          cfg.Limits.Situations,
			ActionsPerSituation: cfg.Limits.ActionsPerSituation,
			Failures:            cfg.Limits.Failures,
		}),
		Opinions:  opinion.NewStore(layout),
		Conflicts: conflict.NewLedger(layout),
		Relations: relation.NewLog(layout),
		Bus:       bus.New(),

		startedAt: time.Now(),
		seedTags:  snap.SeedTags(),
	}
	return s, nil
}

// Remember stores a fact stamped with this session's id. Untagged memories
// inherit the identity seed tags so continuity scoring has something to
// bite on.
func (s *Session) Remember(content string, opts memory.RememberOpts) (*memory.Memory, error) {
	opts.SessionID = s.ID
	if len(opts.Tags) == 0 {
		opts.Tags = s.seedTags
	}
	m, err := s.Memory.Remember(content, opts)
	if err != nil {
		return nil, err
	}
	s.Bus.Publish("memory.remembered", m)
	return m, nil
}

// RecordEpisode stores an experience stamped with this session's id.
func (s *Session) RecordEpisode(title, summary string, opts episode.RecordOpts) (*episode.Episode, error) {
	opts.SessionID = s.ID
	e, err := s.Episodes.Record(title, summary, opts)
	if err != nil {
		return nil, err
	}
	s.Bus.Publish("episode.recorded", e)
	return e, nil
}

// ReflectReport summarizes one end-of-session reflection.
type ReflectReport struct {
	Curation  memory.CurateStats       `json:"curation"`
	Decay     memory.DecayStats        `json:"decay"`
	Conflicts []*conflict.Conflict     `json:"conflicts,omitempty"`
	Episodes  episode.ConsolidateStats `json:"episodes"`
}

// Reflect runs the end-of-session sweep: curation first (while salience
// scores still reflect the session), then the decay sweep, then conflict
// detection, then episode consolidation.
func (s *Session) Reflect() (ReflectReport, error) {
	var report ReflectReport
	var err error

	if report.Curation, err = s.Memory.Curate(memory.CurateOpts{}); err != nil {
		return report, fmt.Errorf("curate: %w", err)
	}
	if report.Decay, err = s.Memory.RunDecay(); err != nil {
		return report, fmt.Errorf("decay sweep: %w", err)
	}
	if report.Conflicts, err = s.Conflicts.Detect(s.Opinions.All()); err != nil {
		return report, fmt.Errorf("conflict detection: %w", err)
	}
	if report.Episodes, err = s.Episodes.Consolidate(); err != nil {
		return report, fmt.Errorf("consolidate episodes: %w", err)
	}

	s.Bus.Publish("session.reflected", report)
	return report, nil
}

// MemoryDigest is one recent memory reduced for the boot payload.
type MemoryDigest struct {
	Content    string `json:"content"`
	Type       string `json:"type"`
	Importance string `json:"importance"`
}

// EpisodeDigest is one recent episode reduced for the boot payload.
type EpisodeDigest struct {
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	Importance float64 `json:"importance"`
}

// BootPayload is what the orchestrator embeds into a downstream prompt:
// the behavioral compaction plus recent memory/episode digests.
type BootPayload struct {
	Behavior behavior.BootPayload `json:"behavior"`
	Memories []MemoryDigest       `json:"memories,omitempty"`
	Episodes []EpisodeDigest      `json:"episodes,omitempty"`
}

// Soft ceiling on the serialized boot payload. Not a hard contract: the
// recent lists are trimmed until the encoding fits.
const bootPayloadBudget = 4096

const bootRecentLimit = 10

// Boot aggregates the compact cross-store payload handed to the
// orchestrator at session start.
func (s *Session) Boot() BootPayload {
	payload := BootPayload{Behavior: s.Behavior.Boot()}

	for _, m := range s.Memory.Recent(bootRecentLimit) {
		payload.Memories = append(payload.Memories, MemoryDigest{
			Content:    m.Content,
			Type:       string(m.Type),
			Importance: string(m.Importance),
		})
	}
	for _, e := range s.Episodes.Recent(bootRecentLimit) {
		payload.Episodes = append(payload.Episodes, EpisodeDigest{
			Title:      e.Title,
			Summary:    e.Summary,
			Importance: e.Importance,
		})
	}

	// Trim the recent lists, memories last, until the payload fits.
	for serializedSize(payload) > bootPayloadBudget {
		switch {
		case len(payload.Episodes) > 0:
			payload.Episodes = payload.Episodes[:len(payload.Episodes)-1]
		case len(payload.Memories) > 0:
			payload.Memories = payload.Memories[:len(payload.Memories)-1]
		default:
			return payload
		}
	}
	return payload
}

func serializedSize(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(data)
}

// Invalidate drops the named store's cache ("memories", "episodes",
// "knowledge", "opinions", "conflicts", "relations", or a behavior table
// name). Used by the serve-mode file watcher.
func (s *Session) Invalidate(store string) {
	switch store {
	case "memories":
		s.Memory.Invalidate()
	case "episodes":
		s.Episodes.Invalidate()
	case "knowledge":
		s.Knowledge.Invalidate()
	case "opinions":
		s.Opinions.Invalidate()
	case "conflicts":
		s.Conflicts.Invalidate()
	case "relations":
		s.Relations.Invalidate()
	default:
		s.Behavior.Invalidate(store)
	}
}

// Uptime reports how long the session has been open.
func (s *Session) Uptime() time.Duration {
	return time.Since(s.startedAt)
}
