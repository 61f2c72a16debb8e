package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GetAnima/anima-memory/internal/behavior"
	"github.com/GetAnima/anima-memory/internal/conflict"
	"github.com/GetAnima/anima-memory/internal/episode"
	"github.com/GetAnima/anima-memory/internal/memory"
)

func (s *Server) handleRemember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content         string   `json:"content"`
		Type            string   `json:"type"`
		Importance      string   `json:"importance"`
		Tags            []string `json:"tags"`
		EmotionalWeight *float64 `json:"emotional_weight"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := s.sess.Remember(req.Content, memory.RememberOpts{
		Type:            memory.Type(req.Type),
		Importance:      memory.Importance(req.Importance),
		Tags:            req.Tags,
		EmotionalWeight: req.EmotionalWeight,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("q parameter required"))
		return
	}
	limit := intParam(r, "limit", 10)

	results, err := s.sess.Memory.Recall(query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": results, "count": len(results)})
}

func (s *Server) handleDecay(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sess.Memory.RunDecay()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCurate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HoursBack     int     `json:"hours_back"`
		MinImportance string  `json:"min_importance"`
		MinSalience   float64 `json:"min_salience"`
		DryRun        bool    `json:"dry_run"`
	}
	// An empty body means defaults.
	_ = decodeBody(r, &req)

	stats, err := s.sess.Memory.Curate(memory.CurateOpts{
		HoursBack:     req.HoursBack,
		MinImportance: memory.Importance(req.MinImportance),
		MinSalience:   req.MinSalience,
		DryRun:        req.DryRun,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecordEpisode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title           string              `json:"title"`
		Summary         string              `json:"summary"`
		EmotionalWeight *float64            `json:"emotional_weight"`
		Participants    []string            `json:"participants"`
		Tags            []string            `json:"tags"`
		Lessons         []string            `json:"lessons"`
		Connections     episode.Connections `json:"connections"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	e, err := s.sess.RecordEpisode(req.Title, req.Summary, episode.RecordOpts{
		EmotionalWeight: req.EmotionalWeight,
		Participants:    req.Participants,
		Tags:            req.Tags,
		Lessons:         req.Lessons,
		Connections:     req.Connections,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, episode.ErrAtCapacity) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleQueryEpisodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := episode.Filter{
		Text:            q.Get("text"),
		Tags:            q["tag"],
		Participants:    q["participant"],
		IncludeArchived: q.Get("include_archived") == "true",
		Limit:           intParam(r, "limit", 10),
	}
	if v := q.Get("min_importance"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinImportance = n
		}
	}
	if v := q.Get("since"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			f.After = ts
		}
	}

	results, err := s.sess.Episodes.Query(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"episodes": results, "count": len(results)})
}

func (s *Server) handleAddLesson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lesson string `json:"lesson"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	e, err := s.sess.Episodes.AddLesson(chi.URLParam(r, "id"), req.Lesson)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, episode.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var conns episode.Connections
	if err := decodeBody(r, &conns); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	e, err := s.sess.Episodes.Connect(chi.URLParam(r, "id"), conns)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, episode.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sess.Episodes.Consolidate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic          string   `json:"topic"`
		Insight        string   `json:"insight"`
		Confidence     *float64 `json:"confidence"`
		Tags           []string `json:"tags"`
		SourceEpisodes []string `json:"source_episodes"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := s.sess.Knowledge.Learn(req.Topic, req.Insight, episode.LearnOpts{
		Confidence:     req.Confidence,
		Tags:           req.Tags,
		SourceEpisodes: req.SourceEpisodes,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, episode.ErrKnowledgeRejected) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleGetKnowledge(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	entry := s.sess.Knowledge.Get(topic)
	if entry == nil {
		writeError(w, http.StatusNotFound, errors.New("no knowledge for topic"))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Situation string `json:"situation"`
		Action    string `json:"action"`
		Success   bool   `json:"success"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.sess.Behavior.Decisions.Decide(req.Situation, req.Action, req.Success); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleBestAction(w http.ResponseWriter, r *http.Request) {
	situation := r.URL.Query().Get("situation")
	action, outcome := s.sess.Behavior.Decisions.BestAction(situation)
	if outcome == nil {
		writeError(w, http.StatusNotFound, errors.New("no outcomes for situation"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"action": action, "outcome": outcome})
}

func (s *Server) handleHypothesize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Belief     string   `json:"belief"`
		Confidence *float64 `json:"confidence"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	confidence := 0.5
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	hyp, err := s.sess.Behavior.Hypotheses.Hypothesize(req.Belief, confidence)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, hyp)
}

func (s *Server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Belief   string `json:"belief"`
		Supports bool   `json:"supports"`
		Note     string `json:"note"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hyp, err := s.sess.Behavior.Hypotheses.Evidence(req.Belief, req.Supports, req.Note)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, hyp)
}

func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request) {
	var v behavior.ParamValue
	if err := decodeBody(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.sess.Behavior.Params.Set(chi.URLParam(r, "key"), v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

func (s *Server) handleListParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Behavior.Params.All())
}

func (s *Server) handleRecordFailure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Situation      string   `json:"situation"`
		FailedApproach string   `json:"failed_approach"`
		BetterApproach string   `json:"better_approach"`
		Tags           []string `json:"tags"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	f, err := s.sess.Behavior.Failures.RecordFailure(req.Situation, req.FailedApproach, req.BetterApproach, req.Tags)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleCheckFailures(w http.ResponseWriter, r *http.Request) {
	situation := r.URL.Query().Get("situation")
	if situation == "" {
		writeError(w, http.StatusBadRequest, errors.New("situation parameter required"))
		return
	}
	matches, err := s.sess.Behavior.Failures.CheckFailures(situation)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches, "count": len(matches)})
}

func (s *Server) handleSetOpinion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := s.sess.Opinions.Set(req.Topic, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	include := r.URL.Query().Get("include_resolved") == "true"
	conflicts := s.sess.Conflicts.List(include)
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts, "count": len(conflicts)})
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resolution string `json:"resolution"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.sess.Conflicts.Resolve(chi.URLParam(r, "id"), req.Resolution)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, conflict.ErrConflictNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleRecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Note string `json:"note"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.sess.Relations.RecordInteraction(req.Name, req.Note)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleBoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Boot())
}

func (s *Server) handleReflect(w http.ResponseWriter, r *http.Request) {
	report, err := s.sess.Reflect()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func intParam(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
