package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShussainML/schoolmealapp/internal/gallery"
	"github.com/ShussainML/schoolmealapp/internal/generator"
	"github.com/ShussainML/schoolmealapp/internal/httpx"
	"github.com/ShussainML/schoolmealapp/internal/meals"
	"github.com/ShussainML/schoolmealapp/internal/prompt"
)

const sessionCookie = "meal_session"

// GenerateRequest is the payload the UI submits for one generation action.
type GenerateRequest struct {
	FoodDescription      string `json:"food_description"`
	StyleKey             string `json:"style_key"`
	ExtraDetails         string `json:"extra_details,omitempty"`
	ReferenceDescription string `json:"reference_description,omitempty"`
	VariationCount       int    `json:"variation_count,omitempty"`
}

type attemptView struct {
	Index     int    `json:"index"`
	Seed      int64  `json:"seed"`
	OK        bool   `json:"ok"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	RecordID  string `json:"record_id,omitempty"`
}

type recordView struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	Food        string `json:"food_description"`
	StyleKey    string `json:"style_key"`
	Prompt      string `json:"prompt"`
	Seed        int64  `json:"seed"`
	Timestamp   string `json:"timestamp"`
	Elapsed     string `json:"elapsed"`
	DownloadURL string `json:"download_url"`
}

type generateResponse struct {
	Message         string        `json:"message"`
	SuccessCount    int           `json:"success_count"`
	FailureCount    int           `json:"failure_count"`
	GenerationCount int           `json:"generation_count"`
	Attempts        []attemptView `json:"attempts"`
	Records         []recordView  `json:"records"`
}

// sessionFromRequest returns the caller's session ID. When the request
// carried no cookie it mints a fresh ID and returns the cookie that still
// has to be delivered to the client; callers that hijack the connection
// (websocket upgrades) must send it themselves.
func (s *Server) sessionFromRequest(r *http.Request) (string, *http.Cookie) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	id := uuid.NewString()
	return id, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionID returns the caller's session ID, minting a cookie on first use.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	id, cookie := s.sessionFromRequest(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	return id
}

// lang picks the response language from the lang query parameter or the
// first Accept-Language entry; the i18n manager falls back to the default.
func (s *Server) lang(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return s.cfg.DefaultLanguage
	}
	first := strings.TrimSpace(strings.SplitN(accept, ",", 2)[0])
	if idx := strings.IndexAny(first, "-;"); idx > 0 {
		first = first[:idx]
	}
	if first == "" {
		return s.cfg.DefaultLanguage
	}
	return first
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	langs := s.i18n.Languages()
	sort.Strings(langs)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"languages": langs,
	})
}

func (s *Server) handleMeals(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"categories": meals.Catalog()})
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	type styleView struct {
		Key    string `json:"key"`
		Phrase string `json:"phrase"`
	}
	views := make([]styleView, 0, len(s.styles))
	for key, phrase := range s.styles {
		views = append(views, styleView{Key: key, Phrase: phrase})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Key < views[j].Key })
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"styles": views})
}

func (s *Server) handlePromptPreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lang := s.lang(r)

	food := strings.TrimSpace(q.Get("food"))
	if food == "" {
		httpx.WriteError(w, http.StatusBadRequest, s.i18n.T(lang, "error_missing_food", nil))
		return
	}
	styleKey := q.Get("style")
	if styleKey == "" {
		styleKey = prompt.StyleRealisticPhoto
	}
	phrase, ok := s.styles[styleKey]
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, s.i18n.T(lang, "error_unknown_style", map[string]interface{}{"Key": styleKey}))
		return
	}

	ref := q.Get("ref")
	if filename := q.Get("ref_filename"); ref == "" && filename != "" {
		ref = meals.DescribeReference(filename)
	}

	full := prompt.Build(food, phrase, q.Get("extra"), ref)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"prompt": full,
		"length": len(full),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	food := strings.TrimSpace(req.FoodDescription)
	if food == "" {
		httpx.WriteError(w, http.StatusBadRequest, s.i18n.T(lang, "error_missing_food", nil))
		return
	}
	styleKey := req.StyleKey
	if styleKey == "" {
		styleKey = prompt.StyleRealisticPhoto
	}
	phrase, ok := s.styles[styleKey]
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, s.i18n.T(lang, "error_unknown_style", map[string]interface{}{"Key": styleKey}))
		return
	}
	count := req.VariationCount
	if count == 0 {
		count = s.cfg.Generation.DefaultVariations
	}
	if count < 1 || count > s.cfg.Generation.MaxVariations {
		httpx.WriteError(w, http.StatusBadRequest, s.i18n.T(lang, "error_variation_count", map[string]interface{}{"Max": s.cfg.Generation.MaxVariations}))
		return
	}

	fullPrompt := prompt.Build(food, phrase, req.ExtraDetails, req.ReferenceDescription)
	sid := s.sessionID(w, r)
	sess := s.sessions.Get(sid)

	s.logger.Info("starting batch",
		zap.String("session_id", sid),
		zap.String("food", food),
		zap.String("style", styleKey),
		zap.Int("variations", count),
	)

	seedBase := generator.SeedBase(time.Now())
	batch := s.orch.RunBatch(r.Context(), fullPrompt, count, seedBase, func(p generator.Progress) {
		s.hub.publish(sid, ProgressEvent{
			Type:      "variation",
			Index:     p.Index,
			Total:     p.Total,
			Fraction:  p.Fraction,
			OK:        p.OK,
			Seed:      p.Seed,
			ElapsedMS: p.Elapsed.Milliseconds(),
		})
	})

	records := make([]*gallery.Record, 0, batch.SuccessCount)
	logs := make([]gallery.DebugEntry, 0, len(batch.Attempts))
	attempts := make([]attemptView, 0, len(batch.Attempts))
	for _, a := range batch.Attempts {
		view := attemptView{
			Index:     a.Index,
			Seed:      a.Seed,
			OK:        a.Result.OK(),
			ErrorKind: string(a.Result.Reason),
			Message:   a.Result.Message,
			ElapsedMS: a.Result.Elapsed.Milliseconds(),
		}
		status := "success"
		if !a.Result.OK() {
			status = string(a.Result.Reason)
		}
		logs = append(logs, gallery.DebugEntry{
			Time:      a.CompletedAt.Format("15:04:05"),
			Variation: a.Index + 1,
			Status:    status,
			Elapsed:   fmt.Sprintf("%.1fs", a.Result.Elapsed.Seconds()),
			Debug:     a.Result.Debug,
		})

		if a.Result.OK() {
			rec, err := gallery.NewRecord(a.Result.Image, fullPrompt, food, styleKey, a.Seed, a.Result.Elapsed)
			if err != nil {
				s.logger.Error("failed to build record", zap.Error(err), zap.Int64("seed", a.Seed))
				view.OK = false
				view.ErrorKind = "encode_error"
				view.Message = err.Error()
				attempts = append(attempts, view)
				continue
			}
			view.RecordID = rec.ID
			records = append(records, rec)
		}
		attempts = append(attempts, view)
	}

	sess.AddBatch(records, logs)

	successCount := len(records)
	failureCount := count - successCount
	var message string
	switch {
	case successCount == 0:
		message = s.i18n.T(lang, "batch_all_failed", nil)
	case failureCount > 0:
		message = s.i18n.T(lang, "batch_partial", map[string]interface{}{"Failure": failureCount})
	default:
		message = s.i18n.T(lang, "batch_success", map[string]interface{}{"Success": successCount, "Total": count})
	}

	httpx.WriteJSON(w, http.StatusOK, generateResponse{
		Message:         message,
		SuccessCount:    successCount,
		FailureCount:    failureCount,
		GenerationCount: sess.GenerationCount(),
		Attempts:        attempts,
		Records:         recordViews(records),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(s.sessionID(w, r))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"generation_count": sess.GenerationCount(),
		"records":          recordViews(sess.Records()),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	s.sessions.Get(sid).Clear()
	s.logger.Info("session cleared", zap.String("session_id", sid))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(s.sessionID(w, r))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"entries": sess.DebugLog()})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(s.sessionID(w, r))
	rec, ok := sess.Record(chi.URLParam(r, "recordID"))
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "image not found in this session")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.FileName()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.PNG)
}

func recordViews(records []*gallery.Record) []recordView {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{
			ID:          rec.ID,
			FileName:    rec.FileName(),
			Food:        rec.Food,
			StyleKey:    rec.StyleKey,
			Prompt:      rec.Prompt,
			Seed:        rec.Seed,
			Timestamp:   rec.CreatedAt.Format("15:04:05"),
			Elapsed:     fmt.Sprintf("%.1fs", rec.Elapsed.Seconds()),
			DownloadURL: "/api/images/" + rec.ID,
		})
	}
	return views
}
