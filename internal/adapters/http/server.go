package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"prospect/internal/domain"
	"prospect/internal/ports"
)

// Server exposes the scoring and validation services over JSON/HTTP.
type Server struct {
	opportunities ports.Opportunities
	review        ports.Review
	sessions      ports.Sessions
	validate      *validator.Validate
	log           *logrus.Logger
}

func New(opportunities ports.Opportunities, review ports.Review, sessions ports.Sessions, log *logrus.Logger) *Server {
	return &Server{
		opportunities: opportunities,
		review:        review,
		sessions:      sessions,
		validate:      validator.New(),
		log:           log,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)

	r.Route("/opportunities", func(r chi.Router) {
		r.Post("/", s.handleIngest)
		r.Get("/pending", s.handlePending)
		r.Get("/{id}", s.handleGetOpportunity)
		r.Post("/{id}/approve", s.handleApprove)
		r.Post("/{id}/reject", s.handleReject)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleOpenSession)
		r.Get("/{id}", s.handleGetSession)
		r.Post("/{id}/signals", s.handleRecordSignal)
		r.Post("/{id}/traffic", s.handleRecordTraffic)
		r.Post("/{id}/force", s.handleForceStatus)
		r.Post("/{id}/extend", s.handleExtendDeadline)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	Title              string      `json:"title" validate:"required,min=3,max=200"`
	PrimaryKeyword     string      `json:"primary_keyword" validate:"required"`
	RedditMentions     int         `json:"reddit_mentions" validate:"gte=0"`
	RedditMentionTimes []time.Time `json:"reddit_mention_times,omitempty"`
	TwitterMentions    int         `json:"twitter_mentions" validate:"gte=0"`
	TrendScore         float64     `json:"trend_score" validate:"gte=0,lte=1"`
	CPC                float64     `json:"cpc" validate:"gte=0"`
	CompetitorCount    int         `json:"competitor_count" validate:"gte=0"`
	CompetitorStrength string      `json:"competitor_strength" validate:"omitempty,oneof=none weak strong"`
	EvidenceURLs       []string    `json:"evidence_urls,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !s.decode(w, r, &req) {
		return
	}
	strength := domain.CompetitorStrength(req.CompetitorStrength)
	if req.CompetitorStrength == "" {
		strength = domain.CompetitorNone
	}
	opp, err := s.opportunities.Ingest(r.Context(), ports.IngestInput{
		Title:          req.Title,
		PrimaryKeyword: req.PrimaryKeyword,
		Raw: domain.RawSignals{
			RedditMentions:     req.RedditMentions,
			RedditMentionTimes: req.RedditMentionTimes,
			TwitterMentions:    req.TwitterMentions,
			TrendScore:         req.TrendScore,
			CPC:                req.CPC,
			CompetitorCount:    req.CompetitorCount,
			CompetitorStrength: strength,
		},
		EvidenceURLs: req.EvidenceURLs,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, opportunityResponse(opp))
}

func (s *Server) handleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := s.opportunities.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, opportunityResponse(opp))
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.review.Pending(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(pending))
	for _, p := range pending {
		item := opportunityResponse(&p.Opportunity)
		item["band"] = p.Band
		items = append(items, item)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "opportunities": items})
}

type approveRequest struct {
	Method string `json:"method" validate:"required,oneof=organic paid skip"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.review.Approve(r.Context(), chi.URLParam(r, "id"), domain.ValidationMethod(req.Method))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := map[string]any{"method": req.Method}
	if sess != nil {
		resp["session"] = sessionResponse(sess)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if !s.decode(w, r, &req) {
		return
	}
	opp, err := s.review.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, opportunityResponse(opp))
}

type openSessionRequest struct {
	OpportunityID string `json:"opportunity_id" validate:"required"`
	Method        string `json:"method" validate:"omitempty,oneof=organic paid"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	method := domain.ValidationMethod(req.Method)
	if req.Method == "" {
		method = domain.MethodOrganic
	}
	sess, err := s.sessions.Open(r.Context(), req.OpportunityID, method)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, res, err := s.sessions.Evaluate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := sessionResponse(sess)
	resp["points"] = res.Points
	if res.Status == domain.SessionRunning && sess.Method == domain.MethodOrganic {
		resp["points_needed"] = res.PointsNeeded
	}
	if sess.Method == domain.MethodPaid {
		resp["cvr"] = res.CVR
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type recordSignalRequest struct {
	SignalType string `json:"signal_type" validate:"required"`
	Count      int    `json:"count" validate:"omitempty,gte=1"`
}

func (s *Server) handleRecordSignal(w http.ResponseWriter, r *http.Request) {
	var req recordSignalRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	sess, err := s.sessions.RecordSignal(r.Context(), chi.URLParam(r, "id"), domain.SignalType(req.SignalType), req.Count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse(sess))
}

type recordTrafficRequest struct {
	Visits  int `json:"visits" validate:"gte=0"`
	Signups int `json:"signups" validate:"gte=0"`
}

func (s *Server) handleRecordTraffic(w http.ResponseWriter, r *http.Request) {
	var req recordTrafficRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.sessions.RecordTraffic(r.Context(), chi.URLParam(r, "id"), req.Visits, req.Signups)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse(sess))
}

type forceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=passed failed"`
}

func (s *Server) handleForceStatus(w http.ResponseWriter, r *http.Request) {
	var req forceStatusRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.sessions.ForceStatus(r.Context(), chi.URLParam(r, "id"), domain.SessionStatus(req.Status))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": res.Status, "points": res.Points})
}

type extendDeadlineRequest struct {
	Days int `json:"days" validate:"required,gte=1,lte=30"`
}

func (s *Server) handleExtendDeadline(w http.ResponseWriter, r *http.Request) {
	var req extendDeadlineRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.sessions.ExtendDeadline(r.Context(), chi.URLParam(r, "id"), req.Days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func opportunityResponse(opp *domain.Opportunity) map[string]any {
	resp := map[string]any{
		"id":                  opp.ID,
		"title":               opp.Title,
		"primary_keyword":     opp.PrimaryKeyword,
		"status":              opp.Status,
		"demand_score":        opp.Score.Demand,
		"intent_score":        opp.Score.Intent,
		"competition_penalty": opp.Score.CompetitionPenalty,
		"opportunity_score":   opp.Score.Total,
		"confidence":          opp.Score.Confidence,
		"evidence_domains":    opp.EvidenceDomains,
		"created_at":          opp.CreatedAt,
	}
	if opp.RetryEligibleAfter != nil {
		resp["retry_eligible_after"] = opp.RetryEligibleAfter
	}
	return resp
}

func sessionResponse(sess *domain.ValidationSession) map[string]any {
	resp := map[string]any{
		"id":             sess.ID,
		"opportunity_id": sess.OpportunityID,
		"method":         sess.Method,
		"status":         sess.Status,
		"opened_at":      sess.OpenedAt,
		"deadline":       sess.Deadline,
	}
	switch sess.Method {
	case domain.MethodPaid:
		resp["visits"] = sess.Visits
		resp["signups"] = sess.Signups
	default:
		resp["signals"] = sess.Signals
	}
	if sess.RetryEligibleAfter != nil {
		resp["retry_eligible_after"] = sess.RetryEligibleAfter
	}
	return resp
}

// decode unmarshals and validates a JSON body, writing the 400 itself when
// the payload is bad.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyOpen),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrDuplicate):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("response encode failed")
	}
}
