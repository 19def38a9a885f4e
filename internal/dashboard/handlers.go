package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tkingovr/xapictl/api"
	"github.com/tkingovr/xapictl/internal/filter"
)

const defaultPageSize = 100

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := s.auditStore.Stats(r.Context(), api.QueryFilter{})
	if err != nil {
		s.logger.Error("computing stats", "error", err)
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Page":  "overview",
		"Stats": stats,
	}
	renderPage(w, "overview", data)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	f, err := queryFilter(r.URL.Query(), time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := s.auditStore.Query(r.Context(), f)
	if err != nil {
		s.logger.Error("querying audit log", "error", err)
		http.Error(w, "failed to query audit log", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Page":    "audit",
		"Records": records,
		"Filter":  f,
	}
	renderPage(w, "audit", data)
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Page": "policy",
	}
	if s.cfg != nil {
		data["ProfilePath"] = s.cfg.ProfilePath
		data["OPAPolicy"] = s.cfg.OPAPolicy
		if s.cfg.Profile != nil {
			profileYAML, err := s.cfg.MarshalYAML()
			if err != nil {
				http.Error(w, "failed to render profile", http.StatusInternalServerError)
				return
			}
			data["PolicyYAML"] = string(profileYAML)
		}
	}
	renderPage(w, "policy", data)
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	f, err := queryFilter(r.URL.Query(), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stats, err := s.auditStore.Stats(r.Context(), f)
	if err != nil {
		s.logger.Error("computing stats", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to get stats"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	f, err := queryFilter(r.URL.Query(), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, err := s.auditStore.Query(r.Context(), f)
	if err != nil {
		s.logger.Error("querying audit log", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to query audit log"))
		return
	}
	if records == nil {
		records = []*api.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAPICheck(w http.ResponseWriter, r *http.Request) {
	var req api.CheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}
	if req.Class == "" || req.Method == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("class and method are required"))
		return
	}

	var host, user string
	if s.cfg != nil {
		host, user = s.cfg.Host, s.cfg.User
	}
	tokens := append([]string{req.Class, req.Method}, req.Args...)
	cc := filter.NewCallContext(tokens, host, user)
	if err := s.requestChain().Process(r.Context(), cc); err != nil {
		s.logger.Error("policy check failed", "call", cc.Call(), "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, api.CheckResponse{
		Call:    cc.Call(),
		Verdict: cc.Verdict,
		Rule:    cc.MatchedRule,
		Message: cc.VerdictMessage,
	})
}

// queryFilter reads history criteria from URL query parameters.
func queryFilter(q url.Values, now time.Time) (api.QueryFilter, error) {
	f := api.QueryFilter{
		Class:   q.Get("class"),
		Method:  q.Get("method"),
		Verdict: api.Verdict(q.Get("verdict")),
		Outcome: api.Outcome(q.Get("outcome")),
		Limit:   defaultPageSize,
	}

	switch f.Verdict {
	case "", api.VerdictAllow, api.VerdictDeny, api.VerdictAsk, api.VerdictLog:
	default:
		return f, fmt.Errorf("invalid verdict %q", f.Verdict)
	}
	switch f.Outcome {
	case "", api.OutcomeSuccess, api.OutcomeFailure, api.OutcomeBlocked:
	default:
		return f, fmt.Errorf("invalid outcome %q", f.Outcome)
	}

	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid %s %q", name, v)
		}
		*dst = n
	}

	if v := q.Get("since"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			f.Since = now.Add(-d)
		} else if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.Since = t
		} else {
			return f, fmt.Errorf("invalid since %q", v)
		}
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
