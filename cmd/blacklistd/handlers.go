package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PhilipKram/blacklist-index/pkg/adapter"
	"github.com/PhilipKram/blacklist-index/pkg/blacklist"
	"github.com/PhilipKram/blacklist-index/pkg/coordinator"
	"github.com/PhilipKram/blacklist-index/pkg/durablestore"
	"github.com/PhilipKram/blacklist-index/pkg/httputil"
)

// api holds the dependencies HTTP handlers close over.
type api struct {
	coord *coordinator.Coordinator
}

type checkResponse struct {
	Value   string `json:"value"`
	Matched bool   `json:"matched"`
	Source  string `json:"source,omitempty"`
	Kind    string `json:"kind"`
}

func (a *api) handleCheck(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	res, err := adapter.Check(a.coord, value)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, checkResponse{
		Value:   value,
		Matched: res.Matched,
		Source:  res.Source,
		Kind:    string(res.Kind),
	})
}

func (a *api) handleIsDomain(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	source, ok := a.coord.SourceOfDomain(domain)
	httputil.WriteJSON(w, http.StatusOK, checkResponse{Value: domain, Matched: ok, Source: source, Kind: string(blacklist.KindDomain)})
}

func (a *api) handleIsURL(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	source, ok := a.coord.SourceOfURL(value)
	httputil.WriteJSON(w, http.StatusOK, checkResponse{Value: value, Matched: ok, Source: source, Kind: string(blacklist.KindURL)})
}

func (a *api) handleIsIP(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	source, ok := a.coord.SourceOfIP(addr)
	httputil.WriteJSON(w, http.StatusOK, checkResponse{Value: addr, Matched: ok, Source: source, Kind: string(blacklist.KindIP)})
}

func (a *api) handleCountEntries(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"count": a.coord.CountEntries()})
}

func (a *api) handleSourceCounts(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, a.coord.SourceCounts())
}

func (a *api) handleSourceTypeCounts(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, a.coord.SourceTypeCounts())
}

func (a *api) handleActiveSources(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, a.coord.ActiveSources())
}

func (a *api) handleSample(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n < 0 {
		n = 10
	}
	domains := a.coord.SampleDomains(n)
	urls := a.coord.SampleURLs(n)
	ips := a.coord.SampleIPs(n)

	sample := make([]string, 0, n)
	for _, v := range domains {
		if len(sample) >= n {
			break
		}
		sample = append(sample, v)
	}
	for _, v := range urls {
		if len(sample) >= n {
			break
		}
		sample = append(sample, v)
	}
	for _, v := range ips {
		if len(sample) >= n {
			break
		}
		sample = append(sample, v)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{"sample": sample})
}

func (a *api) handleMetrics(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, a.coord.Metrics())
}

func (a *api) handleUpdateHistory(w http.ResponseWriter, r *http.Request) {
	filter := durablestore.UpdateHistoryFilter{Source: r.URL.Query().Get("source")}
	if start := r.URL.Query().Get("start"); start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid start timestamp")
			return
		}
		filter.Start = t
	}
	if end := r.URL.Query().Get("end"); end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid end timestamp")
			return
		}
		filter.End = t
	}

	records, err := a.coord.UpdateHistory(filter)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

type addEntryRequest struct {
	Value  string  `json:"value"`
	Date   string  `json:"date"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (a *api) addHandler(add func(value, date string, score float64, source string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addEntryRequest
		if err := decodeJSON(r, &req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if err := add(req.Value, req.Date, req.Score, req.Source); err != nil {
			writeCoordinatorError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"added": true})
	}
}

type batchItemRequest struct {
	Value string  `json:"value"`
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

type addBatchRequest struct {
	Kind   string             `json:"kind"`
	Source string             `json:"source"`
	Items  []batchItemRequest `json:"items"`
}

func (a *api) handleAddBatch(w http.ResponseWriter, r *http.Request) {
	var req addBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	items := make([]coordinator.BatchItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, coordinator.BatchItem{Value: it.Value, Date: it.Date, Score: it.Score})
	}

	if err := a.coord.AddBatch(blacklist.Kind(req.Kind), req.Source, items); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"accepted": len(items)})
}

type removeRequest struct {
	Value string `json:"value"`
}

func (a *api) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	removed, err := a.coord.Remove(req.Value)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (a *api) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := a.coord.Reload(); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"reloaded": true})
}

type logUpdateRequest struct {
	Source     string `json:"source"`
	EntryCount int    `json:"entry_count"`
}

func (a *api) handleLogUpdate(w http.ResponseWriter, r *http.Request) {
	var req logUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := a.coord.LogUpdate(req.Source, req.EntryCount); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"logged": true})
}

func writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blacklist.ErrInvalidInput):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, blacklist.ErrStorage), errors.Is(err, blacklist.ErrReloadFailure):
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
