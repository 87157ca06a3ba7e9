package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hollowmap/docdb/internal/docdb"
)

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return docdb.NewMalformed(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func writeEmpty(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

type setRequest struct {
	Key   string      `json:"key"`
	Value docdb.Value `json:"value"`
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Key == "" {
		writeError(w, docdb.NewMalformed("key is required"))
		return
	}
	if err := s.engine.Set(req.Key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeEmpty(w, http.StatusOK)
}

type keyRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Key == "" {
		writeError(w, docdb.NewMalformed("key is required"))
		return
	}
	doc, err := s.engine.Get(req.Key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type getPartialRequest struct {
	Key    string   `json:"key"`
	Fields []string `json:"fields"`
}

func (s *Server) handleGetPartial(w http.ResponseWriter, r *http.Request) {
	var req getPartialRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Key == "" {
		writeError(w, docdb.NewMalformed("key is required"))
		return
	}
	doc, err := s.engine.Get(req.Key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docdb.Project(doc, req.Fields))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Key == "" {
		writeError(w, docdb.NewMalformed("key is required"))
		return
	}
	if err := s.engine.Delete(req.Key); err != nil {
		writeError(w, err)
		return
	}
	writeEmpty(w, http.StatusOK)
}

type batchSetItem struct {
	Key   string      `json:"key"`
	Value docdb.Value `json:"value"`
}

func (s *Server) handleBatchSet(w http.ResponseWriter, r *http.Request) {
	var items []batchSetItem
	if err := decodeBody(r, &items); err != nil {
		writeError(w, err)
		return
	}
	docs := make(map[string]docdb.Value, len(items))
	for i, it := range items {
		if it.Key == "" {
			writeError(w, docdb.NewMalformed(fmt.Sprintf("items[%d]: key is required", i)))
			return
		}
		docs[it.Key] = it.Value
	}
	if err := s.engine.BatchSet(docs); err != nil {
		writeError(w, err)
		return
	}
	writeEmpty(w, http.StatusOK)
}

type mutationEntry struct {
	Type  string      `json:"type"`
	Key   string      `json:"key"`
	Value docdb.Value `json:"value"`
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	var entries []mutationEntry
	if err := decodeBody(r, &entries); err != nil {
		writeError(w, err)
		return
	}
	muts := make([]docdb.Mutation, 0, len(entries))
	for i, m := range entries {
		if m.Key == "" {
			writeError(w, docdb.NewMalformed(fmt.Sprintf("mutations[%d]: key is required", i)))
			return
		}
		switch m.Type {
		case "set":
			muts = append(muts, docdb.SetMutation(m.Key, m.Value))
		case "delete":
			muts = append(muts, docdb.DeleteMutation(m.Key))
		default:
			writeError(w, docdb.NewMalformed(fmt.Sprintf("mutations[%d]: unknown type %q", i, m.Type)))
			return
		}
	}
	if err := s.engine.Transaction(muts); err != nil {
		writeError(w, err)
		return
	}
	writeEmpty(w, http.StatusOK)
}

type clearPrefixRequest struct {
	Prefix string `json:"prefix"`
}

func (s *Server) handleClearPrefix(w http.ResponseWriter, r *http.Request) {
	var req clearPrefixRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.engine.ClearPrefix(req.Prefix)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleDropDatabase(w http.ResponseWriter, r *http.Request) {
	n, err := s.engine.DropDatabase()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

type queryASTRequest struct {
	AST        json.RawMessage `json:"ast"`
	Projection []string        `json:"projection"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

func (s *Server) handleQueryAST(w http.ResponseWriter, r *http.Request) {
	var req queryASTRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.AST) == 0 {
		writeError(w, docdb.NewMalformed("ast is required"))
		return
	}
	q, err := decodeAST(req.AST)
	if err != nil {
		writeError(w, docdb.NewMalformed(err.Error()))
		return
	}
	s.runQuery(w, r, q, req.Projection, req.Offset, req.Limit)
}

type queryRadiusRequest struct {
	Field  string  `json:"field"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius float64 `json:"radius"`
}

func (s *Server) handleQueryRadius(w http.ResponseWriter, r *http.Request) {
	var req queryRadiusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Field == "" {
		writeError(w, docdb.NewMalformed("field is required"))
		return
	}
	q := docdb.GeoWithinRadius(req.Field, req.Lat, req.Lon, req.Radius)
	s.runQuery(w, r, q, nil, 0, 0)
}

type queryBoxRequest struct {
	Field  string  `json:"field"`
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

func (s *Server) handleQueryBox(w http.ResponseWriter, r *http.Request) {
	var req queryBoxRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Field == "" {
		writeError(w, docdb.NewMalformed("field is required"))
		return
	}
	q := docdb.GeoInBox(req.Field, req.MinLat, req.MinLon, req.MaxLat, req.MaxLon)
	s.runQuery(w, r, q, nil, 0, 0)
}

// runQuery answers every /query/* endpoint with a bare JSON array of
// (projected) documents, per spec.md §6 — no key, no wrapper object.
func (s *Server) runQuery(w http.ResponseWriter, r *http.Request, q *docdb.Query, projection []string, offset, limit int) {
	results, err := s.engine.Query(r.Context(), docdb.QueryRequest{
		Query:      q,
		Projection: projection,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	docs := make([]docdb.Value, len(results))
	for i, res := range results {
		docs[i] = res.Doc
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleExport returns the snapshot double-encoded: a JSON string whose
// content is the JSON array text, matching spec.md §6 and
// original_source's export_handler (`Json(data_string)` over an
// already-serialized string).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	items, err := s.engine.Export()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, string(docdb.EncodeJSONDocuments(items)))
}

// handleImport decodes the POST body as a bare JSON array (per
// spec.md §6) and re-serializes it to a string before calling
// Engine.ImportJSON, mirroring original_source's import_handler
// (main.rs:272-286): Axum decodes the payload, then hands the
// re-serialized string to logic::import_data rather than the decoded
// slice directly.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.ImportJSON(string(raw)); err != nil {
		writeError(w, err)
		return
	}
	writeEmpty(w, http.StatusCreated)
}
