package server

import (
	"net/http"
	"strconv"
)

// Destination and Guide are stub catalogue entries.
type Destination struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

type Guide struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Languages []string `json:"languages"`
}

var destinations = []Destination{
	{ID: "fjords", Name: "Western Fjords", Country: "Norway"},
	{ID: "atlas", Name: "High Atlas Trek", Country: "Morocco"},
	{ID: "kyoto", Name: "Kyoto Temples", Country: "Japan"},
}

var guides = []Guide{
	{ID: "g-101", Name: "Ingrid Solberg", Languages: []string{"en", "no"}},
	{ID: "g-102", Name: "Youssef Amrani", Languages: []string{"en", "fr", "ar"}},
}

func (s *Server) Destinations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"destinations": destinations})
	}
}

func (s *Server) Guides() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"guides": guides})
	}
}

// AdminUsers lists the fixture accounts. Supports ?offset= and ?limit=.
func (s *Server) AdminUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		list, err := s.repos.Users.List(offset, limit)
		if err != nil {
			writeJSONError(w, "server_error", err.Error(), http.StatusInternalServerError)
			return
		}

		resp := map[string]any{"users": list}
		if claims := claimsFromContext(r.Context()); claims != nil {
			resp["requested_by"] = claims.Subject
		}
		writeJSON(w, resp)
	}
}
