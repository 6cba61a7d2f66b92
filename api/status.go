package api

import (
	"net/http"

	"github.com/qrcraft/qrcraft/studio"
)

type statusResponse struct {
	State   string         `json:"state"`
	Logo    *logoResponse  `json:"logo"`
	Notice  *studio.Notice `json:"notice"`
	Sizes   []int          `json:"sizes"`
	Version string         `json:"version"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		State:   string(s.Studio.State()),
		Sizes:   s.Studio.AllowedSizes(),
		Version: s.Version,
	}
	if l, ok := s.Studio.Logo(); ok {
		resp.Logo = &logoResponse{Name: l.Name, Width: l.Width, Height: l.Height}
	}
	if n, ok := s.Studio.Notice(); ok {
		resp.Notice = &n
	}

	writeJSON(w, http.StatusOK, resp)
}
