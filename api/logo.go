package api

import (
	"errors"
	"net/http"

	"github.com/qrcraft/qrcraft/studio"
)

type logoResponse struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) handleSelectLogo(w http.ResponseWriter, r *http.Request) {
	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	// Room for the multipart framing on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "logo file is required")
		return
	}
	defer file.Close()

	logo, err := s.Studio.SelectLogo(header.Filename, file)
	if err != nil {
		if errors.Is(err, studio.ErrLogoDecode) {
			writeError(w, http.StatusBadRequest, "could not read the selected image")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, logoResponse{Name: logo.Name, Width: logo.Width, Height: logo.Height})
}

func (s *Server) handleClearLogo(w http.ResponseWriter, r *http.Request) {
	s.Studio.ClearLogo()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
