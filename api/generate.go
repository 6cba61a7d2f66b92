package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/qrcraft/qrcraft/render"
	"github.com/qrcraft/qrcraft/studio"
)

type generateRequest struct {
	Text string `json:"text"`
	Size int    `json:"size,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Size == 0 {
		req.Size = s.DefaultSize
	}

	res, err := s.Studio.Submit(r.Context(), req.Text, req.Size)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, studio.ErrBusy):
			status = http.StatusConflict
		case errors.Is(err, render.ErrEmptyInput), errors.Is(err, render.ErrInvalidSize):
			status = http.StatusBadRequest
		}
		writeError(w, status, studio.ErrorMessage(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PNG)))
	w.Header().Set("X-QR-Filename", res.Filename)
	w.Header().Set("X-QR-Level", res.Level.String())
	w.WriteHeader(http.StatusOK)
	w.Write(res.PNG)
}
