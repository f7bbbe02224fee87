package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/mcoot/imposter/internal/api/response"
	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/services/session"
)

// qrSize is the edge length of generated QR codes in pixels
const qrSize = 320

// RoomHandler handles room-related endpoints
type RoomHandler struct {
	coordinator *session.Coordinator
	publicURL   string
}

// NewRoomHandler creates a new room handler. publicURL is the base join
// links point at; when empty it is derived from each request.
func NewRoomHandler(coordinator *session.Coordinator, publicURL string) *RoomHandler {
	return &RoomHandler{
		coordinator: coordinator,
		publicURL:   strings.TrimSuffix(publicURL, "/"),
	}
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, err := model.ParseRoomCode(mux.Vars(r)["code"])
	if err != nil {
		WriteError(w, err)
		return
	}

	room, err := h.coordinator.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// QR handles GET /api/v1/rooms/{code}/qr, returning a PNG join link
func (h *RoomHandler) QR(w http.ResponseWriter, r *http.Request) {
	code, err := model.ParseRoomCode(mux.Vars(r)["code"])
	if err != nil {
		WriteError(w, err)
		return
	}

	if _, err := h.coordinator.GetRoom(r.Context(), code); err != nil {
		WriteError(w, err)
		return
	}

	png, err := qrcode.Encode(h.JoinURL(r, code), qrcode.Medium, qrSize)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// JoinURL builds the link a QR code or share button points at
func (h *RoomHandler) JoinURL(r *http.Request, code model.RoomCode) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?room=" + url.QueryEscape(string(code))
}
