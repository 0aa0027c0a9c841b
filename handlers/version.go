package handlers

import (
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/gorilla/mux"
)

// Version is set at build time with -ldflags "-X airingcal/handlers.Version=...".
var Version string

var versionOnce sync.Once

type VersionHandler struct{}

type VersionResponse struct {
	Version string `json:"version"`
}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// Register mounts GET /api/version on r.
func (h *VersionHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/version", h.GetVersion).Methods(http.MethodGet)
}

// BuildVersion returns the linked-in version, falling back to the module
// version recorded in the binary.
func BuildVersion() string {
	versionOnce.Do(func() {
		if Version != "" {
			return
		}
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
			return
		}
		// Fallback if no version was stamped
		Version = "unknown"
	})
	return Version
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: BuildVersion()})
}
