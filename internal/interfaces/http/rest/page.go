package rest

import (
	_ "embed"
	"net/http"
)

// The page is a static shell; all state flows through the JSON API. The
// interactive visualization is delegated to vis-network on the client,
// the portal only delivers canonical nodes and edges.
//
//go:embed web/index.html
var portalPage []byte

// Page serves the portal shell.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(portalPage)
}
