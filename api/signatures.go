package api

import (
	"net/http"
	"strings"

	"github.com/GoCodeAlone/redishandles/handle"
	"github.com/GoCodeAlone/redishandles/registry"
)

// SignatureView is the JSON form of one registry entry.
type SignatureView struct {
	Signature string `json:"signature"`
	Method    string `json:"method"`
	Interface string `json:"interface"`
	Type      string `json:"type"`
}

func viewOf(sig string, h *handle.Handle) SignatureView {
	return SignatureView{
		Signature: sig,
		Method:    h.Name(),
		Interface: h.DeclaringType().String(),
		Type:      h.Type().String(),
	}
}

// SignatureHandler serves the registry read-only.
type SignatureHandler struct {
	reg *registry.Registry
}

// NewSignatureHandler creates a SignatureHandler over reg.
func NewSignatureHandler(reg *registry.Registry) *SignatureHandler {
	return &SignatureHandler{reg: reg}
}

// List handles GET /signatures. The interface query parameter keeps entries
// declared on one interface ("StringCmdable" or "redis.StringCmdable"); q
// keeps signatures containing a substring, case-insensitively.
func (h *SignatureHandler) List(w http.ResponseWriter, r *http.Request) {
	iface := r.URL.Query().Get("interface")
	q := strings.ToLower(r.URL.Query().Get("q"))

	views := []SignatureView{}
	for _, sig := range h.reg.Signatures() {
		hd, _ := h.reg.Lookup(sig)
		if iface != "" && !matchesInterface(hd, iface) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(sig), q) {
			continue
		}
		views = append(views, viewOf(sig, hd))
	}

	page, pageSize := parsePagination(r)
	start, end := pageBounds(len(views), page, pageSize)
	WritePaginated(w, views[start:end], len(views), page, pageSize)
}

func matchesInterface(h *handle.Handle, name string) bool {
	t := h.DeclaringType()
	return strings.EqualFold(t.String(), name) || strings.EqualFold(t.Name(), name)
}

// Lookup handles GET /signatures/lookup?signature=.
func (h *SignatureHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	sig := r.URL.Query().Get("signature")
	if sig == "" {
		WriteError(w, http.StatusBadRequest, "signature is required")
		return
	}
	hd, ok := h.reg.Lookup(sig)
	if !ok {
		WriteError(w, http.StatusNotFound, "signature not found")
		return
	}
	WriteJSON(w, http.StatusOK, viewOf(sig, hd))
}

// Duplicates handles GET /signatures/duplicates.
func (h *SignatureHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	dups := h.reg.Duplicates()
	if dups == nil {
		dups = []registry.Duplicate{}
	}
	WriteJSON(w, http.StatusOK, dups)
}

// Health handles GET /healthz.
func (h *SignatureHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"signatures": h.reg.Len(),
	})
}
