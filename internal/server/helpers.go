package server

import (
	"context"
	"encoding/json"
	"net/http"
)

type paramsKeyType string

const paramsKey paramsKeyType = "auctiond_path_params"

// pathParam reads a gin path parameter injected by wrap.
func pathParam(r *http.Request, key string) string {
	m, _ := r.Context().Value(paramsKey).(map[string]string)
	return m[key]
}

func withParams(ctx context.Context, m map[string]string) context.Context {
	return context.WithValue(ctx, paramsKey, m)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
