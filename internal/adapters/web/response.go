package web

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"el-estate-bot/internal/infra/logger"

	"go.uber.org/zap"
)

// writeJSON кодирует v в тело ответа. Ошибку записи логирует с местом вызова.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", zap.String("caller", callerLocation()), zap.Error(err))
	}
}

// callerLocation возвращает file:line вызывающего writeJSON относительно рабочего каталога.
func callerLocation() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, file); err == nil {
			file = rel
		}
	}
	return file + ":" + strconv.Itoa(line)
}
