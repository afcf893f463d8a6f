package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"courtshadows/internal/server/store"
)

// REST 介面只負責帳號：註冊、登入換憑證、查檔案與全站統計。
// 其餘一切走 WebSocket。

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (*credentialsRequest, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "僅接受 POST")
		return nil, false
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "請求格式錯誤")
		return nil, false
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "帳號與密碼不可為空")
		return nil, false
	}
	return &req, true
}

// HandleRegister 註冊後直接回發憑證，省一次登入
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := s.store.CreateUser(req.Username, req.Password); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrUsernameTaken) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	token, err := s.auth.Generate(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "簽發憑證失敗")
		return
	}

	s.log.Info().Str("user", req.Username).Msg("新帳號註冊")
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, Username: req.Username})
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := s.store.Authenticate(req.Username, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	token, err := s.auth.Generate(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "簽發憑證失敗")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Username: req.Username})
}

// HandleProfile 以 Authorization: Bearer 憑證查詢自己的檔案
func (s *Server) HandleProfile(w http.ResponseWriter, r *http.Request) {
	const bearerPrefix = "Bearer "

	header := r.Header.Get("Authorization")
	if len(header) <= len(bearerPrefix) || header[:len(bearerPrefix)] != bearerPrefix {
		writeError(w, http.StatusUnauthorized, "缺少身份憑證")
		return
	}

	username, err := s.auth.Verify(header[len(bearerPrefix):])
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	profile, err := s.store.GetProfile(username)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleStats 公開的全站即時統計
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}
