package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Dorico-Dynamics/txova-go-core/errors"
	"github.com/Dorico-Dynamics/txova-go-types/contact"
)

// maxBodyBytes bounds every JSON request body read by the portal.
const maxBodyBytes = 1 << 20

type okResponse struct {
	OK bool `json:"ok"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.invalidInput(w, r)
		return
	}
	email, err := contact.ParseEmail(req.Email)
	if err != nil {
		s.invalidInput(w, r)
		return
	}

	pair, err := s.svc.Account.Login(r.Context(), email, req.Password)
	if err != nil {
		s.resp.WriteRouteError(w, r, err, MsgLoginFailed, http.StatusUnauthorized)
		return
	}

	s.cookies.SetTokens(w, pair)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(s.cookies.Names.Refresh)
	if err != nil || c.Value == "" {
		s.cookies.Clear(w)
		writeJSON(w, http.StatusUnauthorized, ErrorBody{Error: "No refresh token"})
		return
	}

	pair, err := s.svc.Account.Refresh(r.Context(), c.Value)
	if err != nil {
		s.cookies.Clear(w)
		s.resp.WriteRouteError(w, r, err, MsgRefreshFailed, http.StatusUnauthorized)
		return
	}

	s.cookies.SetTokens(w, pair)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Account.Logout(r.Context(), r.Header.Get("Cookie")); err != nil && s.logger != nil {
		s.logger.DebugContext(r.Context(), "backend logout failed",
			"error", err.Error(),
		)
	}

	s.cookies.Clear(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	raw, err := readBody(r)
	if err == nil {
		err = json.Unmarshal(raw, &body)
	}
	if err != nil || body == nil {
		s.invalidInput(w, r)
		return
	}

	if rawEmail, ok := body["email"]; ok {
		var email string
		if json.Unmarshal(rawEmail, &email) != nil {
			s.invalidInput(w, r)
			return
		}
		if _, err := contact.ParseEmail(email); err != nil {
			s.invalidInput(w, r)
			return
		}
	}

	out, err := s.svc.Account.Register(r.Context(), raw)
	if err != nil {
		s.resp.WriteRouteError(w, r, err, MsgRegisterFailed, http.StatusBadRequest)
		return
	}

	writeRaw(w, http.StatusOK, out)
}

func (s *Server) invalidInput(w http.ResponseWriter, r *http.Request) {
	s.resp.WriteRouteError(w, r, errors.ValidationError(Message(MsgInvalidInput, LocaleFromRequest(r))), MsgInvalidInput, http.StatusBadRequest)
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// decodeBody decodes the JSON request body into dest.
func decodeBody(r *http.Request, dest any) error {
	raw, err := readBody(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// jsonBody reads the request body as a JSON document. Invalid JSON is a validation error.
func jsonBody(r *http.Request) (json.RawMessage, error) {
	raw, err := readBody(r)
	if err != nil {
		return nil, errors.ValidationError("failed to read request body")
	}
	if !json.Valid(raw) {
		return nil, errors.ValidationError("request body is not valid JSON")
	}
	return raw, nil
}

// writeRaw writes a JSON document received from the backend. An empty document is written as null.
func writeRaw(w http.ResponseWriter, status int, doc json.RawMessage) {
	if len(doc) == 0 {
		doc = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(doc)
}
