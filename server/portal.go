package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Dorico-Dynamics/txova-go-core/errors"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
	"github.com/Dorico-Dynamics/txova-go-portal/services/post"
	"github.com/Dorico-Dynamics/txova-go-portal/services/profile"
)

// sessionHandler serves an authenticated route and returns the JSON value to write.
type sessionHandler func(ctx context.Context, r *http.Request, sess *auth.Session) (any, error)

// authed builds the request session from cookies, runs h and writes back any rotated
// tokens before the response.
func (s *Server) authed(h sessionHandler, fallback MessageKey, defaultStatus int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.FromRequest(r, s.cookies.Names)
		v, err := h(r.Context(), r, sess)
		s.cookies.WriteRotated(w, sess)
		if err != nil {
			s.resp.WriteRouteError(w, r, err, fallback, defaultStatus)
			return
		}

		if raw, ok := v.(json.RawMessage); ok {
			writeRaw(w, http.StatusOK, raw)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) getProfile(ctx context.Context, _ *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Profile.Get(ctx, sess)
}

func (s *Server) updateProfile(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	body, err := jsonBody(r)
	if err != nil {
		return nil, err
	}
	return s.svc.Profile.Update(ctx, sess, body)
}

// handleDeleteProfile deletes the account and ends the session.
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	sess := auth.FromRequest(r, s.cookies.Names)
	if err := s.svc.Profile.Delete(r.Context(), sess); err != nil {
		s.cookies.WriteRotated(w, sess)
		s.resp.WriteRouteError(w, r, err, MsgProfileDeleteFailed, http.StatusBadRequest)
		return
	}

	s.cookies.Clear(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) changePassword(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	var input profile.ChangePasswordInput
	body, err := jsonBody(r)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, errors.ValidationError("invalid password change request")
	}
	if err := s.svc.Profile.ChangePassword(ctx, sess, input); err != nil {
		return nil, err
	}
	return okResponse{OK: true}, nil
}

func (s *Server) getClub(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Club.Get(ctx, sess, r.PathValue("slug"))
}

func (s *Server) updateClub(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	body, err := jsonBody(r)
	if err != nil {
		return nil, err
	}
	return s.svc.Club.Update(ctx, sess, r.PathValue("slug"), body)
}

func (s *Server) deleteClub(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	if err := s.svc.Club.Delete(ctx, sess, r.PathValue("slug")); err != nil {
		return nil, err
	}
	return okResponse{OK: true}, nil
}

func (s *Server) listPlayers(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Club.ListPlayers(ctx, sess, r.PathValue("slug"))
}

func (s *Server) addPlayer(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	body, err := jsonBody(r)
	if err != nil {
		return nil, err
	}
	return s.svc.Club.AddPlayer(ctx, sess, r.PathValue("slug"), body)
}

func (s *Server) patchPlayer(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	body, err := jsonBody(r)
	if err != nil {
		return nil, err
	}
	return s.svc.Club.PatchPlayer(ctx, sess, r.PathValue("slug"), body)
}

func (s *Server) listClubPosts(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Club.ListPosts(ctx, sess, r.PathValue("slug"))
}

func (s *Server) listClubNews(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Club.ListNews(ctx, sess, r.PathValue("slug"))
}

func (s *Server) listGlobalPosts(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Post.Global(ctx, sess, post.FiltersFromQuery(r.URL.Query()))
}

func (s *Server) listClubScopedPosts(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Post.Club(ctx, sess, r.PathValue("clubSlug"), post.FiltersFromQuery(r.URL.Query()))
}

func (s *Server) listAthletePosts(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Post.Athlete(ctx, sess, r.PathValue("athleteSlug"), post.FiltersFromQuery(r.URL.Query()))
}

func (s *Server) getGlobalPost(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Post.GlobalDetail(ctx, sess, r.PathValue("postId"))
}

func (s *Server) getClubPost(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Post.ClubDetail(ctx, sess, r.PathValue("clubSlug"), r.PathValue("postId"))
}

func (s *Server) getAthletePost(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Post.AthleteDetail(ctx, sess, r.PathValue("athleteSlug"), r.PathValue("postId"))
}

func (s *Server) listOrders(ctx context.Context, _ *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Order.List(ctx, sess)
}

func (s *Server) getOrder(ctx context.Context, r *http.Request, sess *auth.Session) (any, error) {
	return s.svc.Order.Get(ctx, sess, r.PathValue("id"))
}

// handleProducts serves the public product listing. With paged=1 it returns {data, meta},
// otherwise a plain normalized list.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	if q.Get("paged") == "1" {
		page, err := s.svc.Catalog.ProductsPaged(r.Context(), q)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, page)
		return nil
	}

	list, err := s.svc.Catalog.Products(r.Context(), q)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// handleErrorLog accepts a client error report. Any body is accepted and the response is always 204.
func (s *Server) handleErrorLog(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil || !json.Valid(raw) {
		raw = json.RawMessage(`{}`)
	}

	if s.svc.Reporter != nil {
		s.svc.Reporter.Report(r.Context(), raw)
	}

	w.WriteHeader(http.StatusNoContent)
}
