package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/tidwall/gjson"

	"github.com/chris/wingman/internal/db"
	"github.com/chris/wingman/internal/ingest"
	"github.com/chris/wingman/internal/profile"
)

// profileView is a profile as listed by the API. The self record carries
// the fields counterpart profiles do not have.
type profileView struct {
	profile.Profile
	Gender string `json:"gender,omitempty"`
	Age    int    `json:"age,omitempty"`
	IsMe   bool   `json:"is_me,omitempty"`
}

func selfView(s *profile.SelfProfile) profileView {
	return profileView{Profile: s.AsProfile(), Gender: s.Gender, Age: s.Age, IsMe: true}
}

// --- Profiles ---

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	self, err := s.db.GetSelf(s.opts.SelfName)
	if err != nil {
		s.fail(w, "loading self profile", err)
		return
	}
	profiles, err := s.db.ListProfiles()
	if err != nil {
		s.fail(w, "listing profiles", err)
		return
	}

	out := make([]profileView, 0, len(profiles)+1)
	out = append(out, selfView(self))
	for _, p := range profiles {
		out = append(out, profileView{Profile: p})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == profile.SelfAlias {
		s.getSelfAsProfile(w, r)
		return
	}
	p, err := s.db.GetProfile(id)
	if err != nil {
		s.fail(w, "getting profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	var p profile.Profile
	if !decode(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	if strings.TrimSpace(p.Name) == "" {
		p.Name = "@" + p.ID
	}
	if err := s.db.UpsertProfile(p); err != nil {
		s.fail(w, "saving profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.db.DeleteProfile(id); err != nil {
		s.fail(w, "deleting profile", err)
		return
	}
	s.logger.Info("profile deleted", "profile", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Profile %s deleted successfully", id),
	})
}

// --- Self ---

func (s *Server) getSelf(w http.ResponseWriter, r *http.Request) {
	self, err := s.db.GetSelf(s.opts.SelfName)
	if err != nil {
		s.fail(w, "loading self profile", err)
		return
	}
	writeJSON(w, http.StatusOK, self)
}

func (s *Server) getSelfAsProfile(w http.ResponseWriter, r *http.Request) {
	self, err := s.db.GetSelf(s.opts.SelfName)
	if err != nil {
		s.fail(w, "loading self profile", err)
		return
	}
	writeJSON(w, http.StatusOK, selfView(self))
}

func (s *Server) putSelf(w http.ResponseWriter, r *http.Request) {
	var self profile.SelfProfile
	if !decode(w, r, &self) {
		return
	}
	if err := s.db.UpdateSelf(self); err != nil {
		s.fail(w, "saving self profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// --- Conversations ---

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var history []profile.Message
	if id == profile.SelfAlias {
		self, err := s.db.GetSelf(s.opts.SelfName)
		if err != nil {
			s.fail(w, "loading self profile", err)
			return
		}
		history = self.PreviousMessages
	} else {
		p, err := s.db.GetProfile(id)
		if err != nil {
			s.fail(w, "getting conversation", err)
			return
		}
		history = p.PreviousMessages
	}
	writeJSON(w, http.StatusOK, history)
}

type addMessageRequest struct {
	profile.Message
	profile.PromptContext
	GenerateReplies bool `json:"generate_replies"`
}

func (s *Server) addMessage(w http.ResponseWriter, r *http.Request) {
	var req addMessageRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.ctrl.AddMessage(r.Context(), chi.URLParam(r, "id"), req.Message, ingest.Options{
		WantReplies: req.GenerateReplies,
		Context:     req.PromptContext,
	})
	if err != nil {
		s.fail(w, "adding message", err)
		return
	}

	out := map[string]any{"success": true, "profile": res.Profile}
	if res.RepliesRequested {
		out["replies"] = repliesJSON(res.Replies)
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Generation ---

type replyRequest struct {
	ProfileID   string `json:"user_id"`
	LastMessage string `json:"last_message"`
	profile.PromptContext
}

func (s *Server) suggestReplies(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if !decode(w, r, &req) {
		return
	}
	replies, err := s.ctrl.SuggestReplies(r.Context(), req.ProfileID, req.LastMessage, req.PromptContext)
	if err != nil {
		s.fail(w, "suggesting replies", err)
		return
	}
	writeJSON(w, http.StatusOK, repliesJSON(replies))
}

type polishRequest struct {
	ProfileID string `json:"user_id"`
	Message   string `json:"message"`
	Tone      string `json:"tone"`
	Language  string `json:"language"`
}

func (s *Server) polish(w http.ResponseWriter, r *http.Request) {
	var req polishRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := s.ctrl.Polish(r.Context(), req.ProfileID, req.Message, req.Tone, req.Language)
	if err != nil {
		s.fail(w, "polishing message", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"polished": out})
}

// regenerate accepts the conversation either as a form field holding a JSON
// list or as a JSON body {"conversation": [...], "tone": "", "goal": ""}.
func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	var raw []byte
	var tone, goal string
	if isForm(r) {
		raw = []byte(r.FormValue("conversation"))
		tone, goal = r.FormValue("tone"), r.FormValue("goal")
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		doc := gjson.ParseBytes(body)
		raw = []byte(doc.Get("conversation").Raw)
		tone, goal = doc.Get("tone").String(), doc.Get("goal").String()
	}

	conversation, err := ingest.ParseMessages(raw, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	replies, err := s.ctrl.Regenerate(r.Context(), conversation, tone, goal)
	if err != nil {
		s.fail(w, "regenerating replies", err)
		return
	}
	writeJSON(w, http.StatusOK, repliesJSON(replies))
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	var req ingest.SimulationRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": s.ctrl.Simulate(r.Context(), req),
	})
}

// importConversation takes a multipart upload (file plus profile_name) or a
// raw JSON body holding a message list or {"messages": [...]}.
func (s *Server) importConversation(w http.ResponseWriter, r *http.Request) {
	var raw []byte
	name := r.URL.Query().Get("profile_name")

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxBody); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid upload")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "No file provided")
			return
		}
		defer file.Close()
		if !strings.HasSuffix(strings.ToLower(header.Filename), ".json") {
			writeError(w, http.StatusBadRequest, "File must be a JSON file")
			return
		}
		if raw, err = io.ReadAll(file); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid upload")
			return
		}
		if v := r.FormValue("profile_name"); v != "" {
			name = v
		}
	} else {
		var err error
		if raw, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody)); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if v := gjson.GetBytes(raw, "profile_name").String(); v != "" {
			name = v
		}
	}

	messages, err := ingest.ParseMessages(raw, "messages")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.ctrl.Import(r.Context(), name, messages)
	if err != nil {
		s.fail(w, "importing conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"profile": p,
		"message": fmt.Sprintf("Successfully imported %d messages and created profile %q", len(messages), p.Name),
	})
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		s.fail(w, "loading stats", err)
		return
	}
	recent, err := s.db.RecentActivity(10)
	if err != nil {
		s.fail(w, "loading activity", err)
		return
	}
	if recent == nil {
		recent = []db.Activity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_profiles":  stats.TotalProfiles,
		"total_messages":  stats.TotalMessages,
		"recent_activity": recent,
	})
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/")
}
