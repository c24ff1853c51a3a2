package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/chris/wingman/internal/ingest"
	"github.com/chris/wingman/internal/notify"
)

// verifyWebhook answers the platform's subscription handshake.
func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if s.opts.VerifyToken == "" || q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != s.opts.VerifyToken {
		http.Error(w, "Verification failed", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, q.Get("hub.challenge"))
}

// receiveWebhook walks entry[].messaging[] and runs every text event
// through the controller. A failing event is logged and skipped; the
// platform gets a 200 as long as the payload itself was readable.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil || !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "No JSON payload received"})
		return
	}

	processed := 0
	gjson.GetBytes(body, "entry").ForEach(func(_, entry gjson.Result) bool {
		entry.Get("messaging").ForEach(func(_, ev gjson.Result) bool {
			if s.handleEvent(r, ingest.Event{
				SenderID:    ev.Get("sender.id").String(),
				RecipientID: ev.Get("recipient.id").String(),
				TimestampMs: ev.Get("timestamp").Int(),
				Text:        ev.Get("message.text").String(),
			}) {
				processed++
			}
			return true
		})
		return true
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "processed": processed})
}

func (s *Server) handleEvent(r *http.Request, ev ingest.Event) bool {
	res, err := s.ctrl.Handle(r.Context(), ev, ingest.Options{WantReplies: s.opts.AutoReplies})
	switch {
	case errors.Is(err, ingest.ErrEmptyMessage):
		s.logger.Debug("skipping event without text", "sender", ev.SenderID)
		return false
	case err != nil:
		s.logger.Error("handling webhook event", "sender", ev.SenderID, "err", err)
		return false
	}

	if !res.RepliesRequested || res.Replies == ([3]string{}) {
		return true
	}
	if !s.notifier.Enabled() {
		s.logger.Info("suggestions ready", "profile", res.ProfileID, "reply_1", res.Replies[0])
		return true
	}
	content := notify.FormatSuggestions(res.Profile.Name, ev.Text, res.Replies)
	if err := s.notifier.Deliver(r.Context(), "suggestions", content); err != nil {
		s.logger.Warn("delivering suggestions", "profile", res.ProfileID, "err", err)
	}
	return true
}
