package http

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	nethttp "net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/user/thermaldash/internal/browse"
	"github.com/user/thermaldash/internal/dashboard"
	"github.com/user/thermaldash/internal/session"
)

const sessionCookie = "thermaldash_session"

func setSessionCookie(w nethttp.ResponseWriter, r *nethttp.Request, id string) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value == id {
		return
	}
	nethttp.SetCookie(w, &nethttp.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: nethttp.SameSiteLaxMode,
	})
}

func sessionID(r *nethttp.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) loadSession(w nethttp.ResponseWriter, r *nethttp.Request) *session.Session {
	sess := s.store.Get(sessionID(r))
	setSessionCookie(w, r, sess.ID)
	s.app.Metrics().SetSessions(s.store.Len())
	return sess
}

func (s *Server) updateSession(w nethttp.ResponseWriter, r *nethttp.Request, fn func(*session.Session) error) (*session.Session, error) {
	sess, err := s.store.Update(sessionID(r), fn)
	setSessionCookie(w, r, sess.ID)
	s.app.Metrics().SetSessions(s.store.Len())
	return sess, err
}

func hostIndex(r *nethttp.Request) (int, error) {
	idx, err := strconv.Atoi(r.PathValue("idx"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", session.ErrHostIndex, r.PathValue("idx"))
	}
	return idx, nil
}

func redirectToTab(w nethttp.ResponseWriter, r *nethttp.Request, tab int) {
	if tab < 0 {
		tab = 0
	}
	nethttp.Redirect(w, r, fmt.Sprintf("/?tab=%d", tab), nethttp.StatusSeeOther)
}

func (s *Server) dashboardHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	sess := s.loadSession(w, r)

	active, err := strconv.Atoi(r.URL.Query().Get("tab"))
	if err != nil || active < 0 || active >= len(sess.Hosts) {
		active = 0
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, s.buildPage(r.Context(), sess, active)); err != nil {
		s.logger.Error("failed to render dashboard", zap.Error(err))
		nethttp.Error(w, "failed to render dashboard", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) addHostHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	var idx int
	_, _ = s.updateSession(w, r, func(sess *session.Session) error {
		idx = sess.AddHost()
		return nil
	})
	redirectToTab(w, r, idx)
}

func (s *Server) setHostHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	idx, err := hostIndex(r)
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	address := r.FormValue("address")
	if _, err := s.updateSession(w, r, func(sess *session.Session) error {
		return sess.SetHost(idx, address)
	}); err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	redirectToTab(w, r, idx)
}

func (s *Server) removeHostHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	idx, err := hostIndex(r)
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	if _, err := s.updateSession(w, r, func(sess *session.Session) error {
		return sess.RemoveHost(idx)
	}); err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	redirectToTab(w, r, idx-1)
}

func (s *Server) selectHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	idx, err := hostIndex(r)
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	next := browse.Selection{
		Date:   r.FormValue("date"),
		Device: r.FormValue("device"),
		Serial: r.FormValue("serial"),
	}
	if _, err := s.updateSession(w, r, func(sess *session.Session) error {
		return sess.Select(idx, next)
	}); err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	redirectToTab(w, r, idx)
}

// analyzeHost runs the pipeline for one tab and writes the error response
// itself when it fails.
func (s *Server) analyzeHost(w nethttp.ResponseWriter, r *nethttp.Request) (*dashboard.Result, bool) {
	idx, err := hostIndex(r)
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return nil, false
	}
	sess, ok := s.store.Lookup(sessionID(r))
	if !ok {
		nethttp.Error(w, "no active session: open the dashboard first", nethttp.StatusConflict)
		return nil, false
	}
	host, err := sess.Host(idx)
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return nil, false
	}
	res, err := s.app.Analyze(r.Context(), host, sess.Selection(idx))
	if err != nil {
		nethttp.Error(w, err.Error(), statusFor(err))
		return nil, false
	}
	return res, true
}

// attachmentHeader formats a Content-Disposition value. Names outside
// printable ASCII use the RFC 2231 filename* form.
func attachmentHeader(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

func statusFor(err error) int {
	switch dashboard.Classify(err) {
	case dashboard.KindIncomplete:
		return nethttp.StatusConflict
	case dashboard.KindFileNotFound, dashboard.KindPathAccess:
		return nethttp.StatusNotFound
	case dashboard.KindData:
		return nethttp.StatusUnprocessableEntity
	}
	if errors.Is(err, session.ErrHostIndex) {
		return nethttp.StatusBadRequest
	}
	return nethttp.StatusInternalServerError
}

func (s *Server) chartHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	res, ok := s.analyzeHost(w, r)
	if !ok {
		return
	}
	img, err := s.app.Figure(res)
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", attachmentHeader(dashboard.FigureFileName(res.Label)))
	}
	_, _ = w.Write(img)
}

func (s *Server) reportHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	res, ok := s.analyzeHost(w, r)
	if !ok {
		return
	}
	pdf, err := s.app.Report(res)
	if err != nil {
		s.logger.Error("failed to build PDF report", zap.String("label", res.Label), zap.Error(err))
		nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachmentHeader(fmt.Sprintf("thermal_report_%s.pdf", res.Label)))
	_, _ = w.Write(pdf)
}

func (s *Server) dataHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	res, ok := s.analyzeHost(w, r)
	if !ok {
		return
	}
	data, err := s.app.DataCSV(res)
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachmentHeader(fmt.Sprintf("thermal_data_%s.csv", res.Label)))
	_, _ = w.Write(data)
}
