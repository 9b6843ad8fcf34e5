package http

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/user/thermaldash/internal/analysis"
	"github.com/user/thermaldash/internal/browse"
	"github.com/user/thermaldash/internal/dashboard"
	"github.com/user/thermaldash/internal/session"
)

type banner struct {
	Kind   string // success, warning, error, info
	Text   string
	Code   string
	Detail string
}

type hostEntry struct {
	Index   int
	Address string
}

type tabLink struct {
	Index  int
	Name   string
	Active bool
}

type tabView struct {
	Index       int
	View        *browse.View
	Banners     []banner
	Metrics     []analysis.Metric
	Warnings    []string
	HasChart    bool
	ChartURL    string
	DownloadURL string
	ReportURL   string
	DataURL     string
}

type pageData struct {
	Hosts  []hostEntry
	Tabs   []tabLink
	Active *tabView
}

func tabName(i int, host string) string {
	if host = strings.TrimSpace(host); host != "" {
		return "IP: " + host
	}
	return fmt.Sprintf("IP %d", i+1)
}

// buildPage resolves only the active tab; other tabs are links.
func (s *Server) buildPage(ctx context.Context, sess *session.Session, active int) pageData {
	data := pageData{}
	for i, host := range sess.Hosts {
		data.Hosts = append(data.Hosts, hostEntry{Index: i, Address: host})
		data.Tabs = append(data.Tabs, tabLink{Index: i, Name: tabName(i, host), Active: i == active})
	}
	if len(sess.Hosts) > 0 {
		data.Active = s.buildTab(ctx, sess, active)
	}
	return data
}

func (s *Server) buildTab(ctx context.Context, sess *session.Session, i int) *tabView {
	host := strings.TrimSpace(sess.Hosts[i])
	tv := &tabView{Index: i}
	if host == "" {
		tv.View = &browse.View{Stage: browse.StageNoHost}
		tv.Banners = append(tv.Banners, banner{Kind: "info", Text: "Please enter a valid IP address in the sidebar to start."})
		return tv
	}

	view := s.app.Browse(host, sess.Selection(i))
	tv.View = view
	switch view.Stage {
	case browse.StageNoFolders:
		tv.Banners = append(tv.Banners, banner{Kind: "warning", Text: "No folders found. Check IP or Permissions."})
		if view.Err != nil {
			tv.Banners = append(tv.Banners, banner{Kind: "error", Text: "Access Error: " + view.Err.Error()})
		}
		return tv
	case browse.StageReady:
	default:
		if view.Err != nil {
			tv.Banners = append(tv.Banners, banner{Kind: "error", Text: "Access Error: " + view.Err.Error()})
		}
		return tv
	}

	res, err := s.app.AnalyzeView(ctx, view)
	if err != nil {
		tv.Banners = append(tv.Banners, bannerFor(err))
		return tv
	}
	tv.Banners = append(tv.Banners, banner{Kind: "success", Text: "File Found:", Code: res.SourcePath, Detail: res.Details()})
	tv.Metrics = res.Summary.Metrics()
	tv.Warnings = res.Warnings
	tv.HasChart = true
	tv.ChartURL = fmt.Sprintf("/hosts/%d/chart.png", i)
	tv.DownloadURL = tv.ChartURL + "?download=1"
	tv.ReportURL = fmt.Sprintf("/hosts/%d/report.pdf", i)
	tv.DataURL = fmt.Sprintf("/hosts/%d/data.csv", i)
	return tv
}

func bannerFor(err error) banner {
	switch dashboard.Classify(err) {
	case dashboard.KindFileNotFound:
		var nf *browse.FileNotFoundError
		if errors.As(err, &nf) {
			return banner{Kind: "warning", Text: "Expected file not found at:", Code: nf.Path}
		}
		return banner{Kind: "warning", Text: err.Error()}
	case dashboard.KindPathAccess:
		return banner{Kind: "error", Text: "Access Error: " + err.Error()}
	case dashboard.KindIncomplete:
		return banner{Kind: "info", Text: "Select a date, device and serial to continue."}
	}
	cause := err
	if inner := errors.Unwrap(err); inner != nil {
		cause = inner
	}
	return banner{Kind: "error", Text: "Error processing CSV: " + cause.Error()}
}
