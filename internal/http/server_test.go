package http

import (
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"io/fs"
	nethttp "net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/user/thermaldash/internal/analysis"
	"github.com/user/thermaldash/internal/browse"
	"github.com/user/thermaldash/internal/config"
	"github.com/user/thermaldash/internal/dashboard"
	"github.com/user/thermaldash/internal/report"
	"github.com/user/thermaldash/internal/session"
)

const sampleCSV = `Spiral Count,Spiral Number,FTC Servo Track,mS FTC time,PWupdate
1,5,10,0.5,3
2,0,12,0.6,2
3,0,15,0.7,4
`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts, _ := testServerWithStore(t)
	return ts
}

func testServerWithStore(t *testing.T) (*httptest.Server, *session.Store) {
	t.Helper()
	hosts := map[string]fs.FS{
		"/mnt/10.0.0.1/ammonite": fstest.MapFS{
			"2024-05-02/cell_A/SN001/thermal_data/AmPsI2I.csv": &fstest.MapFile{Data: []byte(sampleCSV)},
			"2024-05-02/cell_A/SN002/thermal_data/AmPsI2I.csv": &fstest.MapFile{Data: []byte("Spiral Count,PWupdate\n1,2\n")},
			"2024-05-02/cell_B/SN003/notes.txt":                &fstest.MapFile{Data: []byte("x")},
			"2024-05-01/cell_C/SN004/thermal_data/AmPsI2I.csv": &fstest.MapFile{Data: []byte(sampleCSV)},
			"2024-05-03/cell_D/SN005/thermal_data/AmPsI2I.csv": &fstest.MapFile{Data: []byte("Spiral Number,FTC Servo Track,PWupdate\n1,inf,1\n0,inf,2\n0,2,3\n")},
		},
		"/mnt/10.0.0.2/ammonite": fstest.MapFS{},
	}
	missing := filepath.Join(t.TempDir(), "missing")
	nav := browse.NewNavigator("/mnt/{host}/ammonite", "thermal_data", "AmPsI2I.csv",
		browse.WithOpener(func(root string) fs.FS {
			if fsys, ok := hosts[root]; ok {
				return fsys
			}
			return os.DirFS(missing)
		}))
	app := dashboard.NewApp(nav, report.FigureOptions{Width: 8 * vg.Inch, Height: 5 * vg.Inch, DPI: 50}, nil)
	store := session.NewStore([]string{"10.x.x.x"}, time.Hour)

	srv, err := NewServer(config.Default(), app, store, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func newClient(t *testing.T) *nethttp.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &nethttp.Client{Jar: jar}
}

func getBody(t *testing.T, c *nethttp.Client, u string) (*nethttp.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func postForm(t *testing.T, c *nethttp.Client, u string, form url.Values) string {
	t.Helper()
	resp, err := c.PostForm(u, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, string(body))
	return string(body)
}

// selectSerial walks the cascade one level per request, like the page does.
func selectSerial(t *testing.T, c *nethttp.Client, base, date, device, serial string) string {
	t.Helper()
	postForm(t, c, base+"/hosts/0", url.Values{"address": {"10.0.0.1"}})
	postForm(t, c, base+"/hosts/0/select", url.Values{"date": {date}})
	postForm(t, c, base+"/hosts/0/select", url.Values{"date": {date}, "device": {device}})
	return postForm(t, c, base+"/hosts/0/select", url.Values{"date": {date}, "device": {device}, "serial": {serial}})
}

func TestDashboardDefaultHost(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	resp, body := getBody(t, c, ts.URL+"/")
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "IP: 10.x.x.x")
	assert.Contains(t, body, "No folders found. Check IP or Permissions.")
	assert.Contains(t, body, "Access Error:")
	assert.Contains(t, body, "/mnt/10.x.x.x/ammonite")

	u, _ := url.Parse(ts.URL)
	cookies := c.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
}

func TestDashboardCascade(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	body := postForm(t, c, ts.URL+"/hosts/0", url.Values{"address": {"10.0.0.1"}})
	assert.Contains(t, body, "IP: 10.0.0.1")
	assert.Contains(t, body, "Select Date")
	assert.NotContains(t, body, "Select MDW and Cell")
	assert.Less(t, strings.Index(body, "2024-05-02"), strings.Index(body, "2024-05-01"), "dates newest first")

	body = postForm(t, c, ts.URL+"/hosts/0/select", url.Values{"date": {"2024-05-02"}})
	assert.Contains(t, body, "Select MDW and Cell")
	assert.Contains(t, body, "cell_A")
	assert.Contains(t, body, "cell_B")
	assert.NotContains(t, body, "Select MSN")

	body = postForm(t, c, ts.URL+"/hosts/0/select", url.Values{"date": {"2024-05-02"}, "device": {"cell_A"}})
	assert.Contains(t, body, "Select MSN")
	assert.Contains(t, body, "SN001")

	body = postForm(t, c, ts.URL+"/hosts/0/select", url.Values{"date": {"2024-05-02"}, "device": {"cell_A"}, "serial": {"SN001"}})
	assert.Contains(t, body, "File Found:")
	assert.Contains(t, body, "/mnt/10.0.0.1/ammonite/2024-05-02/cell_A/SN001/thermal_data/AmPsI2I.csv")
	assert.Contains(t, body, "Max FTC Servo Track")
	assert.Contains(t, body, "15.000")
	assert.Contains(t, body, "0_Spiral")
	assert.Contains(t, body, "/hosts/0/chart.png")
	assert.Contains(t, body, "/hosts/0/chart.png?download=1")

	// changing the date drops device and serial
	body = postForm(t, c, ts.URL+"/hosts/0/select", url.Values{"date": {"2024-05-01"}, "device": {"cell_A"}, "serial": {"SN001"}})
	assert.Contains(t, body, "cell_C")
	assert.NotContains(t, body, "Select MSN")
	assert.NotContains(t, body, "File Found:")
}

func TestChartAndExports(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)
	selectSerial(t, c, ts.URL, "2024-05-02", "cell_A", "SN001")

	resp, inline := getBody(t, c, ts.URL+"/hosts/0/chart.png")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, inline)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("Content-Disposition"))
	cfg, err := png.DecodeConfig(strings.NewReader(inline))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)

	resp, download := getBody(t, c, ts.URL+"/hosts/0/chart.png?download=1")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "attachment; filename=thermal_analysis_SN001.png", resp.Header.Get("Content-Disposition"))
	assert.Equal(t, inline, download, "view and export are the same image")

	resp, pdf := getBody(t, c, ts.URL+"/hosts/0/report.pdf")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=thermal_report_SN001.pdf", resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(pdf, "%PDF-"))

	resp, data := getBody(t, c, ts.URL+"/hosts/0/data.csv")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	lines := strings.Split(strings.TrimSpace(data), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Spiral Count,Spiral Number,"))
}

func TestChartErrors(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	resp, _ := getBody(t, c, ts.URL+"/hosts/abc/chart.png")
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	getBody(t, c, ts.URL+"/")
	resp, _ = getBody(t, c, ts.URL+"/hosts/7/chart.png")
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	postForm(t, c, ts.URL+"/hosts/0", url.Values{"address": {"10.0.0.1"}})
	resp, _ = getBody(t, c, ts.URL+"/hosts/0/chart.png")
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
}

func TestExportsWithoutSession(t *testing.T) {
	ts, store := testServerWithStore(t)

	for _, p := range []string{"/hosts/0/chart.png", "/hosts/0/report.pdf", "/hosts/0/data.csv"} {
		resp, err := nethttp.Get(ts.URL + p)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, nethttp.StatusConflict, resp.StatusCode, p)
		assert.Empty(t, resp.Header.Values("Set-Cookie"), p)
	}
	assert.Zero(t, store.Len())

	c := newClient(t)
	getBody(t, c, ts.URL+"/")
	require.Equal(t, 1, store.Len())
	resp, _ := getBody(t, c, ts.URL+"/hosts/0/chart.png")
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, store.Len())
}

func TestEmptyHostHasNoAccessError(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	body := postForm(t, c, ts.URL+"/hosts/0", url.Values{"address": {"10.0.0.2"}})
	assert.Contains(t, body, "No folders found. Check IP or Permissions.")
	assert.NotContains(t, body, "Access Error:")
}

func TestNonFiniteCellsStillChart(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	body := selectSerial(t, c, ts.URL, "2024-05-03", "cell_D", "SN005")
	assert.Contains(t, body, "File Found:")
	assert.Contains(t, body, "/hosts/0/chart.png")

	resp, img := getBody(t, c, ts.URL+"/hosts/0/chart.png")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode, img)
	_, err := png.DecodeConfig(strings.NewReader(img))
	require.NoError(t, err)
}

func TestAttachmentHeader(t *testing.T) {
	assert.Equal(t, "attachment; filename=thermal_data_SN001.csv", attachmentHeader("thermal_data_SN001.csv"))
	assert.Equal(t, `attachment; filename="thermal_data_SN 1.csv"`, attachmentHeader("thermal_data_SN 1.csv"))
	assert.Equal(t, `attachment; filename="thermal_data_SN\"1.csv"`, attachmentHeader(`thermal_data_SN"1.csv`))
	assert.Equal(t, "attachment; filename*=utf-8''thermal_data_S%C3%A91.csv", attachmentHeader("thermal_data_Sé1.csv"))

	h := attachmentHeader("a\r\nb.csv")
	assert.NotContains(t, h, "\r")
	assert.NotContains(t, h, "\n")
}

func TestFileNotFound(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	body := selectSerial(t, c, ts.URL, "2024-05-02", "cell_B", "SN003")
	assert.Contains(t, body, "Expected file not found at:")
	assert.Contains(t, body, "/mnt/10.0.0.1/ammonite/2024-05-02/cell_B/SN003/thermal_data/AmPsI2I.csv")
	assert.NotContains(t, body, "Max FTC Servo Track")

	resp, _ := getBody(t, c, ts.URL+"/hosts/0/chart.png")
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestDataError(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	body := selectSerial(t, c, ts.URL, "2024-05-02", "cell_A", "SN002")
	assert.Contains(t, body, "Error processing CSV:")
	assert.Contains(t, body, "FTC Servo Track")
	assert.NotContains(t, body, "/hosts/0/chart.png")

	resp, _ := getBody(t, c, ts.URL+"/hosts/0/report.pdf")
	assert.Equal(t, nethttp.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHostsManagement(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	body := postForm(t, c, ts.URL+"/hosts", nil)
	assert.Contains(t, body, "IP: Address 2")
	assert.Contains(t, body, `href="/?tab=1" class="active"`)

	body = postForm(t, c, ts.URL+"/hosts/1", url.Values{"address": {"   "}})
	assert.Contains(t, body, "IP 2")
	assert.Contains(t, body, "Please enter a valid IP address in the sidebar to start.")

	postForm(t, c, ts.URL+"/hosts/1/remove", nil)
	body = postForm(t, c, ts.URL+"/hosts/0/remove", nil)
	assert.Contains(t, body, "Please add at least one IP address in the sidebar.")

	resp, err := c.PostForm(ts.URL+"/hosts/0/remove", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestRemoveKeepsOtherSelections(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	postForm(t, c, ts.URL+"/hosts", nil)
	postForm(t, c, ts.URL+"/hosts/1", url.Values{"address": {"10.0.0.1"}})
	postForm(t, c, ts.URL+"/hosts/1/select", url.Values{"date": {"2024-05-01"}})
	postForm(t, c, ts.URL+"/hosts/0/remove", nil)

	_, body := getBody(t, c, ts.URL+"/?tab=0")
	assert.Contains(t, body, "IP: 10.0.0.1")
	assert.Contains(t, body, `<option value="2024-05-01" selected>`)
}

func TestSessionsAreIsolated(t *testing.T) {
	ts := testServer(t)
	a, b := newClient(t), newClient(t)

	selectSerial(t, a, ts.URL, "2024-05-02", "cell_A", "SN001")

	_, body := getBody(t, b, ts.URL+"/")
	assert.Contains(t, body, "IP: 10.x.x.x")
	assert.NotContains(t, body, "File Found:")

	resp, _ := getBody(t, b, ts.URL+"/hosts/0/chart.png")
	assert.NotEqual(t, nethttp.StatusOK, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := testServer(t)
	c := newClient(t)

	resp, body := getBody(t, c, ts.URL+"/health")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "ok", payload["status"])

	getBody(t, c, ts.URL+"/")
	resp, body = getBody(t, c, ts.URL+"/metrics")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "thermaldash_http_requests_total")
	assert.Contains(t, body, "thermaldash_sessions")

	resp, _ = getBody(t, c, ts.URL+"/favicon.ico")
	assert.Equal(t, nethttp.StatusNoContent, resp.StatusCode)

	resp, body = getBody(t, c, ts.URL+"/static/style.css")
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".banner")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, nethttp.StatusNotFound, statusFor(&browse.FileNotFoundError{Path: "/x"}))
	assert.Equal(t, nethttp.StatusConflict, statusFor(dashboard.ErrIncompleteSelection))
	assert.Equal(t, nethttp.StatusBadRequest, statusFor(session.ErrHostIndex))
	assert.Equal(t, nethttp.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}

func TestBannerFor(t *testing.T) {
	b := bannerFor(&browse.FileNotFoundError{Path: "/a/b.csv"})
	assert.Equal(t, "warning", b.Kind)
	assert.Equal(t, "Expected file not found at:", b.Text)
	assert.Equal(t, "/a/b.csv", b.Code)

	b = bannerFor(fmt.Errorf("error processing CSV: %w", &analysis.MissingFieldError{Field: "PWupdate"}))
	assert.Equal(t, "error", b.Kind)
	assert.True(t, strings.HasPrefix(b.Text, "Error processing CSV: "), b.Text)
	assert.NotContains(t, b.Text, "error processing CSV")
}
