package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-contrib/static"
	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/ecg"
	"github.com/raine/ecg-analyzer/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

const indexTemplate = "index.html"

func loadTemplates() (*template.Template, error) {
	return template.New("").ParseFS(templateFS, "templates/*.html")
}

// embedFileSystem serves the embedded assets through gin-contrib/static.
type embedFileSystem struct {
	http.FileSystem
}

var _ static.ServeFileSystem = embedFileSystem{}

func newAssetFileSystem() (embedFileSystem, error) {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		return embedFileSystem{}, err
	}
	return embedFileSystem{FileSystem: http.FS(sub)}, nil
}

// Exists reports whether a regular file exists for the request path.
func (e embedFileSystem) Exists(prefix string, path string) bool {
	name := strings.TrimPrefix(path, prefix)
	if name == "" || name == "/" {
		return false
	}
	f, err := e.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	stat, err := f.Stat()
	return err == nil && !stat.IsDir()
}

type imageView struct {
	Name       string `json:"name"`
	MIMEType   string `json:"mimeType"`
	Size       int64  `json:"size"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	PreviewURL string `json:"previewUrl"`
}

type resultView struct {
	Level      ecg.ArrhythmiaLevel
	Severity   ecg.Severity
	BadgeClass string
	BadgeText  string
	Summary    string
	Metrics    []ecg.ECGMetric
}

type pageData struct {
	T       uiText
	Phase   session.Phase
	Loading bool
	Image   *imageView
	Notice  string
	Error   string
	Result  *resultView
}

func newImageView(img *capture.Image, handle string) *imageView {
	if img == nil {
		return nil
	}
	return &imageView{
		Name:       img.Name,
		MIMEType:   img.MIMEType,
		Size:       img.Size(),
		Width:      img.Width,
		Height:     img.Height,
		PreviewURL: "/preview/" + handle,
	}
}

// newResultView projects a result onto what the results panel shows.
func newResultView(res *ecg.AnalysisResult) *resultView {
	if res == nil {
		return nil
	}
	severity := res.ArrhythmiaLevel.Severity()
	return &resultView{
		Level:      res.ArrhythmiaLevel,
		Severity:   severity,
		BadgeClass: "badge badge-" + string(severity),
		BadgeText:  formatText(MsgArrhythmiaLevel, res.ArrhythmiaLevel),
		Summary:    res.Summary,
		Metrics:    res.Metrics,
	}
}

func newPageData(v session.View, notice string) pageData {
	return pageData{
		T:       pageText,
		Phase:   v.Phase(),
		Loading: v.Loading(),
		Image:   newImageView(v.Image, v.PreviewHandle),
		Notice:  notice,
		Error:   errorMessage(v.Err()),
		Result:  newResultView(v.Result()),
	}
}

// stateResponse is the JSON shape of GET /state.
type stateResponse struct {
	Phase  session.Phase       `json:"phase"`
	Image  *imageView          `json:"image"`
	Result *ecg.AnalysisResult `json:"result"`
	Error  *string             `json:"error"`
}

func newStateResponse(v session.View) stateResponse {
	resp := stateResponse{
		Phase:  v.Phase(),
		Image:  newImageView(v.Image, v.PreviewHandle),
		Result: v.Result(),
	}
	if err := v.Err(); err != nil {
		msg := errorMessage(err)
		resp.Error = &msg
	}
	return resp
}
