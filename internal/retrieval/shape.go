package retrieval

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/url"
)

// Mode selects how a payload is written to the client.
type Mode int

const (
	// ModeInline writes the bytes with the stored content type.
	ModeInline Mode = iota
	// ModeDownload forces application/octet-stream.
	ModeDownload
	// ModeClose returns an HTML page that saves the file and closes itself.
	ModeClose
)

// ModeFromQuery reads the `close` and `dl` flags. Presence is enough; the
// value is ignored. close wins over dl.
func ModeFromQuery(q url.Values) Mode {
	if _, ok := q["close"]; ok {
		return ModeClose
	}
	if _, ok := q["dl"]; ok {
		return ModeDownload
	}
	return ModeInline
}

// Rendered is a response body with its headers.
type Rendered struct {
	ContentType string
	// Disposition is empty for the HTML shim.
	Disposition string
	Body        []byte
}

// Render shapes p for mode.
func (p *Payload) Render(mode Mode) (Rendered, error) {
	contentType := p.ContentType
	if mode == ModeDownload {
		contentType = defaultContentType
	}
	if mode != ModeClose {
		return Rendered{ContentType: contentType, Disposition: p.Disposition, Body: p.Body}, nil
	}

	var buf bytes.Buffer
	err := closeShim.Execute(&buf, shimData{
		Name:        p.FileName(),
		ContentType: contentType,
		Data:        base64.StdEncoding.EncodeToString(p.Body),
	})
	if err != nil {
		return Rendered{}, fmt.Errorf("render download page: %w", err)
	}
	return Rendered{ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
}

type shimData struct {
	Name        string
	ContentType string
	Data        string
}

var closeShim = template.Must(template.New("close").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Downloading {{.Name}}</title>
    <style>
        body { font-family: Arial, sans-serif; text-align: center; padding: 50px; }
        .loader { border: 5px solid #f3f3f3; border-top: 5px solid #3498db;
                  border-radius: 50%; width: 50px; height: 50px;
                  animation: spin 1s linear infinite; margin: 20px auto; }
        @keyframes spin { 0% { transform: rotate(0deg); } 100% { transform: rotate(360deg); } }
    </style>
</head>
<body>
    <h2>Downloading {{.Name}}</h2>
    <div class="loader"></div>
    <p>Your download will begin shortly...</p>
    <p><small>This window will close automatically.</small></p>
    <script>
        const byteCharacters = atob({{.Data}});
        const byteArray = new Uint8Array(byteCharacters.length);
        for (let i = 0; i < byteCharacters.length; i++) {
            byteArray[i] = byteCharacters.charCodeAt(i);
        }
        const blob = new Blob([byteArray], { type: {{.ContentType}} });
        const url = window.URL.createObjectURL(blob);
        const a = document.createElement('a');
        a.href = url;
        a.download = {{.Name}};
        document.body.appendChild(a);
        a.click();
        window.URL.revokeObjectURL(url);
        setTimeout(function() { window.close(); }, 2000);
    </script>
</body>
</html>
`))
