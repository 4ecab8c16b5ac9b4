package challenge

import (
	"embed"
	"net/http"
	"path"
	"strings"
)

//go:embed assets
var assetsFS embed.FS

func mustReadAsset(name string) []byte {
	b, err := assetsFS.ReadFile("assets/" + name)
	if err != nil {
		panic("challenge: missing embedded asset " + name)
	}

	return b
}

// AssetHandler serves embedded static assets under the internal prefix.
// Content-type is inferred from extension; solver scripts are never
// cached, images are cached for a day.
func (h *Handlers) AssetHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, InternalPrefix+"/assets/")
	name = strings.TrimPrefix(path.Clean("/"+name), "/")

	data, err := assetsFS.ReadFile("assets/" + name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	contentType, cacheControl := assetHeaders(name)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func assetHeaders(name string) (contentType, cacheControl string) {
	switch path.Ext(name) {
	case ".css":
		return "text/css; charset=utf-8", "public, max-age=86400"
	case ".svg":
		return "image/svg+xml", "public, max-age=86400"
	case ".png":
		return "image/png", "public, max-age=86400"
	case ".js", ".mjs":
		return "application/javascript; charset=utf-8", "no-store"
	case ".wasm":
		return "application/wasm", "no-store"
	default:
		return "application/octet-stream", "no-store"
	}
}
