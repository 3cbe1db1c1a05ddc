package api

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed web
var webFiles embed.FS

// WebService serves the single page chat client.
type WebService struct {
	root fs.FS
}

func NewWebService() *WebService {
	root, err := fs.Sub(webFiles, "web")
	if err != nil {
		panic(err)
	}
	return &WebService{root: root}
}

func (s *WebService) AddRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, s.root, "index.html")
	})
	r.Handle("/static/*", http.FileServerFS(s.root))
}
