package main

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// registerDashboards mounts the two HTML dashboards and their assets.
func registerDashboards(r *gin.Engine) error {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	r.StaticFS("/static", http.FS(static))

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "dashboard.html", gin.H{"Title": "Analytics Dashboard"})
	})
	r.GET("/graph-analytics", func(c *gin.Context) {
		c.HTML(http.StatusOK, "graph-analytics.html", gin.H{"Title": "Graph Analytics"})
	})

	return nil
}
