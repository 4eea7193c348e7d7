package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the portal API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r *gin.Engine, kinds ...editing.Kind) {
	doc := openAPI(kinds)
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})
	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>council-portal - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

func jsonBody(props gin.H, required ...string) gin.H {
	schema := gin.H{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return gin.H{"content": gin.H{"application/json": gin.H{"schema": schema}}}
}

func str() gin.H { return gin.H{"type": "string"} }

func responses(codes map[string]string) gin.H {
	out := gin.H{}
	for code, desc := range codes {
		out[code] = gin.H{"description": desc}
	}
	return out
}

func openAPI(kinds []editing.Kind) gin.H {
	lease := jsonBody(gin.H{"documentId": str(), "userId": str()}, "documentId")
	paths := gin.H{
		"/api/v1/me": gin.H{"get": gin.H{"summary": "Current member", "responses": responses(map[string]string{"200": "member or claims"})}},
		"/health":    gin.H{"get": gin.H{"summary": "Liveness check", "responses": responses(map[string]string{"200": "healthy"})}},
		"/ready":     gin.H{"get": gin.H{"summary": "Readiness check", "responses": responses(map[string]string{"200": "ready", "503": "not ready"})}},
	}
	for _, k := range kinds {
		p := "/api/v1/" + k.RoutePath()
		tag := []string{string(k)}
		paths[p] = gin.H{
			"get": gin.H{"tags": tag, "summary": "List " + string(k) + " documents", "responses": responses(map[string]string{"200": "documents"})},
			"post": gin.H{"tags": tag, "summary": "Create a draft", "requestBody": jsonBody(gin.H{"userId": str(), "fields": gin.H{"type": "object"}}),
				"responses": responses(map[string]string{"201": "created", "400": "invalid fields"})},
		}
		paths[p+"/{id}"] = gin.H{
			"get": gin.H{"tags": tag, "summary": "Get a document",
				"parameters": []gin.H{{"name": "id", "in": "path", "required": true, "schema": str()}},
				"responses":  responses(map[string]string{"200": "document", "404": "NOT_FOUND"})},
		}
		paths[p+"/acquire-priority"] = gin.H{
			"post": gin.H{"tags": tag, "summary": "Acquire edit priority", "requestBody": lease,
				"responses": responses(map[string]string{"200": "hasPriority with holder details when denied", "404": "NOT_FOUND"})},
		}
		paths[p+"/clear-priority"] = gin.H{
			"post": gin.H{"tags": tag, "summary": "Release edit priority", "requestBody": lease,
				"responses": responses(map[string]string{"200": "ok"})},
		}
		paths[p+"/save"] = gin.H{
			"post": gin.H{"tags": tag, "summary": "Save content against a version",
				"requestBody": jsonBody(gin.H{"documentId": str(), "userId": str(), "version": gin.H{"type": "integer"}, "fields": gin.H{"type": "object"}}, "documentId", "version"),
				"responses": responses(map[string]string{
					"200": "saved document",
					"403": "NO_EDIT_PRIORITY",
					"404": "NOT_FOUND",
					"409": "VERSION_CONFLICT",
				})},
		}
		paths[p+"/review"] = gin.H{
			"post": gin.H{"tags": tag, "summary": "Record a review decision",
				"requestBody": jsonBody(gin.H{"documentId": str(), "status": gin.H{"type": "string", "enum": []string{"draft", "approved", "rejected"}}}, "documentId", "status"),
				"responses":   responses(map[string]string{"200": "document", "400": "invalid status"})},
		}
	}
	return gin.H{
		"openapi": "3.0.0",
		"info":    gin.H{"title": "council-portal", "version": "v1"},
		"paths":   paths,
	}
}
