package handlers

// apiEndpoints lists the public routes for the root banner and /api/metrics
var apiEndpoints = map[string]string{
	"generate": "POST /api/generate?format=mp3|midi|json",
	"health":   "GET /api/health",
	"metrics":  "GET /api/metrics",
}
