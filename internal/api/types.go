package api

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error              string   `json:"error"`
	Message            string   `json:"message,omitempty"`
	Detail             string   `json:"detail,omitempty"`
	AvailableEndpoints []string `json:"available_endpoints,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// BannerResponse is returned by GET /
type BannerResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// ServiceName identifies this server in health checks
const ServiceName = "temantidur-server"

// Endpoints lists the public routes, keyed by method and path
var Endpoints = map[string]string{
	"GET /health":          "Health check",
	"POST /chat":           "Chat dengan AI",
	"POST /detect-emotion": "Deteksi emosi dari gambar",
	"POST /voice-chat":     "Voice chat dengan AI",
	"POST /recap":          "Rangkuman percakapan harian",
	"GET /ws/voice-chat":   "Voice chat lewat WebSocket",
}
