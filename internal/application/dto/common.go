package dto

// ErrorResponse cuerpo de error HTTP. Details lleva datos estructurados del error
// (disponible/solicitado en INSUFFICIENT_STOCK, estado por línea en reservas rechazadas).
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
