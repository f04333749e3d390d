package entity

// IdentityData is the data read from a national identity document (DNI)
type IdentityData struct {
	Nombre          string `json:"nombre"`
	Apellido        string `json:"apellido,omitempty"`
	Documento       string `json:"documento"`
	Domicilio       string `json:"domicilio"`
	FechaNacimiento string `json:"fechaNacimiento"`
	Sexo            string `json:"sexo"`
	LugarNacimiento string `json:"lugarNacimiento"`
}

// ExtractionResult is what the extraction endpoint produced for an image.
// Data is set when the endpoint answered with structured JSON, Raw holds the
// untouched text otherwise.
type ExtractionResult struct {
	Data *IdentityData `json:"data,omitempty"`
	Raw  string        `json:"raw,omitempty"`
}

// ExtractionEnvelope is the wire format of the extraction endpoint
type ExtractionEnvelope struct {
	Response string `json:"response"`
}
