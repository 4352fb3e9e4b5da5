package llm

import "fmt"

// ErrorKind tells where an analysis failed.
type ErrorKind int

const (
	// KindService means the provider call itself failed (network, quota, auth).
	KindService ErrorKind = iota
	// KindResponse means the provider answered but the text was not a valid analysis.
	KindResponse
	// KindEncoding means the image payload could not be prepared for the request.
	KindEncoding
)

func (k ErrorKind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindResponse:
		return "response"
	case KindEncoding:
		return "encoding"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

const (
	msgAnalysisFailed = "Error al analizar la imagen. Error de la API de %s: %s"
	msgUnknownFailure = "Ocurrió un error desconocido durante el análisis de la imagen."
)

// AnalysisError is returned by every Analyzer on failure. Its message is
// shown to the user as is.
type AnalysisError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *AnalysisError) Error() string {
	if e.Err == nil || e.Err.Error() == "" {
		return msgUnknownFailure
	}
	return fmt.Sprintf(msgAnalysisFailed, e.Provider, e.Err.Error())
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
