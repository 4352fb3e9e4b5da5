package web

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/llm"
	"github.com/raine/ecg-analyzer/internal/session"
)

// =============================================================================
// Page copy
// =============================================================================

const (
	MsgTitle         = "Analizador de Arritmias ECG"
	MsgSubtitle      = "Sube una imagen de un ECG para obtener un análisis con la potencia de IA de Gemini."
	MsgDisclaimer    = "Aviso: Esta herramienta es solo para fines informativos y no sustituye el consejo médico profesional."
	MsgUploadPrompt  = "Haz clic para subir la imagen del ECG"
	MsgUploadFormats = "PNG, JPG, o WEBP"
	MsgUploadButton  = "Subir imagen"
	MsgPreviewAlt    = "Vista previa del ECG"
	MsgAnalyze       = "Analizar ECG"
	MsgAnalyzing     = "Analizando..."
	MsgRemoveImage   = "Quitar Imagen"
)

// =============================================================================
// Result messages
// =============================================================================

const (
	MsgResultsTitle      = "Resultados del Análisis"
	MsgArrhythmiaLevel   = "Nivel de Arritmia: %s"
	MsgSummaryTitle      = "Resumen"
	MsgMetricsTitle      = "Métricas Predictivas"
	MsgMetricColumn      = "Métrica"
	MsgValueColumn       = "Valor"
	MsgInterpretationCol = "Interpretación"
)

// =============================================================================
// Error messages
// =============================================================================

const (
	MsgErrorTitle       = "Error"
	MsgSelectImageFirst = "Por favor, selecciona una imagen primero."
	MsgUnexpectedErr    = "Ocurrió un error inesperado."
	MsgImageTooLarge    = "La imagen supera el tamaño máximo de %d MB."
	MsgInvalidImageData = "Los datos de la imagen no son válidos."
)

// uiText is the copy handed to the page template.
type uiText struct {
	Title, Subtitle, Disclaimer                        string
	UploadPrompt, UploadFormats, UploadButton          string
	PreviewAlt, Analyze, Analyzing, RemoveImage        string
	ErrorTitle, ResultsTitle, SummaryTitle             string
	MetricsTitle, MetricColumn, ValueColumn, InterpCol string
}

var pageText = uiText{
	Title:         MsgTitle,
	Subtitle:      MsgSubtitle,
	Disclaimer:    MsgDisclaimer,
	UploadPrompt:  MsgUploadPrompt,
	UploadFormats: MsgUploadFormats,
	UploadButton:  MsgUploadButton,
	PreviewAlt:    MsgPreviewAlt,
	Analyze:       MsgAnalyze,
	Analyzing:     MsgAnalyzing,
	RemoveImage:   MsgRemoveImage,
	ErrorTitle:    MsgErrorTitle,
	ResultsTitle:  MsgResultsTitle,
	SummaryTitle:  MsgSummaryTitle,
	MetricsTitle:  MsgMetricsTitle,
	MetricColumn:  MsgMetricColumn,
	ValueColumn:   MsgValueColumn,
	InterpCol:     MsgInterpretationCol,
}

func formatText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// errorMessage maps an analysis failure to the text shown in the error panel.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}

	var analysisErr *llm.AnalysisError
	var encodingErr *capture.EncodingError
	switch {
	case errors.Is(err, session.ErrMissingInput):
		return MsgSelectImageFirst
	case errors.Is(err, session.ErrInternal):
		return MsgUnexpectedErr
	case errors.As(err, &analysisErr):
		return analysisErr.Error()
	case errors.As(err, &encodingErr):
		return MsgUnexpectedErr
	case err.Error() == "":
		return MsgUnexpectedErr
	default:
		return err.Error()
	}
}
