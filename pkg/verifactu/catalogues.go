// Package verifactu contiene catálogos y validaciones alineados a las listas
// del sistema VERI*FACTU (AEAT) y su esquema SuministroInformacion.
package verifactu

// =============================================================================
// Lista L2 - Tipos de factura (TipoFactura)
// =============================================================================

const (
	TipoFacturaCompleta     = "F1" // Factura completa (art. 6 RD 1619/2012)
	TipoFacturaSimplificada = "F2" // Factura simplificada (ticket)
	TipoFacturaSustitutiva  = "F3" // Factura emitida en sustitución de simplificadas
	TipoRectificativaArt80  = "R1" // Rectificativa: error fundado en derecho y art. 80
	TipoRectificativaArt802 = "R2" // Rectificativa: concurso (art. 80.Tres)
	TipoRectificativaArt803 = "R3" // Rectificativa: deudas incobrables (art. 80.Cuatro)
	TipoRectificativaResto  = "R4" // Rectificativa: resto
	TipoRectificativaSimpl  = "R5" // Rectificativa de facturas simplificadas
)

// ValidInvoiceTypeCodes códigos de TipoFactura admitidos en RegistroAlta.
var ValidInvoiceTypeCodes = map[string]bool{
	TipoFacturaCompleta: true, TipoFacturaSimplificada: true, TipoFacturaSustitutiva: true,
	TipoRectificativaArt80: true, TipoRectificativaArt802: true, TipoRectificativaArt803: true,
	TipoRectificativaResto: true, TipoRectificativaSimpl: true,
}

// =============================================================================
// Lista L1 - Impuesto del desglose
// =============================================================================

const (
	ImpuestoIVA  = "01" // IVA
	ImpuestoIPSI = "02" // IPSI (Ceuta y Melilla)
	ImpuestoIGIC = "03" // IGIC (Canarias)
	ImpuestoOtro = "05"
)

// =============================================================================
// Listas L8/L9 - Régimen y calificación de la operación
// =============================================================================

const (
	ClaveRegimenGeneral = "01" // Operación de régimen general

	CalificacionSujetaNoExenta = "S1" // Operación sujeta y no exenta, sin inversión
	CalificacionInvSujetoPas   = "S2" // Sujeta, con inversión del sujeto pasivo
	CalificacionNoSujeta       = "N1"
)

// =============================================================================
// Respuesta del WS - EstadoEnvio / EstadoRegistro
// =============================================================================

const (
	EstadoEnvioCorrecto       = "Correcto"
	EstadoEnvioParcial        = "ParcialmenteCorrecto"
	EstadoEnvioIncorrecto     = "Incorrecto"
	EstadoRegistroCorrecto    = "Correcto"
	EstadoRegistroAceptadoErr = "AceptadoConErrores"
	EstadoRegistroIncorrecto  = "Incorrecto"
)

// TipoHuella único valor admitido: SHA-256.
const TipoHuellaSHA256 = "01"

// VersionRegistro versión del esquema de registro que genera el sistema.
const VersionRegistro = "1.0"
