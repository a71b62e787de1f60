package verifactu

import (
	"fmt"
	"io"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	pkgvf "github.com/xcruz-intermega/factu365-sub000/pkg/verifactu"
)

// parseResponse interpreta la respuesta del WS. Se usa etree y búsqueda por
// nombre local porque la AEAT varía los prefijos de namespace entre entornos;
// un parseo tipado con encoding/xml se rompe con cada variación.
//
// Nunca devuelve error por una respuesta de rechazo: eso es un resultado de
// negocio que viaja interpretado en SubmitResult. Error solo si el cuerpo no
// es XML utilizable.
func parseResponse(body []byte) (*SubmitResult, error) {
	doc := etree.NewDocument()
	// El cuerpo ya llega transcodificado a UTF-8 (readBody); la declaración
	// XML puede seguir diciendo ISO-8859-1, así que se acepta tal cual.
	doc.ReadSettings.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("verifactu: respuesta no parseable: %w", err)
	}

	res := &SubmitResult{ResponsePayload: string(body)}

	// SOAP Fault (error de protocolo).
	if fault := findLocal(doc.Root(), "Fault"); fault != nil {
		res.Estado = pkgvf.EstadoEnvioIncorrecto
		res.ErrorCode = textOfLocal(fault, "faultcode")
		res.ErrorDesc = textOfLocal(fault, "faultstring")
		return res, nil
	}

	res.Estado = textOfLocal(doc.Root(), "EstadoEnvio")
	res.CSV = textOfLocal(doc.Root(), "CSV")

	// Primer error de línea, si lo hay (rechazos y aceptaciones parciales).
	for _, linea := range findAllLocal(doc.Root(), "RespuestaLinea") {
		code := textOfLocal(linea, "CodigoErrorRegistro")
		if code == "" {
			continue
		}
		res.ErrorCode = code
		res.ErrorDesc = textOfLocal(linea, "DescripcionErrorRegistro")
		break
	}

	if res.Estado == "" {
		return nil, fmt.Errorf("verifactu: respuesta sin EstadoEnvio: %s", truncate(string(body), 200))
	}
	return res, nil
}

// ParseEnvelopeRegistros extrae de un sobre de envío ya construido los
// registros con su desglose. Se usa para inspeccionar los payloads literales
// almacenados en los intentos de envío sin releer el ledger.
func ParseEnvelopeRegistros(payload []byte) ([]ParsedRegistro, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		return nil, fmt.Errorf("verifactu: payload no parseable: %w", err)
	}

	var out []ParsedRegistro
	for _, alta := range findAllLocal(doc.Root(), "RegistroAlta") {
		reg := ParsedRegistro{
			SeriesNumber: textOfLocal(alta, "NumSerieFactura"),
		}
		// La Huella propia es hija directa del registro; Encadenamiento
		// contiene la del anterior, que no interesa aquí.
		for _, child := range alta.ChildElements() {
			if child.Tag == "Huella" {
				reg.Huella = child.Text()
			}
		}
		for _, det := range findAllLocal(alta, "DetalleDesglose") {
			tipo, err := decimal.NewFromString(textOfLocal(det, "TipoImpositivo"))
			if err != nil {
				return nil, fmt.Errorf("verifactu: TipoImpositivo inválido: %w", err)
			}
			base, err := decimal.NewFromString(textOfLocal(det, "BaseImponibleOimporteNoSujeto"))
			if err != nil {
				return nil, fmt.Errorf("verifactu: base imponible inválida: %w", err)
			}
			cuota, err := decimal.NewFromString(textOfLocal(det, "CuotaRepercutida"))
			if err != nil {
				return nil, fmt.Errorf("verifactu: cuota inválida: %w", err)
			}
			reg.Desglose = append(reg.Desglose, DesgloseLine{
				TipoImpositivo: tipo,
				BaseImponible:  base,
				Cuota:          cuota,
			})
		}
		out = append(out, reg)
	}
	return out, nil
}

// ── helpers etree (búsqueda por nombre local, ignorando prefijo) ─────────────

func findLocal(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.Tag == tag {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findLocal(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func findAllLocal(el *etree.Element, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	if el.Tag == tag {
		out = append(out, el)
	}
	for _, child := range el.ChildElements() {
		out = append(out, findAllLocal(child, tag)...)
	}
	return out
}

func textOfLocal(el *etree.Element, tag string) string {
	if found := findLocal(el, tag); found != nil {
		return found.Text()
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
