package verifactu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Endpoints del servicio de suministro VERI*FACTU.
const (
	// AppEnvTest entorno de pruebas (sede de pruebas de la AEAT).
	AppEnvTest = "test"
	// AppEnvProd entorno de producción.
	AppEnvProd = "prod"
	// AppEnvDev local: no envía al WS, el tracker simula la aceptación.
	AppEnvDev = "dev"

	soapURLTest = "https://prewww1.aeat.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"
	soapURLProd = "https://www1.agenciatributaria.gob.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"

	soapAction = "RegFactuSistemaFacturacion"

	// maxResponseBytes límite de lectura del cuerpo de respuesta (1 MB).
	maxResponseBytes = 1 << 20
)

var _ Submitter = (*SOAPClient)(nil)

// SOAPClient implementa Submitter contra el WS SOAP de la AEAT.
type SOAPClient struct {
	httpClient *http.Client
	url        string
}

// NewSOAPClient construye el cliente para el entorno dado ("test" o "prod")
// con timeout de red acotado: el envío nunca debe quedar colgado, un timeout
// se registra como intento ERROR y se reintenta con backoff.
func NewSOAPClient(env string, timeout time.Duration) (*SOAPClient, error) {
	var url string
	switch env {
	case AppEnvProd:
		url = soapURLProd
	case AppEnvTest:
		url = soapURLTest
	default:
		return nil, fmt.Errorf("verifactu: entorno desconocido %q (usar 'test' o 'prod')", env)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SOAPClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}, nil
}

// Submit entrega el sobre al WS y devuelve el resultado interpretado.
// Errores de transporte (incluido timeout) se devuelven como error; el caller
// los registra como intento fallido reintentable.
func (c *SOAPClient) Submit(ctx context.Context, envelope []byte) (*SubmitResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("verifactu: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("verifactu: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("verifactu: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("verifactu: leer respuesta: %w", err)
	}

	result, err := parseResponse(body)
	if err != nil {
		return nil, err
	}
	result.HTTPStatus = resp.StatusCode
	return result, nil
}

// readBody lee el cuerpo acotado y lo transcodifica a UTF-8 si el servicio
// responde en ISO-8859-1 (los endpoints clásicos de la agencia aún lo hacen).
func readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(io.LimitReader(resp.Body, maxResponseBytes))
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "iso-8859-1") || strings.Contains(ct, "iso8859-1") {
		reader = transform.NewReader(reader, charmap.ISO8859_1.NewDecoder())
	}
	return io.ReadAll(reader)
}
