package verifactu

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	domvf "github.com/xcruz-intermega/factu365-sub000/internal/domain/verifactu"
	pkgvf "github.com/xcruz-intermega/factu365-sub000/pkg/verifactu"
)

// Namespaces del servicio de suministro VERI*FACTU.
const (
	nsSoapEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	nsSumLR   = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroLR.xsd"
	nsSumInfo = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroInformacion.xsd"
)

// ── Estructuras del sobre de envío ────────────────────────────────────────────

type soapEnvelope struct {
	XMLName   xml.Name `xml:"soapenv:Envelope"`
	XmlnsSoap string   `xml:"xmlns:soapenv,attr"`
	XmlnsSum  string   `xml:"xmlns:sum,attr"`
	XmlnsSum1 string   `xml:"xmlns:sum1,attr"`
	Header    struct{} `xml:"soapenv:Header"`
	Body      soapBody `xml:"soapenv:Body"`
}

type soapBody struct {
	RegFactu regFactuSistemaFacturacion `xml:"sum:RegFactuSistemaFacturacion"`
}

type regFactuSistemaFacturacion struct {
	Cabecera  cabecera          `xml:"sum:Cabecera"`
	Registros []registroFactura `xml:"sum:RegistroFactura"`
}

type cabecera struct {
	ObligadoEmision obligadoEmision `xml:"sum1:ObligadoEmision"`
}

type obligadoEmision struct {
	NombreRazon string `xml:"sum1:NombreRazon"`
	NIF         string `xml:"sum1:NIF"`
}

type registroFactura struct {
	RegistroAlta      *registroAlta      `xml:"sum1:RegistroAlta,omitempty"`
	RegistroAnulacion *registroAnulacion `xml:"sum1:RegistroAnulacion,omitempty"`
}

type registroAlta struct {
	IDVersion                string             `xml:"sum1:IDVersion"`
	IDFactura                idFactura          `xml:"sum1:IDFactura"`
	NombreRazonEmisor        string             `xml:"sum1:NombreRazonEmisor"`
	TipoFactura              string             `xml:"sum1:TipoFactura"`
	DescripcionOperacion     string             `xml:"sum1:DescripcionOperacion"`
	Desglose                 desglose           `xml:"sum1:Desglose"`
	CuotaTotal               string             `xml:"sum1:CuotaTotal"`
	ImporteTotal             string             `xml:"sum1:ImporteTotal"`
	Encadenamiento           encadenamiento     `xml:"sum1:Encadenamiento"`
	Sistema                  sistemaInformatico `xml:"sum1:SistemaInformatico"`
	FechaHoraHusoGenRegistro string             `xml:"sum1:FechaHoraHusoGenRegistro"`
	TipoHuella               string             `xml:"sum1:TipoHuella"`
	Huella                   string             `xml:"sum1:Huella"`
}

type registroAnulacion struct {
	IDVersion                string             `xml:"sum1:IDVersion"`
	IDFactura                idFacturaAnulada   `xml:"sum1:IDFactura"`
	Encadenamiento           encadenamiento     `xml:"sum1:Encadenamiento"`
	Sistema                  sistemaInformatico `xml:"sum1:SistemaInformatico"`
	FechaHoraHusoGenRegistro string             `xml:"sum1:FechaHoraHusoGenRegistro"`
	TipoHuella               string             `xml:"sum1:TipoHuella"`
	Huella                   string             `xml:"sum1:Huella"`
}

type idFacturaAnulada struct {
	IDEmisorFactura        string `xml:"sum1:IDEmisorFacturaAnulada"`
	NumSerieFactura        string `xml:"sum1:NumSerieFacturaAnulada"`
	FechaExpedicionFactura string `xml:"sum1:FechaExpedicionFacturaAnulada"`
}

type idFactura struct {
	IDEmisorFactura        string `xml:"sum1:IDEmisorFactura"`
	NumSerieFactura        string `xml:"sum1:NumSerieFactura"`
	FechaExpedicionFactura string `xml:"sum1:FechaExpedicionFactura"`
}

type desglose struct {
	Detalles []detalleDesglose `xml:"sum1:DetalleDesglose"`
}

type detalleDesglose struct {
	Impuesto              string `xml:"sum1:Impuesto"`
	ClaveRegimen          string `xml:"sum1:ClaveRegimen"`
	CalificacionOperacion string `xml:"sum1:CalificacionOperacion"`
	TipoImpositivo        string `xml:"sum1:TipoImpositivo"`
	BaseImponible         string `xml:"sum1:BaseImponibleOimporteNoSujeto"`
	CuotaRepercutida      string `xml:"sum1:CuotaRepercutida"`
}

// encadenamiento: o PrimerRegistro="S" (abre cadena) o referencia al anterior.
type encadenamiento struct {
	PrimerRegistro   string            `xml:"sum1:PrimerRegistro,omitempty"`
	RegistroAnterior *registroAnterior `xml:"sum1:RegistroAnterior,omitempty"`
}

type registroAnterior struct {
	Huella string `xml:"sum1:Huella"`
}

type sistemaInformatico struct {
	NombreRazon       string `xml:"sum1:NombreRazon"`
	NIF               string `xml:"sum1:NIF"`
	NombreSistema     string `xml:"sum1:NombreSistemaInformatico"`
	IDSistema         string `xml:"sum1:IdSistemaInformatico"`
	Version           string `xml:"sum1:Version"`
	NumeroInstalacion string `xml:"sum1:NumeroInstalacion"`
}

// ── Builder ──────────────────────────────────────────────────────────────────

// EnvelopeBuilder construye el sobre SOAP del suministro de registros.
type EnvelopeBuilder struct{}

// NewEnvelopeBuilder crea el servicio.
func NewEnvelopeBuilder() *EnvelopeBuilder {
	return &EnvelopeBuilder{}
}

// Build genera el []byte del sobre RegFactuSistemaFacturacion con un
// RegistroAlta (o RegistroAnulacion, según el tipo del registro) por entrada
// del contexto. Los importes del XML van con 2 decimales fijos; la Huella y
// FechaHoraHusoGenRegistro son los valores congelados del ledger (nunca se
// recalculan aquí).
func (b *EnvelopeBuilder) Build(ctx *EnvelopeContext) ([]byte, error) {
	if ctx == nil || ctx.IssuerTaxID == "" {
		return nil, fmt.Errorf("verifactu: falta el obligado de emisión")
	}
	if len(ctx.Entries) == 0 {
		return nil, fmt.Errorf("verifactu: envío sin registros")
	}

	registros := make([]registroFactura, 0, len(ctx.Entries))
	for _, it := range ctx.Entries {
		e := it.Entry

		sistema := sistemaInformatico{
			NombreRazon:       ctx.Sistema.NombreRazon,
			NIF:               ctx.Sistema.NIF,
			NombreSistema:     ctx.Sistema.NombreSistema,
			IDSistema:         ctx.Sistema.IDSistema,
			Version:           ctx.Sistema.Version,
			NumeroInstalacion: ctx.Sistema.NumeroInstalacion,
		}
		enc := encadenamiento{}
		if e.IsFirst() {
			enc.PrimerRegistro = "S"
		} else {
			enc.RegistroAnterior = &registroAnterior{Huella: e.PreviousHash}
		}

		if e.EntryType == entity.LedgerEntryAnulacion {
			registros = append(registros, registroFactura{RegistroAnulacion: &registroAnulacion{
				IDVersion: pkgvf.VersionRegistro,
				IDFactura: idFacturaAnulada{
					IDEmisorFactura:        e.IssuerTaxID,
					NumSerieFactura:        e.SeriesNumber,
					FechaExpedicionFactura: e.ExpeditionDate.Format(domvf.ExpeditionDateLayout),
				},
				Encadenamiento:           enc,
				Sistema:                  sistema,
				FechaHoraHusoGenRegistro: e.GeneratedAt.Format(domvf.GenerationTimeLayout),
				TipoHuella:               pkgvf.TipoHuellaSHA256,
				Huella:                   e.Hash,
			}})
			continue
		}

		detalles := make([]detalleDesglose, 0, len(it.Breakdown))
		for _, line := range it.Breakdown {
			detalles = append(detalles, detalleDesglose{
				Impuesto:              pkgvf.ImpuestoIVA,
				ClaveRegimen:          pkgvf.ClaveRegimenGeneral,
				CalificacionOperacion: pkgvf.CalificacionSujetaNoExenta,
				TipoImpositivo:        line.VatRate.StringFixed(2),
				BaseImponible:         line.TaxBase.StringFixed(2),
				CuotaRepercutida:      line.VatQuota.StringFixed(2),
			})
		}

		registros = append(registros, registroFactura{RegistroAlta: &registroAlta{
			IDVersion: pkgvf.VersionRegistro,
			IDFactura: idFactura{
				IDEmisorFactura:        e.IssuerTaxID,
				NumSerieFactura:        e.SeriesNumber,
				FechaExpedicionFactura: e.ExpeditionDate.Format(domvf.ExpeditionDateLayout),
			},
			NombreRazonEmisor:        ctx.IssuerName,
			TipoFactura:              e.DocumentTypeCode,
			DescripcionOperacion:     "Registro de facturación",
			Desglose:                 desglose{Detalles: detalles},
			CuotaTotal:               e.VatQuota.StringFixed(2),
			ImporteTotal:             e.TotalAmount.StringFixed(2),
			Encadenamiento:           enc,
			Sistema:                  sistema,
			FechaHoraHusoGenRegistro: e.GeneratedAt.Format(domvf.GenerationTimeLayout),
			TipoHuella:               pkgvf.TipoHuellaSHA256,
			Huella:                   e.Hash,
		}})
	}

	env := soapEnvelope{
		XmlnsSoap: nsSoapEnv,
		XmlnsSum:  nsSumLR,
		XmlnsSum1: nsSumInfo,
		Body: soapBody{RegFactu: regFactuSistemaFacturacion{
			Cabecera: cabecera{ObligadoEmision: obligadoEmision{
				NombreRazon: ctx.IssuerName,
				NIF:         ctx.IssuerTaxID,
			}},
			Registros: registros,
		}},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("verifactu: serializar sobre: %w", err)
	}
	return buf.Bytes(), nil
}
