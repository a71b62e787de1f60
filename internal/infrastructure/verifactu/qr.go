package verifactu

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	domvf "github.com/xcruz-intermega/factu365-sub000/internal/domain/verifactu"
)

// URLs de cotejo de facturas (destino del QR).
const (
	QRValidationURLTest = "https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR"
	QRValidationURLProd = "https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR"
)

// BuildValidationURL construye la URL de validación que codifica el QR del
// documento: nif, numserie, fecha (dd-mm-yyyy) e importe con el mismo formato
// de ceros recortados que la cadena canónica, en ese orden exacto de
// parámetros (no se usa url.Values porque ordena alfabéticamente).
func BuildValidationURL(baseURL, nif, seriesNumber string, date time.Time, total decimal.Decimal) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "?"))
	b.WriteString("?nif=")
	b.WriteString(url.QueryEscape(strings.TrimSpace(nif)))
	b.WriteString("&numserie=")
	b.WriteString(url.QueryEscape(strings.TrimSpace(seriesNumber)))
	b.WriteString("&fecha=")
	b.WriteString(date.Format(domvf.ExpeditionDateLayout))
	b.WriteString("&importe=")
	b.WriteString(url.QueryEscape(domvf.FormatAmount(total)))
	return b.String()
}
