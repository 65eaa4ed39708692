package receta

import (
	"regexp"
	"strconv"
	"strings"
)

// Labeled-line patterns for the transcript layout produced by scanned
// prescription forms. Values run to end of line and are trimmed.
var (
	reDNI      = regexp.MustCompile(`(?m)^\s*Paciente DNI:\s*(.+)$`)
	reCMP      = regexp.MustCompile(`(?m)^\s*M[ée]dico CMP:\s*(.+)$`)
	reFecha    = regexp.MustCompile(`(?m)^\s*Fecha de emisi[óo]n:\s*(.+)$`)
	reProducto = regexp.MustCompile(`^-\s*C[óo]digo:\s*([^,]+),\s*Nombre:\s*([^,]+),\s*Cantidad:\s*([0-9]+(?:\.[0-9]+)?)\s*$`)
)

// ExtractFields parses a plain-text transcript into candidate
// prescription fields. Absent fields stay empty so the validator can
// reject incomplete extractions; malformed product lines are skipped.
// Products are returned in document order.
func ExtractFields(transcript string) CandidateFields {
	var c CandidateFields

	if m := reDNI.FindStringSubmatch(transcript); m != nil {
		c.PacienteDNI = strings.TrimSpace(m[1])
	}
	if m := reCMP.FindStringSubmatch(transcript); m != nil {
		c.MedicoCMP = strings.TrimSpace(m[1])
	}
	if m := reFecha.FindStringSubmatch(transcript); m != nil {
		c.FechaEmision = strings.TrimSpace(m[1])
	}

	c.Productos = extractProductos(transcript)
	return c
}

// extractProductos scans the block following a "Productos" heading. The
// block ends at the next labeled section ("Label: ...") or end of text.
func extractProductos(transcript string) []Producto {
	lines := strings.Split(transcript, "\n")

	var productos []Producto
	inBlock := false
	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if !inBlock {
			if strings.HasPrefix(line, "Productos") {
				inBlock = true
			}
			continue
		}

		if m := reProducto.FindStringSubmatch(line); m != nil {
			cantidad, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				continue
			}
			productos = append(productos, Producto{
				CodigoProducto: strings.TrimSpace(m[1]),
				Nombre:         strings.TrimSpace(m[2]),
				Cantidad:       cantidad,
			})
			continue
		}

		// A new labeled section closes the block.
		if line != "" && strings.Contains(line, ":") && !strings.HasPrefix(line, "-") {
			break
		}
	}

	return productos
}
