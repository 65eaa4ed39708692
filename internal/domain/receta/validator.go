package receta

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/farmalink/recetas/internal/domain/medico"
)

// MedicoLookup is the validator's read-only view of the physician
// directory.
type MedicoLookup interface {
	FindByCMP(ctx context.Context, cmp string) (*medico.Medico, error)
}

// ValidatorConfig bounds the domain checks. Zero values are replaced by
// the defaults below.
type ValidatorConfig struct {
	DNIMinDigitos int
	DNIMaxDigitos int
	ValidezDias   int
	MinTexto      int
}

const (
	defaultDNIMin      = 8
	defaultDNIMax      = 12
	defaultValidezDias = 30
	defaultMinTexto    = 20
)

// ReextractionContext carries the transcript when validating fields that
// were freshly re-extracted from a document rather than submitted as
// JSON. The zero value means a user-submitted candidate.
type ReextractionContext struct {
	IsReextraction bool
	Transcript     string
}

// Validator applies the prescription domain rules. It is a pure decision
// function over its inputs plus one read-only directory lookup; callers
// own persistence.
type Validator struct {
	cfg     ValidatorConfig
	medicos MedicoLookup
	now     func() time.Time
}

func NewValidator(cfg ValidatorConfig, medicos MedicoLookup) *Validator {
	if cfg.DNIMinDigitos <= 0 {
		cfg.DNIMinDigitos = defaultDNIMin
	}
	if cfg.DNIMaxDigitos <= 0 {
		cfg.DNIMaxDigitos = defaultDNIMax
	}
	if cfg.ValidezDias <= 0 {
		cfg.ValidezDias = defaultValidezDias
	}
	if cfg.MinTexto <= 0 {
		cfg.MinTexto = defaultMinTexto
	}
	return &Validator{cfg: cfg, medicos: medicos, now: time.Now}
}

// SetClock overrides the validator's notion of "now". Used by tests.
func (v *Validator) SetClock(now func() time.Time) {
	v.now = now
}

var reDigits = regexp.MustCompile(`^[0-9]+$`)

// Validar runs the ordered domain checks over a candidate. The first
// failure short-circuits with a categorized Error. On success it returns
// the parsed issue date; the caller builds the validated record from the
// candidate plus this date.
func (v *Validator) Validar(ctx context.Context, c CandidateFields, rctx ReextractionContext) (time.Time, error) {
	// 1. Structural completeness.
	if c.PacienteDNI == "" || c.MedicoCMP == "" || c.FechaEmision == "" || len(c.Productos) == 0 {
		return time.Time{}, NewError(KindIncompleteFields,
			"faltan campos obligatorios: se requieren pacienteDNI, medicoCMP, fechaEmision y productos")
	}

	// 2. Patient id digit bound.
	if !reDigits.MatchString(c.PacienteDNI) ||
		len(c.PacienteDNI) < v.cfg.DNIMinDigitos || len(c.PacienteDNI) > v.cfg.DNIMaxDigitos {
		return time.Time{}, NewError(KindInvalidPatientID,
			"pacienteDNI debe ser una cadena de %d a %d dígitos", v.cfg.DNIMinDigitos, v.cfg.DNIMaxDigitos)
	}

	// 3. License present.
	if strings.TrimSpace(c.MedicoCMP) == "" {
		return time.Time{}, NewError(KindInvalidLicense, "medicoCMP es obligatorio")
	}

	// 4. Issue date parses.
	fecha, err := parseFecha(c.FechaEmision)
	if err != nil {
		return time.Time{}, NewError(KindInvalidIssueDate,
			"fechaEmision no es una fecha válida: %q", c.FechaEmision)
	}

	// 5. Product lines.
	for i, p := range c.Productos {
		if p.CodigoProducto == "" || p.Nombre == "" || p.Cantidad <= 0 {
			return time.Time{}, NewError(KindInvalidProductLine,
				"producto %d inválido: se requieren codigoProducto, nombre y cantidad > 0", i+1)
		}
	}

	// 6. Physician lookup.
	m, err := v.medicos.FindByCMP(ctx, c.MedicoCMP)
	if err != nil {
		if errors.Is(err, medico.ErrNotFound) {
			return time.Time{}, NewError(KindUnlicensedPhysician,
				"médico con CMP %s no registrado", c.MedicoCMP)
		}
		return time.Time{}, WrapError(KindUpstreamUnavailable, err, "consulta al directorio de médicos falló")
	}
	if !m.ColegiaturaValida {
		return time.Time{}, NewError(KindUnlicensedPhysician,
			"médico con CMP %s no tiene colegiatura válida", c.MedicoCMP)
	}

	// 7. Temporal window.
	now := v.now()
	if fecha.After(now) {
		return time.Time{}, NewError(KindFutureIssueDate, "fechaEmision está en el futuro")
	}
	elapsed := int(now.Sub(fecha).Hours() / 24)
	if elapsed > v.cfg.ValidezDias {
		return time.Time{}, NewError(KindExpiredPrescription,
			"receta vencida: emitida hace %d días, ventana de validez %d días", elapsed, v.cfg.ValidezDias)
	}

	// 8. Reextraction plausibility.
	if rctx.IsReextraction {
		if len(rctx.Transcript) <= v.cfg.MinTexto {
			return time.Time{}, NewError(KindShortDocument,
				"el texto extraído es demasiado corto para ser una receta (%d caracteres)", len(rctx.Transcript))
		}
		if !strings.Contains(rctx.Transcript, c.PacienteDNI) || !strings.Contains(rctx.Transcript, c.MedicoCMP) {
			return time.Time{}, NewError(KindContentMismatch,
				"el documento no contiene el DNI del paciente o el CMP del médico declarados")
		}
	}

	return fecha, nil
}

// parseFecha accepts the date-only form used on printed prescriptions
// plus RFC 3339 timestamps from JSON clients.
func parseFecha(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("unsupported date format")
}
