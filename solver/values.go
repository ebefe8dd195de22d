package solver

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/constraint"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// valueGen synthesizes business-realistic field values. All randomness
// flows through the seeded faker and rng so generation is reproducible.
type valueGen struct {
	faker *gofakeit.Faker
	rng   *rand.Rand

	// seq disambiguates unique values within one generation session
	seq uint64
}

func newValueGen(seed int64) *valueGen {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &valueGen{
		faker: gofakeit.New(uint64(seed)),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// generator produces a value for one field.
type generator func(g *valueGen, f *schema.Field) any

// generators is the total dispatch table over field types. Every
// declared FieldType has an entry; unrecognized describe types land on
// the explicit FieldTypeUnknown variant rather than a default branch.
var generators = map[schema.FieldType]generator{
	schema.FieldTypeString:    (*valueGen).stringValue,
	schema.FieldTypeTextArea:  (*valueGen).textAreaValue,
	schema.FieldTypeBoolean:   (*valueGen).boolValue,
	schema.FieldTypeInt:       (*valueGen).intValue,
	schema.FieldTypeDouble:    (*valueGen).doubleValue,
	schema.FieldTypeCurrency:  (*valueGen).currencyValue,
	schema.FieldTypePercent:   (*valueGen).percentValue,
	schema.FieldTypeDate:      (*valueGen).dateValue,
	schema.FieldTypeDateTime:  (*valueGen).dateTimeValue,
	schema.FieldTypeEmail:     (*valueGen).emailValue,
	schema.FieldTypePhone:     (*valueGen).phoneValue,
	schema.FieldTypeURL:       (*valueGen).urlValue,
	schema.FieldTypePicklist:  (*valueGen).picklistValue,
	schema.FieldTypeReference: (*valueGen).referenceValue,
	schema.FieldTypeID:        (*valueGen).idValue,
	schema.FieldTypeUnknown:   (*valueGen).unknownValue,
}

// value synthesizes a value for the field, honoring the field's
// constraints at generation time.
func (g *valueGen) value(f *schema.Field, constraints []constraint.FieldConstraint) any {
	gen, ok := generators[f.Type]
	if !ok {
		gen = generators[schema.FieldTypeUnknown]
	}
	v := gen(g, f)

	for _, c := range constraints {
		if !strings.EqualFold(c.Field, f.Name) {
			continue
		}
		switch c.Kind {
		case constraint.KindUnique:
			v = g.uniquify(v)
		case constraint.KindFormat:
			if s, ok := v.(string); ok && c.MaxLength > 0 && len(s) > c.MaxLength {
				v = strings.TrimSpace(s[:c.MaxLength])
			}
		case constraint.KindRange:
			v = clampRange(v, c)
		}
	}

	return v
}

// uniquify appends a deterministic UUID so unique fields never collide
// within or across batches.
func (g *valueGen) uniquify(v any) any {
	g.seq++
	suffix := strconv.FormatUint(g.seq, 10)
	if u, err := uuid.NewRandomFromReader(g.rng); err == nil {
		suffix = strings.Split(u.String(), "-")[0]
	}

	if s, ok := v.(string); ok {
		return s + "-" + suffix
	}
	return v
}

func clampRange(v any, c constraint.FieldConstraint) any {
	d, ok := toDecimal(v)
	if !ok {
		return v
	}
	if c.Min != nil && d.LessThan(*c.Min) {
		d = *c.Min
	}
	if c.Max != nil && d.GreaterThan(*c.Max) {
		d = *c.Max
	}
	return d
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case float64:
		return decimal.NewFromFloat(t), true
	default:
		return decimal.Zero, false
	}
}

// --- Per-type generators ---

// stringValue picks a realistic value from the field name's semantics.
func (g *valueGen) stringValue(f *schema.Field) any {
	name := strings.ToLower(f.Name)

	var v string
	switch {
	case strings.Contains(name, "firstname"):
		v = g.faker.FirstName()
	case strings.Contains(name, "lastname"):
		v = g.faker.LastName()
	case strings.Contains(name, "company") || name == "name" || strings.HasSuffix(name, "account"):
		v = g.faker.Company()
	case strings.Contains(name, "city"):
		v = g.faker.City()
	case strings.Contains(name, "state"):
		v = g.faker.StateAbr()
	case strings.Contains(name, "country"):
		v = g.faker.Country()
	case strings.Contains(name, "street") || strings.Contains(name, "address"):
		v = g.faker.Street()
	case strings.Contains(name, "zip") || strings.Contains(name, "postal"):
		v = g.faker.Zip()
	case strings.Contains(name, "title"):
		v = g.faker.JobTitle()
	case strings.Contains(name, "industry"):
		v = g.faker.BuzzWord()
	default:
		v = g.faker.Sentence(3)
		v = strings.TrimSuffix(v, ".")
	}

	if f.Length > 0 && len(v) > f.Length {
		v = strings.TrimSpace(v[:f.Length])
	}
	return v
}

func (g *valueGen) textAreaValue(f *schema.Field) any {
	v := g.faker.Sentence(12)
	if f.Length > 0 && len(v) > f.Length {
		v = strings.TrimSpace(v[:f.Length])
	}
	return v
}

func (g *valueGen) boolValue(*schema.Field) any {
	return g.faker.Bool()
}

// numericLimit bounds generated magnitudes at four whole digits, the
// scale of typical seeded business data; a tighter field precision
// lowers the bound, a looser one does not raise it.
func (g *valueGen) numericLimit(f *schema.Field) int64 {
	limit := int64(10000)
	if digits := f.Precision - f.Scale; digits > 0 && digits < 5 {
		limit = pow10(digits) - 1
	}
	return limit
}

func (g *valueGen) intValue(f *schema.Field) any {
	return g.rng.Int63n(g.numericLimit(f)) + 1
}

func (g *valueGen) doubleValue(f *schema.Field) any {
	whole := g.rng.Int63n(g.numericLimit(f))
	frac := g.rng.Int63n(100)
	return decimal.NewFromInt(whole).Add(decimal.New(frac, -2))
}

func (g *valueGen) currencyValue(f *schema.Field) any {
	d := g.doubleValue(f).(decimal.Decimal)
	return d.Abs()
}

func (g *valueGen) percentValue(*schema.Field) any {
	return decimal.NewFromInt(int64(g.rng.Intn(101)))
}

// dateValue generates a day within the past year, truncated to
// midnight UTC so repeated runs within a day stay stable.
func (g *valueGen) dateValue(*schema.Field) any {
	now := time.Now().UTC()
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, -g.rng.Intn(365))
}

func (g *valueGen) dateTimeValue(*schema.Field) any {
	now := time.Now().UTC()
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return base.Add(-time.Duration(g.rng.Intn(365*24)) * time.Hour)
}

func (g *valueGen) emailValue(*schema.Field) any {
	return strings.ToLower(g.faker.FirstName()) + "." + strings.ToLower(g.faker.LastName()) + "@" + g.faker.DomainName()
}

func (g *valueGen) phoneValue(*schema.Field) any {
	return g.faker.Phone()
}

func (g *valueGen) urlValue(*schema.Field) any {
	return "https://www." + g.faker.DomainName()
}

func (g *valueGen) picklistValue(f *schema.Field) any {
	if len(f.PicklistValues) == 0 {
		return nil
	}
	return f.PicklistValues[g.rng.Intn(len(f.PicklistValues))]
}

// referenceValue fabricates a Salesforce-shaped 18-character ID.
// Real lookups are wired in by the loading pipeline; the placeholder
// keeps format checks happy during pre-flight validation.
func (g *valueGen) referenceValue(*schema.Field) any {
	return g.salesforceID("a00")
}

func (g *valueGen) idValue(*schema.Field) any {
	return g.salesforceID("001")
}

// unknownValue covers the explicit unknown variant: a short opaque
// token, never nil, so required unknown-typed fields still satisfy
// blank checks.
func (g *valueGen) unknownValue(f *schema.Field) any {
	v := g.faker.Word()
	if f.Length > 0 && len(v) > f.Length {
		v = v[:f.Length]
	}
	return v
}

const base62 = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func (g *valueGen) salesforceID(prefix string) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for i := 0; i < 15; i++ {
		sb.WriteByte(base62[g.rng.Intn(len(base62))])
	}
	return sb.String()
}

func pow10(n int) int64 {
	out := int64(1)
	for i := 0; i < n; i++ {
		out *= 10
	}
	return out
}
