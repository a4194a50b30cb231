package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/agenthands/resolve/internal/core/model"
)

// SyntheticSource generates base identities plus corrupted duplicates for
// demo and test runs. Output is deterministic for a fixed seed.
type SyntheticSource struct {
	Count         int
	DuplicateRate float64
	Seed          int64
}

func (s *SyntheticSource) Load(ctx context.Context) ([]model.Record, error) {
	count := s.Count
	if count <= 0 {
		count = 100
	}

	faker := gofakeit.New(s.Seed)
	var records []model.Record
	next := 0
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		addr := faker.Address()
		base := model.Record{
			ID: fmt.Sprintf("rec-%05d", next),
			Fields: map[model.FieldType]string{
				model.FieldName:    faker.Name(),
				model.FieldEmail:   faker.Email(),
				model.FieldPhone:   faker.PhoneFormatted(),
				model.FieldAddress: fmt.Sprintf("%s %s %s", addr.Street, addr.City, addr.Zip),
			},
		}
		next++
		records = append(records, base)

		if faker.Float64Range(0, 1) < s.DuplicateRate {
			dup := s.corrupt(faker, base)
			dup.ID = fmt.Sprintf("rec-%05d", next)
			next++
			records = append(records, dup)
		}
	}
	return records, nil
}

// corrupt derives a noisy duplicate: a name typo, reformatted phone,
// re-cased email, abbreviated address, and sometimes a dropped field.
func (s *SyntheticSource) corrupt(faker *gofakeit.Faker, base model.Record) model.Record {
	dup := model.Record{Fields: make(map[model.FieldType]string, len(base.Fields))}
	for f, v := range base.Fields {
		dup.Fields[f] = v
	}

	dup.Fields[model.FieldName] = typo(faker, base.Fields[model.FieldName])
	dup.Fields[model.FieldPhone] = digitsOnly(base.Fields[model.FieldPhone])
	dup.Fields[model.FieldAddress] = strings.NewReplacer(
		"Street", "St", "Avenue", "Ave", "Road", "Rd", "Boulevard", "Blvd",
	).Replace(base.Fields[model.FieldAddress])

	switch faker.Number(0, 3) {
	case 0:
		delete(dup.Fields, model.FieldEmail)
	case 1:
		dup.Fields[model.FieldEmail] = strings.ToUpper(base.Fields[model.FieldEmail])
	}
	return dup
}

// typo swaps one adjacent letter pair at a seeded position.
func typo(faker *gofakeit.Faker, name string) string {
	runes := []rune(name)
	if len(runes) < 4 {
		return name
	}
	i := faker.Number(1, len(runes)-2)
	runes[i], runes[i+1] = runes[i+1], runes[i]
	return string(runes)
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
