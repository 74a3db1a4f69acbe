package authcode

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"gitlab.com/ucmsv2/authcode-service/pkg/randcode"
)

const (
	DefaultTTL    = 30 * time.Minute
	DefaultLength = 6
	MaxLength     = 64
)

// Policy controls how new codes are generated. Zero fields fall back to the
// defaults: 30 minute lifetime, 6 decimal digits.
type Policy struct {
	TTL      time.Duration
	Length   int
	Alphabet string
}

func DefaultPolicy() Policy {
	return Policy{
		TTL:      DefaultTTL,
		Length:   DefaultLength,
		Alphabet: randcode.Digits,
	}
}

func (p Policy) withDefaults() Policy {
	if p.TTL == 0 {
		p.TTL = DefaultTTL
	}
	if p.Length == 0 {
		p.Length = DefaultLength
	}
	if p.Alphabet == "" {
		p.Alphabet = randcode.Digits
	}
	return p
}

func (p Policy) TTLOrDefault() time.Duration {
	return p.withDefaults().TTL
}

func (p Policy) Validate() error {
	p = p.withDefaults()
	return validation.ValidateStruct(&p,
		validation.Field(&p.TTL, validation.Min(time.Second)),
		validation.Field(&p.Length, validation.Min(1), validation.Max(MaxLength)),
		validation.Field(&p.Alphabet, validation.By(func(value any) error {
			alphabet, _ := value.(string)
			if _, err := randcode.ValidateAlphabet(alphabet); err != nil {
				return validation.NewError("validation_alphabet_invalid", err.Error())
			}
			return nil
		})),
	)
}

func (p Policy) GenerateCode() (string, error) {
	p = p.withDefaults()
	code, err := randcode.Generate(p.Length, p.Alphabet)
	if err != nil {
		return "", fmt.Errorf("policy(length=%d): %w", p.Length, err)
	}
	return code, nil
}
