package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Parameters is the closed set of typed parameter variants, one per supported
// entity type, plus a generic fallback for unrecognized types. Variants are
// parsed and validated at the presentation boundary; the engine only ever
// sees a well-formed variant.
type Parameters interface {
	// Kind returns the entity type the variant belongs to.
	Kind() string

	// Features returns the variant's numeric features for the model, keyed by
	// feature name. Absent signal is a zero-weight feature, never an error.
	Features() map[string]float64

	// CanonicalText renders the parameters deterministically for embedding.
	// Identical parameters always produce the identical string.
	CanonicalText() string
}

// TransactionParameters are the required parameters for entity_type "transaction".
type TransactionParameters struct {
	Amount             decimal.Decimal
	Currency           string
	TransactionType    string
	SourceCountry      string
	DestinationCountry string
}

func (p TransactionParameters) Kind() string { return "transaction" }

func (p TransactionParameters) Features() map[string]float64 {
	f := map[string]float64{
		"amount": p.Amount.InexactFloat64(),
	}
	if p.SourceCountry != "" && p.DestinationCountry != "" && p.SourceCountry != p.DestinationCountry {
		f["cross_border"] = 1
	}
	return f
}

func (p TransactionParameters) CanonicalText() string {
	return canonicalText("transaction", map[string]string{
		"amount":              p.Amount.String(),
		"currency":            p.Currency,
		"transaction_type":    p.TransactionType,
		"source_country":      p.SourceCountry,
		"destination_country": p.DestinationCountry,
	})
}

// AccountParameters are the required parameters for entity_type "account".
type AccountParameters struct {
	Amount         decimal.Decimal
	AccountAgeDays int
	Country        string
}

func (p AccountParameters) Kind() string { return "account" }

func (p AccountParameters) Features() map[string]float64 {
	return map[string]float64{
		"amount":           p.Amount.InexactFloat64(),
		"account_age_days": float64(p.AccountAgeDays),
	}
}

func (p AccountParameters) CanonicalText() string {
	return canonicalText("account", map[string]string{
		"amount":           p.Amount.String(),
		"account_age_days": fmt.Sprintf("%d", p.AccountAgeDays),
		"country":          p.Country,
	})
}

// GenericParameters is the fallback variant for entity types outside the
// configured set. Values are kept as strings; numeric ones become features.
type GenericParameters struct {
	EntityType string
	Values     map[string]string
	Numeric    map[string]float64
}

func (p GenericParameters) Kind() string { return p.EntityType }

func (p GenericParameters) Features() map[string]float64 {
	f := make(map[string]float64, len(p.Numeric))
	for k, v := range p.Numeric {
		f[k] = v
	}
	return f
}

func (p GenericParameters) CanonicalText() string {
	all := make(map[string]string, len(p.Values)+len(p.Numeric))
	for k, v := range p.Values {
		all[k] = v
	}
	for k, v := range p.Numeric {
		all[k] = trimFloat(v)
	}
	return canonicalText(p.EntityType, all)
}

// canonicalText renders key=value pairs in sorted key order so the embedding
// input is stable across runs.
func canonicalText(entityType string, kv map[string]string) string {
	keys := make([]string, 0, len(kv))
	for k, v := range kv {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(entityType)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kv[k])
	}
	return b.String()
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
