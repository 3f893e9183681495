// Package prevalidate rejects clearly-wrong queries before any SQL is
// built: low-confidence parses, missing required filters, and filter
// values absent from master data. All checks run in memory.
package prevalidate

import (
	"fmt"
	"strings"

	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
	"dataagentjp.io/querycore/internal/masterdata"
	"dataagentjp.io/querycore/internal/nlq"
)

const defaultMaxSuggestions = 5

// notFoundCodes maps a master data kind to its rejection code.
var notFoundCodes = map[masterdata.Kind]domain.ErrorCode{
	masterdata.KindItem:        domain.ErrorCodeItemNotFound,
	masterdata.KindWarehouse:   domain.ErrorCodeWarehouseNotFound,
	masterdata.KindWorkstation: domain.ErrorCodeWorkstationNotFound,
}

// masterParams fixes the order master-data-backed params are checked in,
// so the first reported miss is deterministic.
var masterParams = []string{"ITEM_NO", "WAREHOUSE", "WORKSTATION"}

// CatalogProvider hands the validator the current catalog snapshot.
type CatalogProvider interface {
	Current() *catalog.Store
}

// MasterProvider hands the validator the current master data snapshot.
type MasterProvider interface {
	Current() *masterdata.Store
}

type Params struct {
	Catalog CatalogProvider
	Master  MasterProvider

	// Aliases rewrites parsed intent names before catalog lookup, the
	// same map the resolver applies in MATCH_CONCEPTS.
	Aliases map[string]string

	ConfidenceGate float64
	MaxSuggestions int
}

// Validator runs the pre-flight checks on a parsed intent.
type Validator struct {
	catalog        CatalogProvider
	master         MasterProvider
	aliases        map[string]string
	gate           float64
	maxSuggestions int
}

func New(params Params) *Validator {
	maxSuggestions := params.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = defaultMaxSuggestions
	}
	return &Validator{
		catalog:        params.Catalog,
		master:         params.Master,
		aliases:        params.Aliases,
		gate:           params.ConfidenceGate,
		maxSuggestions: maxSuggestions,
	}
}

// Check returns nil when the parse may proceed, or the first failing
// diagnostic in check order: confidence gate, intent existence,
// required filters, master-data existence.
func (v *Validator) Check(parsed nlq.ParsedIntent) *domain.Diagnostic {
	store := v.catalog.Current()

	if parsed.Unknown() || parsed.Confidence < v.gate {
		return &domain.Diagnostic{
			Code:        domain.ErrorCodeIntentUnclear,
			Stage:       string(domain.StateParseNLQ),
			Message:     fmt.Sprintf("intent confidence %.2f below gate %.2f", parsed.Confidence, v.gate),
			Suggestions: intentIndex(store),
		}
	}

	name := parsed.Intent
	if alias, ok := v.aliases[name]; ok {
		name = alias
	}
	intent, ok := store.Intent(name)
	if !ok {
		return &domain.Diagnostic{
			Code:        domain.ErrorCodeIntentUnclear,
			Stage:       string(domain.StateParseNLQ),
			Message:     fmt.Sprintf("parsed intent %q is not in the catalog", parsed.Intent),
			Suggestions: intentIndex(store),
		}
	}

	if diag := v.checkRequiredFilters(store, intent, parsed.Params); diag != nil {
		return diag
	}
	return v.checkMasterData(parsed.Params)
}

func (v *Validator) checkRequiredFilters(store *catalog.Store, intent catalog.Intent, params map[string]domain.Value) *domain.Diagnostic {
	var missing []string
	for _, concept := range intent.RequiredFilters {
		key := domain.ParamForConcept(concept)
		if _, ok := params[key]; ok {
			continue
		}
		// A required date filter is satisfied by a parsed TIME_RANGE;
		// the resolver maps it onto this concept later.
		if isDateConcept(store, concept) {
			if _, ok := params[domain.ParamKeyTimeRange]; ok {
				continue
			}
		}
		missing = append(missing, key)
	}
	if len(missing) == 0 {
		return nil
	}
	return &domain.Diagnostic{
		Code:        domain.ErrorCodeMissingRequiredFilter,
		Stage:       string(domain.StateValidate),
		Message:     fmt.Sprintf("intent %s requires %s", intent.Name, strings.Join(missing, ", ")),
		Suggestions: missing,
	}
}

func (v *Validator) checkMasterData(params map[string]domain.Value) *domain.Diagnostic {
	master := v.master.Current()
	for _, key := range masterParams {
		value, ok := params[key]
		if !ok {
			continue
		}
		kind := masterdata.Kind(domain.ConceptForParam(key))
		if !master.Validatable(kind) {
			continue
		}
		for _, code := range codeValues(value) {
			if master.Exists(kind, code) {
				continue
			}
			return &domain.Diagnostic{
				Code:        notFoundCodes[kind],
				Stage:       string(domain.StateValidate),
				Message:     fmt.Sprintf("%s %q not found in master data", kind, code),
				Suggestions: master.Suggest(kind, code, v.maxSuggestions),
			}
		}
	}
	return nil
}

func isDateConcept(store *catalog.Store, name string) bool {
	concept, ok := store.Concept(name)
	if !ok {
		return false
	}
	return concept.DataType == "date" || concept.DataType == "datetime"
}

// codeValues flattens a param value into the codes to verify. Time
// ranges carry no master data codes.
func codeValues(value domain.Value) []string {
	switch value.Kind {
	case domain.ValueKindList:
		codes := make([]string, 0, len(value.List))
		for _, item := range value.List {
			codes = append(codes, fmt.Sprintf("%v", item))
		}
		return codes
	case domain.ValueKindTimeRange:
		return nil
	default:
		if value.Scalar == nil {
			return nil
		}
		return []string{fmt.Sprintf("%v", value.Scalar)}
	}
}

func intentIndex(store *catalog.Store) []string {
	intents := store.Intents()
	names := make([]string, len(intents))
	for i, intent := range intents {
		names[i] = intent.Name
	}
	return names
}
