// Package domain defines the core record type and validation for the
// optforge pipeline. It acts as the validation gate at stage entry points.
package domain

import "encoding/json"

// Known stage field keys in the JSONL representation.
const (
	KeySrcCode           = "src_code"
	KeyTgtCode           = "tgt_code"
	KeyAnalysis          = "analysis"
	KeyOptimizedFeatures = "optimized_features"
	KeySummary           = "summary"
	KeyPrompt            = "prompt"
	KeyCompletion        = "completion"
	KeyGeneratedAnswers  = "generated_answers"
)

// Record is the per-line unit flowing through the whole pipeline. Stage
// outputs accrete as optional fields; a nil pointer means the stage has
// not run. Unknown input fields (benchmark ids, runtime stats, ...) are
// preserved verbatim across stages.
type Record struct {
	SrcCode string
	TgtCode string

	Analysis          *string
	OptimizedFeatures *string
	Summary           *string
	Prompt            *string
	Completion        *string
	GeneratedAnswers  []string // non-nil once the optimize stage ran

	// Index is transient bookkeeping for order restoration. It is never
	// serialized.
	Index int

	// Input presence of the code fields, so an empty value read from a
	// file is re-emitted while a field the input never had is not
	// fabricated on write-out.
	hasSrc bool
	hasTgt bool

	extra map[string]json.RawMessage
}

// UnmarshalJSON decodes a record, pulling known string-valued fields into
// typed slots and keeping everything else (including known keys holding
// non-string values) in the passthrough set.
func (r *Record) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	takeString := func(key string) *string {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil // non-string value, leave in extra
		}
		delete(fields, key)
		return &s
	}

	if s := takeString(KeySrcCode); s != nil {
		r.SrcCode = *s
		r.hasSrc = true
	}
	if s := takeString(KeyTgtCode); s != nil {
		r.TgtCode = *s
		r.hasTgt = true
	}
	r.Analysis = takeString(KeyAnalysis)
	r.OptimizedFeatures = takeString(KeyOptimizedFeatures)
	r.Summary = takeString(KeySummary)
	r.Prompt = takeString(KeyPrompt)
	r.Completion = takeString(KeyCompletion)

	if raw, ok := fields[KeyGeneratedAnswers]; ok {
		var answers []string
		if err := json.Unmarshal(raw, &answers); err == nil {
			r.GeneratedAnswers = answers
			if r.GeneratedAnswers == nil {
				r.GeneratedAnswers = []string{}
			}
			delete(fields, KeyGeneratedAnswers)
		}
	}

	r.extra = fields
	return nil
}

// MarshalJSON re-assembles the record: passthrough fields first, then the
// typed fields that are present. The transient index never appears.
func (r Record) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(r.extra)+8)
	for k, v := range r.extra {
		fields[k] = v
	}

	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fields[key] = raw
		return nil
	}

	if r.hasSrc || r.SrcCode != "" {
		if err := put(KeySrcCode, r.SrcCode); err != nil {
			return nil, err
		}
	}
	if r.hasTgt || r.TgtCode != "" {
		if err := put(KeyTgtCode, r.TgtCode); err != nil {
			return nil, err
		}
	}
	for key, val := range map[string]*string{
		KeyAnalysis:          r.Analysis,
		KeyOptimizedFeatures: r.OptimizedFeatures,
		KeySummary:           r.Summary,
		KeyPrompt:            r.Prompt,
		KeyCompletion:        r.Completion,
	} {
		if val == nil {
			continue
		}
		if err := put(key, *val); err != nil {
			return nil, err
		}
	}
	if r.GeneratedAnswers != nil {
		if err := put(KeyGeneratedAnswers, r.GeneratedAnswers); err != nil {
			return nil, err
		}
	}

	return json.Marshal(fields)
}

// AnalysisText returns the analysis field as text: the typed value if a
// stage set it, otherwise the raw JSON of a non-string input value.
func (r *Record) AnalysisText() string { return r.fieldText(r.Analysis, KeyAnalysis) }

// FeaturesText returns the optimized_features field as text, falling back
// to the raw JSON when the corpus carries an already-parsed array.
func (r *Record) FeaturesText() string { return r.fieldText(r.OptimizedFeatures, KeyOptimizedFeatures) }

func (r *Record) fieldText(typed *string, key string) string {
	if typed != nil {
		return *typed
	}
	if raw, ok := r.extra[key]; ok {
		return string(raw)
	}
	return ""
}

// SetAnalysis records the analysis stage output, superseding any
// passthrough value for the same key.
func (r *Record) SetAnalysis(s string) {
	r.Analysis = &s
	delete(r.extra, KeyAnalysis)
}

// SetOptimizedFeatures records the extract stage output.
func (r *Record) SetOptimizedFeatures(s string) {
	r.OptimizedFeatures = &s
	delete(r.extra, KeyOptimizedFeatures)
}

// SetSummary records the summarize stage output.
func (r *Record) SetSummary(s string) {
	r.Summary = &s
	delete(r.extra, KeySummary)
}

// SetPrompt records the prompt used by the optimize stage.
func (r *Record) SetPrompt(s string) {
	r.Prompt = &s
	delete(r.extra, KeyPrompt)
}

// SetCompletion records the raw optimize stage completion.
func (r *Record) SetCompletion(s string) {
	r.Completion = &s
	delete(r.extra, KeyCompletion)
}
